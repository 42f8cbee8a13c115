// Copyright (C) 2026 Leo Levin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package lower

import (
	"strconv"

	"github.com/leo-levin/weft/ir"
)

// resolveState tracks a bundle's position in the recursive, on-demand
// lowering driver: bundles are lowered lazily, the first time something
// references them, with a recursion-stack cycle guard. Topological
// ordering falls out of this for free, recorded as each bundle
// finishes.
type resolveState int

const (
	unresolved resolveState = iota
	resolving
	resolved
)

// scope owns the whole lowering run: declaration tables, the program
// under construction, and the lazy bundle-resolution machinery.
type scope struct {
	prog *ir.Program

	bundleDecls  map[string]*BundleDecl
	spindleDecls map[string]*SpindleDecl

	state        map[string]resolveState
	spindleState map[string]resolveState
}

func newScope(ast *AST) (*scope, error) {
	s := &scope{
		prog:         ir.NewProgram(),
		bundleDecls:  map[string]*BundleDecl{},
		spindleDecls: map[string]*SpindleDecl{},
		state:        map[string]resolveState{},
		spindleState: map[string]resolveState{},
	}
	for i := range ast.Spindles {
		sp := &ast.Spindles[i]
		if _, dup := s.spindleDecls[sp.Name]; dup {
			return nil, &Error{Kind: ErrDuplicateSpindle, Where: sp.Name, Detail: "spindle declared more than once"}
		}
		s.spindleDecls[sp.Name] = sp
	}
	for i := range ast.Bundles {
		b := &ast.Bundles[i]
		if _, dup := s.bundleDecls[b.Name]; dup {
			return nil, &Error{Kind: ErrInvalidExpression, Where: b.Name, Detail: "bundle declared more than once"}
		}
		s.bundleDecls[b.Name] = b
	}
	return s, nil
}

// lowerBundle fully lowers the named top-level bundle (and, transitively,
// everything it depends on), memoized, and appends it to the program's
// topological declaration order the first time it completes.
func (s *scope) lowerBundle(name string) (*ir.Bundle, error) {
	if b, ok := s.prog.Bundles[name]; ok {
		return b, nil
	}
	decl, ok := s.bundleDecls[name]
	if !ok {
		return nil, &Error{Kind: ErrUnknownBundle, Detail: "no such bundle: " + name}
	}
	switch s.state[name] {
	case resolving:
		return nil, &Error{Kind: ErrCircularDependency, Where: name, Detail: "bundle " + name + " depends on itself with no cache to break the cycle"}
	case resolved:
		// Already resolved but prog.Bundles lookup above missed it: should
		// not happen, but guard against it rather than looping forever.
		return nil, &Error{Kind: ErrInvalidExpression, Where: name, Detail: "internal: bundle marked resolved but not recorded"}
	}
	s.state[name] = resolving

	b := &ir.Bundle{Name: name}
	c := &ctx{s: s}
	for _, src := range decl.Sources {
		if err := s.lowerSource(b, src, c); err != nil {
			return nil, err
		}
	}
	s.state[name] = resolved
	s.prog.Bundles[name] = b
	s.prog.Order = append(s.prog.Order, ir.DeclRef{Bundle: name})
	return b, nil
}

// lowerSource lowers one StrandSource and appends its resulting
// strand(s) to b.
func (s *scope) lowerSource(b *ir.Bundle, src StrandSource, c *ctx) error {
	if src.Chain != nil {
		named, err := c.lowerChain(src.Chain)
		if err != nil {
			return err
		}
		for _, nn := range named {
			b.Strands = append(b.Strands, ir.Strand{Name: nn.name, Index: len(b.Strands), Expr: nn.node})
		}
		return nil
	}
	nodes, err := c.lowerExprList(src.Expr)
	if err != nil {
		return err
	}
	if len(nodes) != 1 {
		return &Error{Kind: ErrWidthMismatch, Where: b.Name + "." + src.Name,
			Detail: "expected a width-1 expression, got width " + strconv.Itoa(len(nodes))}
	}
	b.Strands = append(b.Strands, ir.Strand{Name: src.Name, Index: len(b.Strands), Expr: nodes[0]})
	return nil
}
