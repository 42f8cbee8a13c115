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

import "github.com/leo-levin/weft/ir"

// spindleScope owns the lazy, memoized lowering of one spindle's local
// bundles, mirroring scope's bundle resolution but scoped to a single
// spindle body.
type spindleScope struct {
	parent      *scope
	name        string
	decl        *SpindleDecl
	localDecls  map[string]*BundleDecl
	locals      map[string]*ir.Bundle
	state       map[string]resolveState
	params      map[string]struct{}
}

// lowerSpindle fully lowers the named spindle's locals and returns,
// memoized. Unlike bundles, a spindle's own width (its return count) is
// known directly from its declaration, so resolving a Call to this
// spindle never needs to recurse into lowerSpindle first.
func (s *scope) lowerSpindle(name string) (*ir.Spindle, error) {
	if sp, ok := s.prog.Spindles[name]; ok {
		return sp, nil
	}
	decl, ok := s.spindleDecls[name]
	if !ok {
		return nil, &Error{Kind: ErrUnknownSpindle, Detail: "no such spindle: " + name}
	}
	if len(decl.Returns) == 0 {
		return nil, &Error{Kind: ErrInvalidExpression, Where: name, Detail: "spindle has no return values"}
	}
	if s.spindleState[name] == resolving {
		// Already being lowered further up the call stack (a spindle
		// calling itself, directly or through another spindle): the
		// caller only needed this to validate/register the callee, which
		// is already in progress, so there is nothing further to do here.
		return nil, nil
	}
	s.spindleState[name] = resolving
	defer func() { s.spindleState[name] = resolved }()

	ss := &spindleScope{
		parent:     s,
		name:       name,
		decl:       decl,
		localDecls: map[string]*BundleDecl{},
		locals:     map[string]*ir.Bundle{},
		state:      map[string]resolveState{},
		params:     map[string]struct{}{},
	}
	for _, p := range decl.Params {
		ss.params[p] = struct{}{}
	}
	for i := range decl.Locals {
		ld := &decl.Locals[i]
		if _, dup := ss.localDecls[ld.Name]; dup {
			return nil, &Error{Kind: ErrInvalidExpression, Where: name + "$" + ld.Name, Detail: "local bundle declared more than once"}
		}
		ss.localDecls[ld.Name] = ld
	}
	for _, ld := range decl.Locals {
		if _, err := ss.lowerLocal(ld.Name); err != nil {
			return nil, err
		}
	}

	c := &ctx{s: s, spindle: ss, params: ss.params}
	returns := make([]ir.Node, len(decl.Returns))
	for i, r := range decl.Returns {
		nodes, err := c.lowerExprList(r)
		if err != nil {
			return nil, err
		}
		if len(nodes) != 1 {
			return nil, &Error{Kind: ErrWidthMismatch, Where: name, Detail: "return value must be width 1"}
		}
		returns[i] = nodes[0]
	}

	localsSlice := make([]ir.Bundle, len(decl.Locals))
	for i, ld := range decl.Locals {
		localsSlice[i] = *ss.locals[ld.Name]
	}
	sp := &ir.Spindle{Name: name, Params: decl.Params, Locals: localsSlice, Returns: returns}
	s.prog.Spindles[name] = sp
	return sp, nil
}

func (ss *spindleScope) lowerLocal(name string) (*ir.Bundle, error) {
	if b, ok := ss.locals[name]; ok {
		return b, nil
	}
	decl, ok := ss.localDecls[name]
	if !ok {
		return nil, &Error{Kind: ErrUnknownBundle, Where: ss.name, Detail: "no such local bundle: " + name}
	}
	switch ss.state[name] {
	case resolving:
		return nil, &Error{Kind: ErrCircularDependency, Where: ss.name + "$" + name,
			Detail: "local " + name + " depends on itself with no cache to break the cycle"}
	}
	ss.state[name] = resolving

	b := &ir.Bundle{Name: name}
	c := &ctx{s: ss.parent, spindle: ss, params: ss.params}
	for _, src := range decl.Sources {
		if err := ss.parent.lowerSource(b, src, c); err != nil {
			return nil, err
		}
	}
	ss.state[name] = resolved
	ss.locals[name] = b
	return b, nil
}
