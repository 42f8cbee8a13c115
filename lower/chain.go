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

// namedNode is one strand produced by a chain: its name (possibly "")
// and its lowered expression.
type namedNode struct {
	name string
	node ir.Node
}

// lowerChain lowers a full "base -> {pattern0} -> {pattern1} -> ..."
// chain, returning the final pattern block's outputs.
func (c *ctx) lowerChain(chain *Chain) ([]namedNode, error) {
	prev, err := c.lowerChainBase(chain.Base)
	if err != nil {
		return nil, err
	}
	for _, pat := range chain.Patterns {
		prev, err = c.lowerPatternBlock(pat, prev)
		if err != nil {
			return nil, err
		}
	}
	out := make([]namedNode, len(prev.nodes))
	for i := range prev.nodes {
		out[i] = namedNode{name: prev.names[i], node: prev.nodes[i]}
	}
	return out, nil
}

// lowerChainBase lowers the base of a chain into a prevCtx, preserving
// strand names when the base is a bare whole-bundle reference (so the
// first pattern block can use ".name" accessors), and leaving names
// empty for any other kind of base expression.
func (c *ctx) lowerChainBase(base Expr) (*prevCtx, error) {
	if ref, ok := base.(*Ref); ok && ref.Bundle != "" && ref.Bundle != "me" &&
		ref.IndexExpr == nil && ref.Field == "" && ref.Range == nil {
		nodes, err := c.lowerRef(ref)
		if err != nil {
			return nil, err
		}
		b, err := c.resolveBundle(ref.Bundle)
		if err != nil {
			return nil, err
		}
		names := make([]string, len(b.Strands))
		for i, s := range b.Strands {
			names[i] = s.Name
		}
		return &prevCtx{nodes: nodes, names: names}, nil
	}
	nodes, err := c.lowerExprList(base)
	if err != nil {
		return nil, err
	}
	return &prevCtx{nodes: nodes, names: make([]string, len(nodes))}, nil
}

// resolveBundle looks up an already-lowered bundle by name, checking
// the current spindle's locals first.
func (c *ctx) resolveBundle(name string) (*ir.Bundle, error) {
	if c.spindle != nil {
		if _, ok := c.spindle.localDecls[name]; ok {
			return c.spindle.lowerLocal(name)
		}
	}
	return c.s.lowerBundle(name)
}

// lowerPatternBlock lowers one "{ ... }" pattern block against the
// previous step's context, expanding any ranges within each output.
func (c *ctx) lowerPatternBlock(pat Pattern, prev *prevCtx) (*prevCtx, error) {
	cc := c.withPrev(prev)
	var outNodes []ir.Node
	var outNames []string

	for _, out := range pat.Outputs {
		ranges := collectRanges(out.Expr)
		if len(ranges) == 0 {
			node, err := cc.lowerOne(out.Expr)
			if err != nil {
				return nil, err
			}
			outNodes = append(outNodes, node)
			outNames = append(outNames, out.Name)
			continue
		}

		bounds := make([][2]int, len(ranges))
		size := -1
		for i, r := range ranges {
			width, err := cc.rangeWidth(r)
			if err != nil {
				return nil, err
			}
			lo, hi, err := resolveRangeBounds(r.Range, width)
			if err != nil {
				return nil, err
			}
			bounds[i] = [2]int{lo, hi}
			s := hi - lo + 1
			if size == -1 {
				size = s
			} else if s != size {
				return nil, &Error{Kind: ErrRangeSizeMismatch, Detail: "all ranges in one pattern output must expand to the same size"}
			}
		}

		for it := 0; it < size; it++ {
			resolved := make(map[*Ref]int, len(ranges))
			for i, r := range ranges {
				resolved[r] = bounds[i][0] + it
			}
			expr := rewriteRanges(out.Expr, resolved)
			node, err := cc.lowerOne(expr)
			if err != nil {
				return nil, err
			}
			outNodes = append(outNodes, node)
			// A ranged output expands into several strands at once; it
			// cannot sensibly keep a single declared name, so each
			// expansion is unnamed (addressable positionally only).
			outNames = append(outNames, "")
		}
	}
	return &prevCtx{nodes: outNodes, names: outNames}, nil
}

// rangeWidth returns the width an open range endpoint in r resolves
// against: the named bundle's width for "bundle.(a..b)", or the
// previous step's width for a bare "(a..b)".
func (c *ctx) rangeWidth(r *Ref) (int, error) {
	if r.Bundle == "" {
		if c.prev == nil {
			return 0, &Error{Kind: ErrBareStrandOutsideCtx, Detail: "range accessor used outside a chain pattern"}
		}
		return len(c.prev.nodes), nil
	}
	if r.Bundle == "me" {
		return 0, &Error{Kind: ErrInvalidExpression, Detail: "me cannot be range-indexed"}
	}
	b, err := c.resolveBundle(r.Bundle)
	if err != nil {
		return 0, err
	}
	return b.Width(), nil
}

// resolveRangeBounds resolves a..b against width, honoring open ends and
// negative (modulo-width) endpoints.
func resolveRangeBounds(rng *Range, width int) (lo, hi int, err error) {
	lo = 0
	if rng.Lo != nil {
		k, ok := staticInt(rng.Lo)
		if !ok {
			return 0, 0, &Error{Kind: ErrInvalidExpression, Detail: "range endpoint must be a constant"}
		}
		lo = resolveNegative(k, width)
	}
	hi = width - 1
	if rng.Hi != nil {
		k, ok := staticInt(rng.Hi)
		if !ok {
			return 0, 0, &Error{Kind: ErrInvalidExpression, Detail: "range endpoint must be a constant"}
		}
		hi = resolveNegative(k, width)
	}
	if lo < 0 || lo >= width || hi < 0 || hi >= width {
		return 0, 0, &Error{Kind: ErrRangeOutOfBounds, Detail: "range endpoint out of width"}
	}
	if lo > hi {
		return 0, 0, &Error{Kind: ErrRangeOutOfBounds, Detail: "range endpoints out of order"}
	}
	return lo, hi, nil
}

// collectRanges returns every *Ref with a non-nil Range reachable from
// e, in left-to-right order.
func collectRanges(e Expr) []*Ref {
	var out []*Ref
	var walk func(Expr)
	walk = func(e Expr) {
		switch n := e.(type) {
		case nil:
		case Num:
		case *Ref:
			if n.Range != nil {
				out = append(out, n)
			}
		case *Binary:
			walk(n.Left)
			walk(n.Right)
		case *Unary:
			walk(n.Operand)
		case *Call:
			for _, a := range n.Args {
				walk(a)
			}
		case *Builtin:
			for _, a := range n.Args {
				walk(a)
			}
		case *Load:
			walk(n.U)
			walk(n.V)
		case *Text:
			walk(n.U)
			walk(n.V)
		case *Sample:
			walk(n.Offset)
		case *BundleLit:
			for _, el := range n.Elems {
				walk(el)
			}
		case *DynIndex:
			walk(n.Base)
			walk(n.Index)
		case *TemporalRemap:
			walk(n.Base)
			walk(n.At)
		case *Chain:
			walk(n.Base)
		}
	}
	walk(e)
	return out
}

// rewriteRanges replaces every Ref present in resolved with a concrete
// static index accessor.
func rewriteRanges(e Expr, resolved map[*Ref]int) Expr {
	switch n := e.(type) {
	case nil:
		return nil
	case Num:
		return n
	case *Ref:
		if idx, ok := resolved[n]; ok {
			return &Ref{Bundle: n.Bundle, IndexExpr: Num(idx)}
		}
		return n
	case *Binary:
		return &Binary{Op: n.Op, Left: rewriteRanges(n.Left, resolved), Right: rewriteRanges(n.Right, resolved)}
	case *Unary:
		return &Unary{Op: n.Op, Operand: rewriteRanges(n.Operand, resolved)}
	case *Call:
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = rewriteRanges(a, resolved)
		}
		return &Call{Spindle: n.Spindle, Args: args}
	case *Builtin:
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = rewriteRanges(a, resolved)
		}
		return &Builtin{Name: n.Name, Args: args}
	case *Load:
		return &Load{Path: n.Path, U: rewriteRanges(n.U, resolved), V: rewriteRanges(n.V, resolved)}
	case *Text:
		return &Text{Value: n.Value, U: rewriteRanges(n.U, resolved), V: rewriteRanges(n.V, resolved)}
	case *Sample:
		return &Sample{Path: n.Path, Offset: rewriteRanges(n.Offset, resolved)}
	case *BundleLit:
		elems := make([]Expr, len(n.Elems))
		for i, el := range n.Elems {
			elems[i] = rewriteRanges(el, resolved)
		}
		return &BundleLit{Elems: elems}
	case *DynIndex:
		return &DynIndex{Base: rewriteRanges(n.Base, resolved), Index: rewriteRanges(n.Index, resolved)}
	case *TemporalRemap:
		return &TemporalRemap{Base: rewriteRanges(n.Base, resolved), At: rewriteRanges(n.At, resolved)}
	case *Chain:
		return n // nested chains inside a ranged pattern output are not expanded
	default:
		return n
	}
}
