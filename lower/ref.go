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

func (c *ctx) lowerRef(n *Ref) ([]ir.Node, error) {
	if n.Range != nil {
		return nil, &Error{Kind: ErrInvalidExpression, Detail: "range accessor used outside range expansion"}
	}
	if n.Bundle == "" {
		return c.lowerBareRef(n)
	}
	if n.Bundle == "me" {
		if n.Field == "" {
			return nil, &Error{Kind: ErrInvalidExpression, Detail: "me must be accessed by coordinate name"}
		}
		return []ir.Node{meIndex(n.Field)}, nil
	}
	if c.spindle != nil {
		if _, ok := c.params[n.Bundle]; ok {
			if n.Field != "" || n.IndexExpr != nil {
				return nil, &Error{Kind: ErrInvalidExpression, Detail: "parameter " + n.Bundle + " is not indexable"}
			}
			return []ir.Node{ir.Param(n.Bundle)}, nil
		}
		if _, ok := c.spindle.localDecls[n.Bundle]; ok {
			b, err := c.spindle.lowerLocal(n.Bundle)
			if err != nil {
				return nil, err
			}
			return c.lowerBundleAccess(n, n.Bundle, b)
		}
	}
	b, err := c.s.lowerBundle(n.Bundle)
	if err != nil {
		return nil, err
	}
	return c.lowerBundleAccess(n, n.Bundle, b)
}

// lowerBundleAccess lowers a Ref's Field/IndexExpr/whole-bundle forms
// once the named bundle b has already been resolved.
func (c *ctx) lowerBundleAccess(n *Ref, name string, b *ir.Bundle) ([]ir.Node, error) {
	if n.Field != "" {
		s, ok := b.ByName(n.Field)
		if !ok {
			return nil, &Error{Kind: ErrUnknownStrand, Where: name, Detail: "no strand named " + n.Field}
		}
		return []ir.Node{&ir.Index{Bundle: name, IndexExpr: ir.Num(s.Index), Field: n.Field}}, nil
	}
	if n.IndexExpr != nil {
		if k, ok := staticInt(n.IndexExpr); ok {
			k = resolveNegative(k, b.Width())
			if k < 0 || k >= b.Width() {
				return nil, &Error{Kind: ErrRangeOutOfBounds, Where: name, Detail: "index out of range"}
			}
			return []ir.Node{&ir.Index{Bundle: name, IndexExpr: ir.Num(k)}}, nil
		}
		idx, err := c.lowerOne(n.IndexExpr)
		if err != nil {
			return nil, err
		}
		return []ir.Node{&ir.Index{Bundle: name, IndexExpr: idx}}, nil
	}
	out := make([]ir.Node, b.Width())
	for i := 0; i < b.Width(); i++ {
		out[i] = &ir.Index{Bundle: name, IndexExpr: ir.Num(i)}
	}
	return out, nil
}

func (c *ctx) lowerBareRef(n *Ref) ([]ir.Node, error) {
	if c.prev == nil {
		return nil, &Error{Kind: ErrBareStrandOutsideCtx, Detail: "bare strand accessor used outside a chain pattern"}
	}
	if n.Field != "" {
		for i, nm := range c.prev.names {
			if nm == n.Field {
				return []ir.Node{c.prev.nodes[i]}, nil
			}
		}
		return nil, &Error{Kind: ErrUnknownStrand, Detail: "previous step has no output named " + n.Field}
	}
	if n.IndexExpr != nil {
		if k, ok := staticInt(n.IndexExpr); ok {
			k = resolveNegative(k, len(c.prev.nodes))
			if k < 0 || k >= len(c.prev.nodes) {
				return nil, &Error{Kind: ErrRangeOutOfBounds, Detail: "previous-step index out of range"}
			}
			return []ir.Node{c.prev.nodes[k]}, nil
		}
		idx, err := c.lowerOne(n.IndexExpr)
		if err != nil {
			return nil, err
		}
		return []ir.Node{&ir.Builtin{Name: "select", Args: append([]ir.Node{idx}, c.prev.nodes...)}}, nil
	}
	return append([]ir.Node(nil), c.prev.nodes...), nil
}
