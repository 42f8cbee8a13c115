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

// prevCtx is the "implicit previous" context available while lowering a
// chain pattern's outputs: the previous step's strand expressions (and,
// when available, their names).
type prevCtx struct {
	nodes []ir.Node
	names []string
}

// ctx carries everything needed to lower one expression: which scope it
// is being lowered in (top level or inside a given spindle) and, while
// inside a chain pattern, the previous step's context.
type ctx struct {
	s       *scope
	spindle *spindleScope // nil at top level
	params  map[string]struct{}
	prev    *prevCtx
}

func (c *ctx) withPrev(p *prevCtx) *ctx {
	n := *c
	n.prev = p
	return &n
}

// lowerOne lowers e and requires it to be exactly width 1.
func (c *ctx) lowerOne(e Expr) (ir.Node, error) {
	nodes, err := c.lowerExprList(e)
	if err != nil {
		return nil, err
	}
	if len(nodes) != 1 {
		return nil, &Error{Kind: ErrWidthMismatch, Detail: "expected a width-1 expression"}
	}
	return nodes[0], nil
}

// lowerExprList lowers e to its full list of ground IR expressions, one
// per strand of value it produces. Width inference is fused with
// lowering so each expression's width is known exactly where it is
// computed.
func (c *ctx) lowerExprList(e Expr) ([]ir.Node, error) {
	switch n := e.(type) {
	case Num:
		return []ir.Node{ir.Num(n)}, nil
	case *Ref:
		return c.lowerRef(n)
	case *Binary:
		l, err := c.lowerOne(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := c.lowerOne(n.Right)
		if err != nil {
			return nil, err
		}
		return []ir.Node{&ir.Binary{Op: n.Op, Left: l, Right: r}}, nil
	case *Unary:
		o, err := c.lowerOne(n.Operand)
		if err != nil {
			return nil, err
		}
		return []ir.Node{&ir.Unary{Op: n.Op, Operand: o}}, nil
	case *Call:
		return c.lowerCall(n)
	case *Builtin:
		args := make([]ir.Node, len(n.Args))
		for i, a := range n.Args {
			v, err := c.lowerOne(a)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return []ir.Node{&ir.Builtin{Name: n.Name, Args: args}}, nil
	case *Load:
		return c.lowerLoad(n)
	case *Text:
		u, err := c.lowerOne(n.U)
		if err != nil {
			return nil, err
		}
		v, err := c.lowerOne(n.V)
		if err != nil {
			return nil, err
		}
		id := c.s.prog.InternText(n.Value)
		return []ir.Node{&ir.Builtin{Name: "text", Args: []ir.Node{ir.Num(id), u, v}}}, nil
	case *Sample:
		return c.lowerSample(n)
	case *BundleLit:
		var out []ir.Node
		for _, el := range n.Elems {
			vs, err := c.lowerExprList(el)
			if err != nil {
				return nil, err
			}
			out = append(out, vs...)
		}
		return out, nil
	case *DynIndex:
		base, err := c.lowerExprList(n.Base)
		if err != nil {
			return nil, err
		}
		idx, err := c.lowerOne(n.Index)
		if err != nil {
			return nil, err
		}
		return []ir.Node{&ir.Builtin{Name: "select", Args: append([]ir.Node{idx}, base...)}}, nil
	case *TemporalRemap:
		base, err := c.lowerOne(n.Base)
		if err != nil {
			return nil, err
		}
		at, err := c.lowerOne(n.At)
		if err != nil {
			return nil, err
		}
		return []ir.Node{&ir.Remap{Base: base, Subs: map[string]ir.Node{"me.t": at}, Keys: []string{"me.t"}}}, nil
	case *Chain:
		named, err := c.lowerChain(n)
		if err != nil {
			return nil, err
		}
		out := make([]ir.Node, len(named))
		for i, nn := range named {
			out[i] = nn.node
		}
		return out, nil
	default:
		return nil, &Error{Kind: ErrInvalidExpression, Detail: "unrecognized expression node"}
	}
}

func (c *ctx) lowerLoad(n *Load) ([]ir.Node, error) {
	id := c.s.prog.InternResource(n.Path)
	u, v, err := c.resolveUV(n.U, n.V)
	if err != nil {
		return nil, err
	}
	out := make([]ir.Node, 3)
	for ch := 0; ch < 3; ch++ {
		out[ch] = &ir.Builtin{Name: "texture", Args: []ir.Node{ir.Num(id), u, v, ir.Num(ch)}}
	}
	return out, nil
}

func (c *ctx) lowerSample(n *Sample) ([]ir.Node, error) {
	id := c.s.prog.InternResource(n.Path)
	offset := n.Offset
	var offNode ir.Node
	var err error
	if offset == nil {
		offNode = meIndex("i")
	} else {
		offNode, err = c.lowerOne(offset)
		if err != nil {
			return nil, err
		}
	}
	out := make([]ir.Node, 2)
	for ch := 0; ch < 2; ch++ {
		out[ch] = &ir.Builtin{Name: "sample", Args: []ir.Node{ir.Num(id), offNode, ir.Num(ch)}}
	}
	return out, nil
}

func (c *ctx) resolveUV(uExpr, vExpr Expr) (u, v ir.Node, err error) {
	if uExpr == nil {
		u = meIndex("x")
	} else if u, err = c.lowerOne(uExpr); err != nil {
		return nil, nil, err
	}
	if vExpr == nil {
		v = meIndex("y")
	} else if v, err = c.lowerOne(vExpr); err != nil {
		return nil, nil, err
	}
	return u, v, nil
}

func meIndex(field string) ir.Node {
	return &ir.Index{Bundle: "me", IndexExpr: ir.Num(coordSlot(field)), Field: field}
}

func (c *ctx) lowerCall(n *Call) ([]ir.Node, error) {
	decl, ok := c.s.spindleDecls[n.Spindle]
	if !ok {
		return nil, &Error{Kind: ErrUnknownSpindle, Detail: "call to undeclared spindle: " + n.Spindle}
	}
	if len(n.Args) != len(decl.Params) {
		return nil, &Error{Kind: ErrArityMismatch, Where: n.Spindle,
			Detail: "spindle expects " + strconv.Itoa(len(decl.Params)) + " argument(s)"}
	}
	args := make([]ir.Node, len(n.Args))
	for i, a := range n.Args {
		v, err := c.lowerOne(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	// Lower the spindle body itself on demand: this validates it (and
	// records it in the program) even if, by coincidence, nothing else
	// ever calls lowerSpindle directly for it.
	if _, err := c.s.lowerSpindle(n.Spindle); err != nil {
		return nil, err
	}
	width := len(decl.Returns)
	out := make([]ir.Node, width)
	for i := 0; i < width; i++ {
		call := &ir.Call{Spindle: n.Spindle, Args: cloneArgs(args)}
		out[i] = &ir.Extract{Call: call, Index: i}
	}
	return out, nil
}

func cloneArgs(args []ir.Node) []ir.Node {
	out := make([]ir.Node, len(args))
	for i, a := range args {
		out[i] = ir.Copy(a)
	}
	return out
}
