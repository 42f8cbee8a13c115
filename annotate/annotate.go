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

package annotate

import (
	"fmt"
	"strconv"

	"github.com/leo-levin/weft/hw"
	"github.com/leo-levin/weft/ir"
	"github.com/leo-levin/weft/primitive"
)

func key(bundle string, idx int) string {
	return fmt.Sprintf("%s.%d", bundle, idx)
}

func localKey(spindle, local string, idx int) string {
	return fmt.Sprintf("%s$%s.%d", spindle, local, idx)
}

func returnKey(spindle string, idx int) string {
	return fmt.Sprintf("%s#%d", spindle, idx)
}

// depNode is one entity in the combined fixed-point universe: a
// top-level strand, a spindle-local strand, or a spindle return value.
type depNode struct {
	key   string
	expr  ir.Node
	scope string // "" for top-level, else the owning spindle's name
}

// Annotate runs the fixed-point signal-descriptor propagation over p and
// returns the descriptor set keyed by "bundle.index". Spindle-internal
// descriptors are computed as part of the same fixed point but are not
// included in the returned Set (callers only ever address strands by
// bundle/index; spindle purity/statefulness is exposed separately
// through ReturnDescriptor for the substitution/inlining pass).
func Annotate(p *ir.Program) (Set, *Result) {
	nodes, widths := collectNodes(p)

	descs := make(Set, len(nodes))
	for _, n := range nodes {
		descs[n.key] = localDescriptor(n.expr)
	}

	deps := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		deps[n.key] = collectDeps(p, n, widths)
	}

	for changed := true; changed; {
		changed = false
		for _, n := range nodes {
			d := descs[n.key]
			for _, dep := range deps[n.key] {
				if dd, ok := descs[dep]; ok && dd != d {
					if d.mergeFrom(dd) {
						changed = true
					}
				}
			}
		}
	}

	top := make(Set, len(p.Bundles))
	for k, d := range descs {
		if isTopLevelKey(k) {
			top[k] = d
		}
	}

	result := &Result{
		spindleReturns: make(map[string][]*Descriptor, len(p.Spindles)),
	}
	for name, s := range p.Spindles {
		rets := make([]*Descriptor, len(s.Returns))
		for i := range s.Returns {
			rets[i] = descs[returnKey(name, i)]
		}
		result.spindleReturns[name] = rets
	}
	return top, result
}

// Result carries the parts of the fixed point that aren't addressed by
// "bundle.index" (i.e. spindle return descriptors), for the
// substitution/inlining pass's purity predicate.
type Result struct {
	spindleReturns map[string][]*Descriptor
}

// ReturnDescriptor returns the signal descriptor computed for the
// idx'th return expression of spindle name.
func (r *Result) ReturnDescriptor(spindle string, idx int) (*Descriptor, bool) {
	rets, ok := r.spindleReturns[spindle]
	if !ok || idx < 0 || idx >= len(rets) {
		return nil, false
	}
	return rets[idx], true
}

func isTopLevelKey(k string) bool {
	for _, c := range k {
		if c == '$' || c == '#' {
			return false
		}
	}
	return true
}

func collectNodes(p *ir.Program) ([]depNode, map[string]int) {
	var nodes []depNode
	widths := map[string]int{}
	for name, b := range p.Bundles {
		widths[name] = b.Width()
		for _, s := range b.Strands {
			nodes = append(nodes, depNode{key: key(name, s.Index), expr: s.Expr})
		}
	}
	for sname, sp := range p.Spindles {
		for _, l := range sp.Locals {
			widths[sname+"$"+l.Name] = l.Width()
			for _, s := range l.Strands {
				nodes = append(nodes, depNode{key: localKey(sname, l.Name, s.Index), expr: s.Expr, scope: sname})
			}
		}
		for i, r := range sp.Returns {
			nodes = append(nodes, depNode{key: returnKey(sname, i), expr: r, scope: sname})
		}
	}
	return nodes, widths
}

// localDescriptor gathers the direct contributions of every Builtin
// reachable from expr: each strand's descriptor starts from the
// primitive-spec contributions of the built-ins its own expression
// calls, before any fixed-point propagation from its dependencies.
func localDescriptor(expr ir.Node) *Descriptor {
	d := newDescriptor()
	if expr == nil {
		return d
	}
	var visit func(ir.Node) ir.Visitor
	visit = func(n ir.Node) ir.Visitor {
		if n == nil {
			return nil
		}
		if b, ok := n.(*ir.Builtin); ok {
			if spec, ok := primitive.Lookup(b.Name); ok {
				for _, t := range spec.Hardware {
					d.Hardware.Add(t)
				}
				if spec.Stateful {
					d.Stateful = true
					d.Pure = false
				}
				for _, c := range spec.ForcesBound {
					d.Coords[c] = hw.Bound
				}
				if len(spec.Hardware) > 0 {
					d.Pure = false
				}
			}
		}
		return visitor(visit)
	}
	ir.Walk(visitor(visit), expr)
	return d
}

type visitor func(ir.Node) ir.Visitor

func (f visitor) Visit(n ir.Node) ir.Visitor { return f(n) }

// collectDeps returns every dependency key n's expression observes in
// the current tick: free-var references (resolved within n's scope)
// plus spindle-call edges (Extract(Call(spindle, args))).
func collectDeps(p *ir.Program, n depNode, widths map[string]int) []string {
	var deps []string
	fv := ir.CurrentTickFreeVars(n.expr)
	for ref := range fv {
		deps = append(deps, resolveFreeVar(n.scope, ref, widths)...)
	}
	var visit func(ir.Node) ir.Visitor
	visit = func(e ir.Node) ir.Visitor {
		if e == nil {
			return nil
		}
		if ex, ok := e.(*ir.Extract); ok {
			if c, ok := ex.Call.(*ir.Call); ok {
				if sp, ok := p.Spindles[c.Spindle]; ok && ex.Index >= 0 && ex.Index < len(sp.Returns) {
					deps = append(deps, returnKey(c.Spindle, ex.Index))
				}
			}
		}
		return visitor(visit)
	}
	ir.Walk(visitor(visit), n.expr)
	return deps
}

// resolveFreeVar expands one free-var key ("name" or "name.idx") into
// concrete dependency keys in n's scope (top-level bundle, or a
// spindle's local bundle).
func resolveFreeVar(scope, ref string, widths map[string]int) []string {
	name, idx, hasIdx := splitRef(ref)
	prefix, widthKey := "", name
	if scope != "" {
		prefix, widthKey = scope+"$", scope+"$"+name
	}
	if hasIdx {
		return []string{prefix + name + "." + strconv.Itoa(idx)}
	}
	w, ok := widths[widthKey]
	if !ok {
		return nil
	}
	out := make([]string, 0, w)
	for i := 0; i < w; i++ {
		out = append(out, prefix+name+"."+strconv.Itoa(i))
	}
	return out
}

func splitRef(ref string) (name string, idx int, hasIdx bool) {
	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] == '.' {
			n, err := strconv.Atoi(ref[i+1:])
			if err == nil {
				return ref[:i], n, true
			}
			break
		}
	}
	return ref, 0, false
}
