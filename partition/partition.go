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

package partition

import (
	"sort"
	"strconv"

	"github.com/leo-levin/weft/annotate"
	"github.com/leo-levin/weft/hw"
	"github.com/leo-levin/weft/ir"
	"github.com/leo-levin/weft/primitive"
)

// Partition starts from every bundle owner declares as a sink, then
// walks the dependency graph assigning each
// strand to the sink's backend unless the strand's own hardware
// requirement names a different backend (in which case the strand
// belongs there instead, and the reference becomes a cross-domain
// slot). A strand with no hardware requirement is free to be walked
// independently from more than one sink's backend if it is pure, which
// is how shared pure strands end up duplicated rather than
// cross-domain; an unconstrained but stateful strand (uses cache())
// instead keeps a single owner — whichever backend reaches it first —
// so it is never ticked twice in one frame.
func Partition(p *ir.Program, top annotate.Set, owner HardwareOwner) (*Result, error) {
	res := &Result{Swatches: map[string]*Swatch{}, SlotMap: map[StrandKey]int{}}

	// requiredBackend looks only at tokens a strand's own expression
	// calls directly (via primitive.Lookup), not annotate.Set's fully
	// propagated Hardware field: that field deliberately unions in every
	// transitive dependency's hardware too, so a sink reading a foreign-
	// domain value would otherwise always inherit that hardware and get
	// reassigned away from its own declared backend, collapsing the
	// boundary the walk is supposed to find.
	required := map[StrandKey]string{}
	resolved := map[StrandKey]bool{}
	requiredBackend := func(k StrandKey) (string, error) {
		if resolved[k] {
			return required[k], nil
		}
		resolved[k] = true
		b, ok := p.Bundles[k.Bundle]
		if !ok {
			return "", nil
		}
		s, ok := b.ByIndex(k.Index)
		if !ok {
			return "", nil
		}
		backend := ""
		for tok := range directHardware(s.Expr) {
			owned, found := owner.OwnerOf(tok)
			if !found {
				continue
			}
			if backend == "" {
				backend = owned
			} else if backend != owned {
				return "", &Error{Kind: ErrConflictingHardware, Bundle: k.Bundle, Index: k.Index, Detail: backend + " vs " + owned}
			}
		}
		required[k] = backend
		return backend, nil
	}

	isPure := func(k StrandKey) bool {
		d, ok := top[k.Bundle+"."+strconv.Itoa(k.Index)]
		return !ok || d.Pure
	}
	claimedBy := map[StrandKey]string{}

	visited := map[string]map[StrandKey]bool{}
	visit := func(backend string, k StrandKey) bool {
		m, ok := visited[backend]
		if !ok {
			m = map[StrandKey]bool{}
			visited[backend] = m
		}
		if m[k] {
			return false
		}
		m[k] = true
		return true
	}

	swatch := func(backend string) *Swatch {
		sw, ok := res.Swatches[backend]
		if !ok {
			sw = newSwatch(backend)
			res.Swatches[backend] = sw
		}
		return sw
	}

	crossing := map[StrandKey]bool{}

	type work struct {
		backend string
		key     StrandKey
	}
	var queue []work

	var sinkNames []string
	for name := range p.Bundles {
		if _, ok := owner.SinkBackend(name); ok {
			sinkNames = append(sinkNames, name)
		}
	}
	sort.Strings(sinkNames)
	for _, name := range sinkNames {
		backend, _ := owner.SinkBackend(name)
		sw := swatch(backend)
		sw.Sinks = append(sw.Sinks, name)
		sw.addBundle(name)
		b := p.Bundles[name]
		for i := range b.Strands {
			queue = append(queue, work{backend: backend, key: StrandKey{Bundle: name, Index: i}})
		}
	}

	for len(queue) > 0 {
		w := queue[0]
		queue = queue[1:]
		if !visit(w.backend, w.key) {
			continue
		}

		req, err := requiredBackend(w.key)
		if err != nil {
			return nil, err
		}
		effective := req
		if effective == "" {
			switch {
			case isPure(w.key):
				effective = w.backend
			case claimedBy[w.key] != "":
				effective = claimedBy[w.key]
			default:
				effective = w.backend
				claimedBy[w.key] = w.backend
			}
		}

		if effective != w.backend {
			crossing[w.key] = true
			sw := swatch(w.backend)
			sw.Inputs = append(sw.Inputs, CrossDomainEdge{Bundle: w.key.Bundle, Strand: w.key.Index, Owner: effective})
			swatch(effective).addBundle(w.key.Bundle)
			queue = append(queue, work{backend: effective, key: w.key})
			continue
		}

		swatch(w.backend).addBundle(w.key.Bundle)
		for _, dep := range dependencies(p, w.key) {
			queue = append(queue, work{backend: w.backend, key: dep})
		}
	}

	if err := detectCycle(res.Swatches); err != nil {
		return nil, err
	}

	keys := make([]StrandKey, 0, len(crossing))
	for k := range crossing {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Bundle != keys[j].Bundle {
			return keys[i].Bundle < keys[j].Bundle
		}
		return keys[i].Index < keys[j].Index
	})
	for i, k := range keys {
		res.SlotMap[k] = i
	}
	for _, sw := range res.Swatches {
		for i := range sw.Inputs {
			e := &sw.Inputs[i]
			e.Slot = res.SlotMap[StrandKey{Bundle: e.Bundle, Index: e.Strand}]
		}
	}

	return res, nil
}

// directHardware collects the hardware tokens e's own built-in calls
// name directly, ignoring whatever a referenced bundle/strand requires.
// Mirrors the hardware-collecting half of annotate.localDescriptor,
// specialised to returning just the token set partition needs.
func directHardware(e ir.Node) hw.TokenSet {
	out := hw.TokenSet{}
	var visit func(ir.Node) ir.Visitor
	visit = func(n ir.Node) ir.Visitor {
		if n == nil {
			return nil
		}
		if b, ok := n.(*ir.Builtin); ok {
			if spec, ok := primitive.Lookup(b.Name); ok {
				for _, t := range spec.Hardware {
					out[t] = struct{}{}
				}
			}
		}
		return visitFunc(visit)
	}
	ir.Walk(visitFunc(visit), e)
	return out
}

type visitFunc func(ir.Node) ir.Visitor

func (f visitFunc) Visit(n ir.Node) ir.Visitor { return f(n) }

// dependencies expands the current-tick free variables of the strand
// named by k into concrete (bundle, index) keys, widening a bare bundle
// reference (dynamic index) to every strand of that bundle. Mirrors
// annotate.resolveFreeVar, specialised to the top-level-only scope
// partitioning runs in (by this stage every spindle call has already
// been inlined away).
func dependencies(p *ir.Program, k StrandKey) []StrandKey {
	b, ok := p.Bundles[k.Bundle]
	if !ok {
		return nil
	}
	s, ok := b.ByIndex(k.Index)
	if !ok {
		return nil
	}
	var out []StrandKey
	for ref := range ir.CurrentTickFreeVars(s.Expr) {
		name, idx, hasIdx := splitRef(ref)
		if hasIdx {
			out = append(out, StrandKey{Bundle: name, Index: idx})
			continue
		}
		db, ok := p.Bundles[name]
		if !ok {
			continue
		}
		for i := 0; i < db.Width(); i++ {
			out = append(out, StrandKey{Bundle: name, Index: i})
		}
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

// detectCycle reports an error if the swatch-level dependency graph
// (consumer -> owner, from each CrossDomainEdge) is cyclic.
func detectCycle(swatches map[string]*Swatch) error {
	const white, gray, black = 0, 1, 2
	color := map[string]int{}

	var dfs func(string) error
	dfs = func(b string) error {
		color[b] = gray
		sw := swatches[b]
		deps := map[string]bool{}
		for _, e := range sw.Inputs {
			deps[e.Owner] = true
		}
		names := make([]string, 0, len(deps))
		for d := range deps {
			names = append(names, d)
		}
		sort.Strings(names)
		for _, d := range names {
			switch color[d] {
			case gray:
				return &Error{Kind: ErrSwatchCycle, Detail: b + " -> " + d}
			case white:
				if err := dfs(d); err != nil {
					return err
				}
			}
		}
		color[b] = black
		return nil
	}

	names := make([]string, 0, len(swatches))
	for b := range swatches {
		names = append(names, b)
	}
	sort.Strings(names)
	for _, b := range names {
		if color[b] == white {
			if err := dfs(b); err != nil {
				return err
			}
		}
	}
	return nil
}
