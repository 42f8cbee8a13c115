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

package ir

import (
	"strconv"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// MapChildren returns a new node with each immediate child replaced by
// fn(child). Leaves are returned unchanged (fn is never called on them,
// since they have no children).
func MapChildren(n Node, fn func(Node) Node) Node {
	switch e := n.(type) {
	case *Index:
		if e.IndexExpr == nil {
			return e
		}
		return &Index{Bundle: e.Bundle, IndexExpr: fn(e.IndexExpr), Field: e.Field}
	case *Binary:
		return &Binary{Op: e.Op, Left: fn(e.Left), Right: fn(e.Right)}
	case *Unary:
		return &Unary{Op: e.Op, Operand: fn(e.Operand)}
	case *Call:
		args := make([]Node, len(e.Args))
		for i, a := range e.Args {
			args[i] = fn(a)
		}
		return &Call{Spindle: e.Spindle, Args: args}
	case *Extract:
		return &Extract{Call: fn(e.Call), Index: e.Index}
	case *Builtin:
		args := make([]Node, len(e.Args))
		for i, a := range e.Args {
			args[i] = fn(a)
		}
		return &Builtin{Name: e.Name, Args: args}
	case *Remap:
		subs := make(map[string]Node, len(e.Subs))
		keys := append([]string(nil), e.Keys...)
		for _, k := range keys {
			subs[k] = fn(e.Subs[k])
		}
		return &Remap{Base: fn(e.Base), Subs: subs, Keys: keys}
	default:
		// leaves: Num, Param, *CacheRead
		return n
	}
}

// Any reports whether pred matches n or any node reachable from it,
// short-circuiting on the first match.
func Any(n Node, pred func(Node) bool) bool {
	if n == nil {
		return false
	}
	if pred(n) {
		return true
	}
	found := false
	var visit visitFunc
	visit = func(c Node) Visitor {
		if c == nil || found {
			return nil
		}
		if pred(c) {
			found = true
			return nil
		}
		return visit
	}
	// visit n's children only; n itself was already tested above.
	n.walk(visit)
	return found
}

// FreeVars returns the set of "bundle.strand" keys (and bare bundle
// names, for dynamic references) that e observes in the current tick.
func FreeVars(e Node) map[string]struct{} {
	out := map[string]struct{}{}
	collectFreeVars(e, out, false)
	return out
}

// CurrentTickFreeVars is FreeVars, except that a temporal Remap's base
// free vars are excluded (they refer to previous ticks and are resolved
// via the cache, not via a current-tick dependency).
func CurrentTickFreeVars(e Node) map[string]struct{} {
	out := map[string]struct{}{}
	collectFreeVars(e, out, true)
	return out
}

func collectFreeVars(e Node, out map[string]struct{}, currentTickOnly bool) {
	switch n := e.(type) {
	case nil:
		return
	case Num, Param:
		return
	case *Index:
		if k, ok := n.StaticIndex(); ok {
			out[n.Bundle+"."+strconv.Itoa(k)] = struct{}{}
		} else {
			out[n.Bundle] = struct{}{}
			collectFreeVars(n.IndexExpr, out, currentTickOnly)
		}
	case *Binary:
		collectFreeVars(n.Left, out, currentTickOnly)
		collectFreeVars(n.Right, out, currentTickOnly)
	case *Unary:
		collectFreeVars(n.Operand, out, currentTickOnly)
	case *Call:
		for _, a := range n.Args {
			collectFreeVars(a, out, currentTickOnly)
		}
	case *Extract:
		collectFreeVars(n.Call, out, currentTickOnly)
	case *Builtin:
		for _, a := range n.Args {
			collectFreeVars(a, out, currentTickOnly)
		}
	case *Remap:
		base := map[string]struct{}{}
		collectFreeVars(n.Base, base, currentTickOnly)
		if !(currentTickOnly && n.IsTemporal()) {
			for k := range base {
				if _, substituted := n.Subs[k]; !substituted {
					out[k] = struct{}{}
				}
			}
		}
		for _, k := range n.Keys {
			collectFreeVars(n.Subs[k], out, currentTickOnly)
		}
	case *CacheRead:
		return
	}
}

// CollectBundleReferences returns the sorted names of bundles touched by
// e, excluding excludeMe (typically "me", which is not a real bundle).
func CollectBundleReferences(e Node, excludeMe string) []string {
	seen := map[string]struct{}{}
	var visit visitFunc
	visit = func(n Node) Visitor {
		if n == nil {
			return nil
		}
		if idx, ok := n.(*Index); ok && idx.Bundle != excludeMe {
			seen[idx.Bundle] = struct{}{}
		}
		return visit
	}
	Walk(visit, e)
	names := maps.Keys(seen)
	slices.Sort(names)
	return names
}

// UsesBuiltin reports whether e calls the named builtin anywhere.
func UsesBuiltin(e Node, name string) bool {
	return Any(e, func(n Node) bool {
		b, ok := n.(*Builtin)
		return ok && b.Name == name
	})
}

// ContainsCall reports whether e contains a spindle Call anywhere.
func ContainsCall(e Node) bool {
	return Any(e, func(n Node) bool {
		_, ok := n.(*Call)
		return ok
	})
}

// AllBuiltins returns the sorted, deduplicated set of builtin names used
// anywhere in e.
func AllBuiltins(e Node) []string {
	seen := map[string]struct{}{}
	var visit visitFunc
	visit = func(n Node) Visitor {
		if n == nil {
			return nil
		}
		if b, ok := n.(*Builtin); ok {
			seen[b.Name] = struct{}{}
		}
		return visit
	}
	Walk(visit, e)
	names := maps.Keys(seen)
	slices.Sort(names)
	return names
}
