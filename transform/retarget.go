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

package transform

import (
	"strconv"

	"github.com/leo-levin/weft/ir"
)

// CachePair names a spindle-local strand whose defining expression
// contains a cache() builtin that, in turn, is fed (directly or through
// other locals) by that same local — the self-feeding pattern that
// retargeting needs to find: a cache-location whose value expression
// references a local that directly or transitively references the
// cache-location back.
type CachePair struct {
	Local      string // the local bundle that feeds the cache
	CacheLocal string // the local bundle whose expression contains the cache(...) call
}

// FindCacheLocalCycles returns every (local, cacheLocal) pair in sp
// where cacheLocal's strand expression contains a cache() builtin whose
// first argument references local directly, and local depends back on
// cacheLocal, directly or through other locals (current-tick only). A
// local that reaches the cache's value only through another local is
// not itself reported.
func FindCacheLocalCycles(sp *ir.Spindle) []CachePair {
	localDeps := make(map[string]map[string]struct{}, len(sp.Locals))
	cacheFeeders := make(map[string]map[string]struct{}, len(sp.Locals))

	localNames := make(map[string]struct{}, len(sp.Locals))
	for _, loc := range sp.Locals {
		localNames[loc.Name] = struct{}{}
	}

	for _, loc := range sp.Locals {
		deps := map[string]struct{}{}
		for _, s := range loc.Strands {
			for name := range referencedLocals(s.Expr, localNames) {
				deps[name] = struct{}{}
			}
		}
		localDeps[loc.Name] = deps

		feeders := map[string]struct{}{}
		ir.Walk(cacheArgVisitor(func(valueExpr ir.Node) {
			for name := range referencedLocals(valueExpr, localNames) {
				feeders[name] = struct{}{}
			}
		}), concatExprs(loc))
		cacheFeeders[loc.Name] = feeders
	}

	var pairs []CachePair
	for cacheLocal, feeders := range cacheFeeders {
		for feeder := range feeders {
			if feeder == cacheLocal {
				continue
			}
			if reachesCurrentTick(feeder, cacheLocal, localDeps) {
				pairs = append(pairs, CachePair{Local: feeder, CacheLocal: cacheLocal})
			}
		}
	}
	return pairs
}

// referencedLocals returns the subset of expr's current-tick free
// variable bundle names that name a local in names.
func referencedLocals(expr ir.Node, names map[string]struct{}) map[string]struct{} {
	out := map[string]struct{}{}
	for ref := range ir.CurrentTickFreeVars(expr) {
		name := ref
		if i := lastDot(ref); i >= 0 {
			name = ref[:i]
		}
		if _, ok := names[name]; ok {
			out[name] = struct{}{}
		}
	}
	return out
}

// reachesCurrentTick reports whether a path from -> to exists in the
// current-tick local dependency graph deps.
func reachesCurrentTick(from, to string, deps map[string]map[string]struct{}) bool {
	seen := map[string]struct{}{}
	var visit func(string) bool
	visit = func(n string) bool {
		if n == to {
			return true
		}
		if _, ok := seen[n]; ok {
			return false
		}
		seen[n] = struct{}{}
		for d := range deps[n] {
			if visit(d) {
				return true
			}
		}
		return false
	}
	return visit(from)
}

// concatExprs bundles loc's strand expressions into a single synthetic
// Builtin node purely so they can be walked together by ir.Walk.
func concatExprs(loc ir.Bundle) ir.Node {
	args := make([]ir.Node, 0, len(loc.Strands))
	for _, s := range loc.Strands {
		if s.Expr != nil {
			args = append(args, s.Expr)
		}
	}
	return &ir.Builtin{Name: "__group", Args: args}
}

// cacheArgVisitor invokes fn with the value argument of every cache()
// builtin encountered.
func cacheArgVisitor(fn func(ir.Node)) ir.Visitor {
	var v visitorFunc
	v = func(n ir.Node) ir.Visitor {
		if n == nil {
			return nil
		}
		if b, ok := n.(*ir.Builtin); ok && b.Name == "cache" && len(b.Args) == 4 {
			fn(b.Args[0])
		}
		return v
	}
	return v
}

type visitorFunc func(ir.Node) ir.Visitor

func (f visitorFunc) Visit(n ir.Node) ir.Visitor { return f(n) }

// InlineWithTarget is InlineReturns, except that any cache() builtin
// whose value expression (transitively) feeds back from a local found
// by FindCacheLocalCycles has that feedback redirected to
// Index(targetBundle, targetIndex) before substitution. This is what
// gives each call
// site of a spindle using feedback its own independent cache state,
// keyed by the caller's own bundle/strand rather than the spindle's
// internal local.
func InlineWithTarget(sp *ir.Spindle, args []ir.Node, targetBundle string, targetIndex int) ([]ir.Node, error) {
	if len(args) != len(sp.Params) {
		return nil, &Error{Kind: ErrArityMismatch, Spindle: sp.Name,
			Detail: "expected " + strconv.Itoa(len(sp.Params)) + " argument(s), got " + strconv.Itoa(len(args))}
	}
	order, err := topoSortLocals(sp)
	if err != nil {
		return nil, err
	}

	feedersByCacheLocal := map[string]map[string]struct{}{}
	for _, p := range FindCacheLocalCycles(sp) {
		if feedersByCacheLocal[p.CacheLocal] == nil {
			feedersByCacheLocal[p.CacheLocal] = map[string]struct{}{}
		}
		feedersByCacheLocal[p.CacheLocal][p.Local] = struct{}{}
	}
	target := &ir.Index{Bundle: targetBundle, IndexExpr: ir.Num(targetIndex)}

	subs := make(map[string]ir.Node, len(sp.Params)+4*len(order))
	for i, p := range sp.Params {
		subs[p] = args[i]
	}
	for _, li := range order {
		loc := &sp.Locals[li]
		for _, s := range loc.Strands {
			expr := s.Expr
			if feeders, ok := feedersByCacheLocal[loc.Name]; ok {
				expr = retargetCacheValue(expr, feeders, target)
			}
			substituted := SubstituteParams(expr, subs)
			subs[loc.Name+"."+strconv.Itoa(s.Index)] = substituted
			if s.Name != "" {
				subs[loc.Name+"."+s.Name] = substituted
			}
		}
	}

	out := make([]ir.Node, len(sp.Returns))
	for i, r := range sp.Returns {
		out[i] = SubstituteParams(r, subs)
	}
	return out, nil
}

// retargetCacheValue rewrites the value argument of every cache()
// builtin found in expr, redirecting any reference to a local named in
// feeders to target instead.
func retargetCacheValue(expr ir.Node, feeders map[string]struct{}, target ir.Node) ir.Node {
	if expr == nil {
		return nil
	}
	if b, ok := expr.(*ir.Builtin); ok && b.Name == "cache" && len(b.Args) == 4 {
		newArgs := make([]ir.Node, 4)
		newArgs[0] = redirectLocalRefs(b.Args[0], feeders, target)
		for i := 1; i < 4; i++ {
			newArgs[i] = retargetCacheValue(b.Args[i], feeders, target)
		}
		return &ir.Builtin{Name: "cache", Args: newArgs}
	}
	return ir.MapChildren(expr, func(c ir.Node) ir.Node { return retargetCacheValue(c, feeders, target) })
}

// redirectLocalRefs replaces every Index referencing a local named in
// feeders, anywhere in expr, with a copy of target.
func redirectLocalRefs(expr ir.Node, feeders map[string]struct{}, target ir.Node) ir.Node {
	if idx, ok := expr.(*ir.Index); ok {
		if _, isFeeder := feeders[idx.Bundle]; isFeeder {
			return ir.Copy(target)
		}
	}
	return ir.MapChildren(expr, func(c ir.Node) ir.Node { return redirectLocalRefs(c, feeders, target) })
}
