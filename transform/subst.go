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

// Package transform provides the substitution and inlining operations
// used by the cache manager and the pre-backend pipeline — parameter
// substitution, coordinate (remap) substitution, spindle inlining with
// cache retargeting, cycle detection and the purity predicate that
// decides whether a spindle can be emitted as a first-class function
// instead of inlined.
package transform

import (
	"strconv"

	"github.com/leo-levin/weft/ir"
)

// SubstituteParams walks expr, replacing each Param(name) with
// subs[name], and redirecting any Index whose resolved key
// ("bundle.index" or "bundle.field") is present in subs to the
// substituted value. Unmatched nodes are left alone; the
// result shares no mutable state with subs' values (each substitution
// site gets its own deep copy, since a local may be aliased at many
// call sites).
func SubstituteParams(expr ir.Node, subs map[string]ir.Node) ir.Node {
	if expr == nil {
		return nil
	}
	switch n := expr.(type) {
	case ir.Param:
		if v, ok := subs[string(n)]; ok {
			return ir.Copy(v)
		}
		return n
	case *ir.Index:
		if v, ok := indexRedirect(n, subs); ok {
			return ir.Copy(v)
		}
		return &ir.Index{
			Bundle:    n.Bundle,
			IndexExpr: SubstituteParams(n.IndexExpr, subs),
			Field:     n.Field,
		}
	default:
		return ir.MapChildren(expr, func(c ir.Node) ir.Node { return SubstituteParams(c, subs) })
	}
}

// indexRedirect looks up the substitution for an Index node, preferring
// its static-index key over its field-name key.
func indexRedirect(n *ir.Index, subs map[string]ir.Node) (ir.Node, bool) {
	if k, ok := n.StaticIndex(); ok {
		if v, ok := subs[n.Bundle+"."+strconv.Itoa(k)]; ok {
			return v, true
		}
	}
	if n.Field != "" {
		if v, ok := subs[n.Bundle+"."+n.Field]; ok {
			return v, true
		}
	}
	return nil, false
}

// ApplyRemap replaces every Index("me", ·, axis) reachable from expr
// with subs["me."+axis], recursively. Unlike
// SubstituteParams, this only ever redirects the fixed "me" bundle, and
// it keys purely on the coordinate Field, not on a static index.
func ApplyRemap(expr ir.Node, subs map[string]ir.Node) ir.Node {
	if expr == nil {
		return nil
	}
	if idx, ok := expr.(*ir.Index); ok && idx.Bundle == "me" && idx.Field != "" {
		if v, ok := subs["me."+idx.Field]; ok {
			return ir.Copy(v)
		}
	}
	return ir.MapChildren(expr, func(c ir.Node) ir.Node { return ApplyRemap(c, subs) })
}
