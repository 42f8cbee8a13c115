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

package cache

import "github.com/leo-levin/weft/ir"

// Rewrite applies the cycle-breaking program rewrite: every top-level
// strand expression is walked, and every Index(bundle, k) (or
// Index(bundle, field)) resolving to a recorded self-reference location
// is replaced with a CacheRead dereferencing the previous tick's value
// instead. Descriptor value expressions are never touched — they are
// read directly off the Descriptor, which Rewrite does not mutate.
func (t *Table) Rewrite(p *ir.Program) {
	if len(t.selfByIndex) == 0 && len(t.selfByName) == 0 {
		return
	}
	rw := &cacheRewriter{t: t}
	for _, b := range p.Bundles {
		for i := range b.Strands {
			b.Strands[i].Expr = ir.Rewrite(rw, b.Strands[i].Expr)
		}
	}
}

type cacheRewriter struct{ t *Table }

func (r *cacheRewriter) Walk(n ir.Node) ir.Rewriter { return r }

func (r *cacheRewriter) Rewrite(n ir.Node) ir.Node {
	ix, ok := n.(*ir.Index)
	if !ok {
		return n
	}
	if k, static := ix.StaticIndex(); static {
		if sr, found := r.t.selfByIndex[indexKey(ix.Bundle, k)]; found {
			return &ir.CacheRead{CacheID: sr.id, TapIndex: sr.tap}
		}
	}
	if ix.Field != "" {
		if sr, found := r.t.selfByName[nameKey(ix.Bundle, ix.Field)]; found {
			return &ir.CacheRead{CacheID: sr.id, TapIndex: sr.tap}
		}
	}
	return n
}
