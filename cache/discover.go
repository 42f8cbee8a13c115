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

import (
	"strconv"

	"github.com/leo-levin/weft/annotate"
	"github.com/leo-levin/weft/hw"
	"github.com/leo-levin/weft/ir"
	"github.com/leo-levin/weft/transform"
)

// maxDiscoveryDepth bounds the recursive call-expansion used for
// discovery only; it never mutates the program. Mirrors
// transform.maxInlineRounds's bound on the real inlining pass.
const maxDiscoveryDepth = 64

// Table holds every cache descriptor discovered in a program, plus the
// self-reference location index the cycle-breaking rewrite consults.
type Table struct {
	Descriptors []*Descriptor
	byID        map[ir.CacheID]*Descriptor

	// selfByIndex and selfByName map an owning location to the
	// descriptor (and tap) a current-tick reference there must be
	// redirected to. Both the numeric-index and field-name forms of a
	// self-reference normalize to the same descriptor identity (see
	// DESIGN.md decision #2); the first self-referential cache()
	// discovered at a location wins if more than one is ever found
	// there.
	selfByIndex map[string]selfRef
	selfByName  map[string]selfRef
}

type selfRef struct {
	id  ir.CacheID
	tap int
}

// dedupKey groups candidate cache() occurrences that should share one
// descriptor: two calls on the same bundle/strand with equal value and
// signal expressions dedup to one descriptor — tapIndex and
// historySize do not participate in identity, only in which ring depth
// and which slot is read.
type dedupKey struct {
	bundle string
	strand int
	bucket uint64 // StructuralHash(value) ^ StructuralHash(signal), pre-filter
}

// Discover walks every top-level bundle strand (inlining spindle calls
// along the way, so caches nested inside a spindle body are attributed
// to the top-level location that calls it) and produces one Descriptor
// per distinct cache() primitive found.
func Discover(p *ir.Program, top annotate.Set, audioHW hw.TokenSet) (*Table, error) {
	t := &Table{
		byID:        map[ir.CacheID]*Descriptor{},
		selfByIndex: map[string]selfRef{},
		selfByName:  map[string]selfRef{},
	}
	buckets := map[dedupKey][]*Descriptor{}

	for name, b := range p.Bundles {
		bundleHW := top.BundleHardware(p, name)
		for _, s := range b.Strands {
			expanded := expandCalls(p, s.Expr, 0)
			found := findCacheCalls(expanded)
			for _, raw := range found {
				raw.selfRef = isSelfReferential(raw.value, name, s.Index, s.Name)
				d := t.resolve(buckets, name, s, raw, bundleHW, audioHW)
				d.addTap(raw.tapIndex)
				if raw.selfRef {
					d.SelfReferential = true
					if _, seen := t.selfByIndex[indexKey(name, s.Index)]; !seen {
						t.selfByIndex[indexKey(name, s.Index)] = selfRef{id: d.ID, tap: raw.tapIndex}
						if s.Name != "" {
							t.selfByName[nameKey(name, s.Name)] = selfRef{id: d.ID, tap: raw.tapIndex}
						}
					}
				}
			}
		}
	}
	return t, nil
}

func indexKey(bundle string, idx int) string { return bundle + "." + strconv.Itoa(idx) }
func nameKey(bundle, name string) string     { return bundle + "." + name }

// isSelfReferential reports whether value references the owning
// bundle/strand at numeric index or by field name.
func isSelfReferential(value ir.Node, bundle string, idx int, name string) bool {
	return ir.Any(value, func(n ir.Node) bool {
		ix, ok := n.(*ir.Index)
		if !ok || ix.Bundle != bundle {
			return false
		}
		if k, static := ix.StaticIndex(); static && k == idx {
			return true
		}
		return name != "" && ix.Field == name
	})
}

// resolve finds or creates the descriptor for raw, deduplicating by
// (bundle, strand, value, signal) structural equality.
func (t *Table) resolve(buckets map[dedupKey][]*Descriptor, bundle string, s ir.Strand, raw rawCache, bundleHW, audioHW hw.TokenSet) *Descriptor {
	bucket := ir.StructuralHash(raw.value) ^ ir.StructuralHash(raw.signal)
	dk := dedupKey{bundle: bundle, strand: s.Index, bucket: bucket}
	for _, cand := range buckets[dk] {
		if ir.Equal(cand.Value, raw.value) && ir.Equal(cand.Signal, raw.signal) {
			return cand
		}
	}
	d := &Descriptor{
		ID:          ir.NewCacheID(),
		Bundle:      bundle,
		StrandIndex: s.Index,
		StrandName:  s.Name,
		Value:       raw.value,
		Signal:      raw.signal,
		HistorySize: raw.historySize,
		Domain:      classifyDomain(bundleHW, audioHW),
	}
	buckets[dk] = append(buckets[dk], d)
	t.Descriptors = append(t.Descriptors, d)
	t.byID[d.ID] = d
	return d
}

// ByID looks up a descriptor by its stable identity.
func (t *Table) ByID(id ir.CacheID) (*Descriptor, bool) {
	d, ok := t.byID[id]
	return d, ok
}

// rawCache is one cache() occurrence found during discovery, before
// dedup/identity assignment.
type rawCache struct {
	value, signal ir.Node
	historySize   int
	tapIndex      int
	selfRef       bool
}

// findCacheCalls collects every Builtin("cache", [value, H, T, signal])
// in e with constant H and T>=0. A historySize of less than 1 is
// clamped to 1 rather than dropping the occurrence: cache(v, 0, 0, sig)
// is a one-deep ring, not a no-op, and still needs a descriptor so it
// gets a buffer and participates in self-reference detection like any
// other cache() call. Self-reference tagging needs the owning
// bundle/strand, which only the caller knows, so rawCache.selfRef is
// left false here and filled in by Discover.
func findCacheCalls(e ir.Node) []rawCache {
	var out []rawCache
	var visit visitFunc
	visit = func(n ir.Node) ir.Visitor {
		if n == nil {
			return nil
		}
		if b, ok := n.(*ir.Builtin); ok && b.Name == "cache" && len(b.Args) == 4 {
			h, hOK := staticNum(b.Args[1])
			t, tOK := staticNum(b.Args[2])
			if hOK && tOK && t >= 0 {
				if h < 1 {
					h = 1
				}
				out = append(out, rawCache{value: b.Args[0], signal: b.Args[3], historySize: h, tapIndex: t})
			}
		}
		return visit
	}
	ir.Walk(visitFunc(visit), e)
	return out
}

type visitFunc func(ir.Node) ir.Visitor

func (f visitFunc) Visit(n ir.Node) ir.Visitor { return f(n) }

func staticNum(n ir.Node) (int, bool) {
	v, ok := n.(ir.Num)
	if !ok {
		return 0, false
	}
	return int(v), true
}

// expandCalls fully inlines every spindle Call reachable from e so
// discovery can see cache() primitives nested inside spindle bodies,
// without mutating the program (the substitution/inlining pass already
// does this earlier in the pipeline; this is a defensive, read-only
// re-expansion so discovery is correct even if called on a program that
// was not already fully inlined).
func expandCalls(p *ir.Program, e ir.Node, depth int) ir.Node {
	if e == nil || depth > maxDiscoveryDepth {
		return e
	}
	if ex, ok := e.(*ir.Extract); ok {
		if call, ok := ex.Call.(*ir.Call); ok {
			if sp, ok := p.Spindles[call.Spindle]; ok {
				rets, err := transform.InlineReturns(sp, call.Args)
				if err == nil && ex.Index >= 0 && ex.Index < len(rets) {
					return expandCalls(p, rets[ex.Index], depth+1)
				}
			}
		}
		return e
	}
	return ir.MapChildren(e, func(c ir.Node) ir.Node { return expandCalls(p, c, depth) })
}
