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

package eval

import "github.com/leo-levin/weft/ir"

// State holds every cache() ring buffer an evaluation run has touched.
// It mirrors cache.Manager's per-tick update algorithm at IR-expression
// granularity rather than descriptor granularity, so a
// standalone expression can be evaluated tick-by-tick without first
// running discovery, classification or the cycle-breaking rewrite.
type State struct {
	byNode map[nodeKey]*ring
	byID   map[ir.CacheID]*ring
}

// nodeKey identifies one cache() occurrence at one call site. A
// spindle's body (and therefore its cache() builtins) is one shared
// AST reused by every call site, so the call site distinguishes
// otherwise-identical-looking occurrences into independent rings.
type nodeKey struct {
	owner    *ir.Builtin
	callSite *ir.Call
}

// NewState returns an empty cache state; reuse the same *State across
// every tick of one simulated run so rings persist, and start a fresh
// one for an independent run. Two call sites of the same spindle share
// one cache() *ir.Builtin node but get distinct rings, because rings
// are keyed on the call site as well (see nodeKey).
func NewState() *State {
	return &State{byNode: map[nodeKey]*ring{}, byID: map[ir.CacheID]*ring{}}
}

type ring struct {
	history    []float64
	writeIdx   int
	lastSignal float64
	haveSignal bool
}

func newRing(h int) *ring {
	if h < 1 {
		h = 1
	}
	return &ring{history: make([]float64, h)}
}

// peek returns the current tap read without advancing the ring.
func (r *ring) peek(tap int) float64 {
	h := len(r.history)
	idx := ((r.writeIdx-1-tap)%h + 2*h) % h
	return r.history[idx]
}

// tick advances the ring if signal differs from the last tick's signal
// (or this is the first tick), storing value at the write position,
// then returns the tap read.
func (r *ring) tick(tap int, value, signal float64) float64 {
	h := len(r.history)
	if !r.haveSignal || signal != r.lastSignal || isNaN(signal) != isNaN(r.lastSignal) {
		r.lastSignal = signal
		r.haveSignal = true
		r.history[r.writeIdx] = value
		r.writeIdx = (r.writeIdx + 1) % h
	}
	return r.peek(tap)
}

func isNaN(f float64) bool { return f != f }

func (s *State) ringForNode(b *ir.Builtin, callSite *ir.Call, h int) *ring {
	key := nodeKey{owner: b, callSite: callSite}
	r, ok := s.byNode[key]
	if !ok {
		r = newRing(h)
		s.byNode[key] = r
	}
	return r
}

// PeekCache reads cache id's current tap value without advancing it.
// Returns 0 if id has never been ticked.
func (s *State) PeekCache(id ir.CacheID, tap int) float64 {
	r, ok := s.byID[id]
	if !ok {
		return 0
	}
	return r.peek(tap)
}

// TickCache runs cache.Manager's update algorithm for a CacheRead-style
// identity directly, for tests that want to exercise cache purity at
// the IR/state layer without wiring a full cache.Table.
func (s *State) TickCache(id ir.CacheID, historySize, tap int, value, signal float64) float64 {
	r, ok := s.byID[id]
	if !ok {
		r = newRing(historySize)
		s.byID[id] = r
	}
	return r.tick(tap, value, signal)
}
