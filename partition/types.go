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

// Package partition groups strands into per-backend swatches starting
// from declared output sinks, with cross-domain slot assignment for
// strands that cross a backend boundary.
package partition

import "github.com/leo-levin/weft/hw"

// HardwareOwner answers the two questions the partitioner needs from
// the backend registry: which backend owns a hardware token, and which
// backend (if any) claims a bundle as one of its sinks. Defined here,
// rather than imported from `backend`, so this package has no
// dependency on it — `backend.Registry` implements this interface
// structurally.
type HardwareOwner interface {
	OwnerOf(tok hw.Token) (backend string, ok bool)
	SinkBackend(bundle string) (backend string, ok bool)
}

// Swatch is one backend's partition: the bundles it owns, whether any
// of them is a declared sink, and the cross-domain inputs it consumes
// from other swatches.
type Swatch struct {
	Backend string
	Bundles map[string]struct{}
	Sinks   []string
	Inputs  []CrossDomainEdge
}

func newSwatch(backend string) *Swatch {
	return &Swatch{Backend: backend, Bundles: map[string]struct{}{}}
}

func (s *Swatch) addBundle(name string) {
	s.Bundles[name] = struct{}{}
}

// CrossDomainEdge names one (bundle, strand) pair that crosses a
// partition boundary: Owner is the backend that computes it, Slot is
// its dense index in the program-wide cross-domain slot map.
type CrossDomainEdge struct {
	Bundle string
	Strand int
	Owner  string
	Slot   int
}

// Result is the complete output of Partition: one swatch per backend
// that owns anything, plus the program-wide slot assignment (sorted by
// bundle then strand) backing every CrossDomainEdge.Slot above.
type Result struct {
	Swatches map[string]*Swatch
	SlotMap  map[StrandKey]int
}

// StrandKey names one (bundle, strand index) pair.
type StrandKey struct {
	Bundle string
	Index  int
}
