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

// Package annotate runs a fixed-point propagation over inter-bundle
// references that derives, for every strand, its hardware requirements,
// coordinate access modes, purity and statefulness.
package annotate

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/leo-levin/weft/hw"
	"github.com/leo-levin/weft/ir"
)

// Descriptor is the per-strand signal descriptor: which hardware a
// strand touches, its coordinate access modes, and whether it is pure
// and/or stateful.
type Descriptor struct {
	Hardware hw.TokenSet
	Coords   hw.CoordinateSpec
	Pure     bool
	Stateful bool
}

func newDescriptor() *Descriptor {
	return &Descriptor{Hardware: hw.TokenSet{}, Coords: hw.CoordinateSpec{}, Pure: true}
}

// clone returns an independent copy of d.
func (d *Descriptor) clone() *Descriptor {
	return &Descriptor{Hardware: d.Hardware.Clone(), Coords: d.Coords.Clone(), Pure: d.Pure, Stateful: d.Stateful}
}

// mergeFrom unions o into d in place and reports whether d changed
// (used to detect fixed-point convergence). Hardware and Stateful are
// monotone (only grow); Pure only shrinks (true -> false); Coords merge
// with bound winning per coordinate.
func (d *Descriptor) mergeFrom(o *Descriptor) (changed bool) {
	for t := range o.Hardware {
		if !d.Hardware.Has(t) {
			d.Hardware.Add(t)
			changed = true
		}
	}
	for coord, mode := range o.Coords {
		cur, ok := d.Coords[coord]
		merged := mode
		if ok {
			merged = hw.Merge(cur, mode)
		}
		if !ok || merged != cur {
			d.Coords[coord] = merged
			changed = true
		}
	}
	if d.Pure && !o.Pure {
		d.Pure = false
		changed = true
	}
	if !d.Stateful && o.Stateful {
		d.Stateful = true
		changed = true
	}
	return changed
}

// Set maps a dense "bundle.index" key to its descriptor.
type Set map[string]*Descriptor

// Keys returns the set's keys in sorted order (useful for deterministic
// logs/tests).
func (s Set) Keys() []string {
	k := maps.Keys(s)
	slices.Sort(k)
	return k
}

// BundlePure reports whether every strand of bundle name is pure. A
// bundle is pure only if every one of its strands is pure; checking
// just the first strand would wrongly call a mixed bundle pure.
func (s Set) BundlePure(p *ir.Program, name string) bool {
	b, ok := p.Bundles[name]
	if !ok {
		return true
	}
	for i := range b.Strands {
		d, ok := s[key(name, i)]
		if !ok || !d.Pure {
			return false
		}
	}
	return true
}

// BundleHardware returns the union of hardware tokens across every
// strand of bundle name.
func (s Set) BundleHardware(p *ir.Program, name string) hw.TokenSet {
	out := hw.TokenSet{}
	b, ok := p.Bundles[name]
	if !ok {
		return out
	}
	for i := range b.Strands {
		if d, ok := s[key(name, i)]; ok {
			out = out.Union(d.Hardware)
		}
	}
	return out
}
