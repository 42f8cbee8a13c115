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

// Package cache handles discovery, classification, and runtime
// management of cache() feedback primitives — the delay lines that make
// self-referential signal definitions well-defined across ticks.
package cache

import (
	"github.com/leo-levin/weft/hw"
	"github.com/leo-levin/weft/ir"
)

// Domain classifies a cache descriptor by the backend domain that owns
// its update: if its location intersects the audio backend's owned
// hardware the cache is audio, otherwise it is visual.
type Domain int

const (
	DomainVisual Domain = iota
	DomainAudio
)

func (d Domain) String() string {
	if d == DomainAudio {
		return "audio"
	}
	return "visual"
}

// Descriptor is one discovered cache() primitive's identity: the
// location it was found at, its value/signal expressions, its ring
// depth, and whether it needs cycle breaking.
type Descriptor struct {
	ID ir.CacheID

	Bundle      string
	StrandIndex int
	StrandName  string

	// Value is the expression stored into the ring each tick (a copy,
	// never rewritten by cycle-breaking: it legitimately references the
	// owning location to describe what is computed next tick).
	Value ir.Node
	// Signal is the expression whose change gates advancing the ring.
	Signal ir.Node

	HistorySize int
	Domain      Domain

	SelfReferential bool
	// TapIndices holds every distinct tapIndex this descriptor was read
	// at, sorted ascending.
	TapIndices []int
}

// addTap records t in TapIndices, keeping the slice sorted; a tap that
// is already recorded is left as is.
func (d *Descriptor) addTap(t int) {
	for _, x := range d.TapIndices {
		if x == t {
			return
		}
	}
	i := 0
	for i < len(d.TapIndices) && d.TapIndices[i] < t {
		i++
	}
	d.TapIndices = append(d.TapIndices, 0)
	copy(d.TapIndices[i+1:], d.TapIndices[i:])
	d.TapIndices[i] = t
}

// classifyDomain applies the domain rule given the owning bundle's
// hardware set and the audio backend's owned hardware tokens.
func classifyDomain(bundleHW, audioHW hw.TokenSet) Domain {
	if bundleHW.Intersects(audioHW) {
		return DomainAudio
	}
	return DomainVisual
}
