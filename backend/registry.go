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

// Package backend is a process-wide, init-once directory of backend
// declarations (identifier, owned hardware, owned/external built-ins,
// coordinate defaults, and input/output bindings), with lookup by
// hardware token, sink bundle name, and built-in name. Consumed by
// `partition` (via the HardwareOwner interface it defines) and by the
// coordinator; never by the IR layers.
package backend

import (
	"sort"

	"github.com/leo-levin/weft/hw"
)

// Declaration is one backend's static registration data: its identifier,
// owned hardware set, owned and externally-supplied built-ins,
// coordinate spec, and sink/source bindings.
type Declaration struct {
	ID               string
	Hardware         hw.TokenSet
	OwnedBuiltins    []string
	ExternalBuiltins []string
	Coords           hw.CoordinateSpec
	Sinks            []string // bundle names this backend claims as output sinks
	Sources          []string // built-in names this backend provides as input sources
}

// Registry is the populated, read-only-after-init directory.
type Registry struct {
	byID      map[string]*Declaration
	byToken   map[hw.Token]string
	bySink    map[string]string
	byBuiltin map[string]string
}

// NewRegistry returns an empty registry ready for Register calls.
func NewRegistry() *Registry {
	return &Registry{
		byID:      map[string]*Declaration{},
		byToken:   map[hw.Token]string{},
		bySink:    map[string]string{},
		byBuiltin: map[string]string{},
	}
}

// Register adds a backend declaration, indexing its hardware tokens,
// sinks and owned built-ins for lookup. It is an error for two backends
// to claim the same hardware token, sink bundle, or owned built-in.
func (r *Registry) Register(d *Declaration) error {
	if _, dup := r.byID[d.ID]; dup {
		return &Error{Kind: ErrDuplicateBackend, Detail: d.ID}
	}
	for tok := range d.Hardware {
		if owner, ok := r.byToken[tok]; ok {
			return &Error{Kind: ErrHardwareConflict, Detail: tok.String() + " already owned by " + owner}
		}
	}
	for _, s := range d.Sinks {
		if owner, ok := r.bySink[s]; ok {
			return &Error{Kind: ErrSinkConflict, Detail: s + " already claimed by " + owner}
		}
	}
	for _, b := range d.OwnedBuiltins {
		if owner, ok := r.byBuiltin[b]; ok {
			return &Error{Kind: ErrBuiltinConflict, Detail: b + " already owned by " + owner}
		}
	}

	r.byID[d.ID] = d
	for tok := range d.Hardware {
		r.byToken[tok] = d.ID
	}
	for _, s := range d.Sinks {
		r.bySink[s] = d.ID
	}
	for _, b := range d.OwnedBuiltins {
		r.byBuiltin[b] = d.ID
	}
	return nil
}

// OwnerOf reports which backend owns a hardware token. Implements
// partition.HardwareOwner.
func (r *Registry) OwnerOf(tok hw.Token) (string, bool) {
	id, ok := r.byToken[tok]
	return id, ok
}

// SinkBackend reports which backend claims bundle as one of its output
// sinks. Implements partition.HardwareOwner.
func (r *Registry) SinkBackend(bundle string) (string, bool) {
	id, ok := r.bySink[bundle]
	return id, ok
}

// BuiltinOwner reports which backend owns the named hardware-dependent
// built-in.
func (r *Registry) BuiltinOwner(name string) (string, bool) {
	id, ok := r.byBuiltin[name]
	return id, ok
}

// Lookup returns the full declaration for a backend id.
func (r *Registry) Lookup(id string) (*Declaration, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// IDs returns every registered backend id, sorted.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.byID))
	for id := range r.byID {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
