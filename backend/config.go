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

package backend

import (
	"sigs.k8s.io/yaml"

	"github.com/leo-levin/weft/hw"
)

// configDoc is the on-disk shape of a registry configuration: a list of
// backend declarations using plain strings for hardware tokens and
// coordinate access modes, decoded via sigs.k8s.io/yaml (JSON tags).
type configDoc struct {
	Backends []backendDoc `json:"backends"`
}

type backendDoc struct {
	ID               string            `json:"id"`
	Hardware         []string          `json:"hardware"`
	OwnedBuiltins    []string          `json:"ownedBuiltins"`
	ExternalBuiltins []string          `json:"externalBuiltins"`
	Coords           map[string]string `json:"coords"`
	Sinks            []string          `json:"sinks"`
	Sources          []string          `json:"sources"`
}

// LoadRegistryConfig parses a YAML registry document and returns a
// populated, validated Registry.
func LoadRegistryConfig(data []byte) (*Registry, error) {
	var doc configDoc
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return nil, err
	}
	r := NewRegistry()
	for _, bd := range doc.Backends {
		d, err := bd.toDeclaration()
		if err != nil {
			return nil, err
		}
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (bd backendDoc) toDeclaration() (*Declaration, error) {
	hwSet := hw.TokenSet{}
	for _, name := range bd.Hardware {
		tok, ok := parseToken(name)
		if !ok {
			return nil, &Error{Kind: ErrUnknownToken, Detail: name}
		}
		hwSet.Add(tok)
	}
	coords := hw.CoordinateSpec{}
	for axis, mode := range bd.Coords {
		m, ok := parseMode(mode)
		if !ok {
			return nil, &Error{Kind: ErrUnknownMode, Detail: mode}
		}
		coords[axis] = m
	}
	return &Declaration{
		ID:               bd.ID,
		Hardware:         hwSet,
		OwnedBuiltins:    bd.OwnedBuiltins,
		ExternalBuiltins: bd.ExternalBuiltins,
		Coords:           coords,
		Sinks:            bd.Sinks,
		Sources:          bd.Sources,
	}, nil
}

func parseToken(name string) (hw.Token, bool) {
	switch name {
	case "camera":
		return hw.TokCamera, true
	case "microphone":
		return hw.TokMicrophone, true
	case "speaker":
		return hw.TokSpeaker, true
	case "gpu":
		return hw.TokGPU, true
	case "":
		return hw.Token{}, false
	default:
		return hw.CustomToken(name), true
	}
}

func parseMode(mode string) (hw.AccessMode, bool) {
	switch mode {
	case "free":
		return hw.Free, true
	case "bound":
		return hw.Bound, true
	default:
		return 0, false
	}
}
