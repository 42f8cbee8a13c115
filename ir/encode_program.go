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

package ir

import "encoding/json"

type wireStrand struct {
	Name  string          `json:"name"`
	Index int             `json:"index"`
	Expr  json.RawMessage `json:"expr"`
}

type wireBundle struct {
	Name    string       `json:"name"`
	Strands []wireStrand `json:"strands"`
}

type wireSpindle struct {
	Name    string            `json:"name"`
	Params  []string          `json:"params"`
	Locals  []wireBundle      `json:"locals"`
	Returns []json.RawMessage `json:"returns"`
}

type wireDeclRef struct {
	Bundle  string `json:"bundle"`
	Strands []int  `json:"strands,omitempty"`
}

type wireProgram struct {
	Bundles       map[string]wireBundle  `json:"bundles"`
	Spindles      map[string]wireSpindle `json:"spindles"`
	Order         []wireDeclRef          `json:"order"`
	Resources     []string               `json:"resources"`
	TextResources []string               `json:"textResources"`
}

// EncodeProgram serializes p into the tagged-union program format.
func EncodeProgram(p *Program) (json.RawMessage, error) {
	w := wireProgram{
		Bundles:       make(map[string]wireBundle, len(p.Bundles)),
		Spindles:      make(map[string]wireSpindle, len(p.Spindles)),
		Resources:     p.Resources,
		TextResources: p.TextResources,
	}
	for name, b := range p.Bundles {
		wb, err := encodeBundle(b)
		if err != nil {
			return nil, err
		}
		w.Bundles[name] = wb
	}
	for name, s := range p.Spindles {
		ws, err := encodeSpindle(s)
		if err != nil {
			return nil, err
		}
		w.Spindles[name] = ws
	}
	for _, d := range p.Order {
		w.Order = append(w.Order, wireDeclRef{Bundle: d.Bundle, Strands: d.Strands})
	}
	return json.Marshal(w)
}

func encodeBundle(b *Bundle) (wireBundle, error) {
	wb := wireBundle{Name: b.Name}
	for _, s := range b.Strands {
		raw, err := Encode(s.Expr)
		if err != nil {
			return wireBundle{}, err
		}
		wb.Strands = append(wb.Strands, wireStrand{Name: s.Name, Index: s.Index, Expr: raw})
	}
	return wb, nil
}

func encodeSpindle(s *Spindle) (wireSpindle, error) {
	ws := wireSpindle{Name: s.Name, Params: s.Params}
	for i := range s.Locals {
		wb, err := encodeBundle(&s.Locals[i])
		if err != nil {
			return wireSpindle{}, err
		}
		ws.Locals = append(ws.Locals, wb)
	}
	for _, r := range s.Returns {
		raw, err := Encode(r)
		if err != nil {
			return wireSpindle{}, err
		}
		ws.Returns = append(ws.Returns, raw)
	}
	return ws, nil
}

// DecodeProgram parses the tagged-union program format. Missing
// resources/textResources default to empty.
func DecodeProgram(raw json.RawMessage) (*Program, error) {
	var w wireProgram
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, decodeErr(InvalidStructure, "%v", err)
	}
	p := NewProgram()
	for name, wb := range w.Bundles {
		b, err := decodeBundle(wb)
		if err != nil {
			return nil, err
		}
		p.Bundles[name] = b
	}
	for name, ws := range w.Spindles {
		s, err := decodeSpindle(ws)
		if err != nil {
			return nil, err
		}
		p.Spindles[name] = s
	}
	for _, d := range w.Order {
		p.Order = append(p.Order, DeclRef{Bundle: d.Bundle, Strands: d.Strands})
	}
	p.Resources = w.Resources
	p.TextResources = w.TextResources
	return p, nil
}

func decodeBundle(wb wireBundle) (*Bundle, error) {
	b := &Bundle{Name: wb.Name}
	for _, ws := range wb.Strands {
		e, err := Decode(ws.Expr)
		if err != nil {
			return nil, err
		}
		b.Strands = append(b.Strands, Strand{Name: ws.Name, Index: ws.Index, Expr: e})
	}
	return b, nil
}

func decodeSpindle(ws wireSpindle) (*Spindle, error) {
	s := &Spindle{Name: ws.Name, Params: ws.Params}
	for _, wb := range ws.Locals {
		b, err := decodeBundle(wb)
		if err != nil {
			return nil, err
		}
		s.Locals = append(s.Locals, *b)
	}
	for _, raw := range ws.Returns {
		e, err := Decode(raw)
		if err != nil {
			return nil, err
		}
		s.Returns = append(s.Returns, e)
	}
	return s, nil
}
