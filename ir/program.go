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

// Strand is a single named, positioned scalar expression within a
// Bundle.
type Strand struct {
	Name  string
	Index int
	Expr  Node
}

// Bundle is a named ordered sequence of strands. Indices are a prefix
// of the non-negative integers; names are unique within the bundle.
type Bundle struct {
	Name    string
	Strands []Strand
}

// ByName returns the strand with the given name, or ok=false.
func (b *Bundle) ByName(name string) (Strand, bool) {
	for _, s := range b.Strands {
		if s.Name == name {
			return s, true
		}
	}
	return Strand{}, false
}

// ByIndex returns the strand at the given index, or ok=false.
func (b *Bundle) ByIndex(i int) (Strand, bool) {
	if i < 0 || i >= len(b.Strands) {
		return Strand{}, false
	}
	return b.Strands[i], true
}

// Width is the number of strands in the bundle.
func (b *Bundle) Width() int { return len(b.Strands) }

// Spindle is a user-defined function: a name, ordered parameters,
// ordered local bundles (each shaped like a top-level Bundle) and an
// ordered, non-empty list of return expressions.
type Spindle struct {
	Name    string
	Params  []string
	Locals  []Bundle
	Returns []Node
}

// LocalByName returns the local bundle with the given name.
func (s *Spindle) LocalByName(name string) (*Bundle, bool) {
	for i := range s.Locals {
		if s.Locals[i].Name == name {
			return &s.Locals[i], true
		}
	}
	return nil, false
}

// DeclRef names one entry of the program's topological declaration
// order: either a whole bundle (Strands nil) or specific strands of it.
type DeclRef struct {
	Bundle  string
	Strands []int // nil means "the whole bundle, in index order"
}

// Program is a complete lowered, annotated (and possibly
// cache-transformed) unit: bundles, spindles, a topological declaration
// order, and interned resource tables.
type Program struct {
	Bundles  map[string]*Bundle
	Spindles map[string]*Spindle
	Order    []DeclRef

	// Resources holds deduplicated external resource paths (images,
	// audio files) referenced via load()/sample(); indices into this
	// slice are the resourceId argument of the texture/sample builtins.
	Resources []string
	// TextResources holds deduplicated text-resource strings
	// referenced via text().
	TextResources []string
}

// NewProgram returns an empty, ready-to-populate Program.
func NewProgram() *Program {
	return &Program{
		Bundles:  map[string]*Bundle{},
		Spindles: map[string]*Spindle{},
	}
}

// InternResource appends path to Resources if it is not already
// present (exact string equality) and returns its 0-based id.
func (p *Program) InternResource(path string) int {
	for i, r := range p.Resources {
		if r == path {
			return i
		}
	}
	p.Resources = append(p.Resources, path)
	return len(p.Resources) - 1
}

// InternText appends text to TextResources if not already present and
// returns its 0-based id.
func (p *Program) InternText(text string) int {
	for i, r := range p.TextResources {
		if r == text {
			return i
		}
	}
	p.TextResources = append(p.TextResources, text)
	return len(p.TextResources) - 1
}

// Strands returns the strand expressions named by a DeclRef, in order.
func (p *Program) Strands(d DeclRef) []Strand {
	b, ok := p.Bundles[d.Bundle]
	if !ok {
		return nil
	}
	if d.Strands == nil {
		return b.Strands
	}
	out := make([]Strand, 0, len(d.Strands))
	for _, i := range d.Strands {
		if s, ok := b.ByIndex(i); ok {
			out = append(out, s)
		}
	}
	return out
}

// Walk calls fn for every (bundle, strand) pair in declaration order.
func (p *Program) Walk(fn func(bundle string, s Strand)) {
	for _, d := range p.Order {
		for _, s := range p.Strands(d) {
			fn(d.Bundle, s)
		}
	}
}
