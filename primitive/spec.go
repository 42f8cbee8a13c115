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

// Package primitive holds the canonical, backend-agnostic metadata for
// every built-in function: arity, statefulness, implied hardware
// ownership, and the effect invocation has on coordinate access modes.
package primitive

import (
	"fmt"

	"github.com/leo-levin/weft/hw"
)

// Spec describes one built-in's call-site contract.
type Spec struct {
	Name string

	// MinArity is the minimum argument count. If Variadic is false,
	// MinArity is also the exact (maximum) argument count.
	MinArity int
	Variadic bool

	// Stateful builtins carry evaluation state across ticks (only
	// "cache" today; CacheRead nodes produced by the cache manager are
	// not Builtin nodes and do not consult this table at all).
	Stateful bool

	// Hardware lists the tokens that using this builtin implies
	// ownership of.
	Hardware []hw.Token

	// ForcesBound lists "me" coordinate names that invocation pins to
	// hw.Bound regardless of their backend default (e.g.
	// microphone(offset) forces "t" to bound).
	ForcesBound []string
}

// table is the canonical catalogue. Keys are the lower-case builtin
// name exactly as it appears in IR Builtin.Name.
var table = map[string]Spec{
	// Math: IEEE-754 float semantics, pure, arity 1 except atan2/pow.
	"sin": {Name: "sin", MinArity: 1}, "cos": {Name: "cos", MinArity: 1},
	"tan": {Name: "tan", MinArity: 1}, "asin": {Name: "asin", MinArity: 1},
	"acos": {Name: "acos", MinArity: 1}, "atan": {Name: "atan", MinArity: 1},
	"atan2": {Name: "atan2", MinArity: 2}, "abs": {Name: "abs", MinArity: 1},
	"floor": {Name: "floor", MinArity: 1}, "ceil": {Name: "ceil", MinArity: 1},
	"round": {Name: "round", MinArity: 1}, "sqrt": {Name: "sqrt", MinArity: 1},
	"pow": {Name: "pow", MinArity: 2}, "exp": {Name: "exp", MinArity: 1},
	"log": {Name: "log", MinArity: 1}, "log2": {Name: "log2", MinArity: 1},
	"sign": {Name: "sign", MinArity: 1}, "fract": {Name: "fract", MinArity: 1},

	// Utility.
	"min":        {Name: "min", MinArity: 2, Variadic: true},
	"max":        {Name: "max", MinArity: 2, Variadic: true},
	"clamp":      {Name: "clamp", MinArity: 3},
	"lerp":       {Name: "lerp", MinArity: 3},
	"mix":        {Name: "mix", MinArity: 3}, // synonym for lerp
	"step":       {Name: "step", MinArity: 2},
	"smoothstep": {Name: "smoothstep", MinArity: 3},
	"mod":        {Name: "mod", MinArity: 2},

	// Control.
	"select": {Name: "select", MinArity: 1, Variadic: true},

	// Noise.
	"noise": {Name: "noise", MinArity: 1, Variadic: true}, // noise(x[, y])

	// Stateful.
	"cache": {Name: "cache", MinArity: 4, Stateful: true},

	// Hardware (implementation-owned, per-channel expansions).
	"camera":     {Name: "camera", MinArity: 3, Hardware: []hw.Token{hw.TokCamera}},
	"microphone": {Name: "microphone", MinArity: 2, Hardware: []hw.Token{hw.TokMicrophone}, ForcesBound: []string{"t"}},
	"texture":    {Name: "texture", MinArity: 4},
	"sample":     {Name: "sample", MinArity: 3},
}

// Lookup returns the canonical spec for name, or ok=false if name is
// not a built-in (e.g. it is a user-defined spindle).
func Lookup(name string) (Spec, bool) {
	s, ok := table[name]
	return s, ok
}

// CheckArity reports an error if argc does not satisfy s's arity
// contract.
func (s Spec) CheckArity(argc int) error {
	if s.Variadic {
		if argc < s.MinArity {
			return fmt.Errorf("%s: expected at least %d argument(s), got %d", s.Name, s.MinArity, argc)
		}
		return nil
	}
	if argc != s.MinArity {
		return fmt.Errorf("%s: expected exactly %d argument(s), got %d", s.Name, s.MinArity, argc)
	}
	return nil
}

// ResourceWidth returns the expression-level (pre-channel-expansion)
// width of the resource built-ins, or ok=false for anything else.
func ResourceWidth(name string) (int, bool) {
	switch name {
	case "texture", "camera":
		return 3, true
	case "sample", "microphone":
		return 2, true
	case "mouse":
		return 3, true
	}
	return 0, false
}
