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

// Package lower translates a parsed surface AST into the ground
// ir.Program — bundle/spindle registration, width inference,
// chain-pattern and range expansion, spindle-call and resource-builtin
// lowering, temporal remaps, and topological ordering.
//
// The real surface-syntax parser is out of scope; AST is the seam this
// package lowers from. It is shaped
// directly after the ground IR so that "lowering an expression" is
// mostly a 1:1 walk, with the handful of surface-only constructs (chain
// patterns, ranges, bare accessors, bundle literals) called out as their
// own node kinds.
package lower

import "github.com/leo-levin/weft/ir"

// Expr is one surface expression node.
type Expr interface{ isExpr() }

// Num is a float literal.
type Num float64

func (Num) isExpr() {}

// Ref is a strand accessor. Bundle is "" for a bare accessor (".0",
// ".name", ".(expr)") used inside a chain pattern output, meaning "the
// previous step's output"; otherwise it names a registered bundle, a
// spindle local, or "me". IndexExpr is nil when Field names the strand
// instead (".name"); Range is non-nil instead of IndexExpr when this
// accessor appears inside a pattern output and spans a range ("a..b").
type Ref struct {
	Bundle    string
	IndexExpr Expr
	Field     string
	Range     *Range
}

func (*Ref) isExpr() {}

// Range denotes "a..b" inside a pattern-output accessor; either bound
// may be nil (an open end).
type Range struct {
	Lo, Hi Expr
}

// Binary is a binary operator application.
type Binary struct {
	Op          ir.BinOp
	Left, Right Expr
}

func (*Binary) isExpr() {}

// Unary is a unary operator application.
type Unary struct {
	Op      ir.UnOp
	Operand Expr
}

func (*Unary) isExpr() {}

// Call invokes a user-defined spindle.
type Call struct {
	Spindle string
	Args    []Expr
}

func (*Call) isExpr() {}

// Builtin invokes a built-in function verbatim (math/utility/control/
// noise/cache/hardware builtins that need no surface desugaring beyond
// their own argument list).
type Builtin struct {
	Name string
	Args []Expr
}

func (*Builtin) isExpr() {}

// Load is the `load(path, u?, v?)` resource builtin.
type Load struct {
	Path string
	U, V Expr // nil means "me.x"/"me.y"
}

func (*Load) isExpr() {}

// Text is the `text(string, u, v)` resource builtin.
type Text struct {
	Value string
	U, V  Expr
}

func (*Text) isExpr() {}

// Sample is the `sample(path)` resource builtin, expanded per-channel.
type Sample struct {
	Path   string
	Offset Expr // nil means "me.i"
}

func (*Sample) isExpr() {}

// BundleLit is a bundle literal "[e0, e1, ...]".
type BundleLit struct {
	Elems []Expr
}

func (*BundleLit) isExpr() {}

// DynIndex is "base.(indexExpr)" with a non-constant indexExpr,
// desugared by lowering into select(indexExpr, e0, e1, ...).
type DynIndex struct {
	Base  Expr // a BundleLit, or a Ref naming a bundle/local
	Index Expr
}

func (*DynIndex) isExpr() {}

// TemporalRemap is "base(me.t ~ expr)".
type TemporalRemap struct {
	Base Expr
	At   Expr
}

func (*TemporalRemap) isExpr() {}

// Chain is "base -> { pattern0 } -> { pattern1 } -> ...". Each pattern
// is an ordered list of named outputs, each of which may itself expand
// into several strands via a Range.
type Chain struct {
	Base     Expr
	Patterns []Pattern
}

func (*Chain) isExpr() {}

// Pattern is one "{ ... }" block of a chain: an ordered list of named
// output expressions.
type Pattern struct {
	Outputs []PatternOutput
}

// PatternOutput is one named (or anonymous) output of a pattern block.
type PatternOutput struct {
	Name string // "" if positional/unnamed
	Expr Expr
}

// StrandSource is one right-hand side contributing strand(s) to a
// bundle or spindle-local declaration: either a single named expression
// or a chain that expands into several.
type StrandSource struct {
	Name  string // used only when Expr is set and not itself a Chain
	Expr  Expr
	Chain *Chain
}

// BundleDecl is a parsed top-level bundle declaration.
type BundleDecl struct {
	Name    string
	Sources []StrandSource
}

// SpindleDecl is a parsed spindle definition.
type SpindleDecl struct {
	Name    string
	Params  []string
	Locals  []BundleDecl
	Returns []Expr // Returns[i] is this spindle's i'th return expression
}

// AST is the complete parsed program: the external seam lowering
// consumes as its input.
type AST struct {
	Bundles  []BundleDecl
	Spindles []SpindleDecl
}
