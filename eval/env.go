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

// Package eval is a pure, allocation-light reference evaluator for
// ground IR expressions. It exists only to let tests check properties
// that can only be demonstrated by actually running an expression on a
// grid of coordinate/cache inputs — inliner soundness and various
// end-to-end evaluation scenarios — and is never imported by a
// production package. It is not a backend: there is no codegen and no
// hardware; optimising generated numeric code is out of scope.
package eval

import "github.com/leo-levin/weft/ir"

// Env supplies every binding an expression can reference while
// evaluating: the current "me" coordinate values, the surrounding
// program (for Index references into other bundles and Call references
// into spindles), and the live cache ring state. params/locals scope a
// spindle-call frame; both are nil at the top level.
type Env struct {
	Coord   map[string]float64
	Program *ir.Program
	Cache   *State

	params   map[string]float64
	locals   map[string]ir.Node
	callSite *ir.Call // the Call currently being inlined, nil at top level

	memo    map[strandKey]float64
	visited map[strandKey]bool

	inflight []inflightCache
}

type strandKey struct {
	bundle string
	index  int
}

// inflightCache identifies a cache() builtin currently mid-tick. Both
// the builtin node and its call site are part of the identity: a
// spindle's locals (and therefore its cache() builtins) are one shared
// AST shared by every call site, so the call site is what gives two
// independently-called instances of the same spindle distinct rings.
type inflightCache struct {
	owner    *ir.Builtin
	callSite *ir.Call
	tap      int
	r        *ring
}

// NewEnv returns a top-level environment. coord may be nil (treated as
// empty); missing coordinates read as 0. program may be nil for
// self-contained expressions that never reference another bundle or
// spindle. cache may be nil if the expression never calls cache().
func NewEnv(coord map[string]float64, program *ir.Program, cache *State) *Env {
	if coord == nil {
		coord = map[string]float64{}
	}
	if cache == nil {
		cache = NewState()
	}
	return &Env{
		Coord:   coord,
		Program: program,
		Cache:   cache,
		memo:    map[strandKey]float64{},
		visited: map[strandKey]bool{},
	}
}

// withRemap returns a copy of env with Coord overridden by sub for the
// duration of evaluating base (remap substitution, applied dynamically
// instead of rewriting the tree). The dependency memo is
// reset: a bundle reference resolved under one coordinate environment
// must not be reused once the coordinates have changed underneath it.
func (env *Env) withRemap(sub map[string]float64) *Env {
	coord := make(map[string]float64, len(env.Coord)+len(sub))
	for k, v := range env.Coord {
		coord[k] = v
	}
	for k, v := range sub {
		coord[k] = v
	}
	child := *env
	child.Coord = coord
	child.memo = map[strandKey]float64{}
	child.visited = map[strandKey]bool{}
	return &child
}

// withFrame returns a copy of env scoped to a spindle call: params,
// locals and the call site shadow whatever the outer frame bound.
// Coordinates and cache state are inherited; the dependency memo is
// reset, since a call's locals are named independently of whatever
// bundle names happen to match at the top level.
func (env *Env) withFrame(callSite *ir.Call, params map[string]float64, locals map[string]ir.Node) *Env {
	child := *env
	child.params = params
	child.locals = locals
	child.callSite = callSite
	child.memo = map[strandKey]float64{}
	child.visited = map[strandKey]bool{}
	return &child
}
