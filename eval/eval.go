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

package eval

import (
	"math"
	"strconv"

	"github.com/leo-levin/weft/ir"
)

// Eval evaluates e to a float64 under env. It never mutates e.
func Eval(e ir.Node, env *Env) float64 {
	switch n := e.(type) {
	case ir.Num:
		return float64(n)
	case ir.Param:
		return evalParam(string(n), env)
	case *ir.Index:
		return evalIndex(n, env)
	case *ir.Binary:
		return evalBinary(n, env)
	case *ir.Unary:
		return evalUnary(n, env)
	case *ir.Builtin:
		return evalBuiltin(n, env)
	case *ir.Call:
		out := evalCall(n, env)
		if len(out) == 0 {
			return math.NaN()
		}
		return out[0]
	case *ir.Extract:
		call, ok := n.Call.(*ir.Call)
		if !ok {
			return math.NaN()
		}
		out := evalCall(call, env)
		if n.Index < 0 || n.Index >= len(out) {
			return math.NaN()
		}
		return out[n.Index]
	case *ir.Remap:
		sub := make(map[string]float64, len(n.Keys))
		for _, k := range n.Keys {
			sub[k] = Eval(n.Subs[k], env)
		}
		return Eval(n.Base, env.withRemap(sub))
	case *ir.CacheRead:
		return env.Cache.PeekCache(n.CacheID, n.TapIndex)
	default:
		return math.NaN()
	}
}

func evalParam(name string, env *Env) float64 {
	if v, ok := env.params[name]; ok {
		return v
	}
	return math.NaN()
}

func evalBinary(n *ir.Binary, env *Env) float64 {
	l := Eval(n.Left, env)
	r := Eval(n.Right, env)
	switch n.Op {
	case ir.OpAdd:
		return l + r
	case ir.OpSub:
		return l - r
	case ir.OpMul:
		return l * r
	case ir.OpDiv:
		return l / r
	case ir.OpMod:
		if r == 0 {
			return math.NaN()
		}
		return math.Mod(l, r)
	case ir.OpPow:
		return math.Pow(l, r)
	case ir.OpLt:
		return truth(l < r)
	case ir.OpGt:
		return truth(l > r)
	case ir.OpLe:
		return truth(l <= r)
	case ir.OpGe:
		return truth(l >= r)
	case ir.OpEq:
		return truth(l == r)
	case ir.OpNe:
		return truth(l != r)
	case ir.OpAnd:
		return truth(l != 0 && r != 0)
	case ir.OpOr:
		return truth(l != 0 || r != 0)
	default:
		return math.NaN()
	}
}

func truth(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func evalUnary(n *ir.Unary, env *Env) float64 {
	v := Eval(n.Operand, env)
	switch n.Op {
	case ir.OpNeg:
		return -v
	case ir.OpNot:
		return truth(v == 0)
	default:
		return math.NaN()
	}
}

// evalIndex resolves a reference to a coordinate ("me.<field>"), a
// spindle-local ("locals" scope, set up by evalCall), or another
// top-level bundle/strand (recursively evaluated against env.Program,
// memoized per run so a diamond-shaped dependency graph is evaluated
// once and any cache() it reaches is ticked only once).
func evalIndex(n *ir.Index, env *Env) float64 {
	if n.Bundle == "me" {
		if v, ok := env.Coord["me."+n.Field]; ok {
			return v
		}
		return 0
	}

	k, static := n.StaticIndex()

	if env.locals != nil {
		if static {
			if e, ok := env.locals[n.Bundle+"."+strconv.Itoa(k)]; ok {
				if v, ok := selfReferenceRead(e, env); ok {
					return v
				}
				return Eval(e, env)
			}
		}
		if n.Field != "" {
			if e, ok := env.locals[n.Bundle+"."+n.Field]; ok {
				if v, ok := selfReferenceRead(e, env); ok {
					return v
				}
				return Eval(e, env)
			}
		}
	}

	if env.Program == nil || !static {
		return math.NaN()
	}
	b, ok := env.Program.Bundles[n.Bundle]
	if !ok {
		return math.NaN()
	}
	s, ok := b.ByIndex(k)
	if !ok {
		return math.NaN()
	}

	// A reference that lands back on a cache() builtin currently being
	// ticked (found while evaluating that same builtin's value
	// argument, possibly through one or more other locals) is a
	// self-reference: it reads the ring's pre-tick tap value rather than
	// recursing back into evalBuiltin for the same node.
	if v, ok := selfReferenceRead(s.Expr, env); ok {
		return v
	}

	key := strandKey{bundle: n.Bundle, index: k}
	if v, ok := env.memo[key]; ok {
		return v
	}
	if env.visited[key] {
		return math.NaN() // genuine cycle; should not occur in valid ground IR
	}
	env.visited[key] = true
	v := Eval(s.Expr, env)
	env.memo[key] = v
	return v
}

// selfReferenceRead reports whether expr is a cache() builtin currently
// mid-tick on env's in-flight stack, and if so returns its pre-tick tap
// read. Matching requires both the builtin node and the call site to
// agree, since a spindle's cache() calls are one shared AST reused by
// every call site.
func selfReferenceRead(expr ir.Node, env *Env) (float64, bool) {
	owner, ok := expr.(*ir.Builtin)
	if !ok || owner.Name != "cache" {
		return 0, false
	}
	for i := len(env.inflight) - 1; i >= 0; i-- {
		f := env.inflight[i]
		if f.owner == owner && f.callSite == env.callSite {
			return f.r.peek(f.tap), true
		}
	}
	return 0, false
}

// evalCall binds c's arguments to sp's parameters, resolves locals
// lazily by name (no explicit topological sort needed: evalIndex's
// recursion already evaluates a local's dependencies before the local
// itself, and selfReferenceRead breaks any cache()-mediated feedback),
// and evaluates every return expression in that frame. Keying the new
// frame's cache rings (via env.callSite, consulted by evalBuiltin) on c
// itself is what gives two call sites of the same spindle independent
// state, even though they share sp.Locals' AST.
func evalCall(c *ir.Call, env *Env) []float64 {
	if env.Program == nil {
		return nil
	}
	sp, ok := env.Program.Spindles[c.Spindle]
	if !ok {
		return nil
	}
	params := make(map[string]float64, len(sp.Params))
	for i, p := range sp.Params {
		var v float64
		if i < len(c.Args) {
			v = Eval(c.Args[i], env)
		}
		params[p] = v
	}
	locals := make(map[string]ir.Node)
	for li := range sp.Locals {
		loc := &sp.Locals[li]
		for _, s := range loc.Strands {
			locals[loc.Name+"."+strconv.Itoa(s.Index)] = s.Expr
			if s.Name != "" {
				locals[loc.Name+"."+s.Name] = s.Expr
			}
		}
	}
	child := env.withFrame(c, params, locals)

	out := make([]float64, len(sp.Returns))
	for i, r := range sp.Returns {
		out[i] = Eval(r, child)
	}
	return out
}

// evalBuiltin dispatches a built-in call. Hardware built-ins
// (camera/microphone/texture/sample) have no numeric reference
// semantics here — eval is not a backend — and always read as 0, as
// does any other builtin evalMath does not know.
func evalBuiltin(b *ir.Builtin, env *Env) float64 {
	if b.Name == "cache" && len(b.Args) == 4 {
		return evalCacheBuiltin(b, env)
	}
	args := make([]float64, len(b.Args))
	for i, a := range b.Args {
		args[i] = Eval(a, env)
	}
	if v, ok := evalMath(b.Name, args); ok {
		return v
	}
	return 0
}

func evalCacheBuiltin(b *ir.Builtin, env *Env) float64 {
	h := int(Eval(b.Args[1], env))
	if h < 1 {
		h = 1
	}
	tap := int(Eval(b.Args[2], env))
	r := env.Cache.ringForNode(b, env.callSite, h)

	child := *env
	child.inflight = append(append([]inflightCache(nil), env.inflight...), inflightCache{owner: b, callSite: env.callSite, tap: tap, r: r})
	value := Eval(b.Args[0], &child)
	signal := Eval(b.Args[3], env)
	return r.tick(tap, value, signal)
}

func evalMath(name string, a []float64) (float64, bool) {
	arg := func(i int) float64 {
		if i < len(a) {
			return a[i]
		}
		return math.NaN()
	}
	switch name {
	case "sin":
		return math.Sin(arg(0)), true
	case "cos":
		return math.Cos(arg(0)), true
	case "tan":
		return math.Tan(arg(0)), true
	case "asin":
		return math.Asin(arg(0)), true
	case "acos":
		return math.Acos(arg(0)), true
	case "atan":
		return math.Atan(arg(0)), true
	case "atan2":
		return math.Atan2(arg(0), arg(1)), true
	case "abs":
		return math.Abs(arg(0)), true
	case "floor":
		return math.Floor(arg(0)), true
	case "ceil":
		return math.Ceil(arg(0)), true
	case "round":
		return math.Round(arg(0)), true
	case "sqrt":
		return math.Sqrt(arg(0)), true
	case "pow":
		return math.Pow(arg(0), arg(1)), true
	case "exp":
		return math.Exp(arg(0)), true
	case "log":
		return math.Log(arg(0)), true
	case "log2":
		return math.Log2(arg(0)), true
	case "sign":
		v := arg(0)
		switch {
		case v > 0:
			return 1, true
		case v < 0:
			return -1, true
		default:
			return 0, true
		}
	case "fract":
		v := arg(0)
		return v - math.Floor(v), true
	case "min":
		m := arg(0)
		for _, v := range a[1:] {
			if v < m {
				m = v
			}
		}
		return m, true
	case "max":
		m := arg(0)
		for _, v := range a[1:] {
			if v > m {
				m = v
			}
		}
		return m, true
	case "clamp":
		v, lo, hi := arg(0), arg(1), arg(2)
		if v < lo {
			return lo, true
		}
		if v > hi {
			return hi, true
		}
		return v, true
	case "lerp", "mix":
		lo, hi, t := arg(0), arg(1), arg(2)
		return lo + (hi-lo)*t, true
	case "step":
		edge, v := arg(0), arg(1)
		return truth(v >= edge), true
	case "smoothstep":
		lo, hi, v := arg(0), arg(1), arg(2)
		t := (v - lo) / (hi - lo)
		if t < 0 {
			t = 0
		}
		if t > 1 {
			t = 1
		}
		return t * t * (3 - 2*t), true
	case "mod":
		if arg(1) == 0 {
			return math.NaN(), true
		}
		return math.Mod(arg(0), arg(1)), true
	case "select":
		return evalSelect(a), true
	default:
		return 0, false
	}
}

// evalSelect implements select(i, v0, ..., vN-1) = v_clamp(floor(i),0,N-1).
func evalSelect(a []float64) float64 {
	if len(a) < 2 {
		return math.NaN()
	}
	values := a[1:]
	i := int(math.Floor(a[0]))
	if i < 0 {
		i = 0
	}
	if i > len(values)-1 {
		i = len(values) - 1
	}
	return values[i]
}
