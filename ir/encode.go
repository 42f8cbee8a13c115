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

import (
	"encoding/json"
	"fmt"
)

// wireNode mirrors the on-disk tagged-union node shape as one flat
// struct carrying every variant's fields as optional members, so that
// legacy shapes (bare "camera"/"texture"/"microphone" node types)
// can decode into the same Go type (Builtin) that current lowering
// produces.
type wireNode struct {
	Type string `json:"type"`

	// num
	Value *float64 `json:"value,omitempty"`
	// param
	Name string `json:"name,omitempty"`
	// index
	Bundle    string          `json:"bundle,omitempty"`
	IndexExpr json.RawMessage `json:"indexExpr,omitempty"`
	Field     string          `json:"field,omitempty"`
	// binary / unary
	Op          string          `json:"op,omitempty"`
	Left, Right json.RawMessage `json:"left,omitempty"`
	Operand     json.RawMessage `json:"operand,omitempty"`
	// call / builtin
	Spindle string            `json:"spindle,omitempty"`
	Args    []json.RawMessage `json:"args,omitempty"`
	// extract
	Call  json.RawMessage `json:"call,omitempty"`
	Index *int            `json:"index,omitempty"`
	// remap
	Base json.RawMessage            `json:"base,omitempty"`
	Subs map[string]json.RawMessage `json:"substitutions,omitempty"`
	Keys []string                   `json:"substitutionOrder,omitempty"`
	// cacheRead
	CacheID  string `json:"cacheId,omitempty"`
	TapIndex *int   `json:"tapIndex,omitempty"`

	// legacy shapes: "camera"/"texture"/"microphone" arrive as
	// {type: "camera", args: [...]}  already covered by Args above.
}

var binOpWire = map[BinOp]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%", OpPow: "^",
	OpLt: "<", OpGt: ">", OpLe: "<=", OpGe: ">=", OpEq: "=", OpNe: "!=",
	OpAnd: "&&", OpOr: "||",
}

var wireBinOp = func() map[string]BinOp {
	m := make(map[string]BinOp, len(binOpWire))
	for k, v := range binOpWire {
		m[v] = k
	}
	return m
}()

var unOpWire = map[UnOp]string{OpNeg: "-", OpNot: "!"}
var wireUnOp = map[string]UnOp{"-": OpNeg, "!": OpNot}

// legacyHardwareBuiltins maps a legacy top-level node "type" to the
// Builtin name it decodes into.
var legacyHardwareBuiltins = map[string]string{
	"camera":     "camera",
	"texture":    "texture",
	"microphone": "microphone",
}

// Encode serializes n into the tagged-union wire format.
func Encode(n Node) (json.RawMessage, error) {
	if n == nil {
		return json.Marshal(nil)
	}
	var w wireNode
	switch e := n.(type) {
	case Num:
		w.Type = "num"
		v := float64(e)
		w.Value = &v
	case Param:
		w.Type = "param"
		w.Name = string(e)
	case *Index:
		w.Type = "index"
		w.Bundle = e.Bundle
		w.Field = e.Field
		raw, err := Encode(e.IndexExpr)
		if err != nil {
			return nil, err
		}
		w.IndexExpr = raw
	case *Binary:
		w.Type = "binary"
		w.Op = binOpWire[e.Op]
		l, err := Encode(e.Left)
		if err != nil {
			return nil, err
		}
		r, err := Encode(e.Right)
		if err != nil {
			return nil, err
		}
		w.Left, w.Right = l, r
	case *Unary:
		w.Type = "unary"
		w.Op = unOpWire[e.Op]
		o, err := Encode(e.Operand)
		if err != nil {
			return nil, err
		}
		w.Operand = o
	case *Call:
		w.Type = "call"
		w.Spindle = e.Spindle
		args, err := encodeArgs(e.Args)
		if err != nil {
			return nil, err
		}
		w.Args = args
	case *Extract:
		w.Type = "extract"
		c, err := Encode(e.Call)
		if err != nil {
			return nil, err
		}
		w.Call = c
		idx := e.Index
		w.Index = &idx
	case *Builtin:
		w.Type = "builtin"
		w.Name = e.Name
		args, err := encodeArgs(e.Args)
		if err != nil {
			return nil, err
		}
		w.Args = args
	case *Remap:
		w.Type = "remap"
		base, err := Encode(e.Base)
		if err != nil {
			return nil, err
		}
		w.Base = base
		w.Subs = make(map[string]json.RawMessage, len(e.Subs))
		for _, k := range e.Keys {
			raw, err := Encode(e.Subs[k])
			if err != nil {
				return nil, err
			}
			w.Subs[k] = raw
		}
		w.Keys = e.Keys
	case *CacheRead:
		w.Type = "cacheRead"
		w.CacheID = e.CacheID.String()
		idx := e.TapIndex
		w.TapIndex = &idx
	default:
		return nil, fmt.Errorf("ir: encode: unhandled node type %T", n)
	}
	return json.Marshal(w)
}

func encodeArgs(args []Node) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, len(args))
	for i, a := range args {
		raw, err := Encode(a)
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return out, nil
}
