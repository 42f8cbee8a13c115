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

	"github.com/google/uuid"
)

// DecodeErrorKind enumerates the ways a wire node can fail to parse.
type DecodeErrorKind int

const (
	InvalidStructure DecodeErrorKind = iota
	UnknownExprType
	MissingRequiredField
)

func (k DecodeErrorKind) String() string {
	switch k {
	case InvalidStructure:
		return "invalidStructure"
	case UnknownExprType:
		return "unknownExprType"
	case MissingRequiredField:
		return "missingRequiredField"
	default:
		return "unknown"
	}
}

// DecodeError is the typed error returned by Decode and DecodeProgram.
type DecodeError struct {
	Kind DecodeErrorKind
	Msg  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("ir: %s: %s", e.Kind, e.Msg)
}

func decodeErr(kind DecodeErrorKind, format string, args ...any) error {
	return &DecodeError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Decode parses a single tagged-union expression node, including the
// legacy bare camera/texture/microphone shapes.
func Decode(raw json.RawMessage) (Node, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var w wireNode
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, decodeErr(InvalidStructure, "%v", err)
	}
	if legacyName, ok := legacyHardwareBuiltins[w.Type]; ok {
		args, err := decodeArgs(w.Args)
		if err != nil {
			return nil, err
		}
		return &Builtin{Name: legacyName, Args: args}, nil
	}
	switch w.Type {
	case "num":
		if w.Value == nil {
			return nil, decodeErr(MissingRequiredField, "num: missing value")
		}
		return Num(*w.Value), nil
	case "param":
		if w.Name == "" {
			return nil, decodeErr(MissingRequiredField, "param: missing name")
		}
		return Param(w.Name), nil
	case "index":
		if w.Bundle == "" {
			return nil, decodeErr(MissingRequiredField, "index: missing bundle")
		}
		idxExpr, err := Decode(w.IndexExpr)
		if err != nil {
			return nil, err
		}
		return &Index{Bundle: w.Bundle, IndexExpr: idxExpr, Field: w.Field}, nil
	case "binary":
		op, ok := wireBinOp[w.Op]
		if !ok {
			return nil, decodeErr(InvalidStructure, "binary: unknown op %q", w.Op)
		}
		l, err := Decode(w.Left)
		if err != nil {
			return nil, err
		}
		r, err := Decode(w.Right)
		if err != nil {
			return nil, err
		}
		return &Binary{Op: op, Left: l, Right: r}, nil
	case "unary":
		op, ok := wireUnOp[w.Op]
		if !ok {
			return nil, decodeErr(InvalidStructure, "unary: unknown op %q", w.Op)
		}
		o, err := Decode(w.Operand)
		if err != nil {
			return nil, err
		}
		return &Unary{Op: op, Operand: o}, nil
	case "call":
		if w.Spindle == "" {
			return nil, decodeErr(MissingRequiredField, "call: missing spindle")
		}
		args, err := decodeArgs(w.Args)
		if err != nil {
			return nil, err
		}
		return &Call{Spindle: w.Spindle, Args: args}, nil
	case "extract":
		if w.Index == nil {
			return nil, decodeErr(MissingRequiredField, "extract: missing index")
		}
		c, err := Decode(w.Call)
		if err != nil {
			return nil, err
		}
		return &Extract{Call: c, Index: *w.Index}, nil
	case "builtin":
		if w.Name == "" {
			return nil, decodeErr(MissingRequiredField, "builtin: missing name")
		}
		args, err := decodeArgs(w.Args)
		if err != nil {
			return nil, err
		}
		return &Builtin{Name: w.Name, Args: args}, nil
	case "remap":
		base, err := Decode(w.Base)
		if err != nil {
			return nil, err
		}
		subs := make(map[string]Node, len(w.Subs))
		keys := w.Keys
		if keys == nil {
			for k := range w.Subs {
				keys = append(keys, k)
			}
		}
		for _, k := range keys {
			raw, ok := w.Subs[k]
			if !ok {
				return nil, decodeErr(MissingRequiredField, "remap: missing substitution %q", k)
			}
			n, err := Decode(raw)
			if err != nil {
				return nil, err
			}
			subs[k] = n
		}
		return &Remap{Base: base, Subs: subs, Keys: keys}, nil
	case "cacheRead":
		if w.CacheID == "" || w.TapIndex == nil {
			return nil, decodeErr(MissingRequiredField, "cacheRead: missing cacheId or tapIndex")
		}
		id, err := uuid.Parse(w.CacheID)
		if err != nil {
			return nil, decodeErr(InvalidStructure, "cacheRead: bad cacheId: %v", err)
		}
		return &CacheRead{CacheID: CacheID(id), TapIndex: *w.TapIndex}, nil
	case "":
		return nil, decodeErr(MissingRequiredField, "missing type")
	default:
		return nil, decodeErr(UnknownExprType, "unknown node type %q", w.Type)
	}
}

func decodeArgs(raws []json.RawMessage) ([]Node, error) {
	out := make([]Node, len(raws))
	for i, raw := range raws {
		n, err := Decode(raw)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
