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
	"encoding/base32"
	"encoding/binary"
	"math"

	"github.com/dchest/siphash"
	"golang.org/x/crypto/blake2b"
)

const (
	structKey0, structKey1 = 0x5753_4452, 0x5443_4845 // "WSDR"/"TCHE" (arbitrary fixed keys)
)

// StructuralHash returns a fast, non-cryptographic keyed hash of e's
// shape, used by the cache manager as an O(1) bucket pre-filter before
// falling back to the (expensive, recursive) Equals check when
// deduplicating cache descriptors. Two structurally-equal expressions
// always hash equal; a hash collision does not imply equality.
func StructuralHash(e Node) uint64 {
	var buf []byte
	buf = appendHash(buf, e)
	return siphash.Hash(structKey0, structKey1, buf)
}

func appendHash(buf []byte, e Node) []byte {
	buf = append(buf, e.Tag()...)
	buf = append(buf, 0)
	switch n := e.(type) {
	case Num:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(float64(n)))
		buf = append(buf, b[:]...)
	case Param:
		buf = append(buf, string(n)...)
	case *Index:
		buf = append(buf, n.Bundle...)
		buf = append(buf, 0)
		buf = append(buf, n.Field...)
		buf = append(buf, 0)
		buf = appendHash(buf, n.IndexExpr)
	case *Binary:
		buf = append(buf, byte(n.Op))
		buf = appendHash(buf, n.Left)
		buf = appendHash(buf, n.Right)
	case *Unary:
		buf = append(buf, byte(n.Op))
		buf = appendHash(buf, n.Operand)
	case *Call:
		buf = append(buf, n.Spindle...)
		for _, a := range n.Args {
			buf = appendHash(buf, a)
		}
	case *Extract:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(n.Index))
		buf = append(buf, b[:]...)
		buf = appendHash(buf, n.Call)
	case *Builtin:
		buf = append(buf, n.Name...)
		buf = append(buf, 0)
		for _, a := range n.Args {
			buf = appendHash(buf, a)
		}
	case *Remap:
		buf = appendHash(buf, n.Base)
		for _, k := range n.Keys {
			buf = append(buf, k...)
			buf = append(buf, 0)
			buf = appendHash(buf, n.Subs[k])
		}
	case *CacheRead:
		buf = append(buf, n.CacheID[:]...)
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(n.TapIndex))
		buf = append(buf, b[:]...)
	}
	return buf
}

// ContentHash returns a stable, content-addressed digest of a
// serialized program, used by the coordinator to detect that a
// reloaded source text lowers to the same program and skip recompiling
// it.
func ContentHash(data []byte) string {
	sum := blake2b.Sum256(data)
	return "b2:" + base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum[:])
}
