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

package cache

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"

	"github.com/leo-levin/weft/ir"
)

// zstdEncoder/zstdDecoder are process-wide: one package-level
// encoder/decoder pair instead of allocating one per call.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		panic(err)
	}
	zstdEncoder = enc
	dec, err := zstd.NewReader(nil)
	if err != nil {
		panic(err)
	}
	zstdDecoder = dec
}

const checkpointMagic = "weftcache1"

// SaveCheckpoint serializes every live buffer in m, zstd-compressed,
// keyed by cache ID. LoadCheckpoint restores a buffer only into a
// descriptor with the same ID and, for a visual buffer, the same width,
// height and history size. Discover assigns fresh random IDs each time
// it runs, so a checkpoint does not restore into a Manager built from a
// new discovery (a recompile or a new process), and a visual buffer
// saved before a dimension change is not restored after it.
func (m *Manager) SaveCheckpoint(w io.Writer) error {
	var raw []byte
	raw = append(raw, checkpointMagic...)
	raw = appendUint32(raw, uint32(len(m.visual)))
	for id, b := range m.visual {
		raw = appendCacheID(raw, id)
		raw = appendUint32(raw, uint32(b.W))
		raw = appendUint32(raw, uint32(b.H))
		raw = appendUint32(raw, uint32(b.HistorySize))
		raw = appendFloats(raw, b.History)
		raw = appendFloats(raw, b.Signal)
		raw = appendInts(raw, b.writeIdx)
	}
	raw = appendUint32(raw, uint32(len(m.audio)))
	for id, b := range m.audio {
		raw = appendCacheID(raw, id)
		raw = appendUint32(raw, uint32(b.HistorySize))
		raw = appendFloats(raw, b.History)
		raw = appendFloats(raw, []float64{b.Signal})
	}
	compressed := zstdEncoder.EncodeAll(raw, nil)
	_, err := w.Write(compressed)
	return err
}

// LoadCheckpoint restores state from a SaveCheckpoint stream into m,
// matching buffers by cache ID; descriptors with no matching entry (a
// program change since the checkpoint was taken) keep their freshly
// allocated, zero-filled state instead of erroring.
func (m *Manager) LoadCheckpoint(r io.Reader) error {
	compressed, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	raw, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return err
	}
	if len(raw) < len(checkpointMagic) || string(raw[:len(checkpointMagic)]) != checkpointMagic {
		return fmt.Errorf("cache: not a checkpoint stream")
	}
	rd := &reader{buf: raw[len(checkpointMagic):]}

	nVisual := rd.uint32()
	for i := uint32(0); i < nVisual; i++ {
		id := rd.cacheID()
		w, h, hist := int(rd.uint32()), int(rd.uint32()), int(rd.uint32())
		history := rd.floats(w * h * hist)
		signal := rd.floats(w * h)
		writeIdx := rd.ints(w * h)
		if rd.err != nil {
			return rd.err
		}
		if b, ok := m.visual[id]; ok && b.W == w && b.H == h && b.HistorySize == hist {
			copy(b.History, history)
			copy(b.Signal, signal)
			copy(b.writeIdx, writeIdx)
		}
	}
	nAudio := rd.uint32()
	for i := uint32(0); i < nAudio; i++ {
		id := rd.cacheID()
		hist := int(rd.uint32())
		history := rd.floats(hist + 1)
		signal := rd.floats(1)
		if rd.err != nil {
			return rd.err
		}
		if b, ok := m.audio[id]; ok && b.HistorySize == hist {
			copy(b.History, history)
			b.Signal = signal[0]
		}
	}
	return rd.err
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendCacheID(buf []byte, id ir.CacheID) []byte { return append(buf, id[:]...) }

func appendFloats(buf []byte, fs []float64) []byte {
	for _, f := range fs {
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(f))
		buf = append(buf, tmp[:]...)
	}
	return buf
}

func appendInts(buf []byte, is []int) []byte {
	for _, v := range is {
		buf = appendUint32(buf, uint32(v))
	}
	return buf
}

// reader is a small cursor over a decoded checkpoint payload.
type reader struct {
	buf []byte
	pos int
	err error
}

func (r *reader) need(n int) bool {
	if r.err != nil || r.pos+n > len(r.buf) {
		if r.err == nil {
			r.err = fmt.Errorf("cache: truncated checkpoint")
		}
		return false
	}
	return true
}

func (r *reader) uint32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v
}

func (r *reader) cacheID() ir.CacheID {
	var id ir.CacheID
	if !r.need(len(id)) {
		return id
	}
	copy(id[:], r.buf[r.pos:])
	r.pos += len(id)
	return id
}

func (r *reader) floats(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if !r.need(8) {
			return out
		}
		bits := binary.LittleEndian.Uint64(r.buf[r.pos:])
		r.pos += 8
		out[i] = math.Float64frombits(bits)
	}
	return out
}

func (r *reader) ints(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = int(r.uint32())
	}
	return out
}
