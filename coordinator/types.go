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

// Package coordinator orchestrates one program's lifetime: load → lower
// → annotate → transform → cache → partition → per-backend compile →
// steady-state execute, plus dimension-change reallocation,
// checkpointing, and content-hash-gated hot reload.
package coordinator

import (
	"sync/atomic"

	"github.com/leo-levin/weft/annotate"
	"github.com/leo-levin/weft/backend"
	"github.com/leo-levin/weft/cache"
	"github.com/leo-levin/weft/hw"
	"github.com/leo-levin/weft/ir"
	"github.com/leo-levin/weft/partition"
)

// Coordinator orchestrates one program's full lifetime. It holds the
// backend registry, the concrete runtime Instance for every backend id
// the registry declares (supplied by the caller; real per-backend
// codegen lives outside this repository), the cache manager, and the
// cross-domain buffer that routes values between swatches.
type Coordinator struct {
	registry  *backend.Registry
	audioHW   hw.TokenSet
	instances map[string]backend.Instance

	program   *ir.Program
	top       annotate.Set
	cacheTbl  *cache.Table
	cacheMgr  *cache.Manager
	partition *partition.Result
	units     map[string]backend.CompiledUnit
	order     []string // swatch execution order, owner before consumer

	lastHash string
	w, h     int

	crossDomain atomic.Value // holds []float64, replaced wholesale on write so readers never see a partial frame
}

// New returns a Coordinator ready to Compile a program. instances maps
// a backend id (matching a backend.Declaration.ID registered in
// registry) to the concrete runtime that executes it; a backend with no
// entry is skipped during compile/execute (useful for dry runs that
// only exercise load→partition without a real codegen target).
func New(registry *backend.Registry, audioHW hw.TokenSet, instances map[string]backend.Instance) *Coordinator {
	c := &Coordinator{registry: registry, audioHW: audioHW, instances: instances}
	c.crossDomain.Store([]float64{})
	return c
}

// CacheManager exposes the live cache manager for reallocation and
// checkpoint calls once a program has been compiled.
func (c *Coordinator) CacheManager() *cache.Manager { return c.cacheMgr }

// Partition exposes the last compile's swatch partition, mainly for
// tests and diagnostics.
func (c *Coordinator) Partition() *partition.Result { return c.partition }
