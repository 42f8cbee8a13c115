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

package backend

import (
	"github.com/leo-levin/weft/cache"
	"github.com/leo-levin/weft/ir"
	"github.com/leo-levin/weft/partition"
)

// CompiledUnit is the opaque result of compiling one swatch against a
// concrete backend. Real codegen (GPU shader generation, audio DSP
// kernel generation) is out of scope here — backends outside this
// repository produce and interpret their own CompiledUnit values; core
// only ever passes them through.
type CompiledUnit interface{}

// ExecEnv is the per-frame execution context handed to Instance.Execute:
// cross-domain input values this swatch reads (keyed by the slot index
// partition.Result.SlotMap assigned), an output sink to receive this
// swatch's exported values, and the current time.
type ExecEnv struct {
	Inputs  []float64
	Outputs []float64
	Time    float64
}

// Instance is the runtime interface a concrete backend exposes to the
// coordinator: compile a swatch once, then execute it every frame.
type Instance interface {
	ID() string
	Compile(sw *partition.Swatch, p *ir.Program, cacheTable *cache.Table) (CompiledUnit, error)
	Execute(unit CompiledUnit, env *ExecEnv) error
}

// AudioInstance additionally supports starting and stopping a
// continuous real-time stream, distinct from per-frame Execute.
type AudioInstance interface {
	Instance
	Start(unit CompiledUnit, t float64) error
	Stop() error
}
