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

package coordinator

import (
	"io"
	"sort"

	"github.com/leo-levin/weft/backend"
	"github.com/leo-levin/weft/partition"
)

// ExecuteFrame walks every swatch in topological order, reading its
// cross-domain inputs from the current snapshot, running its compiled
// unit, and publishing any values it exports before the next swatch
// reads them in the same frame. A missing runtime instance for a swatch
// is skipped, not an error (spec: backends register what they support;
// an unregistered one contributes nothing this frame).
func (c *Coordinator) ExecuteFrame(t float64) error {
	if c.program == nil {
		return &Error{Kind: ErrNotCompiled}
	}
	slots := c.snapshot()

	for _, id := range c.order {
		sw := c.partition.Swatches[id]
		inst, ok := c.instances[id]
		if !ok {
			continue
		}
		env := &backend.ExecEnv{Time: t, Inputs: gatherInputs(sw, slots)}
		if err := inst.Execute(c.units[id], env); err != nil {
			return err
		}
		publishOutputs(c.partition, id, slots, env.Outputs)
	}

	c.crossDomain.Store(slots)
	return nil
}

// snapshot returns a private copy of the current cross-domain buffer so
// this frame's reads and writes never race a concurrent reader loading
// the previously published slice.
func (c *Coordinator) snapshot() []float64 {
	cur := c.crossDomain.Load().([]float64)
	out := make([]float64, len(cur))
	copy(out, cur)
	return out
}

func gatherInputs(sw *partition.Swatch, slots []float64) []float64 {
	in := make([]float64, len(sw.Inputs))
	for i, e := range sw.Inputs {
		if e.Slot >= 0 && e.Slot < len(slots) {
			in[i] = slots[e.Slot]
		}
	}
	return in
}

// publishOutputs writes a swatch's exported values back into the shared
// slot array. outputs must align 1:1, in ascending slot order, with the
// slots ownedSlots reports for backendID — the set of crossing strands
// other swatches' CrossDomainEdge entries name backendID as the owner
// of.
func publishOutputs(result *partition.Result, backendID string, slots []float64, outputs []float64) {
	owned := ownedSlots(result, backendID)
	for i, slot := range owned {
		if i < len(outputs) {
			slots[slot] = outputs[i]
		}
	}
}

// ownedSlots collects, across every swatch's Inputs, the slots whose
// CrossDomainEdge.Owner is backendID — i.e. exactly the crossing
// strands backendID must publish every frame — in ascending order.
func ownedSlots(result *partition.Result, backendID string) []int {
	seen := map[int]bool{}
	var out []int
	for _, sw := range result.Swatches {
		for _, e := range sw.Inputs {
			if e.Owner == backendID && !seen[e.Slot] {
				seen[e.Slot] = true
				out = append(out, e.Slot)
			}
		}
	}
	sort.Ints(out)
	return out
}

// Resize reallocates visual-domain cache buffers for a new output
// dimension.
func (c *Coordinator) Resize(width, height int) {
	if c.cacheMgr != nil {
		c.cacheMgr.Reallocate(width, height)
	}
	c.w, c.h = width, height
}

// SaveCheckpoint persists the live cache manager's buffers.
func (c *Coordinator) SaveCheckpoint(w io.Writer) error {
	if c.cacheMgr == nil {
		return &Error{Kind: ErrNotCompiled}
	}
	return c.cacheMgr.SaveCheckpoint(w)
}

// LoadCheckpoint restores cache buffers into the live cache manager,
// matching by descriptor id and current dimensions (mismatches are
// silently skipped by cache.Manager.LoadCheckpoint itself).
func (c *Coordinator) LoadCheckpoint(r io.Reader) error {
	if c.cacheMgr == nil {
		return &Error{Kind: ErrNotCompiled}
	}
	return c.cacheMgr.LoadCheckpoint(r)
}
