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

package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/leo-levin/weft/coordinator"
	"github.com/leo-levin/weft/partition"
)

// dumpPartition prints the swatch assignment and cross-domain slot map
// coordinator.Compile produced, in deterministic (sorted) order. This is
// weftc's "-g"-equivalent: the dump step cmd/sneller's graphviz/regex
// dump flags print a compiled artifact instead of running it.
func dumpPartition(out io.Writer, path string, co *coordinator.Coordinator) {
	fmt.Fprintf(out, "=== %s ===\n", path)

	result := co.Partition()
	if result == nil {
		fmt.Fprintln(out, "(no partition result)")
		return
	}

	ids := make([]string, 0, len(result.Swatches))
	for id := range result.Swatches {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		sw := result.Swatches[id]
		fmt.Fprintf(out, "swatch %s:\n", id)
		fmt.Fprintf(out, "  bundles: %v\n", sortedKeys(sw.Bundles))
		if len(sw.Sinks) > 0 {
			sinks := append([]string(nil), sw.Sinks...)
			sort.Strings(sinks)
			fmt.Fprintf(out, "  sinks: %v\n", sinks)
		}
		for _, e := range sortedInputs(sw.Inputs) {
			fmt.Fprintf(out, "  input: %s[%d] <- %s (slot %d)\n", e.Bundle, e.Strand, e.Owner, e.Slot)
		}
	}

	if len(result.SlotMap) > 0 {
		keys := make([]partition.StrandKey, 0, len(result.SlotMap))
		for k := range result.SlotMap {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].Bundle != keys[j].Bundle {
				return keys[i].Bundle < keys[j].Bundle
			}
			return keys[i].Index < keys[j].Index
		})
		fmt.Fprintln(out, "slot map:")
		for _, k := range keys {
			fmt.Fprintf(out, "  %s[%d] -> slot %d\n", k.Bundle, k.Index, result.SlotMap[k])
		}
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedInputs(in []partition.CrossDomainEdge) []partition.CrossDomainEdge {
	out := append([]partition.CrossDomainEdge(nil), in...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bundle != out[j].Bundle {
			return out[i].Bundle < out[j].Bundle
		}
		return out[i].Strand < out[j].Strand
	})
	return out
}
