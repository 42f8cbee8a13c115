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

package transform

import (
	"github.com/leo-levin/weft/annotate"
	"github.com/leo-levin/weft/ir"
)

// historySize is the fixed ring-buffer depth used by
// temporal-remap-to-cache conversion. Deeper delays than this
// conversion can express need a different lowering strategy than a
// single remap; this is a known limitation, not a tunable.
const historySize = 2

// ConvertTemporalRemap rewrites a spindle-local strand expression of the
// form Remap(base, {"me.t": me.t - k}) into
// Builtin("cache", [base, historySize, k, signal]) when base's signal
// is stateful (per desc). A self-referential base (one that depends on
// the very strand being converted) is left as a Remap; self-reference
// is the cache manager's job to resolve, and a non-stateful, pure base
// is also left alone since it can simply be recomputed at the shifted
// tick instead of cached.
func ConvertTemporalRemap(e ir.Node, signal ir.Node, baseDesc *annotate.Descriptor, selfBundle string) ir.Node {
	remap, ok := e.(*ir.Remap)
	if !ok || !remap.IsTemporal() {
		return e
	}
	if baseDesc == nil || !baseDesc.Stateful {
		return e
	}
	if selfBundle != "" && ir.Any(remap.Base, func(n ir.Node) bool {
		idx, ok := n.(*ir.Index)
		return ok && idx.Bundle == selfBundle
	}) {
		return e
	}
	shift := remapShiftAmount(remap)
	return &ir.Builtin{
		Name: "cache",
		Args: []ir.Node{remap.Base, ir.Num(historySize), ir.Num(shift), signal},
	}
}

// remapShiftAmount extracts k from a "me.t" -> "me.t - k" substitution;
// a substitution not of that exact shape shifts by 0 (no-op tap).
func remapShiftAmount(remap *ir.Remap) int {
	sub, ok := remap.Subs["me.t"]
	if !ok {
		return 0
	}
	bin, ok := sub.(*ir.Binary)
	if !ok || bin.Op != ir.OpSub {
		return 0
	}
	if n, ok := bin.Right.(ir.Num); ok {
		return int(n)
	}
	return 0
}
