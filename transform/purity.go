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

// SpindleCanBeFunction reports whether sp may be emitted as a real
// function call instead of inlined at every call site. A spindle
// qualifies only if every return value is
// pure and stateless per the annotation pass, and neither its locals nor
// its returns contain a Remap or a CacheRead — both are tied to a
// specific call site's position in the cache/coordinate graph and
// cannot be shared across call sites the way a plain function can.
func SpindleCanBeFunction(sp *ir.Spindle, result *annotate.Result) bool {
	for i, r := range sp.Returns {
		d, ok := result.ReturnDescriptor(sp.Name, i)
		if !ok || !d.Pure || d.Stateful {
			return false
		}
		if hasCallSiteBoundNode(r) {
			return false
		}
	}
	for _, loc := range sp.Locals {
		for _, s := range loc.Strands {
			if hasCallSiteBoundNode(s.Expr) {
				return false
			}
		}
	}
	return true
}

func hasCallSiteBoundNode(e ir.Node) bool {
	return ir.Any(e, func(n ir.Node) bool {
		switch n.(type) {
		case *ir.Remap, *ir.CacheRead:
			return true
		}
		return false
	})
}
