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

import "math"

// SelectIndex implements the select() builtin's index semantics: floor
// i, then clamp to [0, n-1]. Lowering emits select() for both dynamic
// strand indexing and chain-pattern accessors; the reference evaluator
// applies the same rule in its own evalSelect rather than calling this
// function.
func SelectIndex(i float64, n int) int {
	if n <= 0 {
		return 0
	}
	k := int(math.Floor(i))
	if k < 0 {
		return 0
	}
	if k >= n {
		return n - 1
	}
	return k
}
