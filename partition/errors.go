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

package partition

import "fmt"

// ErrorKind enumerates the ways a partition can fail to be well-formed.
type ErrorKind int

const (
	// ErrConflictingHardware: a single strand's hardware set spans two
	// tokens owned by different backends, so no single swatch can own it.
	ErrConflictingHardware ErrorKind = iota
	// ErrSwatchCycle: the swatch-level dependency graph is cyclic (no
	// cycle is allowed at swatch granularity).
	ErrSwatchCycle
)

// Error is the error type returned by Partition.
type Error struct {
	Kind   ErrorKind
	Bundle string
	Index  int
	Detail string
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrConflictingHardware:
		return fmt.Sprintf("partition: %s.%d requires hardware owned by more than one backend: %s", e.Bundle, e.Index, e.Detail)
	case ErrSwatchCycle:
		return fmt.Sprintf("partition: cycle at swatch granularity: %s", e.Detail)
	default:
		return fmt.Sprintf("partition: %s", e.Detail)
	}
}
