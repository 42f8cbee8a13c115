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

package lower

import "fmt"

// ErrorKind enumerates lowering failures.
type ErrorKind string

const (
	ErrUnknownBundle        ErrorKind = "unknownBundle"
	ErrUnknownStrand        ErrorKind = "unknownStrand"
	ErrUnknownSpindle       ErrorKind = "unknownSpindle"
	ErrWidthMismatch        ErrorKind = "widthMismatch"
	ErrRangeSizeMismatch    ErrorKind = "rangeSizeMismatch"
	ErrRangeOutOfBounds     ErrorKind = "rangeOutOfBounds"
	ErrBareStrandOutsideCtx ErrorKind = "bareStrandOutsidePattern"
	ErrCircularDependency   ErrorKind = "circularDependency"
	ErrDuplicateSpindle     ErrorKind = "duplicateSpindle"
	ErrArityMismatch        ErrorKind = "arityMismatch"
	ErrInvalidExpression    ErrorKind = "invalidExpression"
)

// Error is returned by every operation in this package.
type Error struct {
	Kind   ErrorKind
	Where  string // "bundle.strand" or "spindle" context, for diagnostics
	Detail string
}

func (e *Error) Error() string {
	if e.Where != "" {
		return fmt.Sprintf("lower: %s: %s: %s", e.Kind, e.Where, e.Detail)
	}
	return fmt.Sprintf("lower: %s: %s", e.Kind, e.Detail)
}
