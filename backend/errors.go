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

import "fmt"

// ErrorKind enumerates the ways registering a backend can fail.
type ErrorKind int

const (
	ErrDuplicateBackend ErrorKind = iota
	ErrHardwareConflict
	ErrSinkConflict
	ErrBuiltinConflict
	ErrUnknownToken
	ErrUnknownMode
)

// Error is the error type returned by Register and LoadRegistryConfig.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrDuplicateBackend:
		return fmt.Sprintf("backend: duplicate backend id %q", e.Detail)
	case ErrHardwareConflict:
		return fmt.Sprintf("backend: hardware conflict: %s", e.Detail)
	case ErrSinkConflict:
		return fmt.Sprintf("backend: sink conflict: %s", e.Detail)
	case ErrBuiltinConflict:
		return fmt.Sprintf("backend: owned-builtin conflict: %s", e.Detail)
	case ErrUnknownToken:
		return fmt.Sprintf("backend: unknown hardware token %q", e.Detail)
	case ErrUnknownMode:
		return fmt.Sprintf("backend: unknown coordinate access mode %q", e.Detail)
	default:
		return fmt.Sprintf("backend: %s", e.Detail)
	}
}
