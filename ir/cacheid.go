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

package ir

import "github.com/google/uuid"

// CacheID identifies a cache descriptor stably across backend
// reallocation and dimension changes: the descriptor's dense
// table index may change on reallocation, but its CacheID does not.
//
// A dense index would work until a reallocation reorders the table out
// from under a live CacheRead; a uuid.UUID sidesteps that entirely, at
// the cost of being opaque (never derive ordering from it).
type CacheID uuid.UUID

// NewCacheID allocates a fresh, random cache identity.
func NewCacheID() CacheID {
	return CacheID(uuid.New())
}

func (c CacheID) String() string {
	return uuid.UUID(c).String()
}

// IsZero reports whether c is the zero value (never allocated).
func (c CacheID) IsZero() bool {
	return c == CacheID{}
}
