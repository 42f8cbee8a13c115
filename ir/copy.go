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

// Copy returns a deep copy of e, obtained by round-tripping it through
// the wire encoding.
func Copy(e Node) Node {
	raw, err := Encode(e)
	if err != nil {
		panic(err)
	}
	out, err := Decode(raw)
	if err != nil {
		panic(err)
	}
	return out
}
