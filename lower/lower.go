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

import "github.com/leo-levin/weft/ir"

// Lower translates a parsed surface AST into a ground ir.Program: it
// registers every bundle and spindle, lowers each bundle's
// strands on demand (which also lowers every spindle a bundle calls),
// and returns the program with its topological declaration order and
// interned resource tables populated.
func Lower(ast *AST) (*ir.Program, error) {
	s, err := newScope(ast)
	if err != nil {
		return nil, err
	}
	for i := range ast.Bundles {
		if _, err := s.lowerBundle(ast.Bundles[i].Name); err != nil {
			return nil, err
		}
	}
	for i := range ast.Spindles {
		if _, err := s.lowerSpindle(ast.Spindles[i].Name); err != nil {
			return nil, err
		}
	}
	return s.prog, nil
}
