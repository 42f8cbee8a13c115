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

package coordinator

import (
	"github.com/leo-levin/weft/ir"
	"github.com/leo-levin/weft/lower"
)

// LoadAST lowers a parsed surface AST to ground IR and compiles it. The
// real surface-syntax parser producing lower.AST values is outside this
// repository's scope; callers either construct one directly (tests,
// embedders with their own front end) or go through LoadProgramJSON for
// already-lowered fixtures.
func (c *Coordinator) LoadAST(ast *lower.AST, width, height int) error {
	p, err := lower.Lower(ast)
	if err != nil {
		return err
	}
	return c.Compile(p, width, height)
}

// LoadProgramJSON decodes a serialized ir.Program from its tagged-union
// wire format and compiles it directly, skipping lowering. This is the
// path cmd/weftc drives against on-disk IR fixtures.
func (c *Coordinator) LoadProgramJSON(data []byte, width, height int) error {
	p, err := ir.DecodeProgram(data)
	if err != nil {
		return err
	}
	return c.Compile(p, width, height)
}
