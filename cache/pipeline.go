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

package cache

import (
	"github.com/leo-levin/weft/annotate"
	"github.com/leo-levin/weft/hw"
	"github.com/leo-levin/weft/ir"
)

// Apply runs discovery followed by the cycle-breaking rewrite in place,
// the sequence the coordinator invokes once the substitution/inlining
// pass has fully inlined the program: discover cache() occurrences,
// classify them, detect self-reference, then rewrite.
func Apply(p *ir.Program, top annotate.Set, audioHW hw.TokenSet) (*Table, error) {
	t, err := Discover(p, top, audioHW)
	if err != nil {
		return nil, err
	}
	t.Rewrite(p)
	return t, nil
}
