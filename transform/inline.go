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
	"strconv"

	"github.com/leo-levin/weft/ir"
)

// InlineReturns substitutes args into sp's parameters, resolves every
// local bundle reference to its already-substituted right-hand side,
// and returns sp's return expressions fully expressed in terms of args.
// InlineProgram inlines every spindle call this way; it does not consult
// SpindleCanBeFunction.
//
// Locals that feed each other only through a temporal Remap (a
// previous-tick reference) are not a cycle here: those are feedback
// loops that the cache manager resolves later. A true current-tick
// cycle among locals is reported as ErrCircularLocal.
func InlineReturns(sp *ir.Spindle, args []ir.Node) ([]ir.Node, error) {
	if len(args) != len(sp.Params) {
		return nil, &Error{Kind: ErrArityMismatch, Spindle: sp.Name,
			Detail: "expected " + strconv.Itoa(len(sp.Params)) + " argument(s), got " + strconv.Itoa(len(args))}
	}
	order, err := topoSortLocals(sp)
	if err != nil {
		return nil, err
	}

	subs := make(map[string]ir.Node, len(sp.Params)+4*len(order))
	for i, p := range sp.Params {
		subs[p] = args[i]
	}
	for _, li := range order {
		loc := &sp.Locals[li]
		for _, s := range loc.Strands {
			substituted := SubstituteParams(s.Expr, subs)
			subs[loc.Name+"."+strconv.Itoa(s.Index)] = substituted
			if s.Name != "" {
				subs[loc.Name+"."+s.Name] = substituted
			}
		}
	}

	out := make([]ir.Node, len(sp.Returns))
	for i, r := range sp.Returns {
		out[i] = SubstituteParams(r, subs)
	}
	return out, nil
}

// topoSortLocals orders sp's locals so that each one is substituted only
// after every local it depends on in the current tick. It returns an
// index permutation into sp.Locals.
func topoSortLocals(sp *ir.Spindle) ([]int, error) {
	n := len(sp.Locals)
	localIdx := make(map[string]int, n)
	for i, l := range sp.Locals {
		localIdx[l.Name] = i
	}

	deps := make([][]int, n)
	for i, l := range sp.Locals {
		seen := map[int]struct{}{}
		for _, s := range l.Strands {
			for ref := range ir.CurrentTickFreeVars(s.Expr) {
				name := ref
				if dot := lastDot(ref); dot >= 0 {
					name = ref[:dot]
				}
				if j, ok := localIdx[name]; ok && j != i {
					seen[j] = struct{}{}
				}
			}
		}
		for j := range seen {
			deps[i] = append(deps[i], j)
		}
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make([]int, n)
	var order []int
	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case done:
			return nil
		case visiting:
			return &Error{Kind: ErrCircularLocal, Spindle: sp.Name, Detail: "local " + sp.Locals[i].Name + " participates in a current-tick cycle"}
		}
		state[i] = visiting
		for _, j := range deps[i] {
			if err := visit(j); err != nil {
				return err
			}
		}
		state[i] = done
		order = append(order, i)
		return nil
	}
	for i := 0; i < n; i++ {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}
