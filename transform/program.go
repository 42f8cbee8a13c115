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

// maxInlineRounds bounds repeated inlining passes (one spindle calling
// another nests calls inside the substituted result, which needs a
// further pass to resolve); it is just a guard against a call graph
// that is actually recursive.
const maxInlineRounds = 64

// InlineProgram replaces every spindle call reachable from p's top-level
// strands with its fully inlined expansion. Calls are
// resolved inside-out: a call nested in another call's arguments is
// inlined first, so by the time an outer call is expanded its arguments
// already contain no calls at all. Because one spindle's body may itself
// call another spindle, inlining repeats until no Extract(Call(...))
// remain anywhere in the program.
func InlineProgram(p *ir.Program) error {
	for round := 0; ; round++ {
		if round >= maxInlineRounds {
			return &Error{Kind: ErrCircularLocal, Detail: "spindle call graph did not terminate after " + strconv.Itoa(maxInlineRounds) + " inlining rounds (recursive spindles are not supported)"}
		}
		var rewriteErr error
		rw := inliner{p: p, err: &rewriteErr}
		anyCall := false
		for _, b := range p.Bundles {
			for i := range b.Strands {
				if ir.ContainsCall(b.Strands[i].Expr) {
					anyCall = true
				}
				b.Strands[i].Expr = ir.Rewrite(rw, b.Strands[i].Expr)
				if rewriteErr != nil {
					return rewriteErr
				}
			}
		}
		if !anyCall {
			return nil
		}
	}
}

type inliner struct {
	p   *ir.Program
	err *error
}

func (in inliner) Walk(ir.Node) ir.Rewriter { return in }

func (in inliner) Rewrite(n ir.Node) ir.Node {
	if *in.err != nil {
		return n
	}
	ex, ok := n.(*ir.Extract)
	if !ok {
		return n
	}
	call, ok := ex.Call.(*ir.Call)
	if !ok {
		return n
	}
	sp, ok := in.p.Spindles[call.Spindle]
	if !ok {
		*in.err = &Error{Kind: ErrUnknownSpindle, Spindle: call.Spindle, Detail: "called but not declared"}
		return n
	}
	rets, err := InlineReturns(sp, call.Args)
	if err != nil {
		*in.err = err
		return n
	}
	if ex.Index < 0 || ex.Index >= len(rets) {
		*in.err = &Error{Kind: ErrArityMismatch, Spindle: call.Spindle, Detail: "return index out of range"}
		return n
	}
	return rets[ex.Index]
}
