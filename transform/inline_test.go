package transform

import (
	"testing"

	"github.com/leo-levin/weft/ir"
)

// mkIndex builds a static Index reference "bundle.k".
func mkIndex(bundle string, k int) *ir.Index {
	return &ir.Index{Bundle: bundle, IndexExpr: ir.Num(k)}
}

func meT() *ir.Index { return &ir.Index{Bundle: "me", IndexExpr: ir.Num(0), Field: "t"} }

func TestSubstituteParamsReplacesParam(t *testing.T) {
	expr := &ir.Binary{Op: ir.OpAdd, Left: ir.Param("x"), Right: ir.Num(1)}
	got := SubstituteParams(expr, map[string]ir.Node{"x": ir.Num(41)})
	want := &ir.Binary{Op: ir.OpAdd, Left: ir.Num(41), Right: ir.Num(1)}
	if !got.Equals(want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestSubstituteParamsRedirectsIndex(t *testing.T) {
	expr := mkIndex("scaled", 0)
	subs := map[string]ir.Node{"scaled.0": &ir.Binary{Op: ir.OpMul, Left: ir.Param("x"), Right: ir.Num(2)}}
	got := SubstituteParams(expr, subs)
	want := &ir.Binary{Op: ir.OpMul, Left: ir.Param("x"), Right: ir.Num(2)}
	if !got.Equals(want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestInlineReturnsSubstitutesParamsAndLocals(t *testing.T) {
	sp := &ir.Spindle{
		Name:   "scale2",
		Params: []string{"x"},
		Locals: []ir.Bundle{
			{Name: "doubled", Strands: []ir.Strand{
				{Name: "v", Index: 0, Expr: &ir.Binary{Op: ir.OpMul, Left: ir.Param("x"), Right: ir.Num(2)}},
			}},
		},
		Returns: []ir.Node{
			&ir.Binary{Op: ir.OpAdd, Left: mkIndex("doubled", 0), Right: ir.Num(1)},
		},
	}
	rets, err := InlineReturns(sp, []ir.Node{ir.Num(5)})
	if err != nil {
		t.Fatalf("InlineReturns: %v", err)
	}
	if len(rets) != 1 {
		t.Fatalf("expected 1 return, got %d", len(rets))
	}
	want := &ir.Binary{Op: ir.OpAdd, Left: &ir.Binary{Op: ir.OpMul, Left: ir.Num(5), Right: ir.Num(2)}, Right: ir.Num(1)}
	if !rets[0].Equals(want) {
		t.Fatalf("got %#v, want %#v", rets[0], want)
	}
}

func TestInlineReturnsArityMismatch(t *testing.T) {
	sp := &ir.Spindle{Name: "f", Params: []string{"a", "b"}, Returns: []ir.Node{ir.Param("a")}}
	if _, err := InlineReturns(sp, []ir.Node{ir.Num(1)}); err == nil {
		t.Fatal("expected arity mismatch error")
	} else if terr, ok := err.(*Error); !ok || terr.Kind != ErrArityMismatch {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTopoSortLocalsDetectsCurrentTickCycle(t *testing.T) {
	sp := &ir.Spindle{
		Name: "cyclic",
		Locals: []ir.Bundle{
			{Name: "a", Strands: []ir.Strand{{Name: "v", Index: 0, Expr: mkIndex("b", 0)}}},
			{Name: "b", Strands: []ir.Strand{{Name: "v", Index: 0, Expr: mkIndex("a", 0)}}},
		},
		Returns: []ir.Node{mkIndex("a", 0)},
	}
	if _, err := InlineReturns(sp, nil); err == nil {
		t.Fatal("expected circular dependency error")
	} else if terr, ok := err.(*Error); !ok || terr.Kind != ErrCircularLocal {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTopoSortLocalsAllowsTemporalSelfReference(t *testing.T) {
	// A local whose only reference to another local is shielded by a
	// temporal remap (me.t -> me.t - 1) is not a current-tick cycle.
	remap := &ir.Remap{
		Base: mkIndex("b", 0),
		Subs: map[string]ir.Node{"me.t": &ir.Binary{Op: ir.OpSub, Left: meT(), Right: ir.Num(1)}},
		Keys: []string{"me.t"},
	}
	sp := &ir.Spindle{
		Name: "feedback",
		Locals: []ir.Bundle{
			{Name: "a", Strands: []ir.Strand{{Name: "v", Index: 0, Expr: remap}}},
			{Name: "b", Strands: []ir.Strand{{Name: "v", Index: 0, Expr: mkIndex("a", 0)}}},
		},
		Returns: []ir.Node{mkIndex("b", 0)},
	}
	if _, err := InlineReturns(sp, nil); err != nil {
		t.Fatalf("expected no error for temporally-shielded cycle, got %v", err)
	}
}
