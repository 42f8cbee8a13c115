package transform

import (
	"testing"

	"github.com/leo-levin/weft/annotate"
	"github.com/leo-levin/weft/ir"
)

func TestSelectIndexClamps(t *testing.T) {
	cases := []struct {
		i    float64
		n    int
		want int
	}{
		{2.9, 5, 2},
		{-1, 5, 0},
		{10, 5, 4},
		{0, 5, 0},
	}
	for _, c := range cases {
		if got := SelectIndex(c.i, c.n); got != c.want {
			t.Errorf("SelectIndex(%v, %d) = %d, want %d", c.i, c.n, got, c.want)
		}
	}
}

func TestFindCacheLocalCyclesDetectsSelfFeedback(t *testing.T) {
	// local "accum" feeds cache() inside local "smoothed", and "accum"
	// itself reads "smoothed" back (current tick) -> a retarget pair.
	sp := &ir.Spindle{
		Name: "integrator",
		Locals: []ir.Bundle{
			{Name: "accum", Strands: []ir.Strand{{Name: "v", Index: 0, Expr: mkIndex("smoothed", 0)}}},
			{Name: "smoothed", Strands: []ir.Strand{{Name: "v", Index: 0, Expr: &ir.Builtin{
				Name: "cache",
				Args: []ir.Node{mkIndex("accum", 0), ir.Num(2), ir.Num(0), ir.Num(1)},
			}}}},
		},
		Returns: []ir.Node{mkIndex("smoothed", 0)},
	}
	pairs := FindCacheLocalCycles(sp)
	found := false
	for _, p := range pairs {
		if p.Local == "accum" && p.CacheLocal == "smoothed" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected (accum, smoothed) pair, got %v", pairs)
	}
}

func TestConvertTemporalRemapRewritesStatefulBase(t *testing.T) {
	remap := &ir.Remap{
		Base: mkIndex("osc", 0),
		Subs: map[string]ir.Node{"me.t": &ir.Binary{Op: ir.OpSub, Left: meT(), Right: ir.Num(1)}},
		Keys: []string{"me.t"},
	}
	desc := &annotate.Descriptor{Stateful: true}
	got := ConvertTemporalRemap(remap, ir.Num(1), desc, "")
	want := &ir.Builtin{Name: "cache", Args: []ir.Node{mkIndex("osc", 0), ir.Num(historySize), ir.Num(1), ir.Num(1)}}
	if !got.Equals(want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestConvertTemporalRemapLeavesSelfReferenceAlone(t *testing.T) {
	remap := &ir.Remap{
		Base: mkIndex("out", 0),
		Subs: map[string]ir.Node{"me.t": &ir.Binary{Op: ir.OpSub, Left: meT(), Right: ir.Num(1)}},
		Keys: []string{"me.t"},
	}
	desc := &annotate.Descriptor{Stateful: true}
	got := ConvertTemporalRemap(remap, ir.Num(1), desc, "out")
	if !got.Equals(remap) {
		t.Fatalf("expected self-referential remap to be left alone, got %#v", got)
	}
}
