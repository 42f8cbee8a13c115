package ir_test

import (
	"testing"

	"github.com/leo-levin/weft/ir"
)

func meX() ir.Node { return &ir.Index{Bundle: "me", IndexExpr: ir.Num(0), Field: "x"} }
func meT() ir.Node { return &ir.Index{Bundle: "me", IndexExpr: ir.Num(0), Field: "t"} }

func TestRoundTrip(t *testing.T) {
	exprs := []ir.Node{
		ir.Num(1.5),
		ir.Param("rate"),
		&ir.Index{Bundle: "env", IndexExpr: ir.Num(2), Field: "val"},
		&ir.Index{Bundle: "env", IndexExpr: &ir.Binary{Op: ir.OpAdd, Left: ir.Num(1), Right: ir.Num(1)}},
		&ir.Binary{Op: ir.OpMul, Left: meX(), Right: ir.Num(2)},
		&ir.Unary{Op: ir.OpNeg, Operand: meX()},
		&ir.Call{Spindle: "decay", Args: []ir.Node{ir.Num(0.9)}},
		&ir.Extract{Call: &ir.Call{Spindle: "decay", Args: []ir.Node{ir.Num(0.9)}}, Index: 0},
		&ir.Builtin{Name: "sin", Args: []ir.Node{meT()}},
		&ir.Remap{
			Base: &ir.Index{Bundle: "env", IndexExpr: ir.Num(0), Field: "val"},
			Subs: map[string]ir.Node{"me.t": &ir.Binary{Op: ir.OpSub, Left: meT(), Right: ir.Num(1)}},
			Keys: []string{"me.t"},
		},
		&ir.CacheRead{CacheID: ir.NewCacheID(), TapIndex: 0},
	}
	for i, e := range exprs {
		raw, err := ir.Encode(e)
		if err != nil {
			t.Fatalf("%d: encode: %v", i, err)
		}
		got, err := ir.Decode(raw)
		if err != nil {
			t.Fatalf("%d: decode: %v", i, err)
		}
		if !ir.Equal(e, got) {
			t.Errorf("%d: round-trip mismatch: %#v -> %s -> %#v", i, e, raw, got)
		}
	}
}

func TestLegacyShapeDecode(t *testing.T) {
	got, err := ir.Decode([]byte(`{"type":"camera","args":[{"type":"num","value":0.5},{"type":"num","value":0.5},{"type":"num","value":0}]}`))
	if err != nil {
		t.Fatal(err)
	}
	b, ok := got.(*ir.Builtin)
	if !ok || b.Name != "camera" || len(b.Args) != 3 {
		t.Fatalf("expected a 3-arg camera builtin, got %#v", got)
	}
}

func TestDecodeMissingResourcesDefaultsEmpty(t *testing.T) {
	p, err := ir.DecodeProgram([]byte(`{"bundles":{},"spindles":{},"order":[]}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Resources) != 0 {
		t.Fatalf("expected empty resources, got %#v", p.Resources)
	}
	if len(p.TextResources) != 0 {
		t.Fatalf("expected empty text resources, got %#v", p.TextResources)
	}
}

func TestFreeVarsStaticIndex(t *testing.T) {
	e := &ir.Binary{
		Op:   ir.OpAdd,
		Left: &ir.Index{Bundle: "a", IndexExpr: ir.Num(2)},
		Right: &ir.Index{Bundle: "b", IndexExpr: &ir.Binary{
			Op: ir.OpAdd, Left: ir.Num(0), Right: ir.Num(1),
		}},
	}
	fv := ir.FreeVars(e)
	if _, ok := fv["a.2"]; !ok {
		t.Errorf("expected a.2 in %v", fv)
	}
	if _, ok := fv["b"]; !ok {
		t.Errorf("expected whole-bundle dependency on b in %v (dynamic index)", fv)
	}
}

func TestCurrentTickFreeVarsExcludesTemporalRemapBase(t *testing.T) {
	base := &ir.Index{Bundle: "env", IndexExpr: ir.Num(0), Field: "val"}
	r := &ir.Remap{
		Base: base,
		Subs: map[string]ir.Node{"me.t": &ir.Binary{Op: ir.OpSub, Left: meT(), Right: ir.Num(1)}},
		Keys: []string{"me.t"},
	}
	if !r.IsTemporal() {
		t.Fatal("expected temporal remap")
	}
	cur := ir.CurrentTickFreeVars(r)
	if _, ok := cur["env.0"]; ok {
		t.Errorf("temporal remap base should not appear in current-tick free vars: %v", cur)
	}
	all := ir.FreeVars(r)
	if _, ok := all["env.0"]; !ok {
		t.Errorf("non-temporal FreeVars should still see the base: %v", all)
	}
}

func TestMapChildrenIdentity(t *testing.T) {
	e := &ir.Binary{Op: ir.OpAdd, Left: meX(), Right: ir.Num(3)}
	got := ir.MapChildren(e, func(n ir.Node) ir.Node { return n })
	if !ir.Equal(e, got) {
		t.Errorf("mapChildren(id) changed the tree: %#v -> %#v", e, got)
	}
}

func TestStructuralHashStable(t *testing.T) {
	a := &ir.Builtin{Name: "cache", Args: []ir.Node{meX(), ir.Num(4), ir.Num(0), meT()}}
	b := &ir.Builtin{Name: "cache", Args: []ir.Node{meX(), ir.Num(4), ir.Num(0), meT()}}
	if ir.StructuralHash(a) != ir.StructuralHash(b) {
		t.Fatal("structurally equal expressions must hash equal")
	}
	c := &ir.Builtin{Name: "cache", Args: []ir.Node{meX(), ir.Num(5), ir.Num(0), meT()}}
	if ir.StructuralHash(a) == ir.StructuralHash(c) {
		t.Fatal("expected different hashes for different history sizes (collision is allowed but this pair must not collide)")
	}
}
