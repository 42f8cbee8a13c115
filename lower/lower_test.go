package lower

import (
	"testing"

	"github.com/leo-levin/weft/ir"
)

func TestLowerSimpleBundle(t *testing.T) {
	ast := &AST{
		Bundles: []BundleDecl{
			{Name: "flat", Sources: []StrandSource{
				{Name: "v", Expr: &Binary{Op: ir.OpAdd, Left: Num(1), Right: Num(2)}},
			}},
		},
	}
	prog, err := Lower(ast)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	b, ok := prog.Bundles["flat"]
	if !ok || b.Width() != 1 {
		t.Fatalf("expected bundle 'flat' with width 1, got %#v", b)
	}
	want := &ir.Binary{Op: ir.OpAdd, Left: ir.Num(1), Right: ir.Num(2)}
	if !b.Strands[0].Expr.Equals(want) {
		t.Fatalf("got %#v, want %#v", b.Strands[0].Expr, want)
	}
}

func TestLowerBundleReferenceAndOrder(t *testing.T) {
	ast := &AST{
		Bundles: []BundleDecl{
			{Name: "derived", Sources: []StrandSource{
				{Name: "v", Expr: &Binary{Op: ir.OpMul, Left: &Ref{Bundle: "base", Field: "x"}, Right: Num(2)}},
			}},
			{Name: "base", Sources: []StrandSource{
				{Name: "x", Expr: Num(5)},
			}},
		},
	}
	prog, err := Lower(ast)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if len(prog.Order) != 2 || prog.Order[0].Bundle != "base" || prog.Order[1].Bundle != "derived" {
		t.Fatalf("expected order [base, derived], got %v", prog.Order)
	}
}

func TestLowerCircularBundleIsError(t *testing.T) {
	ast := &AST{
		Bundles: []BundleDecl{
			{Name: "a", Sources: []StrandSource{{Name: "v", Expr: &Ref{Bundle: "b", Field: "v"}}}},
			{Name: "b", Sources: []StrandSource{{Name: "v", Expr: &Ref{Bundle: "a", Field: "v"}}}},
		},
	}
	if _, err := Lower(ast); err == nil {
		t.Fatal("expected circular dependency error")
	} else if lerr, ok := err.(*Error); !ok || lerr.Kind != ErrCircularDependency {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLowerSpindleCallSingleValue(t *testing.T) {
	ast := &AST{
		Spindles: []SpindleDecl{
			{Name: "double", Params: []string{"x"}, Returns: []Expr{
				&Binary{Op: ir.OpMul, Left: &Ref{Bundle: "x"}, Right: Num(2)},
			}},
		},
		Bundles: []BundleDecl{
			{Name: "out", Sources: []StrandSource{
				{Name: "v", Expr: &Call{Spindle: "double", Args: []Expr{Num(21)}}},
			}},
		},
	}
	prog, err := Lower(ast)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	expr := prog.Bundles["out"].Strands[0].Expr
	ex, ok := expr.(*ir.Extract)
	if !ok || ex.Index != 0 {
		t.Fatalf("expected Extract(Call(...), 0), got %#v", expr)
	}
	call, ok := ex.Call.(*ir.Call)
	if !ok || call.Spindle != "double" || len(call.Args) != 1 {
		t.Fatalf("expected Call(double, [21]), got %#v", ex.Call)
	}
}

func TestLowerChainWithRange(t *testing.T) {
	// rgb -> { .(0..2) * 2 } duplicates a 3-wide bundle, doubling each
	// channel, using the implicit-previous bare accessor with a range.
	ast := &AST{
		Bundles: []BundleDecl{
			{Name: "rgb", Sources: []StrandSource{
				{Name: "r", Expr: Num(1)},
				{Name: "g", Expr: Num(2)},
				{Name: "b", Expr: Num(3)},
			}},
			{Name: "doubled", Sources: []StrandSource{
				{Chain: &Chain{
					Base: &Ref{Bundle: "rgb"},
					Patterns: []Pattern{{Outputs: []PatternOutput{
						{Expr: &Binary{Op: ir.OpMul, Left: &Ref{Range: &Range{Lo: Num(0), Hi: Num(2)}}, Right: Num(2)}},
					}}},
				}},
			}},
		},
	}
	prog, err := Lower(ast)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	b := prog.Bundles["doubled"]
	if b.Width() != 3 {
		t.Fatalf("expected width 3, got %d", b.Width())
	}
	want := &ir.Binary{Op: ir.OpMul, Left: &ir.Index{Bundle: "rgb", IndexExpr: ir.Num(1)}, Right: ir.Num(2)}
	if !b.Strands[1].Expr.Equals(want) {
		t.Fatalf("got %#v, want %#v", b.Strands[1].Expr, want)
	}
}

func TestLowerRangeSizeMismatchIsError(t *testing.T) {
	ast := &AST{
		Bundles: []BundleDecl{
			{Name: "rgb", Sources: []StrandSource{
				{Name: "r", Expr: Num(1)}, {Name: "g", Expr: Num(2)}, {Name: "b", Expr: Num(3)},
			}},
			{Name: "bad", Sources: []StrandSource{
				{Chain: &Chain{
					Base: &Ref{Bundle: "rgb"},
					Patterns: []Pattern{{Outputs: []PatternOutput{
						{Expr: &Binary{
							Op:    ir.OpAdd,
							Left:  &Ref{Range: &Range{Lo: Num(0), Hi: Num(1)}},
							Right: &Ref{Range: &Range{Lo: Num(0), Hi: Num(2)}},
						}},
					}}},
				}},
			}},
		},
	}
	if _, err := Lower(ast); err == nil {
		t.Fatal("expected range size mismatch error")
	} else if lerr, ok := err.(*Error); !ok || lerr.Kind != ErrRangeSizeMismatch {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLowerLoadResourceExpandsToThreeChannels(t *testing.T) {
	ast := &AST{
		Bundles: []BundleDecl{
			{Name: "img", Sources: []StrandSource{
				{Chain: &Chain{
					Base: &Load{Path: "foo.png"},
					Patterns: []Pattern{{Outputs: []PatternOutput{
						{Name: "r", Expr: &Ref{IndexExpr: Num(0)}},
						{Name: "g", Expr: &Ref{IndexExpr: Num(1)}},
						{Name: "b", Expr: &Ref{IndexExpr: Num(2)}},
					}}},
				}},
			}},
		},
	}
	prog, err := Lower(ast)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if len(prog.Resources) != 1 || prog.Resources[0] != "foo.png" {
		t.Fatalf("expected one interned resource, got %v", prog.Resources)
	}
	b := prog.Bundles["img"]
	if b.Width() != 3 {
		t.Fatalf("expected width 3, got %d", b.Width())
	}
	bi, ok := b.Strands[0].Expr.(*ir.Builtin)
	if !ok || bi.Name != "texture" {
		t.Fatalf("expected a texture builtin, got %#v", b.Strands[0].Expr)
	}
}
