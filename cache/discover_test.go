package cache_test

import (
	"testing"

	"github.com/leo-levin/weft/annotate"
	"github.com/leo-levin/weft/cache"
	"github.com/leo-levin/weft/hw"
	"github.com/leo-levin/weft/ir"
)

func cacheCall(value, signal ir.Node) *ir.Builtin {
	return &ir.Builtin{Name: "cache", Args: []ir.Node{value, ir.Num(4), ir.Num(1), signal}}
}

func feedbackProgram() *ir.Program {
	p := ir.NewProgram()
	// osc.v = cache(osc.0 + 1, 4, 1, me.t) -- a self-referential counter.
	self := &ir.Index{Bundle: "osc", IndexExpr: ir.Num(0)}
	value := &ir.Binary{Op: ir.OpAdd, Left: self, Right: ir.Num(1)}
	signal := &ir.Index{Bundle: "me", IndexExpr: ir.Num(2), Field: "t"}
	b := &ir.Bundle{Name: "osc", Strands: []ir.Strand{{Name: "v", Index: 0, Expr: cacheCall(value, signal)}}}
	p.Bundles["osc"] = b
	p.Order = append(p.Order, ir.DeclRef{Bundle: "osc"})
	return p
}

func TestDiscoverFindsSelfReferentialCache(t *testing.T) {
	p := feedbackProgram()
	top, _ := annotate.Annotate(p)
	tbl, err := cache.Discover(p, top, hw.NewTokenSet(hw.TokSpeaker))
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(tbl.Descriptors) != 1 {
		t.Fatalf("expected 1 descriptor, got %d", len(tbl.Descriptors))
	}
	d := tbl.Descriptors[0]
	if !d.SelfReferential {
		t.Fatal("expected descriptor to be self-referential")
	}
	if d.Domain != cache.DomainVisual {
		t.Fatalf("expected visual domain (no audio hardware used), got %v", d.Domain)
	}
	if d.HistorySize != 4 {
		t.Fatalf("expected historySize 4, got %d", d.HistorySize)
	}
}

func TestDiscoverClampsZeroHistorySizeToOne(t *testing.T) {
	p := ir.NewProgram()
	value := ir.Num(0)
	signal := &ir.Index{Bundle: "me", IndexExpr: ir.Num(2), Field: "t"}
	zero := &ir.Builtin{Name: "cache", Args: []ir.Node{value, ir.Num(0), ir.Num(0), signal}}
	b := &ir.Bundle{Name: "z", Strands: []ir.Strand{{Name: "v", Index: 0, Expr: zero}}}
	p.Bundles["z"] = b
	p.Order = append(p.Order, ir.DeclRef{Bundle: "z"})

	top, _ := annotate.Annotate(p)
	tbl, err := cache.Discover(p, top, hw.TokenSet{})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(tbl.Descriptors) != 1 {
		t.Fatalf("expected cache(v, 0, 0, sig) to still register a descriptor, got %d", len(tbl.Descriptors))
	}
	if tbl.Descriptors[0].HistorySize != 1 {
		t.Fatalf("expected historySize 0 to clamp to 1, got %d", tbl.Descriptors[0].HistorySize)
	}
}

func TestDiscoverDedupesIdenticalCalls(t *testing.T) {
	p := ir.NewProgram()
	value := ir.Num(1)
	signal := &ir.Index{Bundle: "me", IndexExpr: ir.Num(2), Field: "t"}
	// One strand with two textually-identical cache() calls summed
	// together: the pair must collapse to one descriptor (same
	// bundle/strand/value/signal).
	sumExpr := &ir.Binary{Op: ir.OpAdd, Left: cacheCall(value, signal), Right: cacheCall(value, signal)}
	b := &ir.Bundle{Name: "b", Strands: []ir.Strand{{Name: "v", Index: 0, Expr: sumExpr}}}
	p.Bundles["b"] = b
	p.Order = append(p.Order, ir.DeclRef{Bundle: "b"})

	top, _ := annotate.Annotate(p)
	tbl, err := cache.Discover(p, top, hw.TokenSet{})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(tbl.Descriptors) != 1 {
		t.Fatalf("expected dedup to 1 descriptor, got %d", len(tbl.Descriptors))
	}
}

func TestDiscoverClassifiesAudioDomain(t *testing.T) {
	p := ir.NewProgram()
	value := ir.Num(0)
	// microphone() implies the microphone hardware token.
	signal := &ir.Builtin{Name: "microphone", Args: []ir.Node{ir.Num(0), ir.Num(0)}}
	b := &ir.Bundle{Name: "snd", Strands: []ir.Strand{
		{Name: "v", Index: 0, Expr: &ir.Binary{Op: ir.OpAdd, Left: cacheCall(value, signal), Right: signal}},
	}}
	p.Bundles["snd"] = b
	p.Order = append(p.Order, ir.DeclRef{Bundle: "snd"})

	top, _ := annotate.Annotate(p)
	tbl, err := cache.Discover(p, top, hw.NewTokenSet(hw.TokMicrophone))
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(tbl.Descriptors) != 1 || tbl.Descriptors[0].Domain != cache.DomainAudio {
		t.Fatalf("expected one audio-domain descriptor, got %#v", tbl.Descriptors)
	}
}

func TestRewriteReplacesSelfReferenceWithCacheRead(t *testing.T) {
	p := feedbackProgram()
	top, _ := annotate.Annotate(p)
	tbl, err := cache.Apply(p, top, hw.TokenSet{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	expr := p.Bundles["osc"].Strands[0].Expr
	bi, ok := expr.(*ir.Builtin)
	if !ok || bi.Name != "cache" {
		t.Fatalf("expected the cache() builtin itself to survive rewriting, got %#v", expr)
	}
	value := bi.Args[0].(*ir.Binary)
	cr, ok := value.Left.(*ir.CacheRead)
	if !ok {
		t.Fatalf("expected value's self-reference to become a CacheRead, got %#v", value.Left)
	}
	if cr.CacheID != tbl.Descriptors[0].ID || cr.TapIndex != 1 {
		t.Fatalf("CacheRead does not match discovered descriptor: %#v vs %#v", cr, tbl.Descriptors[0])
	}
}

func TestManagerAudioTickAdvancesOnSignalChange(t *testing.T) {
	p := feedbackProgram()
	top, _ := annotate.Annotate(p)
	tbl, err := cache.Apply(p, top, hw.NewTokenSet(hw.TokSpeaker))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	d := tbl.Descriptors[0]
	// osc calls no hardware builtin, so discovery classifies it visual;
	// put it in the audio domain so NewManager allocates an audio ring.
	d.Domain = cache.DomainAudio
	m := cache.NewManager(tbl, 0, 0)

	// First tick: signal starts NaN, so it always advances; tap 1 reads
	// one slot behind the just-written value, which is still zero-filled.
	got := m.TickAudio(d.ID, 1, 1, 0.0)
	if got != 0 {
		t.Fatalf("expected tap 1 to read the untouched zero-filled slot, got %v", got)
	}
	got2 := m.TickAudio(d.ID, 0, 2, 0.0)
	if got2 != 1 {
		t.Fatalf("expected tap 0 to read back the value just written (1), got %v", got2)
	}
	// Same signal: should not advance, tap 0 still reads the same value.
	got3 := m.TickAudio(d.ID, 0, 3, 0.0)
	if got3 != 1 {
		t.Fatalf("expected no advance on unchanged signal, got %v", got3)
	}
	// Signal changes: advances, tap 0 now reads the newly written value.
	got4 := m.TickAudio(d.ID, 0, 3, 1.0)
	if got4 != 3 {
		t.Fatalf("expected advance on signal change to read back 3, got %v", got4)
	}
}

func TestManagerMissingBufferPassesValueThrough(t *testing.T) {
	m := &cache.Manager{}
	got := m.TickAudio(ir.NewCacheID(), 0, 42, 1)
	if got != 42 {
		t.Fatalf("expected passthrough of input value for missing buffer, got %v", got)
	}
}
