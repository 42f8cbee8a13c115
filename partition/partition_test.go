package partition_test

import (
	"testing"

	"github.com/leo-levin/weft/annotate"
	"github.com/leo-levin/weft/hw"
	"github.com/leo-levin/weft/ir"
	"github.com/leo-levin/weft/partition"
)

// fakeOwner is a minimal HardwareOwner for tests, standing in for the
// backend registry.
type fakeOwner struct {
	tokenOwner map[hw.Token]string
	sinks      map[string]string
}

func (f *fakeOwner) OwnerOf(tok hw.Token) (string, bool) {
	b, ok := f.tokenOwner[tok]
	return b, ok
}

func (f *fakeOwner) SinkBackend(bundle string) (string, bool) {
	b, ok := f.sinks[bundle]
	return b, ok
}

func desc(tokens ...hw.Token) *annotate.Descriptor {
	d := &annotate.Descriptor{Hardware: hw.TokenSet{}, Coords: hw.CoordinateSpec{}, Pure: len(tokens) == 0}
	for _, t := range tokens {
		d.Hardware.Add(t)
	}
	return d
}

func bundle(name string, exprs ...ir.Node) *ir.Bundle {
	b := &ir.Bundle{Name: name}
	for i, e := range exprs {
		b.Strands = append(b.Strands, ir.Strand{Name: "", Index: i, Expr: e})
	}
	return b
}

func ref(bundle string, idx int) *ir.Index {
	return &ir.Index{Bundle: bundle, IndexExpr: ir.Num(float64(idx))}
}

func standardOwner() *fakeOwner {
	return &fakeOwner{
		tokenOwner: map[hw.Token]string{
			hw.TokGPU:        "gpu-backend",
			hw.TokMicrophone: "audio-backend",
			hw.TokSpeaker:    "audio-backend",
		},
		sinks: map[string]string{"display": "gpu-backend", "play": "audio-backend"},
	}
}

func TestPartitionSimpleOwnershipNoCrossDomain(t *testing.T) {
	p := ir.NewProgram()
	p.Bundles["pure1"] = bundle("pure1", ir.Num(1))
	p.Bundles["display"] = bundle("display", ref("pure1", 0))
	p.Order = append(p.Order, ir.DeclRef{Bundle: "display"})

	top := annotate.Set{
		"pure1.0":   desc(),
		"display.0": desc(),
	}

	res, err := partition.Partition(p, top, standardOwner())
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	sw, ok := res.Swatches["gpu-backend"]
	if !ok {
		t.Fatal("expected a gpu-backend swatch")
	}
	if _, ok := sw.Bundles["display"]; !ok {
		t.Fatal("expected display owned by gpu-backend")
	}
	if _, ok := sw.Bundles["pure1"]; !ok {
		t.Fatal("expected pure1 owned by gpu-backend")
	}
	if len(sw.Inputs) != 0 {
		t.Fatalf("expected no cross-domain inputs, got %#v", sw.Inputs)
	}
	if len(res.SlotMap) != 0 {
		t.Fatalf("expected empty slot map, got %#v", res.SlotMap)
	}
}

func TestPartitionCrossDomainEdgeAndSlotMap(t *testing.T) {
	p := ir.NewProgram()
	p.Bundles["mic"] = bundle("mic", &ir.Builtin{Name: "microphone", Args: []ir.Node{ir.Num(0), ir.Num(0)}})
	p.Bundles["display"] = bundle("display", ref("mic", 0))
	p.Order = append(p.Order, ir.DeclRef{Bundle: "display"})

	top := annotate.Set{
		"mic.0":     desc(hw.TokMicrophone),
		"display.0": desc(),
	}

	res, err := partition.Partition(p, top, standardOwner())
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	gpu := res.Swatches["gpu-backend"]
	if len(gpu.Inputs) != 1 {
		t.Fatalf("expected one cross-domain input on gpu-backend, got %#v", gpu.Inputs)
	}
	edge := gpu.Inputs[0]
	if edge.Bundle != "mic" || edge.Strand != 0 || edge.Owner != "audio-backend" {
		t.Fatalf("unexpected edge: %#v", edge)
	}
	audio := res.Swatches["audio-backend"]
	if _, ok := audio.Bundles["mic"]; !ok {
		t.Fatal("expected mic owned by audio-backend")
	}
	if got, ok := res.SlotMap[partition.StrandKey{Bundle: "mic", Index: 0}]; !ok || got != 0 {
		t.Fatalf("expected mic.0 assigned slot 0, got %d, ok=%v", got, ok)
	}
	if edge.Slot != 0 {
		t.Fatalf("expected edge.Slot to mirror the slot map, got %d", edge.Slot)
	}
}

func TestPartitionDuplicatesPureStrandAcrossSinks(t *testing.T) {
	p := ir.NewProgram()
	p.Bundles["shared"] = bundle("shared", ir.Num(2))
	p.Bundles["display"] = bundle("display", ref("shared", 0))
	p.Bundles["play"] = bundle("play", ref("shared", 0))
	p.Order = append(p.Order, ir.DeclRef{Bundle: "display"}, ir.DeclRef{Bundle: "play"})

	top := annotate.Set{
		"shared.0":  desc(),
		"display.0": desc(),
		"play.0":    desc(),
	}

	res, err := partition.Partition(p, top, standardOwner())
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	if _, ok := res.Swatches["gpu-backend"].Bundles["shared"]; !ok {
		t.Fatal("expected shared duplicated into gpu-backend")
	}
	if _, ok := res.Swatches["audio-backend"].Bundles["shared"]; !ok {
		t.Fatal("expected shared duplicated into audio-backend")
	}
	if len(res.SlotMap) != 0 {
		t.Fatalf("duplicated pure strands must not cross domains, got slot map %#v", res.SlotMap)
	}
}

func TestPartitionDetectsSwatchCycle(t *testing.T) {
	p := ir.NewProgram()
	// snd depends on vid (gpu-owned), vid depends on snd (audio-owned):
	// display -> vid -> snd -> vid is a cross-backend cycle at swatch
	// granularity even though no single strand directly cycles.
	p.Bundles["vid"] = bundle("vid", &ir.Binary{Op: ir.OpAdd, Left: &ir.Builtin{Name: "gpuOnly"}, Right: ref("snd", 0)})
	p.Bundles["snd"] = bundle("snd", &ir.Binary{Op: ir.OpAdd, Left: &ir.Builtin{Name: "microphone", Args: []ir.Node{ir.Num(0), ir.Num(0)}}, Right: ref("vid", 0)})
	p.Bundles["display"] = bundle("display", ref("vid", 0))
	p.Bundles["play"] = bundle("play", ref("snd", 0))
	p.Order = append(p.Order, ir.DeclRef{Bundle: "display"}, ir.DeclRef{Bundle: "play"})

	top := annotate.Set{
		"vid.0":     desc(hw.TokGPU),
		"snd.0":     desc(hw.TokMicrophone),
		"display.0": desc(),
		"play.0":    desc(),
	}

	_, err := partition.Partition(p, top, standardOwner())
	if err == nil {
		t.Fatal("expected a swatch-cycle error")
	}
	perr, ok := err.(*partition.Error)
	if !ok || perr.Kind != partition.ErrSwatchCycle {
		t.Fatalf("expected ErrSwatchCycle, got %#v", err)
	}
}

func TestPartitionConflictingHardwareIsError(t *testing.T) {
	p := ir.NewProgram()
	// weird calls camera() and microphone() itself; with camera owned by
	// gpu-backend and microphone by audio-backend, no one backend owns it.
	camera := &ir.Builtin{Name: "camera", Args: []ir.Node{ir.Num(0), ir.Num(0), ir.Num(0)}}
	mic := &ir.Builtin{Name: "microphone", Args: []ir.Node{ir.Num(0), ir.Num(0)}}
	p.Bundles["weird"] = bundle("weird", &ir.Binary{Op: ir.OpAdd, Left: camera, Right: mic})
	p.Bundles["display"] = bundle("display", ref("weird", 0))
	p.Order = append(p.Order, ir.DeclRef{Bundle: "display"})

	top := annotate.Set{
		"weird.0":   desc(hw.TokCamera, hw.TokMicrophone),
		"display.0": desc(),
	}

	owner := standardOwner()
	owner.tokenOwner[hw.TokCamera] = "gpu-backend"
	_, err := partition.Partition(p, top, owner)
	if err == nil {
		t.Fatal("expected a conflicting-hardware error")
	}
	perr, ok := err.(*partition.Error)
	if !ok || perr.Kind != partition.ErrConflictingHardware {
		t.Fatalf("expected ErrConflictingHardware, got %#v", err)
	}
}
