package coordinator_test

import (
	"testing"

	"github.com/leo-levin/weft/backend"
	"github.com/leo-levin/weft/cache"
	"github.com/leo-levin/weft/coordinator"
	"github.com/leo-levin/weft/hw"
	"github.com/leo-levin/weft/ir"
	"github.com/leo-levin/weft/partition"
)

type fakeInstance struct {
	id          string
	compileN    int
	executed    []float64
	outputValue float64
}

func (f *fakeInstance) ID() string { return f.id }

func (f *fakeInstance) Compile(sw *partition.Swatch, p *ir.Program, cacheTbl *cache.Table) (backend.CompiledUnit, error) {
	f.compileN++
	return f.id, nil
}

func (f *fakeInstance) Execute(unit backend.CompiledUnit, env *backend.ExecEnv) error {
	f.executed = append(f.executed, env.Inputs...)
	if f.outputValue != 0 {
		env.Outputs = []float64{f.outputValue}
	}
	return nil
}

func crossDomainProgram() *ir.Program {
	p := ir.NewProgram()
	p.Bundles["src"] = &ir.Bundle{Name: "src", Strands: []ir.Strand{
		{Index: 0, Expr: &ir.Builtin{Name: "microphone", Args: []ir.Node{ir.Num(0), ir.Num(0)}}},
	}}
	p.Bundles["display"] = &ir.Bundle{Name: "display", Strands: []ir.Strand{
		{Index: 0, Expr: &ir.Index{Bundle: "src", IndexExpr: ir.Num(0)}},
	}}
	p.Order = append(p.Order, ir.DeclRef{Bundle: "src"}, ir.DeclRef{Bundle: "display"})
	return p
}

func setup() (*coordinator.Coordinator, *fakeInstance, *fakeInstance) {
	reg := backend.NewRegistry()
	_ = reg.Register(&backend.Declaration{ID: "gpu-backend", Sinks: []string{"display"}})
	_ = reg.Register(&backend.Declaration{ID: "audio-backend", Hardware: hw.NewTokenSet(hw.TokMicrophone), Sinks: []string{"play"}})

	gpu := &fakeInstance{id: "gpu-backend"}
	audio := &fakeInstance{id: "audio-backend", outputValue: 7}
	c := coordinator.New(reg, hw.NewTokenSet(hw.TokMicrophone), map[string]backend.Instance{
		"gpu-backend":   gpu,
		"audio-backend": audio,
	})
	return c, gpu, audio
}

func TestCompileAssignsCrossDomainSwatch(t *testing.T) {
	c, _, _ := setup()
	if err := c.Compile(crossDomainProgram(), 0, 0); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	res := c.Partition()
	gpuSw, ok := res.Swatches["gpu-backend"]
	if !ok || len(gpuSw.Inputs) != 1 {
		t.Fatalf("expected gpu-backend to have one cross-domain input, got %#v", res.Swatches)
	}
	edge := gpuSw.Inputs[0]
	if edge.Bundle != "src" || edge.Owner != "audio-backend" {
		t.Fatalf("unexpected edge: %#v", edge)
	}
	audioSw := res.Swatches["audio-backend"]
	if _, ok := audioSw.Bundles["src"]; !ok {
		t.Fatal("expected src owned by audio-backend")
	}
}

func TestExecuteFrameOrdersOwnerBeforeConsumer(t *testing.T) {
	c, gpu, audio := setup()
	if err := c.Compile(crossDomainProgram(), 0, 0); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if err := c.ExecuteFrame(0); err != nil {
		t.Fatalf("ExecuteFrame: %v", err)
	}
	if len(audio.executed) != 0 {
		t.Fatalf("expected audio-backend to have no cross-domain inputs, got %v", audio.executed)
	}
	if len(gpu.executed) != 1 || gpu.executed[0] != 7 {
		t.Fatalf("expected gpu-backend to read the published value 7, got %v", gpu.executed)
	}
}

func TestCompileSkipsUnchangedProgram(t *testing.T) {
	c, gpu, _ := setup()
	p := crossDomainProgram()
	if err := c.Compile(p, 0, 0); err != nil {
		t.Fatalf("first Compile: %v", err)
	}
	if gpu.compileN != 1 {
		t.Fatalf("expected one compile call, got %d", gpu.compileN)
	}
	if err := c.Compile(crossDomainProgram(), 0, 0); err != nil {
		t.Fatalf("second Compile: %v", err)
	}
	if gpu.compileN != 1 {
		t.Fatalf("expected hot-reload hash match to skip recompiling, got %d compile calls", gpu.compileN)
	}
}

func TestExecuteFrameBeforeCompileIsError(t *testing.T) {
	c, _, _ := setup()
	if err := c.ExecuteFrame(0); err == nil {
		t.Fatal("expected ErrNotCompiled")
	}
}
