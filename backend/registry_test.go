package backend_test

import (
	"strings"
	"testing"

	"github.com/leo-levin/weft/backend"
	"github.com/leo-levin/weft/hw"
)

func TestRegisterAndLookup(t *testing.T) {
	r := backend.NewRegistry()
	err := r.Register(&backend.Declaration{
		ID:            "gpu-backend",
		Hardware:      hw.NewTokenSet(hw.TokCamera, hw.TokGPU),
		OwnedBuiltins: []string{"texture", "load"},
		Sinks:         []string{"display"},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	err = r.Register(&backend.Declaration{
		ID:            "audio-backend",
		Hardware:      hw.NewTokenSet(hw.TokMicrophone, hw.TokSpeaker),
		OwnedBuiltins: []string{"microphone"},
		Sinks:         []string{"play"},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if id, ok := r.OwnerOf(hw.TokGPU); !ok || id != "gpu-backend" {
		t.Fatalf("expected gpu-backend to own TokGPU, got %q, ok=%v", id, ok)
	}
	if id, ok := r.SinkBackend("display"); !ok || id != "gpu-backend" {
		t.Fatalf("expected gpu-backend to own display sink, got %q, ok=%v", id, ok)
	}
	if id, ok := r.BuiltinOwner("microphone"); !ok || id != "audio-backend" {
		t.Fatalf("expected audio-backend to own microphone builtin, got %q, ok=%v", id, ok)
	}
	if _, ok := r.OwnerOf(hw.TokSpeaker); !ok {
		t.Fatal("expected speaker to be owned")
	}
	ids := r.IDs()
	if len(ids) != 2 || ids[0] != "audio-backend" || ids[1] != "gpu-backend" {
		t.Fatalf("expected sorted ids [audio-backend gpu-backend], got %v", ids)
	}
}

func TestRegisterHardwareConflictIsError(t *testing.T) {
	r := backend.NewRegistry()
	if err := r.Register(&backend.Declaration{ID: "a", Hardware: hw.NewTokenSet(hw.TokGPU)}); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	err := r.Register(&backend.Declaration{ID: "b", Hardware: hw.NewTokenSet(hw.TokGPU)})
	if err == nil {
		t.Fatal("expected a hardware conflict error")
	}
	berr, ok := err.(*backend.Error)
	if !ok || berr.Kind != backend.ErrHardwareConflict {
		t.Fatalf("expected ErrHardwareConflict, got %#v", err)
	}
}

func TestRegisterSinkConflictIsError(t *testing.T) {
	r := backend.NewRegistry()
	if err := r.Register(&backend.Declaration{ID: "a", Sinks: []string{"display"}}); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	err := r.Register(&backend.Declaration{ID: "b", Sinks: []string{"display"}})
	if err == nil {
		t.Fatal("expected a sink conflict error")
	}
	if berr, ok := err.(*backend.Error); !ok || berr.Kind != backend.ErrSinkConflict {
		t.Fatalf("expected ErrSinkConflict, got %#v", err)
	}
}

func TestLoadRegistryConfig(t *testing.T) {
	doc := `
backends:
  - id: gpu-backend
    hardware: [camera, gpu]
    ownedBuiltins: [texture, load]
    externalBuiltins: [microphone]
    coords:
      x: free
      y: free
      t: bound
    sinks: [display]
  - id: audio-backend
    hardware: [microphone, speaker]
    ownedBuiltins: [microphone]
    sinks: [play]
`
	r, err := backend.LoadRegistryConfig([]byte(doc))
	if err != nil {
		t.Fatalf("LoadRegistryConfig: %v", err)
	}
	if id, ok := r.SinkBackend("play"); !ok || id != "audio-backend" {
		t.Fatalf("expected audio-backend to own play sink, got %q, ok=%v", id, ok)
	}
	d, ok := r.Lookup("gpu-backend")
	if !ok {
		t.Fatal("expected gpu-backend declaration")
	}
	if d.Coords["t"] != hw.Bound {
		t.Fatalf("expected t bound, got %v", d.Coords["t"])
	}
	if !d.Hardware.Has(hw.TokCamera) || !d.Hardware.Has(hw.TokGPU) {
		t.Fatalf("expected camera+gpu hardware, got %#v", d.Hardware)
	}
}

func TestLoadRegistryConfigCustomTokenOkUnknownModeIsError(t *testing.T) {
	doc := `
backends:
  - id: weird
    hardware: [nonsense-token-name-that-still-parses-as-custom]
`
	// Unrecognized names fall back to a custom token, not an error --
	// only an empty hardware entry or bad coordinate mode is rejected.
	_, err := backend.LoadRegistryConfig([]byte(doc))
	if err != nil {
		t.Fatalf("expected custom-token fallback to succeed, got %v", err)
	}

	bad := `
backends:
  - id: weird
    coords:
      x: sideways
`
	_, err = backend.LoadRegistryConfig([]byte(bad))
	if err == nil || !strings.Contains(err.Error(), "access mode") {
		t.Fatalf("expected an unknown-mode error, got %v", err)
	}
}
