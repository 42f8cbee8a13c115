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

// Package main implements weftc, a CLI harness that drives a serialized
// ground-IR fixture through load -> annotate -> transform -> cache ->
// partition -> dump. There is no parser (surface syntax is outside this
// repository's scope) and no real backend (codegen is outside this
// repository's scope): weftc exercises everything up to the point where
// a concrete Instance would take over, and prints what compilation
// produced.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/leo-levin/weft/backend"
	"github.com/leo-levin/weft/coordinator"
	"github.com/leo-levin/weft/hw"
)

var (
	dashRegistry   string
	dashW          int
	dashH          int
	dashAudioToken string
	dashOut        string
	dashFrames     int
	dashDT         float64
	dashCheckpoint string
)

func init() {
	flag.CommandLine.Usage = printHelp
	flag.StringVar(&dashRegistry, "registry", "", "YAML backend registry document (required)")
	flag.IntVar(&dashW, "w", 64, "visual output width")
	flag.IntVar(&dashH, "h", 64, "visual output height")
	flag.StringVar(&dashAudioToken, "audio", "speaker", "hardware token marking the audio domain (speaker, microphone, gpu, camera, or a custom name)")
	flag.StringVar(&dashOut, "o", "", "file for output (default is stdout)")
	flag.IntVar(&dashFrames, "frames", 0, "number of frames to step through ExecuteFrame after compiling (0: compile and dump only)")
	flag.Float64Var(&dashDT, "dt", 1.0/60, "simulated time increment per frame")
	flag.StringVar(&dashCheckpoint, "checkpoint", "", "cache checkpoint file to load before stepping, and save after")
}

func printHelp() {
	fmt.Fprintf(os.Stderr, "usage: weftc -registry backends.yaml [flags] program.json [program.json ...]\n")
	flag.PrintDefaults()
}

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if dashRegistry == "" {
		fmt.Fprintln(os.Stderr, "weftc: -registry is required")
		os.Exit(2)
	}

	out := io.Writer(os.Stdout)
	if dashOut != "" {
		f, err := os.Create(dashOut)
		if err != nil {
			log.Fatalf("weftc: %s", err)
		}
		defer f.Close()
		out = f
	}

	regData, err := os.ReadFile(dashRegistry)
	if err != nil {
		log.Fatalf("weftc: reading registry: %s", err)
	}
	registry, err := backend.LoadRegistryConfig(regData)
	if err != nil {
		log.Fatalf("weftc: parsing registry: %s", err)
	}

	audioTok, ok := parseAudioToken(dashAudioToken)
	if !ok {
		log.Fatalf("weftc: unknown -audio token %q", dashAudioToken)
	}
	audioHW := hw.NewTokenSet(audioTok)

	for _, path := range args {
		if err := runOne(out, registry, audioHW, path); err != nil {
			log.Fatalf("weftc: %s: %s", path, err)
		}
	}
}

func runOne(out io.Writer, registry *backend.Registry, audioHW hw.TokenSet, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// No concrete Instance is wired for any backend id: codegen lives
	// outside this repository, so Compile runs annotate/transform/cache/
	// partition in full and simply skips the per-backend Instance.Compile
	// step for every id (coordinator.New: "a backend with no entry is
	// skipped").
	co := coordinator.New(registry, audioHW, map[string]backend.Instance{})

	if err := co.LoadProgramJSON(data, dashW, dashH); err != nil {
		return err
	}

	if dashCheckpoint != "" {
		if f, err := os.Open(dashCheckpoint); err == nil {
			err := co.LoadCheckpoint(f)
			f.Close()
			if err != nil {
				return err
			}
		}
	}

	dumpPartition(out, path, co)

	for frame := 0; frame < dashFrames; frame++ {
		if err := co.ExecuteFrame(float64(frame) * dashDT); err != nil {
			return err
		}
	}
	if dashFrames > 0 {
		fmt.Fprintf(out, "ran %d frame(s) at dt=%v\n", dashFrames, dashDT)
	}

	if dashCheckpoint != "" {
		f, err := os.Create(dashCheckpoint)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := co.SaveCheckpoint(f); err != nil {
			return err
		}
	}
	return nil
}

func parseAudioToken(name string) (hw.Token, bool) {
	switch name {
	case "camera":
		return hw.TokCamera, true
	case "microphone":
		return hw.TokMicrophone, true
	case "speaker":
		return hw.TokSpeaker, true
	case "gpu":
		return hw.TokGPU, true
	case "":
		return hw.Token{}, false
	default:
		return hw.CustomToken(name), true
	}
}
