package experiment

import (
	"context"
	"io"
	"testing"

	"github.com/san-kum/simrun/internal/config"
	"github.com/san-kum/simrun/internal/lifecycle"
	"go.uber.org/zap/zapcore"
)

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	names := r.List()
	if len(names) != 2 || names[0] != "fhn" || names[1] != "pendulum" {
		t.Errorf("expected [fhn pendulum], got %v", names)
	}
	if _, err := r.Get("lorenz"); err == nil {
		t.Error("expected error for unknown simulation")
	}
}

func TestRunWithPreset(t *testing.T) {
	r := NewRegistry()
	cfg := config.Config{
		"data_loc": t.TempDir(),
		"sim_dir":  "pend",
		"params":   map[string]any{"duration": 0.5},
	}

	out, err := r.Run(context.Background(), Request{
		Sim:     "pendulum",
		Config:  cfg,
		Preset:  "large",
		Options: []lifecycle.Option{lifecycle.WithConsole(zapcore.AddSync(io.Discard))},
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	params := out.Manager.Params()
	if params["theta0"] != 2.5 {
		t.Errorf("expected preset theta0 2.5, got %v", params["theta0"])
	}
	if params["duration"] != 0.5 {
		t.Errorf("config duration should win over preset, got %v", params["duration"])
	}
	if out.Manager.State() != lifecycle.Cleaned {
		t.Errorf("expected cleaned state, got %s", out.Manager.State())
	}
}

func TestRunUnknownPreset(t *testing.T) {
	r := NewRegistry()
	_, err := r.Run(context.Background(), Request{
		Sim:    "fhn",
		Config: config.Config{"data_loc": t.TempDir(), "params": map[string]any{}},
		Preset: "nope",
	})
	if err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestRunEnsembleClaimsDistinctTrials(t *testing.T) {
	r := NewRegistry()
	dataLoc := t.TempDir()
	cfg := config.Config{
		"data_loc": dataLoc,
		"sim_dir":  "sweep",
		"params":   map[string]any{"tend": 1.0},
	}

	outs, err := r.RunEnsemble(context.Background(), Request{
		Sim:     "fhn",
		Config:  cfg,
		Options: []lifecycle.Option{lifecycle.WithConsole(zapcore.AddSync(io.Discard))},
	}, Ensemble{Runs: 6, Workers: 3})
	if err != nil {
		t.Fatalf("ensemble failed: %v", err)
	}

	seen := make(map[int]bool)
	for i, out := range outs {
		if out == nil || out.Manager == nil {
			t.Fatalf("run %d has no outcome", i)
		}
		trial := out.Manager.Trial()
		if seen[trial] {
			t.Errorf("trial %d claimed twice", trial)
		}
		seen[trial] = true
		if out.Manager.Seed() != int64(trial) {
			t.Errorf("expected seed %d, got %d", trial, out.Manager.Seed())
		}
	}
	for trial := 0; trial < 6; trial++ {
		if !seen[trial] {
			t.Errorf("expected trial %d to be claimed", trial)
		}
	}
}

func TestRunEnsembleSeedStart(t *testing.T) {
	r := NewRegistry()
	start := int64(100)
	cfg := config.Config{"data_loc": t.TempDir(), "params": map[string]any{"duration": 0.1}}
	outs, err := r.RunEnsemble(context.Background(), Request{
		Sim:     "pendulum",
		Config:  cfg,
		Options: []lifecycle.Option{lifecycle.WithConsole(zapcore.AddSync(io.Discard))},
	}, Ensemble{Runs: 3, SeedStart: &start})
	if err != nil {
		t.Fatalf("ensemble failed: %v", err)
	}

	simDir := outs[0].Manager.SimDir()
	for i, out := range outs {
		if out.Manager.Seed() != start+int64(i) {
			t.Errorf("run %d: expected seed %d, got %d", i, start+int64(i), out.Manager.Seed())
		}
		if out.Manager.SimDir() != simDir {
			t.Errorf("run %d landed in %s, expected shared %s", i, out.Manager.SimDir(), simDir)
		}
	}
	if _, ok := cfg["sim_dir"]; ok {
		t.Error("caller config should be left untouched")
	}
}

func TestRunEnsembleRejectsEmpty(t *testing.T) {
	r := NewRegistry()
	if _, err := r.RunEnsemble(context.Background(), Request{Sim: "fhn"}, Ensemble{}); err == nil {
		t.Error("expected error for zero runs")
	}
	if _, err := r.RunEnsemble(context.Background(), Request{Sim: "lorenz"}, Ensemble{Runs: 1}); err == nil {
		t.Error("expected error for unknown simulation")
	}
}
