package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/san-kum/simrun/internal/config"
	"github.com/san-kum/simrun/internal/lifecycle"
)

// Request describes one run launched by name.
type Request struct {
	Sim     string
	Config  config.Config
	Preset  string
	Options []lifecycle.Option
}

type Outcome struct {
	Manager *lifecycle.Manager
	Elapsed time.Duration
	Err     error
}

// Run resolves the simulation and preset, then drives the full lifecycle.
// Cleanup is attempted even when the run fails.
func (r *Registry) Run(ctx context.Context, req Request) (*Outcome, error) {
	sim, err := r.Get(req.Sim)
	if err != nil {
		return nil, err
	}

	cfg := req.Config
	if req.Preset != "" {
		preset := config.GetPreset(req.Sim, req.Preset)
		if preset == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", req.Preset, config.ListPresets(req.Sim))
		}
		if cfg, err = config.ApplyPreset(cfg, preset); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	m, err := lifecycle.Do(ctx, cfg, sim, req.Options...)
	return &Outcome{Manager: m, Elapsed: time.Since(start), Err: err}, err
}
