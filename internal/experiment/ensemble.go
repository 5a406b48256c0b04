package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/san-kum/simrun/internal/config"
	"github.com/san-kum/simrun/internal/lifecycle"
	"github.com/san-kum/simrun/internal/storage"
	"golang.org/x/sync/errgroup"
)

// Ensemble launches Runs independent trials of one request under a shared
// sim_dir. Each run gets a fresh simulation from the registry and claims
// its own trial directory, so trials never collide.
type Ensemble struct {
	Runs    int
	Workers int
	// SeedStart, when set, seeds run i with *SeedStart+i instead of its
	// trial number.
	SeedStart *int64
}

// RunEnsemble returns outcomes in launch order. The first failure cancels
// the context handed to runs that have not finished; outcomes of runs that
// never started are nil.
func (r *Registry) RunEnsemble(ctx context.Context, req Request, ens Ensemble) ([]*Outcome, error) {
	if ens.Runs < 1 {
		return nil, fmt.Errorf("ensemble needs at least one run, got %d", ens.Runs)
	}
	if _, err := r.Get(req.Sim); err != nil {
		return nil, err
	}

	cfg := req.Config.Clone()
	if _, ok := cfg.SimDir(); !ok {
		cfg[config.KeySimDir] = storage.DefaultSimDir(time.Now())
	}

	outcomes := make([]*Outcome, ens.Runs)
	eg, egCtx := errgroup.WithContext(ctx)
	if ens.Workers > 0 {
		eg.SetLimit(ens.Workers)
	}

	for i := 0; i < ens.Runs; i++ {
		idx := i
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			sub := req
			sub.Config = cfg.Clone()
			sub.Options = append([]lifecycle.Option(nil), req.Options...)
			if ens.SeedStart != nil {
				sub.Options = append(sub.Options, lifecycle.WithSeed(*ens.SeedStart+int64(idx)))
			}

			out, err := r.Run(egCtx, sub)
			outcomes[idx] = out
			if err != nil {
				return fmt.Errorf("ensemble run %d: %w", idx, err)
			}
			return nil
		})
	}

	return outcomes, eg.Wait()
}
