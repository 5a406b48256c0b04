// Package lifecycle runs the housekeeping around a simulation: it merges the
// configuration, allocates a trial directory and seed, opens the run's log
// and documents the run before handing control to the simulation's hooks.
//
// Hooks run in order Initialize → Run → Cleanup:
//
//	m, err := lifecycle.New(cfg, models.NewFHN(), lifecycle.WithLogInfo("debug"))
//	if err != nil {
//		return err
//	}
//	defer m.Cleanup()
//	return m.Run(ctx)
//
// [Do] wraps that sequence. A Manager is not safe for concurrent use.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"

	"github.com/san-kum/simrun/internal/config"
	"github.com/san-kum/simrun/internal/logging"
	"github.com/san-kum/simrun/internal/storage"
	"go.uber.org/zap"
)

// Simulation is implemented by each simulation variant. DefaultParams must
// return the same declared defaults on every call.
type Simulation interface {
	DefaultParams() config.Params
	Initialize(m *Manager) error
	Run(ctx context.Context) error
	Cleanup() error
}

// Namer lets a simulation report a name for logs and manifests.
type Namer interface {
	Name() string
}

type State int

const (
	Constructing State = iota
	Ready
	Running
	Failed
	Cleaned
)

func (s State) String() string {
	switch s {
	case Constructing:
		return "constructing"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Failed:
		return "failed"
	case Cleaned:
		return "cleaned"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Manager struct {
	id     string
	name   string
	sim    Simulation
	cfg    config.Config
	params config.Params
	seed   int64
	mode   logging.Mode
	layout storage.Layout
	logger *logging.Logger
	rng    *rand.Rand
	state  State
}

// New prepares a run and calls the simulation's Initialize hook. On any
// failure no Manager is returned. A trial directory created by this call is
// removed again if opening its log or documenting the run fails; after an
// Initialize failure it is kept so sim.log records the error.
func New(cfg config.Config, sim Simulation, opts ...Option) (*Manager, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	params, err := config.Merge(sim.DefaultParams(), cfg)
	if err != nil {
		return nil, err
	}
	dataLoc, _ := cfg.DataLoc()

	simDir, ok := cfg.SimDir()
	if !ok {
		simDir = storage.DefaultSimDir(o.now())
	}

	st := storage.New(dataLoc)
	if err := st.Init(); err != nil {
		return nil, err
	}
	layout, created, err := AssignTrial(st, simDir, o.mode.Test, o.trial, o.strictTrial)
	if err != nil {
		return nil, err
	}
	release := func() {
		if created {
			_ = os.RemoveAll(layout.SimPath)
		}
	}
	seed := AssignSeed(o.seed, layout.Trial)

	m := &Manager{
		id:     storage.NewRunID(),
		name:   simName(sim),
		sim:    sim,
		cfg:    cfg.Clone(),
		params: params,
		seed:   seed,
		mode:   o.mode,
		layout: layout,
		rng:    rand.New(rand.NewSource(seed)),
		state:  Constructing,
	}

	logger, err := logging.New(logging.Config{Dir: layout.SimPath, Mode: o.mode, Console: o.console}, storage.LogFile)
	if err != nil {
		release()
		return nil, &storage.StorageError{Op: "open log", Path: layout.SimPath, Err: err}
	}
	m.logger = logger
	m.logger.Logger = logger.With(
		zap.String("sim", m.name),
		zap.String("sim_dir", layout.SimDir),
		zap.Int("trial", layout.Trial),
		zap.Int64("seed", seed),
	)

	if err := m.document(o); err != nil {
		_ = m.logger.Close()
		release()
		return nil, err
	}

	m.logger.Info("run prepared",
		zap.String("sim_path", layout.SimPath),
		zap.String("mode", o.mode.String()),
		zap.String("run_id", m.id))
	m.logger.Debug("effective params", zap.Any("params", map[string]any(params)))

	if err := sim.Initialize(m); err != nil {
		m.logger.Error("initialize failed", zap.Error(err))
		_ = m.logger.Close()
		return nil, fmt.Errorf("initialize %s: %w", m.name, err)
	}

	m.state = Ready
	return m, nil
}

func (m *Manager) document(o *options) error {
	desc, ok := m.cfg.Description()
	readme := desc
	if !ok {
		readme = storage.NoDescription
	}
	if err := storage.WriteReadme(m.layout.SimPath, readme); err != nil {
		return err
	}
	return storage.SaveManifest(m.layout.SimPath, &storage.Manifest{
		ID:          m.id,
		Sim:         m.name,
		SimDir:      m.layout.SimDir,
		Trial:       m.layout.Trial,
		Seed:        m.seed,
		Test:        m.mode.Test,
		Debug:       m.mode.Debug,
		Created:     o.now().UTC(),
		Description: desc,
		Params:      map[string]any(m.params),
	})
}

// Run executes the simulation's Run hook. It may be called once, on a
// Ready manager.
func (m *Manager) Run(ctx context.Context) error {
	if m.state != Ready {
		return &StateError{Op: "run", State: m.state}
	}
	m.state = Running
	m.logger.Info("run started")

	if err := m.sim.Run(ctx); err != nil {
		m.state = Failed
		m.logger.Error("run failed", zap.Error(err))
		return fmt.Errorf("run %s: %w", m.name, err)
	}

	m.logger.Info("run finished")
	return nil
}

// Cleanup calls the simulation's Cleanup hook and closes the run log.
// Later calls return nil without doing anything.
func (m *Manager) Cleanup() error {
	if m.state == Cleaned {
		return nil
	}
	if m.state == Constructing {
		return &StateError{Op: "cleanup", State: m.state}
	}

	var hookErr error
	if err := m.sim.Cleanup(); err != nil {
		m.logger.Error("cleanup failed", zap.Error(err))
		hookErr = fmt.Errorf("cleanup %s: %w", m.name, err)
	} else {
		m.logger.Info("cleanup finished")
	}

	m.state = Cleaned
	return errors.Join(hookErr, m.logger.Close())
}

// Do constructs a Manager, runs it and always attempts cleanup.
func Do(ctx context.Context, cfg config.Config, sim Simulation, opts ...Option) (m *Manager, err error) {
	m, err = New(cfg, sim, opts...)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, m.Cleanup())
	}()
	return m, m.Run(ctx)
}

func (m *Manager) ID() string   { return m.id }
func (m *Manager) Name() string { return m.name }

// Config returns a copy of the caller's configuration.
func (m *Manager) Config() config.Config { return m.cfg.Clone() }

// Params returns a copy of the effective parameters.
func (m *Manager) Params() config.Params {
	out := make(config.Params, len(m.params))
	for k, v := range m.params {
		out[k] = v
	}
	return out
}

func (m *Manager) Trial() int             { return m.layout.Trial }
func (m *Manager) Seed() int64            { return m.seed }
func (m *Manager) DataLoc() string        { return m.layout.DataLoc }
func (m *Manager) SimDir() string         { return m.layout.SimDir }
func (m *Manager) SimPath() string        { return m.layout.SimPath }
func (m *Manager) HDF5Path() string       { return m.layout.HDF5Path }
func (m *Manager) Layout() storage.Layout { return m.layout }
func (m *Manager) Mode() logging.Mode     { return m.mode }
func (m *Manager) State() State           { return m.state }
func (m *Manager) Logger() *zap.Logger    { return m.logger.Logger }
func (m *Manager) LogPath() string        { return m.logger.Path() }

// Rand is seeded with Seed. It is owned by the run and not safe for
// concurrent use.
func (m *Manager) Rand() *rand.Rand { return m.rng }

func simName(sim Simulation) string {
	if n, ok := sim.(Namer); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", sim)
}
