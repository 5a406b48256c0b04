package models

import (
	"context"

	"github.com/san-kum/simrun/internal/config"
	"github.com/san-kum/simrun/internal/dynamo"
	"github.com/san-kum/simrun/internal/integrators"
	"github.com/san-kum/simrun/internal/lifecycle"
	"github.com/san-kum/simrun/internal/metrics"
	"github.com/san-kum/simrun/internal/storage"
	"go.uber.org/zap"
)

// KeyMethod is the optional config entry selecting the integrator.
const KeyMethod = "method"

// spikeThreshold is the membrane potential counted as an action potential.
const spikeThreshold = 1.0

// FHNSystem is the FitzHugh-Nagumo neuron model:
//
//	dv/dt = v - v³/3 - w + I
//	dw/dt = (v + a - b·w) / tau
type FHNSystem struct {
	A   float64
	B   float64
	Tau float64
	I   float64
}

func (f *FHNSystem) StateDim() int   { return 2 }
func (f *FHNSystem) ControlDim() int { return 0 }

func (f *FHNSystem) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	v, w := x[0], x[1]
	dv := v - v*v*v/3 - w + f.I
	dw := (v + f.A - f.B*w) / f.Tau
	return dynamo.State{dv, dw}
}

// VNullcline is w on the dv/dt = 0 curve.
func (f *FHNSystem) VNullcline(v float64) float64 {
	return v - v*v*v/3 + f.I
}

// WNullcline is w on the dw/dt = 0 line.
func (f *FHNSystem) WNullcline(v float64) float64 {
	return (v + f.A) / f.B
}

type FHN struct {
	sys     *FHNSystem
	integ   dynamo.Integrator
	method  string
	y0      dynamo.State
	dt      float64
	tend    float64
	simPath string
	log     *zap.Logger
	traj    *dynamo.Trajectory
	spikes  *metrics.Spikes
}

func NewFHN() *FHN {
	return &FHN{}
}

func (f *FHN) Name() string { return "fhn" }

func (f *FHN) DefaultParams() config.Params {
	return config.Params{
		"a":    0.7,
		"b":    0.8,
		"tau":  12.5,
		"I":    0.5,
		"dt":   0.01,
		"y0":   []float64{0.1, 0.0},
		"tend": 100.0,
	}
}

func (f *FHN) Initialize(m *lifecycle.Manager) error {
	r := paramReader{params: m.Params()}

	f.sys = &FHNSystem{
		A:   r.float("a"),
		B:   r.float("b"),
		Tau: r.float("tau"),
		I:   r.float("I"),
	}
	f.dt = r.float("dt")
	f.tend = r.float("tend")
	y0 := r.floats("y0")
	if r.err != nil {
		return r.err
	}
	if len(y0) != f.sys.StateDim() {
		return &config.ConfigError{Key: "y0", Err: config.ErrWrongType, Reason: "want [v, w]"}
	}
	f.y0 = dynamo.State(y0)

	f.method = "rk45"
	if name, ok := m.Config().String(KeyMethod); ok {
		f.method = name
	}
	integ, err := integrators.ByName(f.method)
	if err != nil {
		return err
	}
	f.integ = integ

	f.simPath = m.SimPath()
	f.log = m.Logger()
	f.log.Debug("fhn initialized", zap.String("method", f.method), zap.Float64s("y0", y0))
	return nil
}

func (f *FHN) Run(ctx context.Context) error {
	every := int(1 / f.dt)
	if every < 1 {
		every = 1
	}
	trace := func(step int, t float64, x dynamo.State) {
		if step%every == 0 {
			f.log.Debug("step", zap.Float64("t", t), zap.Float64("v", x[0]), zap.Float64("w", x[1]))
		}
	}

	f.spikes = metrics.NewSpikes(0, spikeThreshold)
	tr, err := dynamo.Integrate(ctx, f.sys, f.integ, f.y0, f.dt, f.tend, trace, metrics.Observer(f.spikes))
	if err != nil {
		return err
	}
	f.traj = tr

	if err := storage.SaveSeries(f.simPath, &storage.Series{
		Names:   []string{"v", "w"},
		Times:   tr.Times,
		Columns: [][]float64{tr.Column(0), tr.Column(1)},
	}); err != nil {
		return err
	}
	f.log.Info("saved simulation series",
		zap.String("path", f.simPath),
		zap.Int("samples", len(tr.Times)),
		zap.Int("spikes", int(f.spikes.Value())))
	return nil
}

func (f *FHN) Cleanup() error {
	f.traj = nil
	return nil
}

func (f *FHN) System() *FHNSystem { return f.sys }

// Trajectory is nil until Run succeeds and after Cleanup.
func (f *FHN) Trajectory() *dynamo.Trajectory { return f.traj }

// Spikes counts upward crossings of v through 1.0 during the last Run.
func (f *FHN) Spikes() int {
	if f.spikes == nil {
		return 0
	}
	return int(f.spikes.Value())
}

// paramReader keeps the first lookup error so a block of reads can be
// checked once.
type paramReader struct {
	params config.Params
	err    error
}

func (r *paramReader) float(key string) float64 {
	if r.err != nil {
		return 0
	}
	v, err := r.params.Float(key)
	r.err = err
	return v
}

func (r *paramReader) floats(key string) []float64 {
	if r.err != nil {
		return nil
	}
	v, err := r.params.Floats(key)
	r.err = err
	return v
}
