package models

import (
	"context"
	"math"

	"github.com/san-kum/simrun/internal/config"
	"github.com/san-kum/simrun/internal/dynamo"
	"github.com/san-kum/simrun/internal/integrators"
	"github.com/san-kum/simrun/internal/lifecycle"
	"github.com/san-kum/simrun/internal/metrics"
	"github.com/san-kum/simrun/internal/storage"
	"go.uber.org/zap"
)

// PendulumSystem is a damped pendulum driven by an optional torque.
type PendulumSystem struct {
	Mass    float64
	Length  float64
	Damping float64
	Gravity float64
}

func NewPendulumSystem() *PendulumSystem {
	return &PendulumSystem{
		Mass:    1.0,
		Length:  1.0,
		Damping: 0.1,
		Gravity: 9.81,
	}
}

func (p *PendulumSystem) StateDim() int {
	return 2
}

func (p *PendulumSystem) ControlDim() int {
	return 1
}

func (p *PendulumSystem) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	theta := x[0]
	omega := x[1]

	torque := 0.0
	if len(u) > 0 {
		torque = u[0]
	}
	alpha := (-p.Damping*omega - p.Mass*p.Gravity*p.Length*math.Sin(theta) + torque) / (p.Mass * p.Length * p.Length)

	return dynamo.State{omega, alpha}
}

func (p *PendulumSystem) Energy(x dynamo.State) float64 {
	kinetic := 0.5 * p.Mass * p.Length * p.Length * x[1] * x[1]
	potential := p.Mass * p.Gravity * p.Length * (1 - math.Cos(x[0]))
	return kinetic + potential
}

// Pendulum perturbs its starting angle with noise drawn from the run's
// seeded generator, so each trial starts from a different but reproducible
// state.
type Pendulum struct {
	sys      *PendulumSystem
	integ    dynamo.Integrator
	x0       dynamo.State
	dt       float64
	duration float64
	simPath  string
	log      *zap.Logger
	traj     *dynamo.Trajectory
	drift    *metrics.EnergyDrift
}

func NewPendulum() *Pendulum {
	return &Pendulum{}
}

func (p *Pendulum) Name() string { return "pendulum" }

func (p *Pendulum) DefaultParams() config.Params {
	return config.Params{
		"mass":         1.0,
		"length":       1.0,
		"damping":      0.1,
		"gravity":      9.81,
		"theta0":       0.5,
		"omega0":       0.0,
		"theta_jitter": 0.05,
		"dt":           0.01,
		"duration":     10.0,
	}
}

func (p *Pendulum) Initialize(m *lifecycle.Manager) error {
	params := m.Params()
	r := paramReader{params: params}

	p.sys = &PendulumSystem{
		Mass:    r.float("mass"),
		Length:  r.float("length"),
		Damping: r.float("damping"),
		Gravity: r.float("gravity"),
	}
	theta0 := r.float("theta0")
	omega0 := r.float("omega0")
	jitter := r.float("theta_jitter")
	p.dt = r.float("dt")
	p.duration = r.float("duration")
	if r.err != nil {
		return r.err
	}

	method := "rk4"
	if name, ok := m.Config().String(KeyMethod); ok {
		method = name
	}
	integ, err := integrators.ByName(method)
	if err != nil {
		return err
	}
	p.integ = integ

	p.x0 = dynamo.State{theta0 + jitter*m.Rand().NormFloat64(), omega0}
	p.simPath = m.SimPath()
	p.log = m.Logger()
	p.log.Debug("pendulum initialized",
		zap.Float64("theta0", p.x0[0]),
		zap.String("method", method))
	return nil
}

func (p *Pendulum) Run(ctx context.Context) error {
	p.drift = metrics.NewEnergyDrift(p.sys)
	tr, err := dynamo.Integrate(ctx, p.sys, p.integ, p.x0, p.dt, p.duration, metrics.Observer(p.drift))
	if err != nil {
		return err
	}
	p.traj = tr

	p.log.Info("pendulum integrated",
		zap.Int("samples", len(tr.Times)),
		zap.Float64("energy_start", p.drift.Initial()),
		zap.Float64("energy_end", p.drift.Current()),
		zap.Float64("max_energy_drift", p.drift.Value()))

	return storage.SaveSeries(p.simPath, &storage.Series{
		Names:   []string{"theta", "omega"},
		Times:   tr.Times,
		Columns: [][]float64{tr.Column(0), tr.Column(1)},
	})
}

func (p *Pendulum) Cleanup() error {
	p.traj = nil
	return nil
}

// Trajectory is nil until Run succeeds and after Cleanup.
func (p *Pendulum) Trajectory() *dynamo.Trajectory { return p.traj }

// Drift is nil until Run starts.
func (p *Pendulum) Drift() *metrics.EnergyDrift { return p.drift }
