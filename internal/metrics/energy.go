package metrics

import (
	"math"

	"github.com/san-kum/simrun/internal/dynamo"
)

// Hamiltonian is a system with a conserved (or dissipated) energy.
type Hamiltonian interface {
	Energy(x dynamo.State) float64
}

// EnergyDrift tracks the largest relative departure from the energy of
// the first observed state.
type EnergyDrift struct {
	sys      Hamiltonian
	initial  float64
	current  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift(sys Hamiltonian) *EnergyDrift {
	return &EnergyDrift{sys: sys}
}

func (e *EnergyDrift) Name() string { return "energy_drift" }

func (e *EnergyDrift) Observe(step int, t float64, x dynamo.State) {
	energy := e.sys.Energy(x)
	if e.samples == 0 {
		e.initial = energy
	}
	e.current = energy
	e.samples++

	if e.initial != 0 {
		drift := math.Abs(energy-e.initial) / math.Abs(e.initial)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

func (e *EnergyDrift) Initial() float64 { return e.initial }
func (e *EnergyDrift) Current() float64 { return e.current }

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.current = 0
	e.maxDrift = 0
	e.samples = 0
}
