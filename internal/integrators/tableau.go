package integrators

import "github.com/san-kum/simrun/internal/dynamo"

// Tableau is the Butcher tableau of an explicit Runge-Kutta method. Row s
// of A holds the s coefficients applied to the earlier stages.
type Tableau struct {
	C []float64
	A [][]float64
	B []float64
	// BHat are the weights of an embedded lower-order solution, used only
	// for error estimates.
	BHat []float64
}

func (tab *Tableau) Stages() int { return len(tab.B) }

var (
	eulerTableau = &Tableau{
		C: []float64{0},
		A: [][]float64{{}},
		B: []float64{1},
	}

	heunTableau = &Tableau{
		C: []float64{0, 1},
		A: [][]float64{{}, {1}},
		B: []float64{0.5, 0.5},
	}

	rk4Tableau = &Tableau{
		C: []float64{0, 0.5, 0.5, 1},
		A: [][]float64{
			{},
			{0.5},
			{0, 0.5},
			{0, 0, 1},
		},
		B: []float64{1.0 / 6.0, 1.0 / 3.0, 1.0 / 3.0, 1.0 / 6.0},
	}

	// Dormand-Prince 5(4). The last stage evaluates the accepted solution,
	// so its B weight is zero.
	dopriTableau = &Tableau{
		C: []float64{0, 1.0 / 5.0, 3.0 / 10.0, 4.0 / 5.0, 8.0 / 9.0, 1, 1},
		A: [][]float64{
			{},
			{1.0 / 5.0},
			{3.0 / 40.0, 9.0 / 40.0},
			{44.0 / 45.0, -56.0 / 15.0, 32.0 / 9.0},
			{19372.0 / 6561.0, -25360.0 / 2187.0, 64448.0 / 6561.0, -212.0 / 729.0},
			{9017.0 / 3168.0, -355.0 / 33.0, 46732.0 / 5247.0, 49.0 / 176.0, -5103.0 / 18656.0},
			{35.0 / 384.0, 0, 500.0 / 1113.0, 125.0 / 192.0, -2187.0 / 6784.0, 11.0 / 84.0},
		},
		B:    []float64{35.0 / 384.0, 0, 500.0 / 1113.0, 125.0 / 192.0, -2187.0 / 6784.0, 11.0 / 84.0, 0},
		BHat: []float64{5179.0 / 57600.0, 0, 7571.0 / 16695.0, 393.0 / 640.0, -92097.0 / 339200.0, 187.0 / 2100.0, 1.0 / 40.0},
	}
)

// Explicit steps any explicit tableau. Stage buffers are reused between
// calls, so an Explicit must not be shared across goroutines.
type Explicit struct {
	tab     *Tableau
	k       []dynamo.State
	scratch dynamo.State
}

func NewExplicit(tab *Tableau) *Explicit {
	return &Explicit{tab: tab}
}

func NewEuler() *Explicit { return NewExplicit(eulerTableau) }
func NewHeun() *Explicit  { return NewExplicit(heunTableau) }
func NewRK4() *Explicit   { return NewExplicit(rk4Tableau) }

func (e *Explicit) ensureScratch(n int) {
	if len(e.scratch) == n && len(e.k) == e.tab.Stages() {
		return
	}
	e.k = make([]dynamo.State, e.tab.Stages())
	for s := range e.k {
		e.k[s] = make(dynamo.State, n)
	}
	e.scratch = make(dynamo.State, n)
}

// stages fills e.k with the stage derivatives for a step of size dt.
func (e *Explicit) stages(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) {
	n := len(x)
	e.ensureScratch(n)

	for s := 0; s < e.tab.Stages(); s++ {
		copy(e.scratch, x)
		for j, a := range e.tab.A[s] {
			if a == 0 {
				continue
			}
			for i := 0; i < n; i++ {
				e.scratch[i] += dt * a * e.k[j][i]
			}
		}
		copy(e.k[s], dyn.Derive(e.scratch, u, t+e.tab.C[s]*dt))
	}
}

// combine returns x + dt·Σ w[s]·k[s].
func (e *Explicit) combine(x dynamo.State, dt float64, w []float64) dynamo.State {
	out := x.Clone()
	for s, ws := range w {
		if ws == 0 {
			continue
		}
		for i := range out {
			out[i] += dt * ws * e.k[s][i]
		}
	}
	return out
}

func (e *Explicit) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	e.stages(dyn, x, u, t, dt)
	return e.combine(x, dt, e.tab.B)
}
