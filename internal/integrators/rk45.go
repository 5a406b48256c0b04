package integrators

import (
	"math"

	"github.com/san-kum/simrun/internal/dynamo"
)

const maxSubsteps = 1000

// RK45 is the Dormand-Prince pair. Step always advances exactly dt, taking
// as many internal substeps as Tol requires; the last accepted substep size
// seeds the next call.
type RK45 struct {
	Tol float64

	stepper  *Explicit
	safety   float64
	minScale float64
	maxScale float64
	hint     float64
}

func NewRK45() *RK45 {
	return &RK45{
		Tol:      1e-6,
		stepper:  NewExplicit(dopriTableau),
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (r *RK45) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	h := dt
	if r.hint > 0 && r.hint < dt {
		h = r.hint
	}

	cur := x
	done := 0.0
	for i := 0; i < maxSubsteps; i++ {
		remaining := dt - done
		if remaining <= 1e-12*dt {
			break
		}
		step := math.Min(h, remaining)

		next, ratio := r.attempt(dyn, cur, u, t+done, step, r.Tol)
		if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
			return next
		}
		if ratio <= 1 || i == maxSubsteps-1 {
			cur = next
			done += step
		}

		grown := step * r.scale(ratio)
		if step < h && ratio <= 1 {
			// a step clipped to the interval end says nothing about the
			// natural step size
			grown = math.Max(grown, h)
		}
		h = grown
	}

	r.hint = h
	return cur
}

// StepAdaptive makes a single attempt of size dt and proposes the size of
// the next one. The returned state is the fifth-order solution whether or
// not the error estimate is within tol.
func (r *RK45) StepAdaptive(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt, tol float64) (dynamo.State, float64, error) {
	next, ratio := r.attempt(dyn, x, u, t, dt, tol)
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return next, 0, dynamo.ErrInvalidState
	}
	return next, dt * r.scale(ratio), nil
}

// attempt returns the fifth-order solution and the error estimate relative
// to tol; a ratio at or below 1 means the step is acceptable.
func (r *RK45) attempt(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt, tol float64) (dynamo.State, float64) {
	s := r.stepper
	s.stages(dyn, x, u, t, dt)
	next := s.combine(x, dt, s.tab.B)

	errMax := 0.0
	for i := range x {
		errEst := 0.0
		for j := range s.tab.B {
			errEst += (s.tab.B[j] - s.tab.BHat[j]) * s.k[j][i]
		}
		errEst *= dt
		scale := math.Abs(x[i]) + math.Abs(dt*s.k[0][i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(errEst)/scale)
	}
	return next, errMax / tol
}

func (r *RK45) scale(ratio float64) float64 {
	switch {
	case ratio > 1:
		return math.Max(r.minScale, r.safety*math.Pow(ratio, -0.25))
	case ratio > 0:
		return math.Min(r.maxScale, r.safety*math.Pow(ratio, -0.2))
	default:
		return r.maxScale
	}
}
