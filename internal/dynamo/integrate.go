package dynamo

import (
	"context"
	"math"
)

// Observer sees each state as it is produced.
type Observer func(step int, t float64, x State)

// Integrate advances x0 with a fixed step from t=0 to horizon, sampling
// every step including both endpoints. It stops early on context
// cancellation or on a NaN/Inf state.
func Integrate(ctx context.Context, sys System, integ Integrator, x0 State, dt, horizon float64, observers ...Observer) (*Trajectory, error) {
	if dt <= 0 || horizon <= 0 {
		return nil, ErrBadStep
	}
	if len(x0) != sys.StateDim() {
		return nil, ErrDimensionMismatch
	}

	steps := int(math.Round(horizon / dt))
	tr := &Trajectory{
		Times:  make([]float64, 0, steps+1),
		States: make([]State, 0, steps+1),
	}
	u := make(Control, sys.ControlDim())

	x := x0.Clone()
	tr.Times = append(tr.Times, 0)
	tr.States = append(tr.States, x.Clone())
	for _, obs := range observers {
		obs(0, 0, x)
	}

	for i := 1; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return tr, ctx.Err()
		default:
		}

		t := float64(i-1) * dt
		x = integ.Step(sys, x, u, t, dt)
		if !x.IsValid() {
			return tr, &SimulationError{Step: i, Time: t + dt, Wrapped: ErrInvalidState}
		}

		tNext := float64(i) * dt
		tr.Times = append(tr.Times, tNext)
		tr.States = append(tr.States, x.Clone())
		for _, obs := range observers {
			obs(i, tNext, x)
		}
	}
	return tr, nil
}
