// Package dynamo provides the numerical primitives the bundled simulations
// are built on:
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical stepper interface
//   - [Integrate]: fixed-step driver producing a [Trajectory]
//
// # Example
//
//	sys := &models.FHNSystem{A: 0.7, B: 0.8, Tau: 12.5, I: 0.5}
//	tr, err := dynamo.Integrate(ctx, sys, integrators.NewRK4(), x0, 0.01, 100)
//
// # Thread Safety
//
// Integrators keep scratch buffers and are NOT thread-safe.
package dynamo
