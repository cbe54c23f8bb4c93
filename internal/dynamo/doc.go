// Package dynamo provides core simulation primitives shared by the trebuchet
// engine.
//
// The package defines the flat numeric representation the integrators work on
// and the small set of interfaces that tie the pieces together:
//
//   - [State]: flat vector holding every integrated quantity
//   - [System]: right-hand side of dX/dt = f(X, t)
//   - [Hamiltonian]: systems that can report their mechanical energy
//   - [Observer]: hook notified after every accepted integration step
//   - [Metric]: observer that folds steps into a single scalar
//
// # Example
//
//	dyn := physics.NewDynamics(cfg)
//	x := physics.NewInitialState(cfg).Vector()
//	next := integrators.NewRK4().Step(dyn, x, 0, 1e-3)
//
// # Thread Safety
//
// None of the types here are safe for concurrent mutation. A [State] handed to
// a [System] must not be modified while the call is in progress.
package dynamo
