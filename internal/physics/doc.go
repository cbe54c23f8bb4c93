// Package physics models the trebuchet: state layout, initial conditions
// and the equations of motion.
//
// [PhysicsState] is the structured view of the world; [PhysicsState.Vector]
// and [FromVector] convert it to and from the flat [dynamo.State] the
// integrators advance. [Dynamics] implements [dynamo.System],
// [dynamo.Hamiltonian] and [dynamo.Dissipative]:
//
//	cfg := config.CreateConfig()
//	dyn := physics.NewDynamics(cfg)
//	x := physics.NewInitialState(cfg).Vector()
//	dx := dyn.Derive(x, 0)
//
// # Energy Accounting
//
// Every non-conservative force reports its power through
// [Dynamics.DissipatedPower], and discrete events report through
// [Dynamics.ImpulsiveLoss]. Energy plus the integrated losses is conserved
// up to integration error.
package physics
