// Package dynamo provides core simulation primitives for dynamical systems.
//
// The package defines the fundamental interfaces and types for numerical
// simulation of ordinary differential equations (ODEs):
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Integrator]: numerical integrator interface
//   - [Simulator]: integrates a system and samples it on an output grid
//   - [SplitRange]: contiguous near-equal partitioning of index ranges
//
// # Example
//
//	dyn := physics.NewPendulum()
//	integ := integrators.NewRK4()
//	sim := dynamo.New(dyn, integ)
//	result, _ := sim.Run(ctx, x0, cfg)
//
// # Thread Safety
//
// Simulator instances and the integrators they drive keep scratch buffers
// and are NOT thread-safe. Build one Simulator per goroutine.
package dynamo
