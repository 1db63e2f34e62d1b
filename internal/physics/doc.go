// Package physics provides the dynamical system models a population can be
// simulated against.
//
// Each model implements [Model]: the [dynamo.System] equations plus named
// state components and named, settable parameters:
//
//   - [Pendulum]: damped simple pendulum
//   - [SpringMass]: damped harmonic oscillator
//   - [VanDerPol]: limit cycle oscillator
//   - [Lorenz]: butterfly attractor
//   - [OneCompartmentPK]: oral dose, one plasma compartment
//
// Parameter and state names are combined with [Model.Container] into
// catalogue paths such as "Organism|Clearance" or "Pendulum|Theta".
package physics
