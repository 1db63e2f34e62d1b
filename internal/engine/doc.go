// Package engine turns a simulation [Definition] into runnable numerical
// engines.
//
// An [Exporter] serializes a Definition once into an immutable
// [Description]. A [Factory] creates any number of independent [Handle]
// instances from that Description; each Handle owns its model, integrator
// and buffers and must only be used from one goroutine.
//
// A Handle follows a fixed lifecycle: mark the variable parameters and
// species, Finalize, then any number of set-values/Run cycles.
package engine
