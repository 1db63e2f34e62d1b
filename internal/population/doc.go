// Package population runs one deterministic simulation per individual of a
// population, spread over a fixed number of cores.
//
// A [Runner] exports the simulation once, partitions the individuals with a
// [Splitter] into one contiguous range per core and starts one worker per
// range. Every worker owns a private [engine.Handle]; workers share only the
// [Results] aggregator and the processed counter. A solver failure is
// recorded against its individual and the run continues; configuration
// errors, cancellation and worker panics end the run.
//
// Progress and termination are reported through an [Observer]. Progress
// calls come from worker goroutines and are not serialized across cores:
// the processed count a consumer sees is non-decreasing in practice but two
// cores may deliver their notifications out of order.
package population
