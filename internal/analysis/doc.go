// Package analysis summarizes population results.
//
//   - [PercentileBands]: per-time percentiles of one quantity across individuals
//   - [Summarize]: mean, spread and range of a sample set
//   - [PowerSpectrum], [DominantFrequency]: spectral content of a trajectory
//   - [DominantFrequencies]: dominant frequency per individual
//
// NaN samples are skipped everywhere. An individual whose quantity is NaN at
// one time still contributes at the others.
package analysis
