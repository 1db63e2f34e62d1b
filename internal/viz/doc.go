// Package viz renders population runs in the terminal.
//
//   - [ProgressModel]: Bubble Tea view of a running population, fed by a
//     [ProgressObserver]
//   - [PlotTrajectories], [PlotBands]: asciigraph charts of results
//   - [RenderSummary]: lipgloss panel describing a finished run
//
// # Key Bindings
//
//	q, Ctrl+C - Stop the run (press again to quit once stopped)
package viz
