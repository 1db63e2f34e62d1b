package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/popsim/internal/analysis"
	"github.com/san-kum/popsim/internal/population"
)

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Blue, asciigraph.Green, asciigraph.Red, asciigraph.Yellow,
	asciigraph.Magenta, asciigraph.Cyan,
}

// PlotTrajectories charts path for the given individuals on one graph.
func PlotTrajectories(results *population.RunResults, path string, ids []int, width, height int) (string, error) {
	var data [][]float64
	for _, id := range ids {
		ind, ok := results.Individual(id)
		if !ok {
			return "", fmt.Errorf("no results for individual %d", id)
		}
		q, ok := ind.Quantity(path)
		if !ok {
			return "", fmt.Errorf("individual %d has no quantity %s", id, path)
		}
		data = append(data, widen(q.Values))
	}
	if len(data) == 0 {
		return "", fmt.Errorf("nothing to plot")
	}

	return asciigraph.PlotMany(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(colorsFor(len(data))...),
		asciigraph.Caption(fmt.Sprintf("%s, individuals %v", path, ids)),
	), nil
}

// PlotBands charts every percentile band of b.
func PlotBands(b *analysis.Bands, width, height int) string {
	return asciigraph.PlotMany(b.Values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(colorsFor(len(b.Values))...),
		asciigraph.Caption(fmt.Sprintf("%s, percentiles %v", b.Path, b.Percentiles)),
	)
}

// PlotSeries charts one series, as used for spectra and histograms.
func PlotSeries(data []float64, caption string, width, height int) string {
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

func colorsFor(n int) []asciigraph.AnsiColor {
	out := make([]asciigraph.AnsiColor, n)
	for i := range out {
		out[i] = seriesColors[i%len(seriesColors)]
	}
	return out
}

func widen(values []float32) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}
