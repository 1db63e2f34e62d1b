package viz

import (
	"fmt"
	"strings"
	"time"

	"github.com/san-kum/popsim/internal/population"
	"github.com/san-kum/popsim/internal/storage"
)

// RenderSummary draws a panel describing a saved run. results may be nil.
func RenderSummary(meta storage.RunMetadata, results *population.RunResults) string {
	var b strings.Builder

	b.WriteString(Title.Render(meta.Simulation))
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(MetricLabel.Render(fmt.Sprintf("%-12s", label)))
		b.WriteString(MetricValue.Render(value))
		b.WriteString("\n")
	}
	row("run", meta.ID)
	row("model", fmt.Sprintf("%s (%s)", meta.Model, meta.Integrator))
	row("individuals", fmt.Sprintf("%d", meta.Individuals))
	row("cores", fmt.Sprintf("%d", meta.Cores))
	if meta.ElapsedSeconds > 0 {
		row("elapsed", time.Duration(meta.ElapsedSeconds*float64(time.Second)).Round(time.Millisecond).String())
	}
	if len(meta.Quantities) > 0 {
		row("outputs", strings.Join(meta.Quantities, ", "))
	}

	if meta.Failures > 0 {
		b.WriteString(StatusFailed.Render(fmt.Sprintf("\n%d failed", meta.Failures)))
	} else {
		b.WriteString(StatusRunning.Render("\nall succeeded"))
	}

	if results != nil && len(results.Warnings) > 0 {
		b.WriteString(StatusStopping.Render(fmt.Sprintf(", %d with warnings", len(results.Warnings))))
	}

	return Panel.Render(b.String())
}
