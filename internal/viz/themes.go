package viz

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the palette of the progress view and summaries.
type Theme struct {
	Name    string
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Border  lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

var (
	ThemeNeon = Theme{
		Name:    "neon",
		Primary: lipgloss.Color("#00ffff"),
		Accent:  lipgloss.Color("#00ccff"),
		Text:    lipgloss.Color("#888899"),
		Muted:   lipgloss.Color("#666688"),
		Border:  lipgloss.Color("#444466"),
		Success: lipgloss.Color("#00ff88"),
		Warning: lipgloss.Color("#ffaa00"),
		Error:   lipgloss.Color("#ff4444"),
	}

	ThemeMinimal = Theme{
		Name:    "minimal",
		Primary: lipgloss.Color("#ffffff"),
		Accent:  lipgloss.Color("#0088ff"),
		Text:    lipgloss.Color("#cccccc"),
		Muted:   lipgloss.Color("#888888"),
		Border:  lipgloss.Color("#888888"),
		Success: lipgloss.Color("#00ff00"),
		Warning: lipgloss.Color("#ffaa00"),
		Error:   lipgloss.Color("#ff0000"),
	}

	ThemeOcean = Theme{
		Name:    "ocean",
		Primary: lipgloss.Color("#00a8cc"),
		Accent:  lipgloss.Color("#ffd700"),
		Text:    lipgloss.Color("#e0f0ff"),
		Muted:   lipgloss.Color("#4488aa"),
		Border:  lipgloss.Color("#0077be"),
		Success: lipgloss.Color("#00ff88"),
		Warning: lipgloss.Color("#ffcc00"),
		Error:   lipgloss.Color("#ff4444"),
	}

	Themes = []Theme{ThemeNeon, ThemeMinimal, ThemeOcean}
)

func GetTheme(name string) (Theme, error) {
	for _, t := range Themes {
		if t.Name == name {
			return t, nil
		}
	}
	return Theme{}, fmt.Errorf("unknown theme: %s (available: %v)", name, ThemeNames())
}

// SetTheme restyles the package styles with t.
func SetTheme(t Theme) {
	Panel = Panel.BorderForeground(t.Border)
	Title = Title.Foreground(t.Primary)
	Subtle = Subtle.Foreground(t.Muted)
	KeyHint = KeyHint.Foreground(t.Muted)
	MetricLabel = MetricLabel.Foreground(t.Text)
	MetricValue = MetricValue.Foreground(t.Accent)
	StatusRunning = StatusRunning.Foreground(t.Success)
	StatusStopping = StatusStopping.Foreground(t.Warning)
	StatusFailed = StatusFailed.Foreground(t.Error)
	SparkHigh = SparkHigh.Foreground(t.Success)
	SparkMid = SparkMid.Foreground(t.Warning)
	SparkLow = SparkLow.Foreground(t.Error)
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
