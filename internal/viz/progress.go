package viz

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/popsim/internal/population"
)

// ProgressMsg reports that processed of total individuals are done.
type ProgressMsg struct {
	Processed, Total int
}

// DoneMsg carries the outcome of the run.
type DoneMsg struct {
	Results *population.RunResults
	Err     error
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// ProgressModel shows a running population: a bar, throughput history and
// the final outcome. Quitting before the run ends calls stop and waits for
// the DoneMsg.
type ProgressModel struct {
	title    string
	stop     func()
	now      func() time.Time
	started  time.Time
	stopping bool

	processed int
	total     int
	lastCount int
	rates     []float64
	frame     int

	done    bool
	results *population.RunResults
	err     error
}

func NewProgressModel(title string, total int, stop func()) ProgressModel {
	return ProgressModel{
		title: title,
		total: total,
		stop:  stop,
		now:   time.Now,
	}
}

func (m ProgressModel) Init() tea.Cmd { return tick() }

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.done || m.stopping {
				return m, tea.Quit
			}
			m.stopping = true
			if m.stop != nil {
				m.stop()
			}
		}
		return m, nil

	case ProgressMsg:
		// Cores report independently; keep the highest count seen.
		if msg.Processed > m.processed {
			m.processed = msg.Processed
		}
		m.total = msg.Total
		return m, nil

	case DoneMsg:
		m.done = true
		m.results = msg.Results
		m.err = msg.Err
		return m, tea.Quit

	case tickMsg:
		if m.started.IsZero() {
			m.started = m.now()
		}
		m.frame++
		m.rates = append(m.rates, float64(m.processed-m.lastCount))
		if len(m.rates) > 200 {
			m.rates = m.rates[1:]
		}
		m.lastCount = m.processed
		if m.done {
			return m, nil
		}
		return m, tick()
	}
	return m, nil
}

// Outcome returns what the DoneMsg carried.
func (m ProgressModel) Outcome() (*population.RunResults, error) {
	if !m.done {
		return nil, errors.New("run did not finish")
	}
	return m.results, m.err
}

func (m ProgressModel) Processed() int { return m.processed }

func (m ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(Title.Render(m.title))
	b.WriteString("\n\n")

	fraction := 0.0
	if m.total > 0 {
		fraction = float64(m.processed) / float64(m.total)
	}
	fmt.Fprintf(&b, "%s %s\n\n", ProgressBar(fraction, 40),
		MetricValue.Render(fmt.Sprintf("%d/%d", m.processed, m.total)))

	b.WriteString(MetricLabel.Render("throughput "))
	b.WriteString(Sparkline(m.rates, 40))
	b.WriteString("\n")
	if !m.started.IsZero() {
		elapsed := m.now().Sub(m.started).Round(100 * time.Millisecond)
		b.WriteString(MetricLabel.Render("elapsed    "))
		b.WriteString(MetricValue.Render(elapsed.String()))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case m.done && m.err != nil:
		b.WriteString(StatusFailed.Render("✗ " + m.err.Error()))
	case m.done:
		failures := 0
		if m.results != nil {
			failures = len(m.results.Failures)
		}
		b.WriteString(StatusRunning.Render(fmt.Sprintf("✓ done, %d failed", failures)))
	case m.stopping:
		b.WriteString(StatusStopping.Render(AnimatedSpinner(m.frame) + " stopping"))
	default:
		b.WriteString(StatusRunning.Render(AnimatedSpinner(m.frame) + " running"))
	}
	b.WriteString("\n\n")
	b.WriteString(KeyHint.Render("q: stop"))

	return Panel.Render(b.String())
}

// Sender delivers messages to a running program; *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgressObserver forwards runner notifications to a Bubble Tea program.
type ProgressObserver struct {
	Program Sender
}

func (o ProgressObserver) Progress(processed, total int) {
	o.Program.Send(ProgressMsg{Processed: processed, Total: total})
}

// Terminated is a no-op: the caller sends DoneMsg with the run outcome.
func (o ProgressObserver) Terminated() {}
