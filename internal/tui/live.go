// Package tui is the live sampling view: a tick-driven terminal UI
// fed by a streaming sampler, plotting the trace of one parameter
// while draws arrive.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"lvbench/internal/chain"
)

const (
	traceWindow = 600
	plotWidth   = 60
	plotHeight  = 8
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

// Model consumes a sampler stream. Pausing stops the drain, which
// blocks the sender and therefore the sampler itself.
type Model struct {
	backend string
	draws   <-chan []float64
	cancel  context.CancelFunc

	names    []string
	target   int // expected total draws, 0 when unknown
	ch       *chain.Chain
	last     []float64
	moves    int
	selected int

	running  bool
	done     bool
	started  time.Time
	finished time.Time
}

// NewModel builds the view for one streaming run. cancel is invoked on
// quit so the sampler does not outlive the UI.
func NewModel(backend string, draws <-chan []float64, cancel context.CancelFunc, names []string, target int) Model {
	return Model{
		backend: backend,
		draws:   draws,
		cancel:  cancel,
		names:   names,
		target:  target,
		ch:      chain.New(names, target),
		running: true,
		started: time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "tab":
			m.selected = (m.selected + 1) % len(m.names)
		}
	case TickMsg:
		if m.running && !m.done {
			m.drain()
		}
		return m, tick()
	}
	return m, nil
}

// drain consumes every draw already buffered without blocking the UI
// between ticks.
func (m *Model) drain() {
	for {
		select {
		case draw, ok := <-m.draws:
			if !ok {
				m.done = true
				m.finished = time.Now()
				return
			}
			if m.last != nil && !sameDraw(m.last, draw) {
				m.moves++
			}
			m.last = draw
			m.ch.Append(draw)
		default:
			return
		}
	}
}

func (m Model) elapsed() time.Duration {
	if m.done {
		return m.finished.Sub(m.started)
	}
	return time.Since(m.started)
}

func (m Model) status() string {
	switch {
	case m.done:
		return "DONE"
	case !m.running:
		return "PAUSED"
	default:
		return "SAMPLING"
	}
}

// trace is the recent draw history of the selected parameter,
// downsampled to the plot width.
func (m Model) trace() []float64 {
	n := m.ch.Len()
	if n == 0 {
		return nil
	}
	start := 0
	if n > traceWindow {
		start = n - traceWindow
	}
	window := n - start
	step := window / plotWidth
	if step < 1 {
		step = 1
	}
	data := make([]float64, 0, plotWidth)
	for i := start; i < n; i += step {
		data = append(data, m.ch.Draws[i][m.selected])
	}
	return data
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("LIVE SAMPLING  "+strings.ToUpper(m.backend)) + "\n")

	status := m.status()
	if m.target > 0 {
		frac := float64(m.ch.Len()) / float64(m.target)
		if frac > 1 {
			frac = 1
		}
		filled := int(frac * 20)
		bar := "[" + strings.Repeat("=", filled) + strings.Repeat("-", 20-filled) + "]"
		status = fmt.Sprintf("%s %s %3.0f%%", status, bar, 100*frac)
	}
	s.WriteString(status + "\n")

	if data := m.trace(); len(data) > 1 {
		chart := asciigraph.Plot(data,
			asciigraph.Height(plotHeight),
			asciigraph.Width(plotWidth),
			asciigraph.Caption(m.names[m.selected]+" trace"),
		)
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	s.WriteString(labelStyle.Render("Draws") + valueStyle.Render(fmt.Sprintf("%d", m.ch.Len())) + "\n")
	s.WriteString(labelStyle.Render("Elapsed") + valueStyle.Render(fmt.Sprintf("%.1fs", m.elapsed().Seconds())) + "\n")
	if secs := m.elapsed().Seconds(); secs > 0 {
		s.WriteString(labelStyle.Render("Rate") + valueStyle.Render(fmt.Sprintf("%.0f draws/s", float64(m.ch.Len())/secs)) + "\n")
	}
	if m.ch.Len() > 1 {
		rate := float64(m.moves) / float64(m.ch.Len()-1)
		s.WriteString(labelStyle.Render("Moves") + valueStyle.Render(fmt.Sprintf("%.2f", rate)) + "\n")
	}

	s.WriteString("\nPARAMETERS\n")
	for i, name := range m.names {
		line := fmt.Sprintf("%-6s", name)
		if m.last != nil {
			line = fmt.Sprintf("%-6s %8.4f", name, m.last[i])
		}
		if i == m.selected {
			s.WriteString(activeStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + labelStyle.Render(line) + "\n")
		}
	}

	s.WriteString(helpStyle.Render("\nSP:Pause TAB:Param Q:Quit"))
	return s.String()
}

// Chain returns the draws collected so far.
func (m Model) Chain() *chain.Chain { return m.ch }

// Done reports whether the stream has closed.
func (m Model) Done() bool { return m.done }

func sameDraw(a, b []float64) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
