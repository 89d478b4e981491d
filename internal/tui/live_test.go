package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"lvbench/internal/backends"
)

func feed(draws ...[]float64) <-chan []float64 {
	ch := make(chan []float64, len(draws))
	for _, d := range draws {
		ch <- d
	}
	close(ch)
	return ch
}

func keyMsg(s string) tea.KeyMsg {
	if s == "tab" {
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelDrainsStream(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewModel("gonum-mh", feed(
		[]float64{1.0, 1.0, 3.0, 1.0, 0.5},
		[]float64{1.1, 1.0, 3.0, 1.0, 0.5},
		[]float64{1.1, 1.0, 3.0, 1.0, 0.5},
	), cancel, backends.ParamNames(), 3)

	next, _ := m.Update(TickMsg(time.Now()))
	m = next.(Model)

	if got := m.Chain().Len(); got != 3 {
		t.Fatalf("expected 3 draws after drain, got %d", got)
	}
	if !m.Done() {
		t.Error("expected done after the stream closed")
	}
	if m.moves != 1 {
		t.Errorf("expected 1 move among 3 draws, got %d", m.moves)
	}

	view := m.View()
	for _, want := range []string{"GONUM-MH", "DONE", "100%", "sigma"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModelPause(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewModel("gonum-mh", feed([]float64{1, 1, 3, 1, 0.5}), cancel, backends.ParamNames(), 1)

	next, _ := m.Update(keyMsg(" "))
	m = next.(Model)
	next, _ = m.Update(TickMsg(time.Now()))
	m = next.(Model)
	if m.Chain().Len() != 0 {
		t.Error("paused view should not drain")
	}

	next, _ = m.Update(keyMsg(" "))
	m = next.(Model)
	next, _ = m.Update(TickMsg(time.Now()))
	m = next.(Model)
	if m.Chain().Len() != 1 {
		t.Errorf("expected 1 draw after resume, got %d", m.Chain().Len())
	}
}

func TestModelCycleParam(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewModel("gonum-mh", feed(), cancel, backends.ParamNames(), 0)

	for i := 0; i < len(backends.ParamNames()); i++ {
		next, _ := m.Update(keyMsg("tab"))
		m = next.(Model)
	}
	if m.selected != 0 {
		t.Errorf("tab should wrap back to the first parameter, got %d", m.selected)
	}
}

func TestModelQuitCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewModel("gonum-mh", feed(), cancel, backends.ParamNames(), 0)

	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if ctx.Err() == nil {
		t.Error("quit should cancel the sampler context")
	}
}
