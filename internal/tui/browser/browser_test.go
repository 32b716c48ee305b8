package browser

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hawson/pve-balance/internal/models"
	"github.com/hawson/pve-balance/internal/packing"
)

func testResults(t *testing.T) []*packing.Result {
	t.Helper()

	var results []*packing.Result
	for _, s := range []packing.Strategy{packing.StrategySize, packing.StrategyRoundRobin} {
		h, err := models.NewHost(models.MakeHostRecord("pve-"+string(s), "online", 16, 64*models.GiB, 0, 0), models.DefaultReservation(), 0)
		if err != nil {
			t.Fatalf("NewHost failed: %v", err)
		}
		w, err := models.NewWorkload(models.MakeWorkloadRecord(100, "web", "running", h.Name, 2, 4*models.GiB, 0, 0), 0)
		if err != nil {
			t.Fatalf("NewWorkload failed: %v", err)
		}
		h.Allocate(w, false)
		results = append(results, &packing.Result{Strategy: s, Hosts: []*models.Host{h}, Placed: 1})
	}
	return results
}

func TestBrowser_ListView(t *testing.T) {
	b := New(testResults(t))

	view := b.View()
	for _, want := range []string{"Packing strategies", "2 strategies over 1 workloads", "size", "round-robin", "STRATEGY", "enter"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected list view to contain %q", want)
		}
	}
}

func TestBrowser_NavigateAndSelect(t *testing.T) {
	b := New(testResults(t))

	if b.Selected() != packing.StrategySize {
		t.Fatalf("Expected initial selection size, got %s", b.Selected())
	}

	b.Update(tea.KeyMsg{Type: tea.KeyDown})
	if b.Selected() != packing.StrategyRoundRobin {
		t.Fatalf("Expected selection round-robin after down, got %s", b.Selected())
	}

	b.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if b.screen != screenDetail {
		t.Fatal("Expected detail screen after enter")
	}
	view := b.View()
	if !strings.Contains(view, "Strategy: round-robin") {
		t.Errorf("Expected detail for round-robin, got:\n%s", view)
	}
	if !strings.Contains(view, "Packed 1/1 workloads") {
		t.Errorf("Expected packed summary in detail view, got:\n%s", view)
	}

	b.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if b.screen != screenList {
		t.Error("Expected list screen after esc")
	}
}

func TestBrowser_Quit(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
	}{
		{"q", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}},
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(testResults(t))
			_, cmd := b.Update(tt.msg)
			if cmd == nil {
				t.Fatal("Expected quit command, got nil")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Error("Expected tea.QuitMsg")
			}
		})
	}
}

func TestBrowser_EmptyResults(t *testing.T) {
	b := New(nil)

	b.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if b.screen != screenList {
		t.Error("Expected to stay on list screen with no results")
	}
	if b.Selected() != "" {
		t.Errorf("Expected empty selection, got %q", b.Selected())
	}
	if !strings.Contains(b.View(), "no results") {
		t.Errorf("Expected empty subtitle in view, got:\n%s", b.View())
	}
}

func TestHelpLine(t *testing.T) {
	got := helpLine("esc", "back", "q", "quit")
	for _, want := range []string{"esc", "back", "q", "quit", "•"} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected %q in help line, got %q", want, got)
		}
	}
}
