// ABOUTME: Interactive strategy browser built on bubbletea and bubbles/table
// ABOUTME: Lists strategy summaries; Enter drills into one strategy's allocation

package browser

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hawson/pve-balance/internal/packing"
	"github.com/hawson/pve-balance/internal/report"
	"github.com/hawson/pve-balance/internal/tui/styles"
)

type screen int

const (
	screenList screen = iota
	screenDetail
)

// Browser is a tea.Model over the results of a strategy comparison.
type Browser struct {
	results   []*packing.Result
	summaries []packing.Summary
	table     table.Model
	screen    screen
	selected  int
	width     int
	height    int
}

// New builds a browser over results in the order given.
func New(results []*packing.Result) *Browser {
	summaries := make([]packing.Summary, len(results))
	rows := make([]table.Row, len(results))
	for i, r := range results {
		summaries[i] = packing.Summarize(r)
		rows[i] = table.Row(report.ComparisonRow(summaries[i]))
	}

	headers := report.ComparisonHeaders()
	columns := make([]table.Column, len(headers))
	for i, h := range headers {
		width := len(h) + 2
		if i == 0 && width < 14 {
			width = 14
		}
		columns[i] = table.Column{Title: h, Width: width}
	}

	height := len(rows) + 1
	if height > 12 {
		height = 12
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Accent)
	s.Selected = s.Selected.
		Foreground(styles.Text).
		Background(styles.Primary).
		Bold(false)
	t.SetStyles(s)

	return &Browser{
		results:   results,
		summaries: summaries,
		table:     t,
	}
}

// Init implements tea.Model
func (b *Browser) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (b *Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		return b, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return b, tea.Quit
		}

		if b.screen == screenDetail {
			switch msg.String() {
			case "esc", "backspace", "b":
				b.screen = screenList
			}
			return b, nil
		}

		if msg.String() == "enter" && len(b.results) > 0 {
			b.selected = b.table.Cursor()
			b.screen = screenDetail
			return b, nil
		}
	}

	var cmd tea.Cmd
	b.table, cmd = b.table.Update(msg)
	return b, cmd
}

// Selected returns the strategy under the cursor.
func (b *Browser) Selected() packing.Strategy {
	if len(b.results) == 0 {
		return ""
	}
	return b.results[b.table.Cursor()].Strategy
}

// View implements tea.Model
func (b *Browser) View() string {
	var sb strings.Builder

	if b.screen == screenDetail {
		r := b.results[b.selected]
		report.Allocation(&sb, r)
		sb.WriteString("\n")
		report.Efficiency(&sb, b.summaries[b.selected])
		sb.WriteString(helpLine("esc", "back", "q", "quit"))
		return sb.String()
	}

	sb.WriteString(styles.Title.Render("Packing strategies"))
	sb.WriteString("\n")
	sb.WriteString(styles.Subtitle.Render(b.subtitle()))
	sb.WriteString("\n\n")
	sb.WriteString(styles.Panel.Render(b.table.View()))
	sb.WriteString("\n")
	sb.WriteString(helpLine("↑/↓", "select", "enter", "details", "q", "quit"))
	return sb.String()
}

func (b *Browser) subtitle() string {
	if len(b.results) == 0 {
		return "no results"
	}
	return fmt.Sprintf("%d strategies over %d workloads", len(b.results), b.results[0].Total())
}

// helpLine renders alternating key/description pairs.
func helpLine(pairs ...string) string {
	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, styles.KeyStyle.Render(pairs[i])+" "+pairs[i+1])
	}
	return styles.Help.Render(strings.Join(parts, " • "))
}

// Run starts the browser on the alternate screen and returns the strategy
// under the cursor when the user quit.
func Run(results []*packing.Result) (packing.Strategy, error) {
	p := tea.NewProgram(New(results), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return "", err
	}
	if b, ok := final.(*Browser); ok {
		return b.Selected(), nil
	}
	return "", nil
}
