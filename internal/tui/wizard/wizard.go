// ABOUTME: Interactive form for choosing packing options before a run
// ABOUTME: Uses huh selects and confirms themed to match the report styles

package wizard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/hawson/pve-balance/internal/packing"
	"github.com/hawson/pve-balance/internal/tui/styles"
)

// ErrCancelled is returned when the user aborts the form.
var ErrCancelled = errors.New("wizard cancelled")

// Choices is what the wizard collects.
type Choices struct {
	Strategy     packing.Strategy
	Setup        packing.SetupOptions
	Seed         uint64
	Images       bool
	UsageOverlay bool
}

// Wizard holds the string-typed values huh binds to.
type Wizard struct {
	strategy  string
	sortKey   string
	ascending bool
	seed      string
	images    bool
	overlay   bool
}

// New seeds the form fields from defaults.
func New(defaults Choices) *Wizard {
	w := &Wizard{
		strategy:  string(defaults.Strategy),
		sortKey:   string(defaults.Setup.Key),
		ascending: !defaults.Setup.Descending,
		images:    defaults.Images,
		overlay:   defaults.UsageOverlay,
	}
	if w.strategy == "" {
		w.strategy = string(packing.StrategySize)
	}
	if w.sortKey == "" {
		w.sortKey = string(packing.SortByArea)
	}
	if defaults.Seed != 0 {
		w.seed = strconv.FormatUint(defaults.Seed, 10)
	}
	return w
}

func createTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Group.Title = lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		MarginBottom(1)
	t.Group.Description = lipgloss.NewStyle().
		Foreground(styles.Muted).
		MarginBottom(1)

	t.Focused.Base = lipgloss.NewStyle().
		PaddingLeft(1).
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(styles.Primary)
	t.Focused.Title = lipgloss.NewStyle().
		Foreground(styles.Accent).
		Bold(true)
	t.Focused.Description = lipgloss.NewStyle().
		Foreground(styles.Muted)
	t.Focused.ErrorMessage = lipgloss.NewStyle().
		Foreground(styles.Danger)
	t.Focused.SelectSelector = lipgloss.NewStyle().
		Foreground(styles.Primary).
		SetString("> ")
	t.Focused.SelectedOption = lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true)
	t.Focused.FocusedButton = lipgloss.NewStyle().
		Foreground(styles.Text).
		Background(styles.Primary).
		Padding(0, 2).
		MarginRight(1)
	t.Focused.BlurredButton = lipgloss.NewStyle().
		Foreground(styles.Muted).
		Background(styles.Surface).
		Padding(0, 2).
		MarginRight(1)

	t.Blurred = t.Focused
	t.Blurred.Base = lipgloss.NewStyle().
		PaddingLeft(1).
		BorderStyle(lipgloss.HiddenBorder()).
		BorderLeft(true)
	t.Blurred.Title = lipgloss.NewStyle().
		Foreground(styles.Muted)

	return t
}

func strategyOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(packing.Strategies()))
	for _, s := range packing.Strategies() {
		opts = append(opts, huh.NewOption(string(s), string(s)))
	}
	return opts
}

func sortKeyOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(packing.SortKeys()))
	for _, k := range packing.SortKeys() {
		opts = append(opts, huh.NewOption(string(k), string(k)))
	}
	return opts
}

// Form builds the huh form bound to the wizard's fields.
func (w *Wizard) Form() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Strategy").
				Description("Placement algorithm").
				Options(strategyOptions()...).
				Value(&w.strategy),
			huh.NewSelect[string]().
				Title("Sort key").
				Description("Order workloads are offered to hosts").
				Options(sortKeyOptions()...).
				Value(&w.sortKey),
			huh.NewConfirm().
				Title("Ascending order?").
				Value(&w.ascending),
		).Title("Packing"),
		huh.NewGroup(
			huh.NewInput().
				Title("Random seed").
				Description("Leave empty for a time-based seed").
				Placeholder("e.g., 42").
				Value(&w.seed).
				Validate(validateSeed),
			huh.NewConfirm().
				Title("Render host images?").
				Value(&w.images),
			huh.NewConfirm().
				Title("Overlay live usage on images?").
				Value(&w.overlay),
		).Title("Output"),
	).WithTheme(createTheme())
}

func validateSeed(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := strconv.ParseUint(s, 10, 64); err != nil {
		return fmt.Errorf("seed must be a non-negative integer")
	}
	return nil
}

// Choices converts the bound field values.
func (w *Wizard) Choices() (Choices, error) {
	strategy, err := packing.ParseStrategy(w.strategy)
	if err != nil {
		return Choices{}, err
	}
	key, err := packing.ParseSortKey(w.sortKey)
	if err != nil {
		return Choices{}, err
	}
	if err := validateSeed(w.seed); err != nil {
		return Choices{}, err
	}

	var seed uint64
	if s := strings.TrimSpace(w.seed); s != "" {
		seed, _ = strconv.ParseUint(s, 10, 64)
	}

	return Choices{
		Strategy: strategy,
		Setup: packing.SetupOptions{
			Key:        key,
			Descending: !w.ascending,
		},
		Seed:         seed,
		Images:       w.images,
		UsageOverlay: w.overlay,
	}, nil
}

// Run shows the form and returns the user's choices.
func Run(defaults Choices) (Choices, error) {
	w := New(defaults)
	if err := w.Form().Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return Choices{}, ErrCancelled
		}
		return Choices{}, err
	}
	return w.Choices()
}
