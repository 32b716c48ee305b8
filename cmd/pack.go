// ABOUTME: Pack command: simulates one placement strategy over the inventory
// ABOUTME: Prints the allocation and efficiency report and optionally renders host images

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hawson/pve-balance/internal/config"
	"github.com/hawson/pve-balance/internal/models"
	"github.com/hawson/pve-balance/internal/packing"
	"github.com/hawson/pve-balance/internal/render"
	"github.com/hawson/pve-balance/internal/report"
	"github.com/hawson/pve-balance/internal/services"
	"github.com/hawson/pve-balance/internal/tui/wizard"
)

// packOptions collects the pack command's flags.
type packOptions struct {
	Strategy     string
	Sort         string
	Ascending    bool
	Seed         uint64
	Images       bool
	OutDir       string
	UsageOverlay bool
}

var (
	packFlags  packOptions
	packWizard bool
)

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Simulate packing VMs onto hosts with one strategy",
	Long: `Run one placement strategy over the current hosts and VMs and report where
every VM would land, which VMs could not be placed, and how efficiently each
host would be filled.

Strategies: size (first-fit decreasing), round-robin, similarity, random, null
(keep every VM where it is).

Example:
  pve-balance pack --strategy similarity --sort score --images --out ./png`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		opts := packFlags
		if packWizard {
			var err error
			if opts, err = runPackWizard(opts); err != nil {
				if errors.Is(err, wizard.ErrCancelled) {
					return
				}
				os.Exit(reportError(os.Stderr, err))
			}
		}

		exitCode := runPack(ctx, os.Stdout, os.Stderr, opts)
		if exitCode != exitOK {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(packCmd)
	packCmd.Flags().StringVar(&packFlags.Strategy, "strategy", string(packing.StrategySize), "Strategy: size, round-robin, similarity, random, null")
	packCmd.Flags().StringVar(&packFlags.Sort, "sort", string(packing.SortByArea), "Workload sort key: score, area, area_perc")
	packCmd.Flags().BoolVar(&packFlags.Ascending, "ascending", false, "Offer the smallest workloads first")
	packCmd.Flags().Uint64Var(&packFlags.Seed, "seed", 0, "Random seed (0 picks one from the clock)")
	packCmd.Flags().BoolVar(&packFlags.Images, "images", false, "Render one PNG per host")
	packCmd.Flags().StringVar(&packFlags.OutDir, "out", ".", "Directory for rendered images")
	packCmd.Flags().BoolVar(&packFlags.UsageOverlay, "usage-overlay", false, "Shade current VM usage inside each box")
	packCmd.Flags().BoolVar(&packWizard, "wizard", false, "Choose options interactively")
}

// runPackWizard lets the user adjust opts in a form.
func runPackWizard(opts packOptions) (packOptions, error) {
	strategy, err := packing.ParseStrategy(opts.Strategy)
	if err != nil {
		return opts, err
	}
	setup, err := buildSetup(opts.Sort, opts.Ascending)
	if err != nil {
		return opts, err
	}

	choices, err := wizard.Run(wizard.Choices{
		Strategy:     strategy,
		Setup:        setup,
		Seed:         opts.Seed,
		Images:       opts.Images,
		UsageOverlay: opts.UsageOverlay,
	})
	if err != nil {
		return opts, err
	}

	opts.Strategy = string(choices.Strategy)
	opts.Sort = string(choices.Setup.Key)
	opts.Ascending = !choices.Setup.Descending
	opts.Seed = choices.Seed
	opts.Images = choices.Images
	opts.UsageOverlay = choices.UsageOverlay
	return opts, nil
}

// packJSON is the machine-readable pack result.
type packJSON struct {
	Seed       uint64               `json:"seed"`
	Setup      packing.SetupOptions `json:"setup"`
	Summary    packing.Summary      `json:"summary"`
	Placements map[string][]string  `json:"placements"`
	Unplaced   []string             `json:"unplaced"`
	Images     []string             `json:"images,omitempty"`
}

// runPack executes one strategy and returns the exit code
func runPack(ctx context.Context, w, errW io.Writer, opts packOptions) int {
	strategy, err := packing.ParseStrategy(opts.Strategy)
	if err != nil {
		return reportError(errW, err)
	}
	setup, err := buildSetup(opts.Sort, opts.Ascending)
	if err != nil {
		return reportError(errW, err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return reportError(errW, err)
	}

	inv, closeInv, err := openInventory(ctx, cfg)
	if err != nil {
		return reportError(errW, err)
	}
	defer closeInv()

	hosts, workloads, err := services.LoadModels(ctx, inv, cfg)
	if err != nil {
		return reportError(errW, err)
	}

	seed := resolveSeed(opts.Seed)
	result, err := newEngine(cfg, seed).Pack(strategy, hosts, workloads, setup)
	if err != nil {
		return reportError(errW, err)
	}

	var images []string
	if opts.Images {
		r := render.New(result.Hosts, renderOptions(cfg, opts.UsageOverlay))
		if images, err = r.Save(opts.OutDir, string(strategy)); err != nil {
			return reportError(errW, err)
		}
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatPackJSON(result, seed, setup, images))
		return exitOK
	}

	report.Allocation(w, result)
	fmt.Fprintln(w)
	report.Efficiency(w, packing.Summarize(result))
	for _, path := range images {
		fmt.Fprintf(w, "Wrote %s\n", path)
	}
	return exitOK
}

func formatPackJSON(r *packing.Result, seed uint64, setup packing.SetupOptions, images []string) string {
	out := packJSON{
		Seed:       seed,
		Setup:      setup,
		Summary:    packing.Summarize(r),
		Placements: make(map[string][]string, len(r.Hosts)),
		Unplaced:   make([]string, 0, len(r.UnplacedWorkloads)),
		Images:     images,
	}
	for _, h := range r.Hosts {
		names := make([]string, 0, len(h.Allocated))
		for _, wl := range h.Allocated {
			names = append(names, wl.String())
		}
		out.Placements[h.Name] = names
	}
	for _, wl := range r.UnplacedWorkloads {
		out.Unplaced = append(out.Unplaced, wl.String())
	}

	data, _ := json.MarshalIndent(out, "", "  ")
	return string(data)
}

// buildSetup parses the sort flags.
func buildSetup(sort string, ascending bool) (packing.SetupOptions, error) {
	key, err := packing.ParseSortKey(sort)
	if err != nil {
		return packing.SetupOptions{}, err
	}
	return packing.SetupOptions{Key: key, Descending: !ascending}, nil
}

// resolveSeed picks a clock seed for 0 and logs it so a run can be repeated.
func resolveSeed(seed uint64) uint64 {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	slog.Debug("Packing seed", "seed", seed)
	return seed
}

func newEngine(cfg *config.Config, seed uint64) *packing.Engine {
	return packing.New(
		packing.WithScorer(models.NewScorer(cfg.Weights())),
		packing.WithSeed(seed),
		packing.WithLogger(slog.Default()),
	)
}

func renderOptions(cfg *config.Config, overlay bool) render.Options {
	opts := render.DefaultOptions()
	opts.Width = cfg.ImageWidth
	opts.Height = cfg.ImageHeight
	opts.UsageOverlay = overlay
	return opts
}
