// ABOUTME: Compare command: runs every strategy over the same inventory
// ABOUTME: Prints a summary table or opens the interactive strategy browser

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hawson/pve-balance/internal/packing"
	"github.com/hawson/pve-balance/internal/report"
	"github.com/hawson/pve-balance/internal/services"
	"github.com/hawson/pve-balance/internal/tui/browser"
)

// compareOptions collects the compare command's flags.
type compareOptions struct {
	Sort        string
	Ascending   bool
	Seed        uint64
	Interactive bool
}

var compareFlags compareOptions

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare all packing strategies side by side",
	Long: `Run every strategy over the same hosts and VMs and show how many VMs each
placed and how efficiently it filled the hosts it used.

Example:
  pve-balance compare --seed 42 --interactive`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runCompare(ctx, os.Stdout, os.Stderr, compareFlags)
		if exitCode != exitOK {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().StringVar(&compareFlags.Sort, "sort", string(packing.SortByArea), "Workload sort key: score, area, area_perc")
	compareCmd.Flags().BoolVar(&compareFlags.Ascending, "ascending", false, "Offer the smallest workloads first")
	compareCmd.Flags().Uint64Var(&compareFlags.Seed, "seed", 0, "Random seed (0 picks one from the clock)")
	compareCmd.Flags().BoolVarP(&compareFlags.Interactive, "interactive", "i", false, "Browse results in a terminal UI")
}

// runCompare packs with every strategy and returns the exit code
func runCompare(ctx context.Context, w, errW io.Writer, opts compareOptions) int {
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
	results, err := newEngine(cfg, seed).Compare(hosts, workloads, setup)
	if err != nil {
		return reportError(errW, err)
	}

	if opts.Interactive {
		strategy, err := browser.Run(results)
		if err != nil {
			return reportError(errW, err)
		}
		if strategy != "" {
			fmt.Fprintln(w, rerunHint(strategy, opts.Sort, opts.Ascending, seed))
		}
		return exitOK
	}

	summaries := make([]packing.Summary, 0, len(results))
	for _, r := range results {
		summaries = append(summaries, packing.Summarize(r))
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatCompareJSON(summaries))
		return exitOK
	}

	report.Comparison(w, summaries)
	return exitOK
}

// rerunHint is the pack invocation that reproduces one strategy of a comparison.
func rerunHint(strategy packing.Strategy, sortKey string, ascending bool, seed uint64) string {
	hint := fmt.Sprintf("pve-balance pack --strategy %s --sort %s --seed %d", strategy, sortKey, seed)
	if ascending {
		hint += " --ascending"
	}
	return hint
}

func formatCompareJSON(summaries []packing.Summary) string {
	data, _ := json.MarshalIndent(summaries, "", "  ")
	return string(data)
}
