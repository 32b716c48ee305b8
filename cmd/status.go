// ABOUTME: Status command for the pve-balance CLI
// ABOUTME: Shows every host with its score and the VMs currently running on it

package cmd

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hawson/pve-balance/internal/models"
	"github.com/hawson/pve-balance/internal/report"
	"github.com/hawson/pve-balance/internal/services"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show hosts and VMs as they are placed now",
	Long:  `Display every host with its capacity, usage and score, followed by the VMs on it.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runStatus(ctx, os.Stdout, os.Stderr)
		if exitCode != exitOK {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// hostStatus is the JSON view of one host and its current VMs.
type hostStatus struct {
	Name      string            `json:"name"`
	Status    models.HostStatus `json:"status"`
	MaxCPU    int               `json:"max_cpu"`
	MaxMemGiB float64           `json:"max_memory_gib"`
	Score     float64           `json:"score"`
	Workloads []string          `json:"workloads"`
}

// runStatus loads the inventory and prints it, returning the exit code
func runStatus(ctx context.Context, w, errW io.Writer) int {
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

	scorer := models.NewScorer(cfg.Weights())
	if IsJSONOutput() {
		fmt.Fprintln(w, formatStatusJSON(hosts, workloads, scorer))
	} else {
		formatStatusHuman(w, hosts, workloads, scorer)
	}
	return exitOK
}

// byOrigin groups workloads under their current host name.
func byOrigin(workloads []*models.Workload) map[string][]*models.Workload {
	groups := make(map[string][]*models.Workload)
	for _, wl := range workloads {
		groups[wl.OriginHost] = append(groups[wl.OriginHost], wl)
	}
	for _, g := range groups {
		slices.SortFunc(g, models.CompareWorkloads)
	}
	return groups
}

// formatStatusHuman prints the host table, then one workload table per host.
func formatStatusHuman(w io.Writer, hosts []*models.Host, workloads []*models.Workload, scorer models.Scorer) {
	hosts = slices.Clone(hosts)
	slices.SortFunc(hosts, models.CompareHosts)

	hostTable := report.NewHostTable(w, scorer)
	for _, h := range hosts {
		hostTable.Row(h)
	}

	groups := byOrigin(workloads)
	for _, h := range hosts {
		group := groups[h.Name]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", h.Name)
		table := report.NewWorkloadTable(w, scorer)
		for _, wl := range group {
			table.Row(wl)
		}
	}

	fmt.Fprintf(w, "\n%d hosts, %d VMs\n", len(hosts), len(workloads))
}

// formatStatusJSON formats the current placement as JSON
func formatStatusJSON(hosts []*models.Host, workloads []*models.Workload, scorer models.Scorer) string {
	groups := byOrigin(workloads)

	out := make([]hostStatus, 0, len(hosts))
	for _, h := range hosts {
		names := make([]string, 0, len(groups[h.Name]))
		for _, wl := range groups[h.Name] {
			names = append(names, wl.String())
		}
		out = append(out, hostStatus{
			Name:      h.Name,
			Status:    h.Status,
			MaxCPU:    h.MaxCPU,
			MaxMemGiB: h.MaxMemoryGiB(),
			Score:     scorer.Host(h, true).Total(),
			Workloads: names,
		})
	}
	slices.SortFunc(out, func(a, b hostStatus) int {
		return cmp.Compare(a.Name, b.Name)
	})

	data, _ := json.MarshalIndent(out, "", "  ")
	return string(data)
}
