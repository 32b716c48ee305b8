// ABOUTME: Root command for the pve-balance CLI
// ABOUTME: Handles global flags, configuration loading, and inventory selection

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hawson/pve-balance/internal/config"
	"github.com/hawson/pve-balance/internal/logger"
	"github.com/hawson/pve-balance/internal/services"
	"github.com/hawson/pve-balance/internal/snapshot"
)

var (
	envFile    string
	jsonOutput bool
	logLevel   string
	nodesFile  string
	vmsFile    string
)

// Exit codes shared by every command.
const (
	exitOK        = 0
	exitError     = 1
	exitAuthError = 2
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "pve-balance",
	Short: "Simulate VM packing strategies for a Proxmox cluster",
	Long: `pve-balance reads the hosts and VMs of a Proxmox VE (or vSphere) cluster,
or a pair of previously dumped snapshot files, and simulates how different
placement strategies would pack the VMs onto the hosts.

Nothing is ever migrated: every command is read-only.

Environment Variables:
  PVE_HOST, PVE_USER, PVE_PASSWORD   Proxmox API access
  PVE_EXCLUDE                        Comma-separated host/VM names or vmids to ignore
  INVENTORY_SOURCE                   proxmox (default) or vsphere`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment from this file (default .env if present)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&nodesFile, "nodes", "", "Host snapshot file (use with --vms instead of live inventory)")
	rootCmd.PersistentFlags().StringVar(&vmsFile, "vms", "", "VM snapshot file (use with --nodes instead of live inventory)")
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}

// loadConfig reads configuration and initializes logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

// openInventory returns snapshot files when --nodes and --vms are given,
// the configured live cluster otherwise.
func openInventory(ctx context.Context, cfg *config.Config) (services.Inventory, func(), error) {
	if nodesFile != "" || vmsFile != "" {
		if nodesFile == "" || vmsFile == "" {
			return nil, nil, errors.New("--nodes and --vms must be given together")
		}
		inv := snapshot.FileInventory{NodesPath: nodesFile, VMsPath: vmsFile, Exclude: cfg.Exclude}
		return inv, func() {}, nil
	}

	inv, closeFn, err := services.NewInventory(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return inv, closeFn, nil
}

// reportError prints err to errW and maps it to an exit code. Rejected
// credentials get their own code so scripts can tell them apart.
func reportError(w io.Writer, err error) int {
	if errors.Is(err, services.ErrAuthentication) {
		fmt.Fprintf(w, "Error: cluster API rejected credentials: %v\n", err)
		return exitAuthError
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	return exitError
}
