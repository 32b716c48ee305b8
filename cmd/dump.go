// ABOUTME: Dump command: saves the live inventory as timestamped snapshot files
// ABOUTME: The files can be replayed later with --nodes and --vms

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hawson/pve-balance/internal/snapshot"
)

var dumpDir string

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Save hosts and VMs to snapshot files",
	Long: `Write the current inventory to nodes-YYYYMMDD-HHMM.json and
vms-YYYYMMDD-HHMM.json so later runs can use --nodes and --vms offline.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runDump(ctx, os.Stdout, os.Stderr, dumpDir, time.Now())
		if exitCode != exitOK {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().StringVar(&dumpDir, "dir", ".", "Directory to write snapshot files into")
}

// runDump writes the snapshot files and returns the exit code
func runDump(ctx context.Context, w, errW io.Writer, dir string, now time.Time) int {
	cfg, err := loadConfig()
	if err != nil {
		return reportError(errW, err)
	}

	inv, closeInv, err := openInventory(ctx, cfg)
	if err != nil {
		return reportError(errW, err)
	}
	defer closeInv()

	nodesPath, vmsPath, err := snapshot.Dump(ctx, dir, inv, now)
	if err != nil {
		return reportError(errW, err)
	}

	if IsJSONOutput() {
		data, _ := json.MarshalIndent(map[string]string{"nodes": nodesPath, "vms": vmsPath}, "", "  ")
		fmt.Fprintln(w, string(data))
		return exitOK
	}

	fmt.Fprintf(w, "Wrote %s\nWrote %s\n", nodesPath, vmsPath)
	return exitOK
}
