// ABOUTME: Entry point for the pve-balance CLI
// ABOUTME: Simulates VM packing strategies against Proxmox or vSphere inventory

package main

import (
	"fmt"
	"os"

	"github.com/hawson/pve-balance/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
