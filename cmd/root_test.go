// ABOUTME: Tests for the root command and shared command plumbing
// ABOUTME: Verifies inventory selection and exit code mapping

package cmd

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hawson/pve-balance/internal/services"
)

func TestJSONOutput(t *testing.T) {
	jsonOutput = true
	defer func() { jsonOutput = false }()

	if !IsJSONOutput() {
		t.Error("expected IsJSONOutput to return true")
	}
}

func TestReportError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"generic", fmt.Errorf("boom"), exitError},
		{"authentication", fmt.Errorf("login: %w", services.ErrAuthentication), exitAuthError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if got := reportError(&buf, tt.err); got != tt.want {
				t.Errorf("Expected exit code %d, got %d", tt.want, got)
			}
			if !strings.HasPrefix(buf.String(), "Error: ") {
				t.Errorf("Expected error prefix, got %q", buf.String())
			}
		})
	}
}

func TestOpenInventory_RequiresBothFiles(t *testing.T) {
	withSnapshot(t)
	vmsFile = ""

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if _, _, err := openInventory(context.Background(), cfg); err == nil {
		t.Error("Expected error when only --nodes is given")
	}
}

func TestOpenInventory_Snapshot(t *testing.T) {
	withSnapshot(t)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	inv, closeInv, err := openInventory(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openInventory failed: %v", err)
	}
	defer closeInv()

	hosts, err := inv.Hosts(context.Background())
	if err != nil {
		t.Fatalf("Hosts failed: %v", err)
	}
	if len(hosts) != 2 {
		t.Errorf("Expected 2 hosts, got %d", len(hosts))
	}
}

func TestLoadConfig_LogLevelFlag(t *testing.T) {
	withSnapshot(t)
	logLevel = "debug"
	defer func() { logLevel = "" }()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.LogLevel)
	}
}
