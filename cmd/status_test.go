// ABOUTME: Tests for the status command
// ABOUTME: Verifies host/VM listing in human and JSON form

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestRunStatus_Human(t *testing.T) {
	withSnapshot(t)

	var out, errOut bytes.Buffer
	if code := runStatus(context.Background(), &out, &errOut); code != exitOK {
		t.Fatalf("Expected exit 0, got %d: %s", code, errOut.String())
	}

	output := out.String()
	for _, want := range []string{"pve1", "pve2", "web", "db", "build", "2 hosts, 3 VMs"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q\n%s", want, output)
		}
	}
}

func TestRunStatus_JSON(t *testing.T) {
	withSnapshot(t)
	jsonOutput = true

	var out, errOut bytes.Buffer
	if code := runStatus(context.Background(), &out, &errOut); code != exitOK {
		t.Fatalf("Expected exit 0, got %d: %s", code, errOut.String())
	}

	var hosts []hostStatus
	if err := json.Unmarshal(out.Bytes(), &hosts); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(hosts) != 2 {
		t.Fatalf("Expected 2 hosts, got %d", len(hosts))
	}
	if hosts[0].Name != "pve1" || len(hosts[0].Workloads) != 2 {
		t.Errorf("Expected pve1 with 2 workloads, got %+v", hosts[0])
	}
	if hosts[0].MaxMemGiB != 64 {
		t.Errorf("Expected 64 GiB, got %v", hosts[0].MaxMemGiB)
	}
}

func TestRunStatus_MissingInventory(t *testing.T) {
	withSnapshot(t)
	nodesFile = "/nonexistent/nodes.json"

	var out, errOut bytes.Buffer
	if code := runStatus(context.Background(), &out, &errOut); code != exitError {
		t.Errorf("Expected exit 1, got %d", code)
	}
	if !strings.Contains(errOut.String(), "Error:") {
		t.Errorf("Expected error message, got %q", errOut.String())
	}
}
