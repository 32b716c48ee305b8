// ABOUTME: Operational status enums for hosts and workloads
// ABOUTME: Parses the status strings reported by the cluster API

package models

import "strings"

// HostStatus is the operational status of a hypervisor host.
type HostStatus string

const (
	HostOnline  HostStatus = "online"
	HostOffline HostStatus = "offline"
	HostUnknown HostStatus = "unknown"
)

// ParseHostStatus maps an API status string to a HostStatus.
// Anything other than online/offline is unknown.
func ParseHostStatus(s string) HostStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "online":
		return HostOnline
	case "offline":
		return HostOffline
	default:
		return HostUnknown
	}
}

// WorkloadStatus is the run state of a VM.
type WorkloadStatus string

const (
	WorkloadRunning WorkloadStatus = "running"
	WorkloadStopped WorkloadStatus = "stopped"
	WorkloadUnknown WorkloadStatus = "unknown"
)

// ParseWorkloadStatus maps an API status string to a WorkloadStatus.
func ParseWorkloadStatus(s string) WorkloadStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "running":
		return WorkloadRunning
	case "stopped":
		return WorkloadStopped
	default:
		return WorkloadUnknown
	}
}
