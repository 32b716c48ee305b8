// ABOUTME: Flat field-keyed records for hosts and VMs as delivered by the cluster API
// ABOUTME: Validates required fields before any typed entity is constructed

package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMissingField is returned (wrapped) when a record lacks a required field.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidField is returned (wrapped) when a record field has an impossible value.
	ErrInvalidField = errors.New("invalid field value")
)

// MissingFieldError lists every required field absent from a record.
type MissingFieldError struct {
	Kind   string // "host" or "workload"
	ID     string
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s %q: missing required field(s): %s", e.Kind, e.ID, strings.Join(e.Fields, ", "))
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingField
}

// HostRecord is one entry of the cluster API node listing.
// Pointer fields distinguish "absent" from zero.
type HostRecord struct {
	Node   *string  `json:"node,omitempty"`
	Status *string  `json:"status,omitempty"`
	MaxCPU *int     `json:"maxcpu,omitempty"`
	MaxMem *int64   `json:"maxmem,omitempty"`
	CPU    *float64 `json:"cpu,omitempty"`
	Mem    *int64   `json:"mem,omitempty"`
}

// WorkloadRecord is one entry of the cluster API VM resource listing.
type WorkloadRecord struct {
	VMID   *int     `json:"vmid,omitempty"`
	Name   *string  `json:"name,omitempty"`
	Status *string  `json:"status,omitempty"`
	Node   *string  `json:"node,omitempty"`
	MaxCPU *int     `json:"maxcpu,omitempty"`
	MaxMem *int64   `json:"maxmem,omitempty"`
	CPU    *float64 `json:"cpu,omitempty"`
	Mem    *int64   `json:"mem,omitempty"`
}

// MakeHostRecord builds a fully populated HostRecord.
func MakeHostRecord(name, status string, maxCPU int, maxMem int64, cpu float64, mem int64) HostRecord {
	return HostRecord{
		Node:   &name,
		Status: &status,
		MaxCPU: &maxCPU,
		MaxMem: &maxMem,
		CPU:    &cpu,
		Mem:    &mem,
	}
}

// MakeWorkloadRecord builds a fully populated WorkloadRecord.
func MakeWorkloadRecord(vmid int, name, status, node string, maxCPU int, maxMem int64, cpu float64, mem int64) WorkloadRecord {
	return WorkloadRecord{
		VMID:   &vmid,
		Name:   &name,
		Status: &status,
		Node:   &node,
		MaxCPU: &maxCPU,
		MaxMem: &maxMem,
		CPU:    &cpu,
		Mem:    &mem,
	}
}

// Name returns the record's node name, or "" when absent.
func (r HostRecord) Name() string {
	if r.Node == nil {
		return ""
	}
	return *r.Node
}

// DisplayName returns the record's VM name, or "" when absent.
func (r WorkloadRecord) DisplayName() string {
	if r.Name == nil {
		return ""
	}
	return *r.Name
}

// ID returns the record's vmid, or 0 when absent.
func (r WorkloadRecord) ID() int {
	if r.VMID == nil {
		return 0
	}
	return *r.VMID
}

// Validate checks that every required field is present and sane.
// Usage fields are only required for online hosts; an offline host's
// usage is treated as zero.
func (r HostRecord) Validate() error {
	var missing []string
	if r.Node == nil || *r.Node == "" {
		missing = append(missing, "node")
	}
	if r.Status == nil {
		missing = append(missing, "status")
	}
	if r.MaxCPU == nil {
		missing = append(missing, "maxcpu")
	}
	if r.MaxMem == nil {
		missing = append(missing, "maxmem")
	}
	if r.Status != nil && ParseHostStatus(*r.Status) == HostOnline {
		if r.CPU == nil {
			missing = append(missing, "cpu")
		}
		if r.Mem == nil {
			missing = append(missing, "mem")
		}
	}
	if len(missing) > 0 {
		return &MissingFieldError{Kind: "host", ID: r.Name(), Fields: missing}
	}

	if *r.MaxCPU < 0 {
		return fmt.Errorf("host %q: maxcpu %d: %w", r.Name(), *r.MaxCPU, ErrInvalidField)
	}
	if *r.MaxMem < 0 {
		return fmt.Errorf("host %q: maxmem %d: %w", r.Name(), *r.MaxMem, ErrInvalidField)
	}
	return nil
}

// Validate checks that every required field is present and sane.
// Usage fields are only required for running workloads.
func (r WorkloadRecord) Validate() error {
	var missing []string
	if r.VMID == nil {
		missing = append(missing, "vmid")
	}
	if r.Name == nil || *r.Name == "" {
		missing = append(missing, "name")
	}
	if r.Status == nil {
		missing = append(missing, "status")
	}
	if r.Node == nil {
		missing = append(missing, "node")
	}
	if r.MaxCPU == nil {
		missing = append(missing, "maxcpu")
	}
	if r.MaxMem == nil {
		missing = append(missing, "maxmem")
	}
	if r.Status != nil && ParseWorkloadStatus(*r.Status) == WorkloadRunning {
		if r.CPU == nil {
			missing = append(missing, "cpu")
		}
		if r.Mem == nil {
			missing = append(missing, "mem")
		}
	}
	if len(missing) > 0 {
		id := r.DisplayName()
		if id == "" && r.VMID != nil {
			id = strconv.Itoa(*r.VMID)
		}
		return &MissingFieldError{Kind: "workload", ID: id, Fields: missing}
	}

	if *r.MaxCPU < 0 {
		return fmt.Errorf("workload %q: maxcpu %d: %w", *r.Name, *r.MaxCPU, ErrInvalidField)
	}
	if *r.MaxMem < 0 {
		return fmt.Errorf("workload %q: maxmem %d: %w", *r.Name, *r.MaxMem, ErrInvalidField)
	}
	return nil
}
