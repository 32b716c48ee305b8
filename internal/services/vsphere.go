// ABOUTME: vSphere client for infrastructure discovery via govmomi
// ABOUTME: Maps ESXi hosts and VMs to the same records the Proxmox client produces

package services

import (
	"context"
	"fmt"
	"hash/crc32"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/view"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"

	"github.com/hawson/pve-balance/internal/models"
)

// VSphereCredentials holds vCenter connection info
type VSphereCredentials struct {
	Host       string
	Username   string
	Password   string
	Datacenter string
	Insecure   bool
	Exclude    []string
}

// VSphereClient wraps govmomi client for infrastructure discovery
type VSphereClient struct {
	creds      VSphereCredentials
	exclude    Exclusions
	client     *govmomi.Client
	finder     *find.Finder
	datacenter *object.Datacenter
}

// NewVSphereClient creates a new vSphere client
func NewVSphereClient(creds VSphereCredentials) *VSphereClient {
	return &VSphereClient{
		creds:   creds,
		exclude: NewExclusions(creds.Exclude),
	}
}

// Connect establishes connection to vCenter
func (v *VSphereClient) Connect(ctx context.Context) error {
	host := v.creds.Host
	if !strings.HasPrefix(host, "https://") && !strings.HasPrefix(host, "http://") {
		host = "https://" + host
	}

	u, err := url.Parse(strings.TrimSuffix(host, "/") + "/sdk")
	if err != nil {
		return fmt.Errorf("invalid vCenter URL '%s': %w", v.creds.Host, err)
	}
	u.User = url.UserPassword(v.creds.Username, v.creds.Password)

	client, err := govmomi.NewClient(ctx, u, v.creds.Insecure)
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "connection refused") {
			return fmt.Errorf("connection refused to vCenter at %s - verify the host is reachable", v.creds.Host)
		}
		if strings.Contains(errStr, "no such host") {
			return fmt.Errorf("cannot resolve vCenter hostname '%s' - verify DNS", v.creds.Host)
		}
		if strings.Contains(errStr, "401") || strings.Contains(errStr, "Cannot complete login") {
			return fmt.Errorf("%w: verify vSphere username and password", ErrAuthentication)
		}
		if strings.Contains(errStr, "certificate") || strings.Contains(errStr, "x509") {
			return fmt.Errorf("SSL certificate error connecting to %s - try setting VSPHERE_INSECURE=true", v.creds.Host)
		}
		return fmt.Errorf("failed to connect to vCenter at %s: %w", v.creds.Host, err)
	}

	v.client = client
	v.finder = find.NewFinder(client.Client, true)

	dc, err := v.finder.Datacenter(ctx, v.creds.Datacenter)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("datacenter '%s' not found - verify the datacenter name", v.creds.Datacenter)
		}
		return fmt.Errorf("error accessing datacenter '%s': %w", v.creds.Datacenter, err)
	}
	v.datacenter = dc
	v.finder.SetDatacenter(dc)

	slog.Info("vSphere connected successfully")
	slog.Debug("vSphere connection details", "host", v.creds.Host, "datacenter", v.creds.Datacenter)
	return nil
}

// Disconnect closes the vCenter connection
func (v *VSphereClient) Disconnect(ctx context.Context) error {
	if v.client != nil {
		return v.client.Logout(ctx)
	}
	return nil
}

// retrieve loads properties of every managed object of kind under the datacenter.
func (v *VSphereClient) retrieve(ctx context.Context, kind string, props []string, dst any) error {
	if v.client == nil {
		return fmt.Errorf("vSphere client not connected")
	}

	m := view.NewManager(v.client.Client)
	cv, err := m.CreateContainerView(ctx, v.datacenter.Reference(), []string{kind}, true)
	if err != nil {
		return fmt.Errorf("creating %s view: %w", kind, err)
	}
	defer func() { _ = cv.Destroy(ctx) }()

	if err := cv.Retrieve(ctx, []string{kind}, props, dst); err != nil {
		return fmt.Errorf("retrieving %s properties: %w", kind, err)
	}
	return nil
}

func (v *VSphereClient) hostSystems(ctx context.Context) ([]mo.HostSystem, error) {
	var hosts []mo.HostSystem
	err := v.retrieve(ctx, "HostSystem", []string{"name", "summary", "runtime"}, &hosts)
	return hosts, err
}

// Hosts lists ESXi hosts, minus exclusions.
func (v *VSphereClient) Hosts(ctx context.Context) ([]models.HostRecord, error) {
	hosts, err := v.hostSystems(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]models.HostRecord, 0, len(hosts))
	for _, h := range hosts {
		records = append(records, hostRecord(h))
	}
	return v.exclude.FilterHosts(records), nil
}

// hostRecord maps an ESXi host. A host is online only when it is powered on,
// connected, and not in maintenance mode.
func hostRecord(h mo.HostSystem) models.HostRecord {
	status := models.HostOffline
	if h.Runtime.PowerState == types.HostSystemPowerStatePoweredOn &&
		h.Runtime.ConnectionState == types.HostSystemConnectionStateConnected &&
		!h.Runtime.InMaintenanceMode {
		status = models.HostOnline
	}

	var (
		maxCPU int
		maxMem int64
		cpu    float64
	)
	if hw := h.Summary.Hardware; hw != nil {
		maxCPU = int(hw.NumCpuCores)
		maxMem = hw.MemorySize
		if capacity := float64(hw.CpuMhz) * float64(hw.NumCpuCores); capacity > 0 {
			cpu = float64(h.Summary.QuickStats.OverallCpuUsage) / capacity
		}
	}
	mem := int64(h.Summary.QuickStats.OverallMemoryUsage) * 1024 * 1024

	return models.MakeHostRecord(h.Name, string(status), maxCPU, maxMem, cpu, mem)
}

// Workloads lists VMs, optionally restricted to one ESXi host.
func (v *VSphereClient) Workloads(ctx context.Context, host string) ([]models.WorkloadRecord, error) {
	hosts, err := v.hostSystems(ctx)
	if err != nil {
		return nil, err
	}
	hostNames := make(map[types.ManagedObjectReference]string, len(hosts))
	for _, h := range hosts {
		hostNames[h.Self] = h.Name
	}

	var vms []mo.VirtualMachine
	if err := v.retrieve(ctx, "VirtualMachine", []string{"name", "summary", "runtime"}, &vms); err != nil {
		return nil, err
	}

	records := make([]models.WorkloadRecord, 0, len(vms))
	for _, vm := range vms {
		if vm.Summary.Config.Template {
			continue
		}
		node := ""
		if vm.Runtime.Host != nil {
			node = hostNames[*vm.Runtime.Host]
		}
		records = append(records, workloadRecord(vm, node))
	}
	return v.exclude.FilterWorkloads(records, host), nil
}

func workloadRecord(vm mo.VirtualMachine, node string) models.WorkloadRecord {
	status := models.WorkloadStopped
	if vm.Runtime.PowerState == types.VirtualMachinePowerStatePoweredOn {
		status = models.WorkloadRunning
	}

	qs := vm.Summary.QuickStats
	var cpu float64
	if vm.Runtime.MaxCpuUsage > 0 {
		cpu = float64(qs.OverallCpuUsage) / float64(vm.Runtime.MaxCpuUsage)
	}

	return models.MakeWorkloadRecord(
		vmID(vm.Self),
		vm.Name,
		string(status),
		node,
		int(vm.Summary.Config.NumCpu),
		int64(vm.Summary.Config.MemorySizeMB)*1024*1024,
		cpu,
		int64(qs.GuestMemoryUsage)*1024*1024,
	)
}

// vmID derives a numeric id from a moref such as "vm-42". Other forms hash.
func vmID(ref types.ManagedObjectReference) int {
	if _, num, ok := strings.Cut(ref.Value, "-"); ok {
		if id, err := strconv.Atoi(num); err == nil {
			return id
		}
	}
	return int(crc32.ChecksumIEEE([]byte(ref.Value)) & 0x7fffffff)
}
