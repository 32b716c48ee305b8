// ABOUTME: Proxmox VE REST client for node and guest inventory
// ABOUTME: Authenticates with a ticket and reads /nodes and /cluster/resources

package services

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hawson/pve-balance/internal/models"
)

// ProxmoxCredentials holds Proxmox VE connection info
type ProxmoxCredentials struct {
	Host     string // https://pve.example.com:8006
	Username string // user@realm
	Password string
	CACert   string // PEM file path
	Insecure bool
	AllProxy string
	Exclude  []string
}

// ProxmoxClient reads inventory from the Proxmox VE API.
type ProxmoxClient struct {
	host    string
	creds   ProxmoxCredentials
	exclude Exclusions
	client  *http.Client

	mu     sync.Mutex
	ticket string
	csrf   string
}

// NewProxmoxClient creates a client. No request is made until first use.
func NewProxmoxClient(creds ProxmoxCredentials) (*ProxmoxClient, error) {
	host := strings.TrimSuffix(creds.Host, "/")
	if host == "" {
		return nil, fmt.Errorf("proxmox host is required")
	}
	if !strings.HasPrefix(host, "https://") && !strings.HasPrefix(host, "http://") {
		host = "https://" + host
	}
	if u, err := url.Parse(host); err == nil && u.Port() == "" {
		host = host + ":8006"
	}

	tlsConfig := &tls.Config{}
	if creds.CACert != "" {
		pem, err := os.ReadFile(creds.CACert)
		if err != nil {
			return nil, fmt.Errorf("reading PVE_CA_CERT: %w", err)
		}
		certPool := x509.NewCertPool()
		if !certPool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", creds.CACert)
		}
		tlsConfig.RootCAs = certPool
	} else if creds.Insecure {
		slog.Warn("TLS verification disabled for Proxmox API", "host", host)
		tlsConfig.InsecureSkipVerify = true
	}

	transport := &http.Transport{
		TLSClientConfig:     tlsConfig,
		TLSHandshakeTimeout: 30 * time.Second,
	}
	if creds.AllProxy != "" {
		dial, err := NewSOCKS5DialContext(creds.AllProxy)
		if err != nil {
			return nil, fmt.Errorf("PVE_ALL_PROXY: %w", err)
		}
		transport.DialContext = dial
	}

	return &ProxmoxClient{
		host:    host,
		creds:   creds,
		exclude: NewExclusions(creds.Exclude),
		client: &http.Client{
			Timeout:   60 * time.Second,
			Transport: transport,
		},
	}, nil
}

// SetHTTPClient allows overriding the HTTP client (useful for testing)
func (p *ProxmoxClient) SetHTTPClient(client *http.Client) {
	p.client = client
}

// Authenticate obtains a fresh ticket. A rejected login wraps ErrAuthentication.
func (p *ProxmoxClient) Authenticate(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.authenticateLocked(ctx)
}

func (p *ProxmoxClient) authenticateLocked(ctx context.Context) error {
	form := url.Values{}
	form.Set("username", p.creds.Username)
	form.Set("password", p.creds.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/api2/json/access/ticket", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create ticket request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach Proxmox at %s: %w", p.host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: Proxmox rejected login for %s (status %d)", ErrAuthentication, p.creds.Username, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ticket request returned status %d: %s", resp.StatusCode, string(body))
	}

	var ticketResp struct {
		Data *struct {
			Ticket string `json:"ticket"`
			CSRF   string `json:"CSRFPreventionToken"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ticketResp); err != nil {
		return fmt.Errorf("failed to parse ticket response: %w", err)
	}
	if ticketResp.Data == nil || ticketResp.Data.Ticket == "" {
		return fmt.Errorf("%w: Proxmox returned no ticket for %s", ErrAuthentication, p.creds.Username)
	}

	p.ticket = ticketResp.Data.Ticket
	p.csrf = ticketResp.Data.CSRF
	slog.Debug("Proxmox ticket acquired", "host", p.host, "user", p.creds.Username)
	return nil
}

// get performs an authenticated GET and decodes the "data" envelope into out.
// An expired ticket is renewed once.
func (p *ProxmoxClient) get(ctx context.Context, path string, out any) error {
	for attempt := 0; attempt < 2; attempt++ {
		p.mu.Lock()
		if p.ticket == "" {
			if err := p.authenticateLocked(ctx); err != nil {
				p.mu.Unlock()
				return err
			}
		}
		ticket := p.ticket
		p.mu.Unlock()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.host+path, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.AddCookie(&http.Cookie{Name: "PVEAuthCookie", Value: ticket})

		resp, err := p.client.Do(req)
		if err != nil {
			return fmt.Errorf("GET %s: %w", path, err)
		}

		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			slog.Debug("Proxmox ticket rejected, renewing", "path", path)
			p.mu.Lock()
			p.ticket = ""
			p.mu.Unlock()
			continue
		}

		err = decodeEnvelope(resp, path, out)
		resp.Body.Close()
		return err
	}
	return fmt.Errorf("%w: ticket rejected for %s", ErrAuthentication, path)
}

func decodeEnvelope(resp *http.Response, path string, out any) error {
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s returned status %d: %s", path, resp.StatusCode, string(body))
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", path, err)
	}
	return nil
}

// Hosts lists cluster nodes, minus exclusions.
func (p *ProxmoxClient) Hosts(ctx context.Context) ([]models.HostRecord, error) {
	var records []models.HostRecord
	if err := p.get(ctx, "/api2/json/nodes", &records); err != nil {
		return nil, err
	}

	kept := p.exclude.FilterHosts(records)
	if dropped := len(records) - len(kept); dropped > 0 {
		slog.Info("Excluded hosts on request", "count", dropped)
	}
	return kept, nil
}

// pveResource is a /cluster/resources entry. Templates are never started and
// do not occupy a host.
type pveResource struct {
	models.WorkloadRecord
	Template int `json:"template"`
}

// Workloads lists guests (qemu and lxc), minus templates and exclusions.
func (p *ProxmoxClient) Workloads(ctx context.Context, host string) ([]models.WorkloadRecord, error) {
	var resources []pveResource
	if err := p.get(ctx, "/api2/json/cluster/resources?type=vm", &resources); err != nil {
		return nil, err
	}

	records := make([]models.WorkloadRecord, 0, len(resources))
	for _, r := range resources {
		if r.Template == 1 {
			slog.Debug("Skipping template", "vmid", r.ID(), "name", r.DisplayName())
			continue
		}
		records = append(records, r.WorkloadRecord)
	}

	kept := p.exclude.FilterWorkloads(records, host)
	slog.Debug("Proxmox workloads loaded", "total", len(resources), "kept", len(kept), "host", host)
	return kept, nil
}
