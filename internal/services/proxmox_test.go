package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

type mockPVE struct {
	tickets  atomic.Int32
	rejectN  atomic.Int32
	password string
}

func (m *mockPVE) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.URL.Path == "/api2/json/access/ticket" {
			if r.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if err := r.ParseForm(); err != nil {
				t.Errorf("Failed to parse form: %v", err)
			}
			if r.PostForm.Get("password") != m.password {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"data":null}`))
				return
			}
			m.tickets.Add(1)
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{
					"ticket":              "PVE:root@pam:TICKET",
					"CSRFPreventionToken": "csrf",
					"username":            r.PostForm.Get("username"),
				},
			})
			return
		}

		cookie, err := r.Cookie("PVEAuthCookie")
		if err != nil || cookie.Value != "PVE:root@pam:TICKET" || m.rejectN.Load() > 0 {
			m.rejectN.Add(-1)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch r.URL.Path {
		case "/api2/json/nodes":
			w.Write([]byte(`{"data":[
				{"node":"pve1","status":"online","cpu":0.25,"maxcpu":32,"mem":34359738368,"maxmem":137438953472},
				{"node":"pve2","status":"offline","maxcpu":16,"maxmem":68719476736},
				{"node":"pve3","status":"online","cpu":0.1,"maxcpu":16,"mem":1,"maxmem":68719476736}
			]}`))
		case "/api2/json/cluster/resources":
			if r.URL.Query().Get("type") != "vm" {
				t.Errorf("Expected type=vm, got %q", r.URL.RawQuery)
			}
			w.Write([]byte(`{"data":[
				{"vmid":100,"name":"web","status":"running","node":"pve1","type":"qemu","maxcpu":4,"maxmem":8589934592,"cpu":0.5,"mem":4294967296},
				{"vmid":101,"name":"db","status":"stopped","node":"pve2","type":"qemu","maxcpu":8,"maxmem":17179869184},
				{"vmid":9000,"name":"tmpl","status":"stopped","node":"pve1","type":"qemu","template":1,"maxcpu":2,"maxmem":2147483648},
				{"vmid":200,"name":"ct","status":"running","node":"pve1","type":"lxc","maxcpu":1,"maxmem":536870912,"cpu":0.01,"mem":1048576}
			]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestProxmox(t *testing.T, m *mockPVE, password string, exclude []string) *ProxmoxClient {
	t.Helper()
	server := httptest.NewTLSServer(m.handler(t))
	t.Cleanup(server.Close)

	client, err := NewProxmoxClient(ProxmoxCredentials{
		Host:     server.URL,
		Username: "root@pam",
		Password: password,
		Exclude:  exclude,
	})
	if err != nil {
		t.Fatalf("NewProxmoxClient failed: %v", err)
	}
	client.SetHTTPClient(server.Client())
	return client
}

func TestNewProxmoxClient_NormalizesHost(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"pve.example.com", "https://pve.example.com:8006"},
		{"https://pve.example.com/", "https://pve.example.com:8006"},
		{"https://pve.example.com:443", "https://pve.example.com:443"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := NewProxmoxClient(ProxmoxCredentials{Host: tt.in})
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if c.host != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, c.host)
			}
		})
	}
}

func TestNewProxmoxClient_RequiresHost(t *testing.T) {
	if _, err := NewProxmoxClient(ProxmoxCredentials{}); err == nil {
		t.Error("Expected error for empty host, got nil")
	}
}

func TestProxmoxClient_Hosts(t *testing.T) {
	m := &mockPVE{password: "secret"}
	client := newTestProxmox(t, m, "secret", []string{"pve3"})

	hosts, err := client.Hosts(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(hosts) != 2 {
		t.Fatalf("Expected 2 hosts after exclusion, got %d", len(hosts))
	}
	if hosts[0].Name() != "pve1" || *hosts[0].MaxCPU != 32 || *hosts[0].CPU != 0.25 {
		t.Errorf("Unexpected first host: %s", hosts[0].Name())
	}
	if hosts[1].CPU != nil {
		t.Errorf("Expected offline host without cpu, got %v", *hosts[1].CPU)
	}
	for _, h := range hosts {
		if err := h.Validate(); err != nil {
			t.Errorf("Expected valid record for %s, got %v", h.Name(), err)
		}
	}
}

func TestProxmoxClient_Workloads(t *testing.T) {
	m := &mockPVE{password: "secret"}
	client := newTestProxmox(t, m, "secret", []string{"web"})

	tests := []struct {
		name string
		host string
		want []int
	}{
		{"all", "", []int{101, 200}},
		{"pve1 only", "pve1", []int{200}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.Workloads(context.Background(), tt.host)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d workloads, got %d", len(tt.want), len(got))
			}
			for i, id := range tt.want {
				if got[i].ID() != id {
					t.Errorf("Expected vmid %d, got %d", id, got[i].ID())
				}
			}
		})
	}

	if n := m.tickets.Load(); n != 1 {
		t.Errorf("Expected ticket reused across calls, got %d logins", n)
	}
}

func TestProxmoxClient_AuthenticationFailure(t *testing.T) {
	m := &mockPVE{password: "secret"}
	client := newTestProxmox(t, m, "wrong", nil)

	err := client.Authenticate(context.Background())
	if !errors.Is(err, ErrAuthentication) {
		t.Errorf("Expected ErrAuthentication, got %v", err)
	}

	_, err = client.Hosts(context.Background())
	if !errors.Is(err, ErrAuthentication) {
		t.Errorf("Expected ErrAuthentication from Hosts, got %v", err)
	}
}

func TestProxmoxClient_RenewsExpiredTicket(t *testing.T) {
	m := &mockPVE{password: "secret"}
	client := newTestProxmox(t, m, "secret", nil)

	if err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	m.rejectN.Store(1)

	hosts, err := client.Hosts(context.Background())
	if err != nil {
		t.Fatalf("Expected renewal to succeed, got %v", err)
	}
	if len(hosts) != 3 {
		t.Errorf("Expected 3 hosts, got %d", len(hosts))
	}
	if n := m.tickets.Load(); n != 2 {
		t.Errorf("Expected 2 logins, got %d", n)
	}
}
