// ABOUTME: SSH+SOCKS5 dialer for reaching a cluster API through a jumpbox
// ABOUTME: Parses ssh+socks5://user@host:port?private-key=/path URLs

package services

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cloudfoundry/socks5-proxy"
)

// DialContextFunc matches http.Transport.DialContext.
type DialContextFunc func(ctx context.Context, network, address string) (net.Conn, error)

type proxyTarget struct {
	username string
	host     string
	keyPath  string
}

func parseProxyURL(allProxy string) (proxyTarget, error) {
	proxyURL, err := url.Parse(strings.TrimPrefix(allProxy, "ssh+"))
	if err != nil {
		return proxyTarget{}, fmt.Errorf("invalid proxy URL: %w", err)
	}
	if proxyURL.Scheme != "socks5" {
		return proxyTarget{}, fmt.Errorf("unsupported proxy scheme %q, expected ssh+socks5", proxyURL.Scheme)
	}
	if proxyURL.Host == "" {
		return proxyTarget{}, fmt.Errorf("proxy URL missing host")
	}

	target := proxyTarget{host: proxyURL.Host}
	if proxyURL.User != nil {
		target.username = proxyURL.User.Username()
	}

	target.keyPath = proxyURL.Query().Get("private-key")
	if target.keyPath == "" {
		return proxyTarget{}, fmt.Errorf("proxy URL missing required 'private-key' query param")
	}
	target.keyPath = filepath.Clean(target.keyPath)
	if !filepath.IsAbs(target.keyPath) {
		return proxyTarget{}, fmt.Errorf("private-key path must be absolute, got %s", target.keyPath)
	}
	return target, nil
}

// NewSOCKS5DialContext creates a dial function that tunnels connections over
// SSH to the proxy host. The SSH session is established on first use.
func NewSOCKS5DialContext(allProxy string) (DialContextFunc, error) {
	target, err := parseProxyURL(allProxy)
	if err != nil {
		return nil, err
	}

	key, err := os.ReadFile(target.keyPath)
	if err != nil {
		return nil, fmt.Errorf("reading SSH private key %s: %w", target.keyPath, err)
	}

	socks5Proxy := proxy.NewSocks5Proxy(proxy.NewHostKey(), log.Default(), 1*time.Minute)

	var (
		dialer proxy.DialFunc
		mut    sync.RWMutex
	)

	return func(ctx context.Context, network, address string) (net.Conn, error) {
		mut.RLock()
		haveDialer := dialer != nil
		mut.RUnlock()

		if haveDialer {
			return dialer(network, address)
		}

		mut.Lock()
		defer mut.Unlock()
		if dialer == nil {
			proxyDialer, err := socks5Proxy.Dialer(target.username, string(key), target.host)
			if err != nil {
				return nil, fmt.Errorf("error creating SOCKS5 dialer: %w", err)
			}
			dialer = proxyDialer
		}
		return dialer(network, address)
	}, nil
}
