// ABOUTME: Configuration loader for the balance planner
// ABOUTME: Loads settings from an optional .env file and environment variables with defaults

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hawson/pve-balance/internal/models"
)

// DefaultEnvFile is read when no env file is named and it exists.
const DefaultEnvFile = ".env"

// Inventory sources.
const (
	SourceProxmox = "proxmox"
	SourceVSphere = "vsphere"
)

// Config holds the settings shared by the CLI commands and the HTTP server.
type Config struct {
	// Server
	Port          string
	CacheTTL      int // seconds, inventory cache
	RateLimitPack int // pack/compare requests per client per minute; 0 disables

	// Logging
	LogLevel  string
	LogFormat string

	// Inventory
	InventorySource string // proxmox or vsphere (default: proxmox)
	Exclude         []string

	// Proxmox VE API
	PVEHost     string
	PVEUser     string
	PVEPassword string
	PVEInsecure bool   // explicit opt-in for insecure connections
	PVECACert   string // PEM file path
	PVEAllProxy string // ssh+socks5://user@jumpbox:22?private-key=/path

	// vSphere (optional)
	VSphereHost       string
	VSphereUsername   string
	VSpherePassword   string
	VSphereDatacenter string
	VSphereInsecure   bool

	// Packing
	MinFreeCPU            int
	MinFreeMemoryFraction float64
	ScoreWeightCPU        float64
	ScoreWeightMemory     float64
	HostBias              map[string]float64
	WorkloadBias          map[string]float64

	// Rendering
	ImageWidth  int
	ImageHeight int
}

// ProxmoxConfigured returns true if Proxmox credentials are set
func (c *Config) ProxmoxConfigured() bool {
	return c.PVEHost != "" && c.PVEUser != "" && c.PVEPassword != ""
}

// VSphereConfigured returns true if vSphere credentials are set
func (c *Config) VSphereConfigured() bool {
	return c.VSphereHost != "" && c.VSphereUsername != "" && c.VSpherePassword != "" && c.VSphereDatacenter != ""
}

// Reservation returns the per-host headroom policy.
func (c *Config) Reservation() models.Reservation {
	return models.Reservation{
		MinFreeCPU:            c.MinFreeCPU,
		MinFreeMemoryFraction: c.MinFreeMemoryFraction,
	}
}

// Weights returns the scoring weights.
func (c *Config) Weights() models.Weights {
	return models.Weights{CPU: c.ScoreWeightCPU, Memory: c.ScoreWeightMemory}
}

// CacheDuration returns CacheTTL as a duration.
func (c *Config) CacheDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// Load reads envFile (or .env when envFile is empty and the file exists)
// without overriding variables already set, then builds the config from the
// environment.
func Load(envFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	env := &envReader{}
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		CacheTTL:      env.getInt("CACHE_TTL", 300),
		RateLimitPack: env.getInt("RATE_LIMIT_PACK", 30),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		InventorySource: strings.ToLower(getEnv("INVENTORY_SOURCE", SourceProxmox)),
		Exclude:         getEnvStringList("PVE_EXCLUDE"),

		PVEHost:     ensureScheme(os.Getenv("PVE_HOST")),
		PVEUser:     os.Getenv("PVE_USER"),
		PVEPassword: os.Getenv("PVE_PASSWORD"),
		PVEInsecure: env.getBool("PVE_INSECURE", false),
		PVECACert:   os.Getenv("PVE_CA_CERT"),
		PVEAllProxy: os.Getenv("PVE_ALL_PROXY"),

		VSphereHost:       os.Getenv("VSPHERE_HOST"),
		VSphereUsername:   os.Getenv("VSPHERE_USERNAME"),
		VSpherePassword:   os.Getenv("VSPHERE_PASSWORD"),
		VSphereDatacenter: os.Getenv("VSPHERE_DATACENTER"),
		VSphereInsecure:   env.getBool("VSPHERE_INSECURE", false),

		MinFreeCPU:            env.getInt("MIN_FREE_CPU", models.DefaultMinFreeCPU),
		MinFreeMemoryFraction: env.getFloat("MIN_FREE_MEMORY_FRACTION", models.DefaultMinFreeMemoryFraction),
		ScoreWeightCPU:        env.getFloat("SCORE_WEIGHT_CPU", 1.0),
		ScoreWeightMemory:     env.getFloat("SCORE_WEIGHT_MEMORY", 1.0),

		ImageWidth:  env.getInt("IMAGE_WIDTH", 800),
		ImageHeight: env.getInt("IMAGE_HEIGHT", 600),
	}
	if env.err != nil {
		return nil, env.err
	}

	var err error
	if cfg.HostBias, err = ParseBiasMap(os.Getenv("HOST_BIAS")); err != nil {
		return nil, fmt.Errorf("HOST_BIAS: %w", err)
	}
	if cfg.WorkloadBias, err = ParseBiasMap(os.Getenv("WORKLOAD_BIAS")); err != nil {
		return nil, fmt.Errorf("WORKLOAD_BIAS: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.InventorySource != SourceProxmox && c.InventorySource != SourceVSphere {
		return fmt.Errorf("INVENTORY_SOURCE must be %s or %s, got %q", SourceProxmox, SourceVSphere, c.InventorySource)
	}
	if c.MinFreeCPU < 0 {
		return fmt.Errorf("MIN_FREE_CPU must be >= 0, got %d", c.MinFreeCPU)
	}
	if c.MinFreeMemoryFraction < 0 || c.MinFreeMemoryFraction >= 1 {
		return fmt.Errorf("MIN_FREE_MEMORY_FRACTION must be in [0, 1), got %v", c.MinFreeMemoryFraction)
	}
	if c.ScoreWeightCPU < 0 || c.ScoreWeightMemory < 0 {
		return fmt.Errorf("score weights must be >= 0, got cpu=%v memory=%v", c.ScoreWeightCPU, c.ScoreWeightMemory)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL must be >= 0, got %d", c.CacheTTL)
	}
	if c.RateLimitPack < 0 {
		return fmt.Errorf("RATE_LIMIT_PACK must be >= 0, got %d", c.RateLimitPack)
	}
	if c.ImageWidth < 1 || c.ImageHeight < 1 {
		return fmt.Errorf("IMAGE_WIDTH and IMAGE_HEIGHT must be positive, got %dx%d", c.ImageWidth, c.ImageHeight)
	}
	return nil
}

func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(DefaultEnvFile); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// ParseBiasMap parses "name=value,name=value" into a bias map.
// An empty string yields an empty map.
func ParseBiasMap(s string) (map[string]float64, error) {
	biases := make(map[string]float64)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid bias entry %q, expected name=value", part)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bias value for %s: %w", name, err)
		}
		biases[name] = f
	}
	return biases, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader parses typed environment values and keeps the first failure.
type envReader struct {
	err error
}

func (r *envReader) getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" || r.err != nil {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		r.err = fmt.Errorf("%s must be an integer, got %q", key, value)
		return defaultValue
	}
	return intVal
}

func (r *envReader) getFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" || r.err != nil {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.err = fmt.Errorf("%s must be a number, got %q", key, value)
		return defaultValue
	}
	return f
}

func (r *envReader) getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" || r.err != nil {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		r.err = fmt.Errorf("%s must be a boolean, got %q", key, value)
		return defaultValue
	}
	return boolVal
}

func getEnvStringList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ensureScheme adds https:// prefix if the URL has no scheme
func ensureScheme(url string) string {
	if url == "" {
		return url
	}
	if !strings.Contains(url, "://") {
		return "https://" + url
	}
	return url
}
