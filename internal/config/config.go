package config

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// WaitStrategy names how the scan client waits between job submission and fetch.
type WaitStrategy string

const (
	// WaitFixed sleeps for a fixed delay before fetching.
	WaitFixed WaitStrategy = "fixed"
	// WaitPoll polls the scanner status endpoint until the job has output.
	WaitPoll WaitStrategy = "poll"
)

// Default preference values
const (
	DefaultServiceType     = "_ipp._tcp"
	DefaultDiscoverTimeout = 10 * time.Second
	DefaultHTTPTimeout     = 60 * time.Second
	DefaultWaitDelay       = 30 * time.Second
	DefaultPollInterval    = 2 * time.Second
	DefaultPollTimeout     = 2 * time.Minute
)

// Config represents the preferences file.
type Config struct {
	Version         int           `yaml:"version"`
	ServiceType     string        `yaml:"service_type"`     // DNS-SD service type to browse
	DiscoverTimeout time.Duration `yaml:"discover_timeout"` // Window for one-shot discovery
	HTTPTimeout     time.Duration `yaml:"http_timeout"`     // Per-request timeout against devices
	Wait            WaitConfig    `yaml:"wait"`
	FetchRetries    int           `yaml:"fetch_retries"` // Extra NextDocument attempts (0 = single attempt)
	VerifyESCL      bool          `yaml:"verify_escl"`   // Probe /eSCL/ScannerCapabilities during discovery
	OutputDir       string        `yaml:"output_dir,omitempty"`
}

// WaitConfig configures the wait phase of a scan job.
type WaitConfig struct {
	Strategy     WaitStrategy  `yaml:"strategy"`
	Delay        time.Duration `yaml:"delay"`         // Fixed delay, also the poll fallback
	PollInterval time.Duration `yaml:"poll_interval"` // Poll strategy only
	PollTimeout  time.Duration `yaml:"poll_timeout"`  // Poll strategy only
}

// fileMutex serializes reads and writes of the preferences file.
var fileMutex sync.Mutex

// Default returns the built-in preferences.
func Default() *Config {
	return &Config{
		Version:         1,
		ServiceType:     DefaultServiceType,
		DiscoverTimeout: DefaultDiscoverTimeout,
		HTTPTimeout:     DefaultHTTPTimeout,
		Wait: WaitConfig{
			Strategy:     WaitFixed,
			Delay:        DefaultWaitDelay,
			PollInterval: DefaultPollInterval,
			PollTimeout:  DefaultPollTimeout,
		},
	}
}

// Load reads the preferences file from the configuration directory.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadFile(path)
}

// LoadFile reads preferences from path. A missing file yields Default().
// Fields absent from the file keep their default values.
func LoadFile(path string) (*Config, error) {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported config version: %d (expected 1)", cfg.Version)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that preference values are usable.
func (c *Config) Validate() error {
	if c.ServiceType == "" {
		return fmt.Errorf("service_type must not be empty")
	}
	if c.DiscoverTimeout <= 0 {
		return fmt.Errorf("discover_timeout must be positive, got %s", c.DiscoverTimeout)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive, got %s", c.HTTPTimeout)
	}
	if c.FetchRetries < 0 {
		return fmt.Errorf("fetch_retries must not be negative, got %d", c.FetchRetries)
	}

	switch c.Wait.Strategy {
	case WaitFixed:
		if c.Wait.Delay < 0 {
			return fmt.Errorf("wait.delay must not be negative, got %s", c.Wait.Delay)
		}
	case WaitPoll:
		if c.Wait.PollInterval <= 0 {
			return fmt.Errorf("wait.poll_interval must be positive, got %s", c.Wait.PollInterval)
		}
		if c.Wait.PollTimeout < c.Wait.PollInterval {
			return fmt.Errorf("wait.poll_timeout (%s) must be at least wait.poll_interval (%s)",
				c.Wait.PollTimeout, c.Wait.PollInterval)
		}
	default:
		return fmt.Errorf("unknown wait.strategy %q (expected %q or %q)", c.Wait.Strategy, WaitFixed, WaitPoll)
	}

	return nil
}

// Save writes the preferences to the configuration directory.
func (c *Config) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	return c.SaveFile(path)
}

// SaveFile writes the preferences to path atomically.
func (c *Config) SaveFile(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# airscan preferences\n# Location: " + path + "\n\n")
	return WriteFileAtomic(path, append(header, data...))
}
