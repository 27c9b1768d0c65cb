package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/FairForge/gorest-e2e/internal/logging"
)

// DefaultBaseURL is the public gorest v2 API.
const DefaultBaseURL = "https://gorest.co.in/public/v2"

type Config struct {
	Target  TargetConfig         `yaml:"target"`
	Client  ClientConfig         `yaml:"client"`
	Suite   SuiteConfig          `yaml:"suite"`
	Fake    FakeConfig           `yaml:"fake"`
	Log     logging.LoggerConfig `yaml:"log"`
	Metrics MetricsConfig        `yaml:"metrics"`
}

type TargetConfig struct {
	BaseURL       string `yaml:"base_url"`
	Token         string `yaml:"token"`
	LowLimitToken string `yaml:"low_limit_token"`
}

type ClientConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	RatePerSecond float64       `yaml:"rate_per_second"` // 0 disables pacing
	Burst         int           `yaml:"burst"`
	UserAgent     string        `yaml:"user_agent"`
}

type SuiteConfig struct {
	Formats        []string `yaml:"formats"` // "json", "xml"
	RateLimitCalls int      `yaml:"rate_limit_calls"`
}

type FakeConfig struct {
	Addr      string        `yaml:"addr"`
	SeedUsers int           `yaml:"seed_users"`
	Window    time.Duration `yaml:"window"`
	Tokens    []TokenConfig `yaml:"tokens"`
}

type TokenConfig struct {
	Token string `yaml:"token"`
	Limit int    `yaml:"limit"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the listener
}

// Default returns a config pointing at the public API.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in unset values
func (c *Config) ApplyDefaults() {
	if c.Target.BaseURL == "" {
		c.Target.BaseURL = DefaultBaseURL
	}
	if c.Client.Timeout == 0 {
		c.Client.Timeout = 30 * time.Second
	}
	if c.Client.Burst == 0 {
		c.Client.Burst = 1
	}
	if c.Client.UserAgent == "" {
		c.Client.UserAgent = "gorest-e2e"
	}
	if len(c.Suite.Formats) == 0 {
		c.Suite.Formats = []string{"json", "xml"}
	}
	if c.Suite.RateLimitCalls == 0 {
		c.Suite.RateLimitCalls = 5
	}
	if c.Fake.Addr == "" {
		c.Fake.Addr = ":8090"
	}
	if c.Fake.SeedUsers == 0 {
		c.Fake.SeedUsers = 250
	}
	if c.Fake.Window == 0 {
		c.Fake.Window = time.Minute
	}
	c.Log.ApplyDefaults()
}

// Validate checks the config for values the suite cannot run with
func (c *Config) Validate() error {
	u, err := url.Parse(c.Target.BaseURL)
	if err != nil {
		return fmt.Errorf("config: invalid base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: base_url must be http or https, got %q", c.Target.BaseURL)
	}
	for _, f := range c.Suite.Formats {
		if f != "json" && f != "xml" {
			return fmt.Errorf("config: unknown format %q", f)
		}
	}
	if c.Client.RatePerSecond < 0 {
		return errors.New("config: rate_per_second must not be negative")
	}
	for _, t := range c.Fake.Tokens {
		if t.Token == "" {
			return errors.New("config: fake token must not be empty")
		}
	}
	return c.Log.Validate()
}

// Load reads a YAML file (optional, empty path skips it), applies environment
// overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}
	LoadFromEnv(cfg)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
