package config

import (
	"os"
	"strconv"
	"strings"
)

// LoadFromEnv loads configuration from environment variables. TOKEN and
// LOW_LIMIT_TOKEN are honored for compatibility with existing .env files.
func LoadFromEnv(cfg *Config) {
	if baseURL := os.Getenv("GOREST_BASE_URL"); baseURL != "" {
		cfg.Target.BaseURL = baseURL
	}

	if token := firstEnv("GOREST_TOKEN", "TOKEN"); token != "" {
		cfg.Target.Token = token
	}
	if token := firstEnv("GOREST_LOW_LIMIT_TOKEN", "LOW_LIMIT_TOKEN"); token != "" {
		cfg.Target.LowLimitToken = token
	}

	if logLevel := os.Getenv("GOREST_LOG_LEVEL"); logLevel != "" {
		cfg.Log.Level = logLevel
	}

	if formats := os.Getenv("GOREST_FORMATS"); formats != "" {
		cfg.Suite.Formats = nil
		for _, f := range strings.Split(formats, ",") {
			if f = strings.TrimSpace(f); f != "" {
				cfg.Suite.Formats = append(cfg.Suite.Formats, f)
			}
		}
	}

	if rps := os.Getenv("GOREST_RATE_PER_SECOND"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.Client.RatePerSecond = v
		}
	}

	if addr := os.Getenv("GOREST_FAKE_ADDR"); addr != "" {
		cfg.Fake.Addr = addr
	}
	if addr := os.Getenv("GOREST_METRICS_ADDR"); addr != "" {
		cfg.Metrics.Addr = addr
	}
}

// GetEnvOrDefault returns environment variable or default value
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
