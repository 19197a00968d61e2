package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CacheConfig tunes which templates the element factory memoizes.
type CacheConfig struct {
	// MaxTemplateLength <= 0 falls back to the factory default.
	MaxTemplateLength int `json:"maxTemplateLength"`
	// NoCacheTags overrides the default list when non-nil. An empty list
	// disables tag based exclusion.
	NoCacheTags []string `json:"noCacheTags"`
	// Warm lists templates built once at startup.
	Warm []string `json:"warm"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// Config encapsulates runtime options.
type Config struct {
	Listen      string        `json:"listen"`
	LogLevel    string        `json:"logLevel"`
	TemplateDir string        `json:"templateDir"`
	Minify      bool          `json:"minify"`
	EnableTLS   bool          `json:"enableTLS"`
	TLSCert     string        `json:"tlsCert"`
	TLSKey      string        `json:"tlsKey"`
	Cache       CacheConfig   `json:"cache"`
	Metrics     MetricsConfig `json:"metrics"`
}

// Load reads configuration from disk and applies defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(bytes)
}

// Parse decodes a JSON document, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	c.Listen = strings.TrimSpace(c.Listen)
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.TemplateDir = strings.TrimSpace(c.TemplateDir)

	c.Metrics.Path = strings.TrimSpace(c.Metrics.Path)
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		c.Metrics.Path = "/" + c.Metrics.Path
	}

	if c.Cache.NoCacheTags != nil {
		tags := c.Cache.NoCacheTags[:0]
		seen := map[string]struct{}{}
		for _, raw := range c.Cache.NoCacheTags {
			tag := strings.ToLower(strings.TrimSpace(raw))
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
		c.Cache.NoCacheTags = tags
	}
}

func (c *Config) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if c.EnableTLS {
		if c.TLSCert == "" || c.TLSKey == "" {
			return fmt.Errorf("tls enabled but certificates missing")
		}
	}
	if c.Cache.MaxTemplateLength < 0 {
		return fmt.Errorf("negative cache.maxTemplateLength")
	}
	for _, tag := range c.Cache.NoCacheTags {
		for _, r := range tag {
			if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == ':') {
				return fmt.Errorf("invalid tag name %q in cache.noCacheTags", tag)
			}
		}
	}
	if c.Metrics.Enabled && strings.HasPrefix(c.Metrics.Path, "/api/") {
		return fmt.Errorf("metrics path %q collides with the API", c.Metrics.Path)
	}
	return nil
}
