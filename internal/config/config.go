// Package config handles layered YAML configuration with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/smileynet/addrbook/internal/logging"
)

// Config holds all addrbook configuration.
type Config struct {
	API    API    `yaml:"api"`
	UI     UI     `yaml:"ui"`
	Log    Log    `yaml:"log"`
	Server Server `yaml:"server"`
}

// API holds backend connection settings.
type API struct {
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	ListAttempts int           `yaml:"list_attempts"` // Tries per list call; saves are never retried.
}

// UI holds terminal view timings.
type UI struct {
	Highlight time.Duration `yaml:"highlight"` // How long invalid fields stay flagged.
	Notice    time.Duration `yaml:"notice"`    // How long error notices stay visible.
}

// Log holds logger settings.
type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // Empty: stderr for commands, discarded for the TUI.
}

// Server holds reference backend settings.
type Server struct {
	Addr     string `yaml:"addr"`
	DataFile string `yaml:"data_file"` // Empty keeps contacts in memory only.
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		API: API{
			BaseURL:      "http://localhost:8080",
			Timeout:      10 * time.Second,
			ListAttempts: 3,
		},
		UI: UI{
			Highlight: 1500 * time.Millisecond,
			Notice:    4 * time.Second,
		},
		Log: Log{
			Level: "info",
		},
		Server: Server{
			Addr: ":8080",
		},
	}
}

// Load reads a single YAML config file at path and returns a Config.
// For merging multiple config sources, use LoadLayered instead.
// If the file does not exist, defaults are returned without error.
// If the file contains invalid YAML or unknown fields, an error is returned.
func Load(path string) (*Config, error) {
	return LoadLayered(path)
}

// LoadLayered loads config from multiple paths with increasing priority.
// Later paths override earlier ones. Missing files and empty paths are skipped.
func LoadLayered(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		layer, err := loadLayer(path)
		if err != nil {
			return nil, err
		}
		if layer == nil {
			continue
		}
		cfg.merge(layer)
	}

	return &cfg, nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("config: api.base_url cannot be empty")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("config: api.timeout must be positive, got %v", c.API.Timeout)
	}
	if c.API.ListAttempts < 1 {
		return fmt.Errorf("config: api.list_attempts must be at least 1, got %d", c.API.ListAttempts)
	}
	if c.UI.Highlight <= 0 {
		return fmt.Errorf("config: ui.highlight must be positive, got %v", c.UI.Highlight)
	}
	if c.UI.Notice <= 0 {
		return fmt.Errorf("config: ui.notice must be positive, got %v", c.UI.Notice)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	if c.Server.Addr == "" {
		return errors.New("config: server.addr cannot be empty")
	}
	return nil
}

// ApplyEnv applies environment variable overrides to the config.
// Supported variables: ADDRBOOK_API_URL, ADDRBOOK_TIMEOUT, ADDRBOOK_LIST_ATTEMPTS,
// ADDRBOOK_LOG_LEVEL, ADDRBOOK_LOG_FILE, ADDRBOOK_SERVER_ADDR, ADDRBOOK_DATA_FILE.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("ADDRBOOK_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("ADDRBOOK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid ADDRBOOK_TIMEOUT %q: %w", v, err)
		}
		c.API.Timeout = d
	}
	if v := os.Getenv("ADDRBOOK_LIST_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid ADDRBOOK_LIST_ATTEMPTS %q: %w", v, err)
		}
		c.API.ListAttempts = n
	}
	if v := os.Getenv("ADDRBOOK_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("ADDRBOOK_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("ADDRBOOK_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("ADDRBOOK_DATA_FILE"); v != "" {
		c.Server.DataFile = v
	}
	return nil
}

// rawConfig mirrors Config but uses pointers to distinguish set vs unset fields.
type rawConfig struct {
	API    *rawAPI    `yaml:"api"`
	UI     *rawUI     `yaml:"ui"`
	Log    *rawLog    `yaml:"log"`
	Server *rawServer `yaml:"server"`
}

type rawAPI struct {
	BaseURL      *string        `yaml:"base_url"`
	Timeout      *time.Duration `yaml:"timeout"`
	ListAttempts *int           `yaml:"list_attempts"`
}

type rawUI struct {
	Highlight *time.Duration `yaml:"highlight"`
	Notice    *time.Duration `yaml:"notice"`
}

type rawLog struct {
	Level *string `yaml:"level"`
	File  *string `yaml:"file"`
}

type rawServer struct {
	Addr     *string `yaml:"addr"`
	DataFile *string `yaml:"data_file"`
}

// loadLayer reads a single config file into a rawConfig for selective merging.
// Returns nil if the file does not exist. Rejects unknown fields.
func loadLayer(path string) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		// Comment-only YAML files produce EOF with no decoded content.
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &raw, nil
}

// merge applies non-nil fields from a rawConfig layer onto this Config.
func (c *Config) merge(layer *rawConfig) {
	if layer.API != nil {
		setIf(&c.API.BaseURL, layer.API.BaseURL)
		setIf(&c.API.Timeout, layer.API.Timeout)
		setIf(&c.API.ListAttempts, layer.API.ListAttempts)
	}
	if layer.UI != nil {
		setIf(&c.UI.Highlight, layer.UI.Highlight)
		setIf(&c.UI.Notice, layer.UI.Notice)
	}
	if layer.Log != nil {
		setIf(&c.Log.Level, layer.Log.Level)
		setIf(&c.Log.File, layer.Log.File)
	}
	if layer.Server != nil {
		setIf(&c.Server.Addr, layer.Server.Addr)
		setIf(&c.Server.DataFile, layer.Server.DataFile)
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
