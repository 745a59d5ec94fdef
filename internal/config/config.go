package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Load when a field is left empty.
const (
	DefaultBaseURL      = "https://api.curseforge.com"
	DefaultKeyEnv       = "CURSEFORGE_API_KEY"
	DefaultMaxRedirects = 10
	DefaultPageSize     = 50
)

// Config mirrors the YAML schema. Minimal validation occurs in Validate().
type Config struct {
	Version     int         `yaml:"version"`
	General     General     `yaml:"general"`
	API         API         `yaml:"api"`
	Network     Network     `yaml:"network"`
	Validation  Validation  `yaml:"validation"`
	Concurrency Concurrency `yaml:"concurrency"`
	Logging     Logging     `yaml:"logging,omitempty"`
	Metrics     Metrics     `yaml:"metrics,omitempty"`
}

type General struct {
	DataRoot     string `yaml:"data_root"`
	DownloadRoot string `yaml:"download_root"`
	// Layout places files under download_root, e.g. "{game_id}/{mod_id}".
	Layout string `yaml:"layout,omitempty"`
	// StagePartials writes in-flight bytes to <dest>.part and renames on success.
	StagePartials *bool `yaml:"stage_partials,omitempty"`
}

type API struct {
	BaseURL  string `yaml:"base_url,omitempty"`
	Key      string `yaml:"key,omitempty"`
	KeyEnv   string `yaml:"key_env"`
	PageSize int    `yaml:"page_size,omitempty"`
}

type Network struct {
	TimeoutSeconds    int    `yaml:"timeout_seconds,omitempty"`
	MaxRedirects      int    `yaml:"max_redirects"`
	UserAgent         string `yaml:"user_agent,omitempty"`
	MaxBytesPerSecond int64  `yaml:"max_bytes_per_second,omitempty"`
}

type Validation struct {
	VerifyDownloads *bool `yaml:"verify_downloads"`
	// SinglePass hashes while writing instead of re-reading the file afterwards.
	SinglePass bool `yaml:"single_pass"`
}

type Concurrency struct {
	DependencyWorkers int `yaml:"dependency_workers"`
}

type Logging struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // human|json
}

type Metrics struct {
	PrometheusTextfile PromTextfile `yaml:"prometheus_textfile"`
}

type PromTextfile struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads, parses, expands, and validates a YAML config file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	expanded, err := expandTilde(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(expanded)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	// Expand ${ENV} placeholders before unmarshalling
	b = []byte(os.ExpandEnv(string(b)))
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	if err := c.expandPaths(); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns an in-memory config rooted at dir, for library use without a YAML file.
func Default(dir string) *Config {
	c := &Config{Version: 1}
	c.General.DataRoot = filepath.Join(dir, "data")
	c.General.DownloadRoot = filepath.Join(dir, "downloads")
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.KeyEnv == "" {
		c.API.KeyEnv = DefaultKeyEnv
	}
	if c.API.PageSize == 0 {
		c.API.PageSize = DefaultPageSize
	}
	if c.Network.MaxRedirects == 0 {
		c.Network.MaxRedirects = DefaultMaxRedirects
	}
	if c.Concurrency.DependencyWorkers == 0 {
		c.Concurrency.DependencyWorkers = 1
	}
}

func (c *Config) expandPaths() error {
	var err error
	if c.General.DataRoot, err = expandTilde(c.General.DataRoot); err != nil {
		return err
	}
	if c.General.DownloadRoot, err = expandTilde(c.General.DownloadRoot); err != nil {
		return err
	}
	if c.Metrics.PrometheusTextfile.Path, err = expandTilde(c.Metrics.PrometheusTextfile.Path); err != nil {
		return err
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported config version: %d", c.Version)
	}
	if c.General.DataRoot == "" {
		return errors.New("general.data_root is required")
	}
	if c.General.DownloadRoot == "" {
		return errors.New("general.download_root is required")
	}
	if u, err := url.Parse(c.API.BaseURL); err != nil || !u.IsAbs() {
		return fmt.Errorf("api.base_url must be an absolute URL: %q", c.API.BaseURL)
	}
	if c.API.PageSize < 1 || c.API.PageSize > DefaultPageSize {
		return fmt.Errorf("api.page_size must be between 1 and %d", DefaultPageSize)
	}
	if c.Network.MaxRedirects < 0 {
		return errors.New("network.max_redirects must be >= 0")
	}
	if c.Network.TimeoutSeconds < 0 {
		return errors.New("network.timeout_seconds must be >= 0")
	}
	if c.Network.MaxBytesPerSecond < 0 {
		return errors.New("network.max_bytes_per_second must be >= 0")
	}
	if c.Concurrency.DependencyWorkers < 1 {
		return errors.New("concurrency.dependency_workers must be >= 1")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level invalid: %s", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "human", "json":
	default:
		return fmt.Errorf("logging.format invalid: %s", c.Logging.Format)
	}
	if c.Metrics.PrometheusTextfile.Enabled && c.Metrics.PrometheusTextfile.Path == "" {
		return errors.New("metrics.prometheus_textfile.path is required when enabled")
	}
	return nil
}

// APIKey returns the literal key when set, otherwise the value of api.key_env.
func (c *Config) APIKey() string {
	if k := strings.TrimSpace(c.API.Key); k != "" {
		return k
	}
	return strings.TrimSpace(os.Getenv(c.API.KeyEnv))
}

// StagePartials defaults to true.
func (c *Config) StagePartials() bool {
	return c.General.StagePartials == nil || *c.General.StagePartials
}

// VerifyDownloads defaults to true.
func (c *Config) VerifyDownloads() bool {
	return c.Validation.VerifyDownloads == nil || *c.Validation.VerifyDownloads
}

func expandTilde(p string) (string, error) {
	if p == "" || p[0] != '~' {
		return p, nil
	}
	h, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if p == "~" {
		return h, nil
	}
	return filepath.Join(h, p[2:]), nil
}

// EnsureDir creates path if it does not exist.
func EnsureDir(path string, perm fs.FileMode) error {
	if path == "" {
		return nil
	}
	return os.MkdirAll(path, perm)
}
