// Package config provides loading and parsing of threatscore.yaml configuration files.
// The configuration names the reference dataset sources, the optional profile cache
// and logging settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up when a directory is given.
const FileName = "threatscore.yaml"

// Config represents a threatscore.yaml configuration file.
type Config struct {
	// DataDir is prepended to every relative dataset path.
	DataDir string `yaml:"data_dir,omitempty"`

	Datasets Datasets       `yaml:"datasets"`
	Cache    *CacheConfig   `yaml:"cache,omitempty"`
	Logging  *LoggingConfig `yaml:"logging,omitempty"`
}

// Datasets lists the source file of every reference table.
// An empty path means the dataset is not configured and loads as an empty table.
type Datasets struct {
	// Attack is the ATT&CK STIX bundle (enterprise-attack.json).
	Attack string `yaml:"attack"`

	// Aliases is the threat actor alias table (name, aliases, first_seen, last_seen).
	Aliases string `yaml:"aliases,omitempty"`

	// Controls is the NIST 800-53 to ATT&CK mapping CSV.
	Controls string `yaml:"controls"`

	// CVEMapping is the CVE to ATT&CK mapping CSV.
	CVEMapping string `yaml:"cve_mapping"`

	// CVEDetails is the CVE detail workbook (.xlsx or .csv) with CVSS and CWE columns.
	CVEDetails string `yaml:"cve_details"`

	// Weaknesses is the CWE catalogue CSV with potential mitigations.
	Weaknesses string `yaml:"weaknesses,omitempty"`

	// VERISMapping is the VERIS to ATT&CK mapping CSV.
	VERISMapping string `yaml:"veris_mapping"`

	// VERISImpact is the per-attack-type severity table.
	VERISImpact string `yaml:"veris_impact"`

	// Complexity is the technique complexity score CSV.
	Complexity string `yaml:"complexity"`

	// Incidents is the processed incident log CSV.
	Incidents string `yaml:"incidents"`
}

// CacheConfig configures the optional Redis profile cache.
type CacheConfig struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379").
	URL string `yaml:"url"`

	// TTL is how long cached profiles stay valid.
	// Format: Go duration string (e.g., "1h")
	// Default: 1h
	TTL string `yaml:"ttl,omitempty"`

	// KeyPrefix prefixes every cache key.
	// Default: "threatscore"
	KeyPrefix string `yaml:"key_prefix,omitempty"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // text or json
}

// GetTTL parses the cache TTL and returns a duration.
// Returns the default value if not set or invalid.
func (c *CacheConfig) GetTTL() time.Duration {
	if c == nil || c.TTL == "" {
		return time.Hour
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// GetKeyPrefix returns the key prefix or the default value.
func (c *CacheConfig) GetKeyPrefix() string {
	if c == nil || c.KeyPrefix == "" {
		return "threatscore"
	}
	return c.KeyPrefix
}

// Enabled reports whether a cache URL is configured.
func (c *CacheConfig) Enabled() bool {
	return c != nil && c.URL != ""
}

// GetLevel returns the log level or "info".
func (l *LoggingConfig) GetLevel() string {
	if l == nil || l.Level == "" {
		return "info"
	}
	return strings.ToLower(l.Level)
}

// GetFormat returns the log format or "text".
func (l *LoggingConfig) GetFormat() string {
	if l == nil || l.Format == "" {
		return "text"
	}
	return strings.ToLower(l.Format)
}

// Resolved returns a copy of the dataset paths with DataDir applied to relative paths.
func (c *Config) Resolved() Datasets {
	d := c.Datasets
	join := func(p string) string {
		if p == "" || c.DataDir == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(c.DataDir, p)
	}
	d.Attack = join(d.Attack)
	d.Aliases = join(d.Aliases)
	d.Controls = join(d.Controls)
	d.CVEMapping = join(d.CVEMapping)
	d.CVEDetails = join(d.CVEDetails)
	d.Weaknesses = join(d.Weaknesses)
	d.VERISMapping = join(d.VERISMapping)
	d.VERISImpact = join(d.VERISImpact)
	d.Complexity = join(d.Complexity)
	d.Incidents = join(d.Incidents)
	return d
}

// Validate checks the configuration for values that cannot be used.
func (c *Config) Validate() error {
	if c.Cache != nil && c.Cache.TTL != "" {
		if _, err := time.ParseDuration(c.Cache.TTL); err != nil {
			return fmt.Errorf("invalid cache ttl %q: %w", c.Cache.TTL, err)
		}
	}
	if c.Logging != nil {
		switch c.Logging.GetLevel() {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("invalid log level %q", c.Logging.Level)
		}
		switch c.Logging.GetFormat() {
		case "text", "json":
		default:
			return fmt.Errorf("invalid log format %q", c.Logging.Format)
		}
	}
	return nil
}

// Load reads and parses a configuration file from the given path.
// If the path is a directory, it looks for threatscore.yaml or threatscore.yml in it.
// A relative DataDir is resolved against the directory holding the file.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	configPath := path
	if info.IsDir() {
		yamlPath := filepath.Join(path, FileName)
		ymlPath := strings.TrimSuffix(yamlPath, ".yaml") + ".yml"
		switch {
		case fileExists(yamlPath):
			configPath = yamlPath
		case fileExists(ymlPath):
			configPath = ymlPath
		default:
			return nil, fmt.Errorf("no %s found in %s", FileName, path)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.DataDir != "" && !filepath.IsAbs(config.DataDir) {
		config.DataDir = filepath.Join(filepath.Dir(configPath), config.DataDir)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFromDir searches for threatscore.yaml starting from the given directory
// and walking up to parent directories until found or root is reached.
func LoadFromDir(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	for {
		if fileExists(filepath.Join(absDir, FileName)) || fileExists(filepath.Join(absDir, "threatscore.yml")) {
			return Load(absDir)
		}

		parent := filepath.Dir(absDir)
		if parent == absDir {
			return nil, fmt.Errorf("no %s found in %s or parent directories", FileName, dir)
		}
		absDir = parent
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
