package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces the environment variables read by Load,
// e.g. COORDD_SERVER_ADDR.
const EnvPrefix = "COORDD"

// envOverrides are the settings the daemon accepts from the environment.
// Each field maps onto one config key; values set in the environment win
// over the file.
type envOverrides struct {
	ServerAddr      string `envconfig:"SERVER_ADDR"`
	LogLevel        string `envconfig:"LOG_LEVEL"`
	EventsRetry     *bool  `envconfig:"EVENTS_RETRY"`
	JournalPath     string `envconfig:"EVENTS_JOURNAL_PATH"`
	ValidationCache *bool  `envconfig:"VALIDATION_CACHE"`
	CacheTTL        string `envconfig:"VALIDATION_CACHE_TTL"`
	CacheDir        string `envconfig:"VALIDATION_CACHE_DIR"`
	LookupTimeout   string `envconfig:"RELATIONSHIPS_LOOKUP_TIMEOUT"`
}

// Load builds the daemon configuration from an optional file plus COORDD_*
// environment overrides. An empty path loads from the environment alone.
func Load(path string) (Config, error) {
	cfg := New(nil)
	if path != "" {
		loaded, err := FromFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}

	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}
	env.apply(cfg)
	return cfg, nil
}

func (e envOverrides) apply(cfg Config) {
	strs := map[string]string{
		"server.addr":                  e.ServerAddr,
		"log.level":                    e.LogLevel,
		"events.journal_path":          e.JournalPath,
		"validation.cache_ttl":         e.CacheTTL,
		"validation.cache_dir":         e.CacheDir,
		"relationships.lookup_timeout": e.LookupTimeout,
	}
	for key, val := range strs {
		if val != "" {
			cfg.data[key] = val
		}
	}
	if e.EventsRetry != nil {
		cfg.data["events.retry"] = *e.EventsRetry
	}
	if e.ValidationCache != nil {
		cfg.data["validation.cache"] = *e.ValidationCache
	}
}

// FromFile loads a config file, picking the parser from the extension
// (.yaml, .yml or .json).
func FromFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FromYAML(raw)
	case ".json":
		return FromJSON(raw)
	default:
		return Config{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}
}

// FromYAML parses YAML data into a Config.
func FromYAML(raw []byte) (Config, error) {
	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	return New(m), nil
}

// FromJSON parses JSON data into a Config.
func FromJSON(raw []byte) (Config, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return Config{}, fmt.Errorf("parse json: %w", err)
	}
	return New(m), nil
}
