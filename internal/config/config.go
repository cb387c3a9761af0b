// Package config loads dapseq settings from defaults and an optional file.
//
// The file format follows the extension: .yaml/.yml, .toml or .hcl. Every
// key is optional; keys left out keep their defaults. Unknown keys are an
// error so typos do not silently fall back to defaults.
//
//	cache:
//	  dir: /var/cache/dapseq
//	  max_bytes: 16777216
//	  lock_timeout: 10m
//	  extension: .dods
//	store:
//	  path: /var/lib/dapseq/ledger.db
//	log:
//	  level: info
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"gopkg.in/yaml.v3"
)

// Config is the resolved configuration.
type Config struct {
	Cache CacheConfig
	Store StoreConfig
	Log   LogConfig
}

// CacheConfig maps onto cache.Config.
type CacheConfig struct {
	Dir         string
	MaxBytes    int64
	LockTimeout time.Duration
	Extension   string
}

// StoreConfig locates the ledger database. An empty Path disables the ledger.
type StoreConfig struct {
	Path string
}

// LogConfig selects the log level: debug, info, warn or error.
type LogConfig struct {
	Level string
}

// Default returns the built-in configuration: compute-only cache, no ledger,
// info logging.
func Default() Config {
	return Config{
		Cache: CacheConfig{
			MaxBytes:    16 << 20,
			LockTimeout: 10 * time.Minute,
			Extension:   ".dods",
		},
		Log: LogConfig{Level: "info"},
	}
}

// SlogLevel parses Level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Cache.MaxBytes < 0 {
		errs = append(errs, fmt.Errorf("cache.max_bytes must not be negative, got %d", c.Cache.MaxBytes))
	}
	if c.Cache.LockTimeout <= 0 {
		errs = append(errs, fmt.Errorf("cache.lock_timeout must be positive, got %s", c.Cache.LockTimeout))
	}
	if ext := c.Cache.Extension; len(ext) < 2 || !strings.HasPrefix(ext, ".") || strings.ContainsAny(ext, `/\`) {
		errs = append(errs, fmt.Errorf("cache.extension %q must be '.' plus a name with no path separators", ext))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// fileConfig mirrors the file layout. Pointer fields distinguish "absent"
// from zero values.
type fileConfig struct {
	Cache *fileCache `yaml:"cache" toml:"cache" hcl:"cache,block"`
	Store *fileStore `yaml:"store" toml:"store" hcl:"store,block"`
	Log   *fileLog   `yaml:"log" toml:"log" hcl:"log,block"`
}

type fileCache struct {
	Dir         *string `yaml:"dir" toml:"dir" hcl:"dir,optional"`
	MaxBytes    *int64  `yaml:"max_bytes" toml:"max_bytes" hcl:"max_bytes,optional"`
	LockTimeout *string `yaml:"lock_timeout" toml:"lock_timeout" hcl:"lock_timeout,optional"`
	Extension   *string `yaml:"extension" toml:"extension" hcl:"extension,optional"`
}

type fileStore struct {
	Path *string `yaml:"path" toml:"path" hcl:"path,optional"`
}

type fileLog struct {
	Level *string `yaml:"level" toml:"level" hcl:"level,optional"`
}

// Load returns Default overlaid with the file at path. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := decodeFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := raw.applyTo(&cfg); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func decodeFile(path string) (fileConfig, error) {
	var raw fileConfig

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return raw, err
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return raw, err
		}
	case ".toml":
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return raw, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return raw, fmt.Errorf("unknown key %q", undecoded[0].String())
		}
	case ".hcl":
		if err := hclsimple.DecodeFile(path, nil, &raw); err != nil {
			return raw, err
		}
	default:
		return raw, fmt.Errorf("unsupported config format %q (want .yaml, .yml, .toml or .hcl)", ext)
	}
	return raw, nil
}

func (f fileConfig) applyTo(cfg *Config) error {
	if c := f.Cache; c != nil {
		if c.Dir != nil {
			cfg.Cache.Dir = strings.TrimSpace(*c.Dir)
		}
		if c.MaxBytes != nil {
			cfg.Cache.MaxBytes = *c.MaxBytes
		}
		if c.LockTimeout != nil {
			d, err := time.ParseDuration(strings.TrimSpace(*c.LockTimeout))
			if err != nil {
				return fmt.Errorf("parse cache.lock_timeout: %w", err)
			}
			cfg.Cache.LockTimeout = d
		}
		if c.Extension != nil {
			cfg.Cache.Extension = strings.TrimSpace(*c.Extension)
		}
	}
	if s := f.Store; s != nil && s.Path != nil {
		cfg.Store.Path = strings.TrimSpace(*s.Path)
	}
	if l := f.Log; l != nil && l.Level != nil {
		cfg.Log.Level = strings.TrimSpace(*l.Level)
	}
	return nil
}
