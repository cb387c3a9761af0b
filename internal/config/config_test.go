package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Empty(t, cfg.Cache.Dir, "default cache is compute-only")
	assert.Equal(t, ".dods", cfg.Cache.Extension)
	assert.Equal(t, 10*time.Minute, cfg.Cache.LockTimeout)
}

func TestLoad_AllFormatsAgree(t *testing.T) {
	want := Config{
		Cache: CacheConfig{
			Dir:         "/var/cache/dapseq",
			MaxBytes:    1 << 20,
			LockTimeout: 30 * time.Second,
			Extension:   ".xdr",
		},
		Store: StoreConfig{Path: "/var/lib/dapseq/ledger.db"},
		Log:   LogConfig{Level: "debug"},
	}

	for _, name := range []string{"dapseq.yaml", "dapseq.toml", "dapseq.hcl"} {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(filepath.Join("testdata", name))
			require.NoError(t, err)
			assert.Equal(t, want, cfg)
		})
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"yaml", "partial.yml", "cache:\n  dir: /tmp/c\n"},
		{"toml", "partial.toml", "[cache]\ndir = \"/tmp/c\"\n"},
		{"hcl", "partial.hcl", "cache {\n  dir = \"/tmp/c\"\n}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.file, tt.body))
			require.NoError(t, err)

			want := Default()
			want.Cache.Dir = "/tmp/c"
			assert.Equal(t, want, cfg)
		})
	}
}

func TestLoad_EmptyYAMLFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"unknown yaml key", "c.yaml", "cache:\n  dri: /tmp\n", "dri"},
		{"unknown toml key", "c.toml", "[cache]\ndri = \"/tmp\"\n", "cache.dri"},
		{"unknown hcl attribute", "c.hcl", "cache {\n  dri = \"/tmp\"\n}\n", "dri"},
		{"bad duration", "c.yaml", "cache:\n  lock_timeout: soon\n", "lock_timeout"},
		{"zero timeout", "c.toml", "[cache]\nlock_timeout = \"0s\"\n", "cache.lock_timeout must be positive"},
		{"negative max bytes", "c.yaml", "cache:\n  max_bytes: -1\n", "cache.max_bytes must not be negative"},
		{"extension without dot", "c.yaml", "cache:\n  extension: dods\n", "cache.extension"},
		{"empty extension", "c.yaml", "cache:\n  extension: \"\"\n", "cache.extension"},
		{"bare dot extension", "c.toml", "[cache]\nextension = \".\"\n", "cache.extension"},
		{"bad log level", "c.yaml", "log:\n  level: chatty\n", "log.level"},
		{"unsupported format", "c.json", "{}", "unsupported config format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLogConfig_SlogLevel(t *testing.T) {
	for level, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := LogConfig{Level: level}.SlogLevel()
		require.NoError(t, err, level)
		assert.Equal(t, want, got, level)
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Cache.MaxBytes = -5
	cfg.Cache.LockTimeout = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_bytes")
	assert.Contains(t, err.Error(), "lock_timeout")
}
