package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/carbonfocus/internal/config"
	"github.com/rshade/carbonfocus/internal/logging"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNew_DefaultsAreValid(t *testing.T) {
	cfg := config.New()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, config.DriverMemory, cfg.Store.Driver)
	assert.Equal(t, config.DefaultFactorTTLSeconds, cfg.Cache.FactorTTLSeconds)
	require.Len(t, cfg.Targets.Ambitions, 3)
	assert.Equal(t, "1.5c", cfg.Targets.Ambitions[0].Name)
	assert.InDelta(t, 4.2, cfg.Targets.Ambitions[0].Scope12Rate, 1e-12)
	assert.InDelta(t, 40.0, cfg.Targets.Scope3ThresholdPercent, 1e-12)
	assert.Contains(t, cfg.Quality.AuthoritativeSources, "ademe")
}

func TestLoad(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, config.New(), cfg)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		writeFile(t, path, "store:\n  driver: sqlite\n  dsn: /tmp/x.db\nbatch:\n  workers: 8\n  batch_size: 50\n")

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, config.DriverSQLite, cfg.Store.Driver)
		assert.Equal(t, 8, cfg.Batch.Workers)
		assert.Equal(t, "info", cfg.Logging.Level, "untouched sections keep defaults")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		writeFile(t, path, "store: [unterminated")
		_, err := config.Load(path)
		require.Error(t, err)
	})
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := config.New()
	cfg.Output.DefaultFormat = config.FormatJSON
	require.NoError(t, cfg.Save(path))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr error
	}{
		{"unknown driver", func(c *config.Config) { c.Store.Driver = "mysql" }, config.ErrUnknownDriver},
		{"sqlite without dsn", func(c *config.Config) { c.Store.Driver = config.DriverSQLite }, config.ErrDSNRequired},
		{"negative ttl", func(c *config.Config) { c.Cache.FactorTTLSeconds = -1 }, config.ErrInvalidCacheTTL},
		{"zero workers", func(c *config.Config) { c.Batch.Workers = 0 }, config.ErrInvalidWorkers},
		{"huge batch", func(c *config.Config) { c.Batch.BatchSize = 5000 }, config.ErrInvalidBatchSize},
		{"no ambitions", func(c *config.Config) { c.Targets.Ambitions = nil }, config.ErrNoAmbitions},
		{"bad rate", func(c *config.Config) { c.Targets.Ambitions[1].Scope3Rate = 0 }, config.ErrInvalidAmbitionRate},
		{"duplicate ambition", func(c *config.Config) {
			c.Targets.Ambitions = append(c.Targets.Ambitions, c.Targets.Ambitions[0])
		}, config.ErrDuplicateAmbition},
		{"threshold out of range", func(c *config.Config) { c.Targets.Scope3ThresholdPercent = 120 }, config.ErrInvalidThreshold},
		{"bad output", func(c *config.Config) { c.Output.DefaultFormat = "xml" }, config.ErrInvalidOutputFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CARBONFOCUS_LOG_LEVEL", "debug")
	t.Setenv("CARBONFOCUS_BATCH_WORKERS", "12")
	t.Setenv("CARBONFOCUS_AUTHORITATIVE_SOURCES", "ademe,defra")

	cfg := config.New()
	require.NoError(t, config.ApplyEnv(cfg))

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 12, cfg.Batch.Workers)
	assert.Equal(t, []string{"ademe", "defra"}, cfg.Quality.AuthoritativeSources)
	assert.Equal(t, config.DriverMemory, cfg.Store.Driver, "unset variables keep values")
}

func TestShallowMergeYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.yaml")
	writeFile(t, path, "quality:\n  authoritative_sources: [defra]\nunknown_key: 1\n")

	cfg := config.New()
	require.NoError(t, config.ShallowMergeYAML(cfg, path))

	assert.Equal(t, []string{"defra"}, cfg.Quality.AuthoritativeSources)
	assert.Nil(t, cfg.Quality.MeasurementSources, "section is replaced, not merged")
	assert.Equal(t, config.New().Batch, cfg.Batch)

	require.Error(t, config.ShallowMergeYAML(nil, path))
	require.Error(t, config.ShallowMergeYAML(cfg, filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestResolve(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	t.Setenv(config.EnvHome, home)
	t.Setenv(config.EnvProjectDir, project)
	t.Setenv("CARBONFOCUS_OUTPUT_FORMAT", "json")

	writeFile(t, filepath.Join(home, "config.yaml"), "batch:\n  workers: 2\n  batch_size: 10\n")
	writeFile(t, filepath.Join(project, "config.yaml"), "cache:\n  enabled: false\n")

	cfg, err := config.Resolve(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Batch.Workers)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, config.FormatJSON, cfg.Output.DefaultFormat)
}

func TestToLoggingConfig(t *testing.T) {
	lc := config.LoggingConfig{Level: "warn", Format: "json"}
	assert.Equal(t, logging.OutputStderr, lc.ToLoggingConfig().Output)

	lc.File = "/var/log/carbonfocus.log"
	got := lc.ToLoggingConfig()
	assert.Equal(t, logging.OutputFile, got.Output)
	assert.Equal(t, "/var/log/carbonfocus.log", got.File)
}

func TestEnsureLogDir(t *testing.T) {
	cfg := config.New()
	require.NoError(t, config.EnsureLogDir(cfg))

	cfg.Logging.File = filepath.Join(t.TempDir(), "a", "b", "log.txt")
	require.NoError(t, config.EnsureLogDir(cfg))
	assert.DirExists(t, filepath.Dir(cfg.Logging.File))
}
