package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rshade/carbonfocus/internal/logging"
)

// EnvHome overrides the configuration directory.
const EnvHome = "CARBONFOCUS_HOME"

// EnvProjectDir points at a project directory holding an overlay config.yaml.
const EnvProjectDir = "CARBONFOCUS_PROJECT_DIR"

// GetConfigDir returns the carbonfocus configuration directory
// ($CARBONFOCUS_HOME or ~/.carbonfocus).
func GetConfigDir() (string, error) {
	if home := os.Getenv(EnvHome); home != "" {
		return home, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".carbonfocus"), nil
}

// DefaultConfigPath returns the global config file path.
func DefaultConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, defaultConfigFileName), nil
}

// EnsureLogDir creates the parent directory of the configured log file.
func EnsureLogDir(cfg *Config) error {
	if cfg == nil || cfg.Logging.File == "" {
		return nil
	}
	logDir := filepath.Dir(cfg.Logging.File)
	if err := os.MkdirAll(logDir, 0o700); err != nil {
		return fmt.Errorf("failed to create log directory %q: %w", logDir, err)
	}
	return nil
}

// Resolve builds the effective configuration: defaults, then the file at
// path (or the default global path when empty), then the project overlay in
// $CARBONFOCUS_PROJECT_DIR/config.yaml, then environment variables.
func Resolve(ctx context.Context, path string) (*Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if projectDir := os.Getenv(EnvProjectDir); projectDir != "" {
		overlayPath := filepath.Join(projectDir, defaultConfigFileName)
		if _, statErr := os.Stat(overlayPath); statErr == nil {
			// Sections are replaced wholesale, so a shallow copy isolates a failed merge.
			merged := *cfg
			if mergeErr := ShallowMergeYAML(&merged, overlayPath); mergeErr == nil {
				cfg = &merged
			} else {
				logger := logging.FromContext(ctx)
				logger.Warn().
					Str("component", "config").
					Str("operation", "merge_project_config").
					Err(mergeErr).
					Str("overlay_path", overlayPath).
					Msg("failed to merge project config, using global config")
			}
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
