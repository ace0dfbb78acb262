package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rshade/finplan/internal/logging"
)

// ResolveProjectDir determines the project-local .finplan directory path.
// It checks (in order):
//  1. flagValue (--project-dir CLI flag)
//  2. FINPLAN_PROJECT_DIR env var
//  3. the nearest ancestor of startDir containing a .finplan directory
//
// Returns an absolute path, or "" when no project is found. It never
// creates the directory.
func ResolveProjectDir(ctx context.Context, flagValue, startDir string) string {
	if flagValue != "" {
		return toAbsProjectDir(ctx, flagValue)
	}

	if envDir := os.Getenv(EnvProjectDir); envDir != "" {
		return toAbsProjectDir(ctx, envDir)
	}

	if startDir == "" {
		return ""
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}
	home, _ := HomeDir()
	for {
		candidate := filepath.Join(dir, dirName)
		if info, statErr := os.Stat(candidate); statErr == nil && info.IsDir() && candidate != home {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// NewWithProjectDir creates a Config by loading global config then
// shallow-merging project-local config on top. If projectDir is empty,
// behaves identically to New(). Environment overrides still win.
func NewWithProjectDir(ctx context.Context, projectDir string) *Config {
	cfg := New()

	if projectDir == "" {
		return cfg
	}

	overlayPath := filepath.Join(projectDir, configFileName)
	if _, err := os.Stat(overlayPath); err != nil {
		return cfg
	}

	merged := New()
	if err := ShallowMergeYAML(merged, overlayPath); err != nil {
		logger := logging.FromContext(ctx)
		logger.Warn().
			Str("component", "config").
			Str("operation", "merge_project_config").
			Err(err).
			Str("overlay_path", overlayPath).
			Msg("failed to merge project config, using global defaults")
		return cfg
	}
	merged.applyEnvOverrides()
	return merged
}

// toAbsProjectDir converts dir to an absolute path and appends ".finplan"
// unless it already ends with it.
func toAbsProjectDir(ctx context.Context, dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		logger := logging.FromContext(ctx)
		logger.Warn().
			Str("component", "config").
			Err(err).
			Str("dir", dir).
			Msg("failed to resolve absolute path for project directory")
		abs = dir
	}

	if filepath.Base(abs) == dirName {
		return abs
	}
	return filepath.Join(abs, dirName)
}
