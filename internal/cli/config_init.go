package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rshade/finplan/internal/config"
)

// NewConfigInitCmd creates the config init command for initializing configuration.
// Inside a project (a directory tree with .finplan/, or --project-dir) it
// writes the project-local .finplan/config.yaml and a .gitignore; otherwise,
// or with --global, it writes the global config file.
func NewConfigInitCmd() *cobra.Command {
	var (
		force  bool
		global bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file with default values",
		Long: `Creates a new configuration file with default values.

Inside a project, creates project-local configuration at
$PROJECT/.finplan/config.yaml with a .gitignore that keeps the cache out of
version control. Use --global to initialize the global configuration instead.`,
		Example: `  # Create project-local configuration
  finplan config init --project-dir .

  # Create global configuration
  finplan config init --global

  # Create configuration, overwriting existing
  finplan config init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectDir := sessionFrom(cmd.Context()).projectDir

			if projectDir != "" && !global {
				return initProjectConfig(cmd, projectDir, force)
			}
			return initGlobalConfig(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration file")
	cmd.Flags().BoolVar(&global, "global", false, "initialize the global configuration even inside a project")

	return cmd
}

// initProjectConfig creates project-local config at projectDir/config.yaml with .gitignore.
func initProjectConfig(cmd *cobra.Command, projectDir string, force bool) error {
	configPath := filepath.Join(projectDir, "config.yaml")
	if err := checkWritable(configPath, force); err != nil {
		return err
	}

	if err := os.MkdirAll(projectDir, 0o750); err != nil {
		return fmt.Errorf("failed to create project config directory: %w", err)
	}

	home, err := config.HomeDir()
	if err != nil {
		return err
	}
	cfg := config.Defaults(home)
	cfg.SetPath(configPath)
	if err = cfg.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	created, err := config.EnsureGitignore(projectDir)
	if err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}

	cmd.Printf("Configuration initialized at %s\n", configPath)
	if created {
		cmd.Printf("Created .gitignore to keep cache data out of version control\n")
	}
	return nil
}

// initGlobalConfig creates the global config file.
func initGlobalConfig(cmd *cobra.Command, force bool) error {
	home, err := config.HomeDir()
	if err != nil {
		return err
	}
	cfg := config.Defaults(home)
	if err = checkWritable(cfg.Path(), force); err != nil {
		return err
	}

	if err = cfg.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	cmd.Printf("Configuration initialized successfully\n")
	cmd.Printf("Configuration file: %s\n", cfg.Path())
	return nil
}

func checkWritable(path string, force bool) error {
	if force {
		return nil
	}
	_, err := os.Stat(path)
	if err == nil {
		return errors.New("configuration file already exists, use --force to overwrite")
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("cannot access config path %s: %w", path, err)
	}
	return nil
}
