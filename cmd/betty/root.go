package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/betty-gen/betty/internal/config"
	"github.com/betty-gen/betty/internal/logger"
	"github.com/betty-gen/betty/internal/project"
)

type globalFlags struct {
	configuration string
	cacheDir      string
	debug         bool
}

// RootCmd builds the betty root command and every subcommand.
func RootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "betty",
		Short: "Betty builds and serves static ancestry sites",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupGlobalContext(cmd, flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.configuration, "configuration", "", "path to the project configuration file (default: ./betty.(json|yaml|yml))")
	root.PersistentFlags().StringVar(&flags.cacheDir, "cache-dir", defaultCacheDir(), "per-user cache directory")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newGenerateCommand(flags),
		newServeCommand(flags),
		newClearCachesCommand(flags),
		newDemoCommand(flags),
	)
	return root
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".betty"
	}
	return filepath.Join(home, ".betty")
}

// setupGlobalContext loads an optional .env file and attaches a logger to
// the command context, mirroring the teacher's PersistentPreRunE pattern.
func setupGlobalContext(cmd *cobra.Command, flags *globalFlags) error {
	_ = godotenv.Load() // a missing .env is not an error; it is optional.

	level := logger.InfoLevel
	if flags.debug {
		level = logger.DebugLevel
	}
	log := logger.NewLogger(&logger.Config{Level: level, Output: os.Stderr})
	cmd.SetContext(logger.ContextWithLogger(cmd.Context(), log))
	return nil
}

// resolveConfigPath applies spec.md §6's "--configuration PATH, absence
// looks for ./betty.(json|yaml|yml)" rule.
func resolveConfigPath(flags *globalFlags) (string, error) {
	if flags.configuration != "" {
		return flags.configuration, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return config.FindProjectFile(wd)
}

func loadProjectConfig(flags *globalFlags) (*config.ProjectConfig, error) {
	path, err := resolveConfigPath(flags)
	if err != nil {
		return nil, fmt.Errorf("locating project configuration: %w", err)
	}
	return config.LoadProjectConfig(path)
}

// loadAndBootstrap loads the project configuration addressed by flags,
// builds a project rooted at outputDir (or a sibling "output" directory of
// the configuration file when outputDir is empty), and bootstraps it.
func loadAndBootstrap(ctx context.Context, flags *globalFlags, outputDir string) (*project.Project, error) {
	cfg, err := loadProjectConfig(flags)
	if err != nil {
		return nil, err
	}
	if outputDir == "" {
		outputDir = filepath.Join(filepath.Dir(cfg.FilePath), "output")
	}
	proj := project.New(cfg, nil, outputDir)
	if err := proj.Bootstrap(ctx); err != nil {
		return nil, err
	}
	return proj, nil
}
