package main

import (
	"fmt"
	"os"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
)

func newClearCachesCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-caches",
		Short: "Delete the per-user cache directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClearCaches(flags)
		},
	}
}

// runClearCaches takes an exclusive lock on a sibling "<cache-dir>.lock"
// file before removing and recreating the cache directory, so concurrent
// clear-caches runs do not interleave. No other command takes this lock.
func runClearCaches(flags *globalFlags) error {
	cacheDir := flags.cacheDir
	if cacheDir == "" {
		return fmt.Errorf("no cache directory configured")
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return fmt.Errorf("preparing cache directory: %w", err)
	}
	lockPath := cacheDir + ".lock"
	lock := flock.New(lockPath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking cache directory: %w", err)
	}
	defer lock.Unlock()

	if err := os.RemoveAll(cacheDir); err != nil {
		return fmt.Errorf("clearing cache directory: %w", err)
	}
	return os.MkdirAll(cacheDir, 0o755)
}
