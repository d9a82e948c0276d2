package main

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/betty-gen/betty/internal/jobctx"
	"github.com/betty-gen/betty/internal/pipeline"
	"github.com/betty-gen/betty/internal/worker"

	_ "github.com/betty-gen/betty/internal/builtinext"
)

func newGenerateCommand(flags *globalFlags) *cobra.Command {
	var outputDir string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build the site",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, flags, outputDir)
		},
	}
	cmd.Flags().StringVar(&outputDir, "output", "", "output directory (default: a sibling of the configuration file)")
	return cmd
}

func runGenerate(cmd *cobra.Command, flags *globalFlags, outputDir string) error {
	ctx := cmd.Context()
	proj, err := loadAndBootstrap(ctx, flags, outputDir)
	if err != nil {
		return err
	}
	defer proj.Shutdown(ctx)

	jc, err := jobctx.New()
	if err != nil {
		return err
	}
	defer jc.Close()

	pool := worker.New(runtime.GOMAXPROCS(0), 4, jc)
	return pipeline.Run(ctx, proj, pool, jc)
}
