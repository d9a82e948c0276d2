package main

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/betty-gen/betty/internal/jobctx"
	"github.com/betty-gen/betty/internal/pipeline"
	"github.com/betty-gen/betty/internal/project"
	"github.com/betty-gen/betty/internal/serve"
	"github.com/betty-gen/betty/internal/worker"

	_ "github.com/betty-gen/betty/internal/builtinext"
)

func newDemoCommand(flags *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Generate and serve a built-in demonstration project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8000", "address to listen on")
	return cmd
}

func runDemo(cmd *cobra.Command, addr string) error {
	ctx := cmd.Context()
	proj, err := project.NewTemporaryProject(ctx)
	if err != nil {
		return err
	}
	if err := proj.Bootstrap(ctx); err != nil {
		return err
	}
	defer proj.Shutdown(ctx)

	jc, err := jobctx.New()
	if err != nil {
		return err
	}
	defer jc.Close()

	pool := worker.New(runtime.GOMAXPROCS(0), 4, jc)
	if err := pipeline.Run(ctx, proj, pool, jc); err != nil {
		return err
	}

	srv := serve.New(addr, proj.OutputDir())
	return srv.ListenAndServe(ctx)
}
