// Command betty is the CLI entry point: a thin wrapper around
// internal/project, internal/pipeline, internal/worker, and internal/serve
// (spec.md §6).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/betty-gen/betty/internal/bettyerr"
)

func main() {
	ctx := context.Background()
	if err := RootCmd().ExecuteContext(ctx); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// printError honors spec.md §6's print policy: user-facing errors print
// their message only, everything else prints the full error chain.
func printError(err error) {
	if bettyerr.IsUserFacing(err) {
		fmt.Fprintln(os.Stderr, err.Error())
		return
	}
	fmt.Fprintf(os.Stderr, "betty: unexpected error: %+v\n", err)
}
