package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/goplus/modbuilder/internal/builddir"
	"github.com/goplus/modbuilder/internal/env"
	"github.com/goplus/modbuilder/internal/pipeline"
	"github.com/goplus/modbuilder/internal/reconcile"
)

// Exit codes.
const (
	exitOK            = 0
	exitFailure       = 1
	exitConfiguration = 2
	exitFilesystem    = 3
	exitBuild         = 4
	exitEnvironment   = 5
)

// Execute runs the root command and returns the process exit code.
// This is called by main.main().
func Execute() int {
	cmd := newRootCmd()
	err := cmd.ExecuteContext(context.Background())
	if err != nil {
		printError(cmd.ErrOrStderr(), err)
	}
	return exitCode(err)
}

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, color.Red.Sprint("error:"), err)
}

// exitCode maps an error to the process exit code. A failing build step
// passes its own exit code through.
func exitCode(err error) int {
	var bf *pipeline.BuildFailure
	var fsErr *builddir.FilesystemError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &bf):
		if bf.ExitCode > 0 {
			return bf.ExitCode
		}
		return exitBuild
	case errors.As(err, &fsErr):
		return exitFilesystem
	case errors.Is(err, reconcile.ErrMissingConfiguration), errors.Is(err, reconcile.ErrInvalidConfiguration):
		return exitConfiguration
	case errors.Is(err, env.ErrEnvironmentUnavailable):
		return exitEnvironment
	default:
		return exitFailure
	}
}

func newRootCmd() *cobra.Command {
	flags := &buildFlags{}
	cmd := &cobra.Command{
		Use:   "modbuilder",
		Short: "modbuilder builds native engine extension modules",
		Long: `modbuilder configures and compiles a native extension module against an
already-built host engine. Settings are kept in config.ini between runs; the
optimize level and optional libraries follow the host engine build.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, flags)
		},
	}
	flags.register(cmd)
	cmd.SetIn(os.Stdin)
	return cmd
}
