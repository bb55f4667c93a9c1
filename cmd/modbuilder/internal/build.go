package internal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/goplus/modbuilder/internal/build"
	"github.com/goplus/modbuilder/internal/config"
	"github.com/goplus/modbuilder/internal/ctxlog"
	"github.com/goplus/modbuilder/internal/env"
	"github.com/goplus/modbuilder/internal/reconcile"
	"github.com/goplus/modbuilder/pkgs/buildsys"
	"github.com/goplus/modbuilder/pkgs/buildsys/cmake"
)

type buildFlags struct {
	optimize  int
	clean     bool
	config    string
	source    string
	buildDir  string
	engine    string
	hostFacts string
	jobs      int
	quiet     bool
	noInput   bool
	logLevel  string
	logFormat string
}

func (f *buildFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVar(&f.optimize, "optimize", 0, "Optimize level, should match the one used for the host engine build")
	fs.BoolVar(&f.clean, "clean", false, "Force a clean rebuild")
	fs.StringVarP(&f.config, "config", "c", "", "Configuration file (default <source>/config.ini)")
	fs.StringVarP(&f.source, "source", "s", ".", "Module source directory")
	fs.StringVarP(&f.buildDir, "build-dir", "b", "", "Build directory (default <source>/build)")
	fs.StringVar(&f.engine, "engine", "", "Host engine SDK root (default $"+env.EngineDirEnv+")")
	fs.StringVar(&f.hostFacts, "host-facts", "", "YAML file pinning host engine facts instead of reading its headers")
	fs.IntVarP(&f.jobs, "jobs", "j", 0, "Parallel compile jobs (0 lets the build tool decide)")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "Hide configure and compile output")
	fs.BoolVar(&f.noInput, "no-input", false, "Never prompt; fail when module_name is not configured")
	fs.StringVar(&f.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.logFormat, "log-format", "text", "Log format (text, json)")
}

// newBuildSystem creates the build driver for a source and build directory.
var newBuildSystem = func(sourceDir, buildDir string, stdout, stderr io.Writer) buildsys.BuildSystem {
	c := cmake.New(sourceDir, buildDir)
	c.SetOutput(stdout, stderr)
	return c
}

func runBuild(cmd *cobra.Command, flags *buildFlags) error {
	logger := newLogger(flags.logLevel, flags.logFormat, cmd.ErrOrStderr())
	ctx := ctxlog.WithLogger(cmd.Context(), logger)

	sourceDir, err := filepath.Abs(flags.source)
	if err != nil {
		return fmt.Errorf("failed to resolve source dir: %w", err)
	}
	configPath := flags.config
	if configPath == "" {
		configPath = filepath.Join(sourceDir, config.DefaultFile)
	}
	buildDir := flags.buildDir
	if buildDir == "" {
		buildDir = filepath.Join(sourceDir, "build")
	}
	if buildDir, err = filepath.Abs(buildDir); err != nil {
		return fmt.Errorf("failed to resolve build dir: %w", err)
	}

	engineDir := flags.engine
	if engineDir == "" {
		engineDir = env.EngineDir()
	}
	var probe env.Probe
	if flags.hostFacts != "" {
		probe = env.NewManifestProbe(flags.hostFacts)
	} else {
		probe = env.NewHeaderProbe(engineDir)
	}

	args := reconcile.Args{
		Clean:              flags.clean,
		Jobs:               flags.jobs,
		EngineDir:          engineDir,
		RequireEnvironment: flags.engine != "" || flags.hostFacts != "",
	}
	if cmd.Flags().Changed("optimize") {
		args.Optimize = &flags.optimize
	}
	if !flags.noInput {
		args.ResolveModuleName = promptModuleName(cmd.InOrStdin(), cmd.OutOrStdout())
	}

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	if flags.quiet {
		stdout, stderr = io.Discard, io.Discard
	}

	b := build.NewBuilder()
	err = b.Run(ctx, build.Options{
		ConfigPath: configPath,
		SourceDir:  sourceDir,
		BuildDir:   buildDir,
		Args:       args,
		Probe:      probe,
		System:     newBuildSystem(sourceDir, buildDir, stdout, stderr),
	})
	if err != nil {
		logger.Debug("build stopped", "state", b.State())
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), color.Green.Sprint("Success!"))
	return nil
}

// promptModuleName asks for the module name on in.
func promptModuleName(in io.Reader, out io.Writer) reconcile.ModuleNameResolver {
	return func(ctx context.Context) (string, error) {
		fmt.Fprint(out, "Enter a module name: ")
		line, err := bufio.NewReader(in).ReadString('\n')
		if errors.Is(err, io.EOF) {
			if line == "" {
				return "", errors.New("no input")
			}
			err = nil
		}
		return line, err
	}
}
