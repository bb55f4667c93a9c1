package internal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goplus/modbuilder/internal/builddir"
	"github.com/goplus/modbuilder/internal/config"
	"github.com/goplus/modbuilder/internal/env"
	"github.com/goplus/modbuilder/internal/pipeline"
	"github.com/goplus/modbuilder/internal/reconcile"
	"github.com/goplus/modbuilder/pkgs/buildsys"
	"github.com/goplus/modbuilder/pkgs/buildsys/cmake"
)

type exitError int

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }
func (e exitError) ExitCode() int { return int(e) }

type cliRun struct {
	src    string
	cmds   []*cmake.Command
	errs   []error
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func newCLIRun(t *testing.T) *cliRun {
	t.Helper()
	r := &cliRun{src: t.TempDir()}
	saved := newBuildSystem
	t.Cleanup(func() { newBuildSystem = saved })
	newBuildSystem = func(sourceDir, buildDir string, stdout, stderr io.Writer) buildsys.BuildSystem {
		c := cmake.New(sourceDir, buildDir)
		c.SetRunner(cmake.RunnerFunc(func(_ context.Context, cmd *cmake.Command) error {
			r.cmds = append(r.cmds, cmd)
			if len(r.cmds) <= len(r.errs) {
				return r.errs[len(r.cmds)-1]
			}
			return nil
		}))
		return c
	}
	t.Setenv(env.EngineDirEnv, "")
	return r
}

func (r *cliRun) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(r.src, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func (r *cliRun) execute(stdin string, args ...string) (int, error) {
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--source", r.src}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&r.stdout)
	cmd.SetErr(&r.stderr)
	err := cmd.ExecuteContext(context.Background())
	return exitCode(err), err
}

func TestRunBuild_FirstRun(t *testing.T) {
	r := newCLIRun(t)
	facts := r.writeFile(t, "host.yaml", "optimize: 1\nlibraries: []\n")

	code, err := r.execute("mymodule\n", "--host-facts", facts)
	if code != 0 {
		t.Fatalf("exit code = %d, err = %v, stderr = %s", code, err, r.stderr.String())
	}

	if !strings.Contains(r.stdout.String(), "Enter a module name: ") {
		t.Errorf("no prompt in output: %q", r.stdout.String())
	}
	if !strings.Contains(r.stdout.String(), "Success!") {
		t.Errorf("no success message in output: %q", r.stdout.String())
	}
	c, err := config.Load(filepath.Join(r.src, config.DefaultFile))
	if err != nil {
		t.Fatal(err)
	}
	got := c.Map()
	if len(got) != 2 || got["module_name"] != "mymodule" || got["optimize"] != "1" {
		t.Errorf("persisted config = %v", got)
	}
	if info, err := os.Stat(filepath.Join(r.src, "build")); err != nil || !info.IsDir() {
		t.Errorf("build dir not created: %v", err)
	}
	if len(r.cmds) != 2 {
		t.Fatalf("ran %d commands, want 2", len(r.cmds))
	}
}

func TestRunBuild_NoInput(t *testing.T) {
	r := newCLIRun(t)
	facts := r.writeFile(t, "host.yaml", "optimize: 1\n")

	code, err := r.execute("", "--no-input", "--host-facts", facts)

	if code != exitConfiguration || !errors.Is(err, reconcile.ErrMissingConfiguration) {
		t.Fatalf("exit code = %d, err = %v", code, err)
	}
	if len(r.cmds) != 0 {
		t.Errorf("ran %d commands, want 0", len(r.cmds))
	}
	if strings.Contains(r.stdout.String(), "Success!") {
		t.Error("success printed for a failed build")
	}
}

func TestRunBuild_EmptyStdin(t *testing.T) {
	r := newCLIRun(t)
	facts := r.writeFile(t, "host.yaml", "optimize: 1\n")

	code, _ := r.execute("", "--host-facts", facts)
	if code != exitConfiguration {
		t.Errorf("exit code = %d, want %d", code, exitConfiguration)
	}
}

func TestRunBuild_OptimizeOverride(t *testing.T) {
	r := newCLIRun(t)
	r.writeFile(t, config.DefaultFile, "module_name = demo\noptimize = 1\n")
	facts := r.writeFile(t, "host.yaml", "optimize: 3\n")

	code, err := r.execute("", "--optimize", "2", "--host-facts", facts, "-j", "4")
	if code != 0 {
		t.Fatalf("exit code = %d, err = %v", code, err)
	}
	args := strings.Join(r.cmds[0].Args, " ")
	if !strings.Contains(args, "-DOPTIMIZE:STRING=2") {
		t.Errorf("configure args = %s", args)
	}
	if got := strings.Join(r.cmds[1].Args, " "); !strings.HasSuffix(got, "--parallel 4") {
		t.Errorf("compile args = %s", got)
	}
}

func TestRunBuild_StoredOptimizeWithoutEngine(t *testing.T) {
	r := newCLIRun(t)
	r.writeFile(t, config.DefaultFile, "module_name = demo\noptimize = 4\n")

	code, err := r.execute("")
	if code != 0 {
		t.Fatalf("exit code = %d, err = %v", code, err)
	}
	if !strings.Contains(strings.Join(r.cmds[0].Args, " "), "-DOPTIMIZE:STRING=4") {
		t.Errorf("configure args = %v", r.cmds[0].Args)
	}
}

func TestRunBuild_PropagatesToolExitCode(t *testing.T) {
	r := newCLIRun(t)
	r.writeFile(t, config.DefaultFile, "module_name = demo\noptimize = 2\n")
	r.errs = []error{exitError(7)}

	code, err := r.execute("")

	var bf *pipeline.BuildFailure
	if !errors.As(err, &bf) || bf.Step != pipeline.StepConfigure {
		t.Fatalf("err = %v, want configure failure", err)
	}
	if code != 7 {
		t.Errorf("exit code = %d, want 7", code)
	}
	if len(r.cmds) != 1 {
		t.Errorf("ran %d commands, want 1", len(r.cmds))
	}
}

func TestRunBuild_MissingNamedEngine(t *testing.T) {
	r := newCLIRun(t)
	r.writeFile(t, config.DefaultFile, "module_name = demo\noptimize = 2\n")

	for _, args := range [][]string{
		{"--host-facts", filepath.Join(r.src, "missing.yaml")},
		{"--engine", filepath.Join(r.src, "no-engine")},
	} {
		code, err := r.execute("", args...)
		if code != exitEnvironment || !errors.Is(err, env.ErrEnvironmentUnavailable) {
			t.Errorf("%v: exit code = %d, err = %v", args, code, err)
		}
	}
	if len(r.cmds) != 0 {
		t.Errorf("ran %d commands, want 0", len(r.cmds))
	}
}

func TestRunBuild_RejectsArgs(t *testing.T) {
	r := newCLIRun(t)
	if code, _ := r.execute("", "extra"); code != exitFailure {
		t.Errorf("exit code = %d, want %d", code, exitFailure)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{errors.New("boom"), exitFailure},
		{&reconcile.MissingConfigurationError{Key: "module_name"}, exitConfiguration},
		{fmt.Errorf("wrapped: %w", &reconcile.ConfigurationError{Key: "optimize", Err: errors.New("bad")}), exitConfiguration},
		{&builddir.FilesystemError{Op: "create", Path: "build", Err: os.ErrPermission}, exitFilesystem},
		{&pipeline.BuildFailure{Step: pipeline.StepCompile, ExitCode: 2}, 2},
		{&pipeline.BuildFailure{Step: pipeline.StepConfigure, ExitCode: pipeline.NoExitCode}, exitBuild},
		{fmt.Errorf("%w: no facts", env.ErrEnvironmentUnavailable), exitEnvironment},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestPromptModuleName(t *testing.T) {
	var out bytes.Buffer
	name, err := promptModuleName(strings.NewReader("demo"), &out)(context.Background())
	if err != nil || name != "demo" {
		t.Errorf("name = %q, err = %v", name, err)
	}
	if out.String() != "Enter a module name: " {
		t.Errorf("prompt = %q", out.String())
	}
	if _, err := promptModuleName(strings.NewReader(""), io.Discard)(context.Background()); err == nil {
		t.Error("expected error on empty input")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("warn", "text", &buf)
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("log output = %q", buf.String())
	}

	buf.Reset()
	newLogger("bogus", "json", &buf).Info("hello")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("json output = %q", buf.String())
	}
}
