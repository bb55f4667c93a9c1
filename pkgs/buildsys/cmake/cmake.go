// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cmake drives the cmake configure/build workflow.
package cmake

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sys/execabs"

	"github.com/goplus/modbuilder/pkgs/buildsys"
)

type defineValue struct {
	value    string
	typeName string
}

// Command is one fully assembled tool invocation.
type Command struct {
	Name   string
	Args   []string
	Env    []string // nil inherits the current environment
	Stdout io.Writer
	Stderr io.Writer
}

// Runner executes a Command and blocks until it exits.
type Runner interface {
	Run(ctx context.Context, cmd *Command) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, cmd *Command) error

func (f RunnerFunc) Run(ctx context.Context, cmd *Command) error { return f(ctx, cmd) }

type execRunner struct{}

func (execRunner) Run(ctx context.Context, c *Command) error {
	cmd := execabs.CommandContext(ctx, c.Name, c.Args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	cmd.Env = c.Env
	return cmd.Run()
}

// CMake collects cmake settings and runs the configure and build steps.
type CMake struct {
	sourceDir string
	buildDir  string
	generator string
	buildType string
	defines   map[string]defineValue
	env       map[string]string

	stdout io.Writer
	stderr io.Writer
	runner Runner
}

var _ buildsys.BuildSystem = (*CMake)(nil)

// New returns a CMake building sourceDir into buildDir. Tool output goes to
// the process's stdout and stderr.
func New(sourceDir, buildDir string) *CMake {
	return &CMake{
		sourceDir: sourceDir,
		buildDir:  buildDir,
		defines:   make(map[string]defineValue),
		env:       make(map[string]string),
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		runner:    execRunner{},
	}
}

// SetOutput redirects the tool's stdout and stderr.
func (c *CMake) SetOutput(stdout, stderr io.Writer) {
	c.stdout, c.stderr = stdout, stderr
}

// SetRunner replaces the process runner.
func (c *CMake) SetRunner(r Runner) {
	c.runner = r
}

// Generator sets the CMake generator (e.g. "Ninja", "Unix Makefiles").
func (c *CMake) Generator(name string) { c.generator = name }

// BuildType sets CMAKE_BUILD_TYPE and the multi-config --config value.
func (c *CMake) BuildType(name string) { c.buildType = name }

// Define adds a -D<key>:STRING=<value> definition.
func (c *CMake) Define(key, value string) {
	c.defines[key] = defineValue{value: value, typeName: "STRING"}
}

// DefineBool adds a -D<key>:BOOL=ON/OFF definition.
func (c *CMake) DefineBool(key string, value bool) {
	v := "OFF"
	if value {
		v = "ON"
	}
	c.defines[key] = defineValue{value: v, typeName: "BOOL"}
}

// Env sets an environment variable for cmake and the compilers it spawns.
func (c *CMake) Env(key, value string) {
	c.env[key] = value
}

// Use makes headers, libraries and pkg-config files of the SDK installed at
// root visible to cmake and the compilers.
func (c *CMake) Use(root string) {
	includeDir := filepath.Join(root, "include")
	libDir := filepath.Join(root, "lib")
	pkgconfigDir := filepath.Join(libDir, "pkgconfig")

	if isDir(pkgconfigDir) {
		c.prependPath("PKG_CONFIG_PATH", pkgconfigDir)
	}
	c.prependPath("CMAKE_PREFIX_PATH", root)
	if isDir(includeDir) {
		c.prependPath("CMAKE_INCLUDE_PATH", includeDir)
	}
	if isDir(libDir) {
		c.prependPath("CMAKE_LIBRARY_PATH", libDir)
	}

	if runtime.GOOS == "windows" {
		if isDir(includeDir) {
			c.prependPath("INCLUDE", includeDir)
		}
		if isDir(libDir) {
			c.prependPath("LIB", libDir)
		}
	} else {
		if isDir(includeDir) {
			c.appendFlag("CPPFLAGS", "-I"+includeDir)
		}
		if isDir(libDir) {
			c.appendFlag("LDFLAGS", "-L"+libDir)
		}
	}
}

// Configure runs "cmake -S <source> -B <build>" with all collected settings.
// Extra args are appended at the end.
func (c *CMake) Configure(ctx context.Context, args ...string) error {
	cmakeArgs := []string{"-S", c.sourceDir, "-B", c.buildDir}
	if c.generator != "" {
		cmakeArgs = append(cmakeArgs, "-G", c.generator)
	}
	cmakeArgs = append(cmakeArgs, c.definesArgs()...)
	cmakeArgs = append(cmakeArgs, args...)
	return c.run(ctx, cmakeArgs)
}

// Build runs "cmake --build <build>" with optional extra arguments.
func (c *CMake) Build(ctx context.Context, args ...string) error {
	cmakeArgs := []string{"--build", c.buildDir}
	if c.buildType != "" {
		cmakeArgs = append(cmakeArgs, "--config", c.buildType)
	}
	cmakeArgs = append(cmakeArgs, args...)
	return c.run(ctx, cmakeArgs)
}

// OutputDir returns the build directory.
func (c *CMake) OutputDir() string {
	return c.buildDir
}

func (c *CMake) run(ctx context.Context, args []string) error {
	cmd := &Command{
		Name:   "cmake",
		Args:   args,
		Stdout: c.stdout,
		Stderr: c.stderr,
	}
	if len(c.env) > 0 {
		cmd.Env = mergeEnv(os.Environ(), c.env)
	}
	return c.runner.Run(ctx, cmd)
}

func (c *CMake) definesArgs() []string {
	defines := c.defines
	if c.buildType != "" {
		defines = make(map[string]defineValue, len(c.defines)+1)
		for k, v := range c.defines {
			defines[k] = v
		}
		defines["CMAKE_BUILD_TYPE"] = defineValue{value: c.buildType, typeName: "STRING"}
	}
	if len(defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(defines))
	for k := range defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		d := defines[k]
		args = append(args, "-D"+k+":"+d.typeName+"="+d.value)
	}
	return args
}

func mergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}

// lookup returns a pending override, falling back to the process environment.
func (c *CMake) lookup(key string) string {
	if v, ok := c.env[key]; ok {
		return v
	}
	return os.Getenv(key)
}

// prependPath prepends value to a PATH-style variable.
func (c *CMake) prependPath(key, value string) {
	if cur := c.lookup(key); cur != "" {
		value += string(os.PathListSeparator) + cur
	}
	c.env[key] = value
}

// appendFlag appends a space-separated flag to a variable.
func (c *CMake) appendFlag(key, flag string) {
	if cur := c.lookup(key); cur != "" {
		flag = strings.TrimSpace(cur + " " + flag)
	}
	c.env[key] = flag
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
