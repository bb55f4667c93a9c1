// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline runs the configure and compile steps of a module build.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goplus/modbuilder/internal/ctxlog"
	"github.com/goplus/modbuilder/internal/reconcile"
	"github.com/goplus/modbuilder/pkgs/buildsys"
)

// Step names a pipeline stage.
type Step string

const (
	StepConfigure Step = "configure"
	StepCompile   Step = "compile"
)

// NoExitCode is reported when a step failed without a process exit status,
// e.g. because the tool could not be started.
const NoExitCode = -1

// BuildFailure reports a failed step. No later step runs after it.
type BuildFailure struct {
	Step     Step
	ExitCode int
	Err      error
}

func (e *BuildFailure) Error() string {
	if e.ExitCode == NoExitCode {
		return fmt.Sprintf("%s step failed: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("%s step failed with exit code %d", e.Step, e.ExitCode)
}

func (e *BuildFailure) Unwrap() error { return e.Err }

// Pipeline drives a BuildSystem through configure then compile.
type Pipeline struct {
	sys        buildsys.BuildSystem
	configured bool
}

// New returns a Pipeline running on sys.
func New(sys buildsys.BuildSystem) *Pipeline {
	return &Pipeline{sys: sys}
}

// Configure hands the reconciled settings to the build system and runs its
// configure step.
func (p *Pipeline) Configure(ctx context.Context, req *reconcile.Request) error {
	log := ctxlog.FromContext(ctx)

	if dir := req.EngineDir(); dir != "" {
		p.sys.Use(dir)
		p.sys.Define("ENGINE_ROOT", dir)
	}
	if g := req.Generator(); g != "" {
		p.sys.Generator(g)
	}
	p.sys.BuildType(req.BuildType())
	p.sys.Define("MODULE_NAME", req.ModuleName())
	p.sys.Define("OPTIMIZE", strconv.Itoa(req.Optimize()))
	for _, lib := range req.Libraries() {
		p.sys.DefineBool("HAVE_LIB_"+strings.ToUpper(lib), true)
	}
	if v := req.EngineVersion(); v != "" {
		p.sys.Define("ENGINE_VERSION", v)
	}

	log.Info("configuring", "module", req.ModuleName(), "optimize", req.Optimize())
	if err := p.sys.Configure(ctx); err != nil {
		return failure(StepConfigure, err)
	}
	p.configured = true
	return nil
}

// Compile runs the build step. It refuses to run unless Configure succeeded.
func (p *Pipeline) Compile(ctx context.Context, req *reconcile.Request) error {
	if !p.configured {
		return &BuildFailure{Step: StepCompile, ExitCode: NoExitCode, Err: errors.New("configure step has not succeeded")}
	}
	var args []string
	if n := req.Jobs(); n > 0 {
		args = append(args, "--parallel", strconv.Itoa(n))
	}
	ctxlog.FromContext(ctx).Info("compiling", "module", req.ModuleName(), "dir", p.sys.OutputDir())
	if err := p.sys.Build(ctx, args...); err != nil {
		return failure(StepCompile, err)
	}
	return nil
}

// Run performs Configure then Compile, stopping at the first failure.
func (p *Pipeline) Run(ctx context.Context, req *reconcile.Request) error {
	if err := p.Configure(ctx, req); err != nil {
		return err
	}
	return p.Compile(ctx, req)
}

func failure(step Step, err error) *BuildFailure {
	code := NoExitCode
	var ec buildsys.ExitCoder
	if errors.As(err, &ec) {
		code = ec.ExitCode()
	}
	return &BuildFailure{Step: step, ExitCode: code, Err: err}
}
