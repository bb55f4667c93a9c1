// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package build runs one module build from the persisted configuration to
// the compiled output.
package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/goplus/modbuilder/internal/builddir"
	"github.com/goplus/modbuilder/internal/config"
	"github.com/goplus/modbuilder/internal/ctxlog"
	"github.com/goplus/modbuilder/internal/env"
	"github.com/goplus/modbuilder/internal/migrate"
	"github.com/goplus/modbuilder/internal/pipeline"
	"github.com/goplus/modbuilder/internal/reconcile"
	"github.com/goplus/modbuilder/pkgs/buildsys"
)

// Options describe one build invocation.
type Options struct {
	ConfigPath string
	SourceDir  string
	BuildDir   string

	Args  reconcile.Args
	Probe env.Probe

	// System is the build driver. It must already point at SourceDir and
	// BuildDir.
	System buildsys.BuildSystem

	// Now stamps successful builds; defaults to time.Now.
	Now func() time.Time
}

// Builder runs the build state machine. A Builder is single use.
type Builder struct {
	state   State
	request *reconcile.Request
}

func NewBuilder() *Builder {
	return &Builder{}
}

// State returns the stage reached by the last Run.
func (b *Builder) State() State {
	return b.state
}

// Request returns the reconciled request, or nil if reconciliation did not
// complete.
func (b *Builder) Request() *reconcile.Request {
	return b.request
}

// Run loads and migrates the configuration, reconciles it with the host
// engine, persists it, prepares the build directory and runs the pipeline.
// The first failing stage ends the run.
func (b *Builder) Run(ctx context.Context, opts Options) (err error) {
	if b.state != Idle {
		return errors.New("build: builder already used")
	}
	log := ctxlog.FromContext(ctx)
	defer func() {
		if err != nil {
			log.Debug("build failed", "state", b.state, "err", err)
			b.state = Failed
		}
	}()
	if opts.System == nil {
		return errors.New("build: no build system")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	b.advance(ctx, ConfigLoaded)

	migrate.Migrate(ctx, cfg)
	req, err := reconcile.Reconcile(ctx, cfg, opts.Args, opts.Probe)
	if err != nil {
		return err
	}
	b.request = req
	b.advance(ctx, ConfigReconciled)

	if err := config.Save(opts.ConfigPath, cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	if req.Clean() {
		if err := builddir.CheckClean(opts.BuildDir, opts.SourceDir, filepath.Dir(opts.ConfigPath)); err != nil {
			return err
		}
	} else {
		checkStamp(ctx, opts.BuildDir, req)
	}
	if err := builddir.Prepare(opts.BuildDir, req.Clean()); err != nil {
		return err
	}
	b.advance(ctx, DirectoryPrepared)

	p := pipeline.New(opts.System)
	if err := p.Configure(ctx, req); err != nil {
		return err
	}
	b.advance(ctx, Configured)

	if err := p.Compile(ctx, req); err != nil {
		return err
	}
	b.advance(ctx, Compiled)

	if err := saveStamp(opts.BuildDir, newStamp(req, now())); err != nil {
		log.Warn("failed to write build stamp", "err", err)
	}
	log.Info("build finished", "module", req.ModuleName(), "output", opts.System.OutputDir())
	return nil
}

func (b *Builder) advance(ctx context.Context, s State) {
	ctxlog.FromContext(ctx).Debug("build state", "from", b.state, "to", s)
	b.state = s
}

// checkStamp reports settings that changed since the last build in dir.
func checkStamp(ctx context.Context, dir string, req *reconcile.Request) {
	log := ctxlog.FromContext(ctx)
	stamp, err := loadStamp(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Debug("ignoring unreadable build stamp", "err", err)
		}
		return
	}
	if changed := stamp.changes(req); len(changed) > 0 {
		log.Info("settings changed since the last build, cmake will reconfigure",
			"changed", changed, "last_build", stamp.BuildTime.Format(time.RFC3339))
	}
}
