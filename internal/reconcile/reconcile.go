// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package reconcile merges persisted settings, command line overrides and
// host engine facts into the Request that drives a build.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/goplus/modbuilder/internal/config"
	"github.com/goplus/modbuilder/internal/ctxlog"
	"github.com/goplus/modbuilder/internal/env"
)

// Optimize levels accepted by the engine build system.
const (
	MinOptimize = 1
	MaxOptimize = 4
)

// MinEngineVersion is the oldest host engine modules can be built against.
const MinEngineVersion = "v1.10.0"

// DefaultBuildType is used when build_type is not configured.
const DefaultBuildType = "Release"

// ModuleNameResolver asks the user for a module name. It is supplied by the
// front end; Reconcile never performs I/O on its own.
type ModuleNameResolver func(ctx context.Context) (string, error)

// Args are the per-invocation inputs.
type Args struct {
	// Optimize overrides the optimize level when non-nil.
	Optimize *int
	Clean    bool
	Jobs     int

	// EngineDir is the host engine root, passed on to the build.
	EngineDir string

	// RequireEnvironment makes an unavailable host engine fatal. It is set
	// when the user named the engine explicitly.
	RequireEnvironment bool

	// ResolveModuleName is consulted when module_name is missing. A nil
	// resolver makes a missing name fatal.
	ResolveModuleName ModuleNameResolver
}

// Reconcile derives the Request for one build. Newly resolved values are
// written back into cfg so the caller can persist them; cfg is not saved
// here.
func Reconcile(ctx context.Context, cfg *config.Config, args Args, probe env.Probe) (*Request, error) {
	if probe == nil {
		probe = env.Unavailable{}
	}
	log := ctxlog.FromContext(ctx)

	name, err := resolveModuleName(ctx, cfg, args.ResolveModuleName)
	if err != nil {
		return nil, err
	}

	if args.Jobs < 0 {
		return nil, &ConfigurationError{Key: "jobs", Value: strconv.Itoa(args.Jobs), Err: errors.New("must not be negative")}
	}

	level, source, conflict, err := resolveOptimize(ctx, cfg, args.Optimize, probe, args.RequireEnvironment)
	if err != nil {
		return nil, err
	}

	libs, err := probe.DetectOptionalLibraries()
	if err != nil {
		if !errors.Is(err, env.ErrEnvironmentUnavailable) {
			return nil, err
		}
		log.Debug("optional libraries not detected", "err", err)
		libs = nil
	}

	version, err := engineVersion(probe)
	if err != nil {
		return nil, err
	}

	cfg.Set(config.KeyModuleName, name)
	cfg.Set(config.KeyOptimize, strconv.Itoa(level))

	req := &Request{
		moduleName:     name,
		optimize:       level,
		optimizeSource: source,
		clean:          args.Clean,
		jobs:           args.Jobs,
		libraries:      libs,
		engineDir:      args.EngineDir,
		engineVersion:  version,
		generator:      strings.TrimSpace(cfg.Get(config.KeyGenerator)),
		buildType:      strings.TrimSpace(cfg.Get(config.KeyBuildType)),
		settings:       cfg.Map(),
	}
	if req.buildType == "" {
		req.buildType = DefaultBuildType
	}
	if conflict != nil {
		req.conflicts = []Conflict{*conflict}
	}
	log.Debug("configuration reconciled",
		"module", name, "optimize", level, "source", source, "libraries", libs, "engine", version)
	return req, nil
}

func resolveModuleName(ctx context.Context, cfg *config.Config, resolve ModuleNameResolver) (string, error) {
	name := strings.TrimSpace(cfg.Get(config.KeyModuleName))
	if name != "" {
		return name, nil
	}
	if resolve == nil {
		return "", &MissingConfigurationError{Key: config.KeyModuleName, Reason: "not set and no interactive input available"}
	}
	v, err := resolve(ctx)
	if err != nil {
		return "", &MissingConfigurationError{Key: config.KeyModuleName, Reason: err.Error()}
	}
	name = strings.TrimSpace(v)
	if name == "" {
		return "", &MissingConfigurationError{Key: config.KeyModuleName, Reason: "empty module name"}
	}
	return name, nil
}

// resolveOptimize picks the optimize level: command line, then host engine,
// then the stored value. A stored value that disagrees with the host engine
// is reported as a conflict and replaced.
func resolveOptimize(ctx context.Context, cfg *config.Config, override *int, probe env.Probe, required bool) (int, Source, *Conflict, error) {
	log := ctxlog.FromContext(ctx)

	stored, hasStored, err := cfg.Int(config.KeyOptimize)
	if err != nil {
		// A malformed stored value is legacy input; drop it.
		log.Warn("ignoring malformed stored optimize level", "value", cfg.Get(config.KeyOptimize))
		hasStored = false
	}

	detected, hasDetected, err := probe.DetectOptimizeLevel()
	if err != nil {
		if !errors.Is(err, env.ErrEnvironmentUnavailable) || required {
			return 0, "", nil, err
		}
		log.Debug("host optimize level not detected", "err", err)
		hasDetected = false
	}

	var (
		level    int
		source   Source
		conflict *Conflict
	)
	switch {
	case override != nil:
		level, source = *override, SourceCLI
		if hasDetected && detected != level {
			log.Warn("optimize override does not match the host engine build",
				"override", level, "engine", detected)
		}
	case hasDetected:
		level, source = detected, SourceEnvironment
		if hasStored && stored != detected {
			conflict = &Conflict{
				Key:       config.KeyOptimize,
				Persisted: strconv.Itoa(stored),
				Detected:  strconv.Itoa(detected),
			}
			log.Warn("stored optimize level differs from the host engine, using the engine's",
				"stored", stored, "engine", detected)
		}
	case hasStored:
		level, source = stored, SourceConfig
	default:
		return 0, "", nil, &MissingConfigurationError{
			Key:    config.KeyOptimize,
			Reason: "not given on the command line, not detected from the host engine and not stored",
		}
	}

	if level < MinOptimize || level > MaxOptimize {
		return 0, "", nil, &ConfigurationError{
			Key:   config.KeyOptimize,
			Value: strconv.Itoa(level),
			Err:   fmt.Errorf("must be between %d and %d (from %s)", MinOptimize, MaxOptimize, source),
		}
	}
	return level, source, conflict, nil
}

func engineVersion(probe env.Probe) (string, error) {
	version, err := probe.DetectVersion()
	if err != nil {
		if errors.Is(err, env.ErrEnvironmentUnavailable) {
			return "", nil
		}
		return "", err
	}
	if version == "" {
		return "", nil
	}
	v := version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return version, nil
	}
	if semver.Compare(v, MinEngineVersion) < 0 {
		return "", &ConfigurationError{
			Key:   "engine_version",
			Value: version,
			Err:   fmt.Errorf("host engine is older than %s", strings.TrimPrefix(MinEngineVersion, "v")),
		}
	}
	return version, nil
}
