// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reconcile

import (
	"maps"
	"slices"
)

// Source tells where the effective optimize level came from.
type Source string

const (
	SourceCLI         Source = "cli"
	SourceEnvironment Source = "environment"
	SourceConfig      Source = "config"
)

// Request is the reconciled parameter set of one build. It is built by
// Reconcile and never changes afterwards; accessors hand out copies.
type Request struct {
	moduleName     string
	optimize       int
	optimizeSource Source
	clean          bool
	jobs           int
	libraries      []string
	engineDir      string
	engineVersion  string
	generator      string
	buildType      string
	settings       map[string]string
	conflicts      []Conflict
}

func (r *Request) ModuleName() string     { return r.moduleName }
func (r *Request) Optimize() int          { return r.optimize }
func (r *Request) OptimizeSource() Source { return r.optimizeSource }

// Clean reports whether the build directory is to be wiped first.
func (r *Request) Clean() bool { return r.clean }

// Jobs is the compile parallelism; 0 leaves it to the build tool.
func (r *Request) Jobs() int { return r.jobs }

// Libraries returns the optional engine libraries to build against.
func (r *Request) Libraries() []string { return slices.Clone(r.libraries) }

func (r *Request) EngineDir() string     { return r.engineDir }
func (r *Request) EngineVersion() string { return r.engineVersion }
func (r *Request) Generator() string     { return r.generator }
func (r *Request) BuildType() string     { return r.buildType }

// Settings returns the reconciled key set.
func (r *Request) Settings() map[string]string { return maps.Clone(r.settings) }

// Conflicts returns the persisted values overridden by the host engine.
func (r *Request) Conflicts() []Conflict { return slices.Clone(r.conflicts) }
