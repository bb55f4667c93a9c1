// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package env reports facts about the already-built host engine that a
// module must agree with: its optimize level, the optional libraries it was
// compiled with and its version.
package env

import (
	"errors"
	"os"
	"slices"
)

// EngineDirEnv names the environment variable holding the host engine root.
const EngineDirEnv = "ENGINE_ROOT"

// ErrEnvironmentUnavailable is returned when the host engine cannot be
// located or inspected.
var ErrEnvironmentUnavailable = errors.New("host environment unavailable")

// Probe answers read-only questions about the host engine build.
type Probe interface {
	// DetectOptimizeLevel returns the engine's optimize level. ok is false
	// when the engine does not record one.
	DetectOptimizeLevel() (level int, ok bool, err error)

	// DetectOptionalLibraries returns the optional libraries the engine was
	// built with, sorted.
	DetectOptionalLibraries() ([]string, error)

	// DetectVersion returns the engine version ("1.10.13"), or "" if unknown.
	DetectVersion() (string, error)
}

// Facts is a static snapshot of the host engine. It implements Probe.
type Facts struct {
	Optimize  int      `yaml:"optimize"`
	Libraries []string `yaml:"libraries"`
	Version   string   `yaml:"version"`
}

var _ Probe = (*Facts)(nil)

func (f *Facts) DetectOptimizeLevel() (int, bool, error) {
	return f.Optimize, f.Optimize != 0, nil
}

func (f *Facts) DetectOptionalLibraries() ([]string, error) {
	libs := slices.Clone(f.Libraries)
	slices.Sort(libs)
	return slices.Compact(libs), nil
}

func (f *Facts) DetectVersion() (string, error) {
	return f.Version, nil
}

// Unavailable is a Probe for a host engine that could not be found.
type Unavailable struct {
	Err error
}

func (u Unavailable) err() error {
	if u.Err != nil {
		return u.Err
	}
	return ErrEnvironmentUnavailable
}

func (u Unavailable) DetectOptimizeLevel() (int, bool, error)    { return 0, false, u.err() }
func (u Unavailable) DetectOptionalLibraries() ([]string, error) { return nil, u.err() }
func (u Unavailable) DetectVersion() (string, error)             { return "", u.err() }

// EngineDir returns the host engine root from the environment, or "".
func EngineDir() string {
	return os.Getenv(EngineDirEnv)
}
