// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package buildsys

import "context"

// BuildSystem captures the capabilities of an out-of-tree native build
// driver. Settings are collected first and take effect on Configure.
type BuildSystem interface {
	// Use points the build at an installed SDK root (headers, libs,
	// pkg-config files).
	Use(root string)

	// Env sets an environment variable for the build tool processes.
	Env(key, val string)

	// Settings.
	Generator(name string)
	BuildType(name string)
	Define(key, value string)
	DefineBool(key string, value bool)

	// Lifecycle. Each call runs the tool once and blocks until it exits.
	Configure(ctx context.Context, args ...string) error
	Build(ctx context.Context, args ...string) error

	// Where artifacts land.
	OutputDir() string
}

// ExitCoder is implemented by errors carrying a process exit status.
type ExitCoder interface {
	ExitCode() int
}
