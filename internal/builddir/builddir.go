// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package builddir puts the out-of-tree build directory into the state a
// build expects.
package builddir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNotDirectory = errors.New("not a directory")
	ErrUnsafeClean  = errors.New("refusing to remove a directory containing the sources")
)

// FilesystemError reports a failed directory operation.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// Prepare makes path an existing directory. With clean set, anything already
// there is removed first; otherwise existing contents are kept for an
// incremental build.
func Prepare(path string, clean bool) error {
	if path == "" {
		return &FilesystemError{Op: "prepare", Path: path, Err: errors.New("empty path")}
	}
	info, err := os.Stat(path)
	switch {
	case err == nil && !info.IsDir():
		return &FilesystemError{Op: "prepare", Path: path, Err: ErrNotDirectory}
	case err == nil && clean:
		if err := os.RemoveAll(path); err != nil {
			return &FilesystemError{Op: "remove", Path: path, Err: unwrapPathError(err)}
		}
	case err == nil:
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return &FilesystemError{Op: "stat", Path: path, Err: unwrapPathError(err)}
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return &FilesystemError{Op: "create", Path: path, Err: unwrapPathError(err)}
	}
	return nil
}

// CheckClean refuses a clean rebuild of path when path is, or contains, one
// of the protected directories.
func CheckClean(path string, protected ...string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return &FilesystemError{Op: "clean", Path: path, Err: err}
	}
	if filepath.Dir(abs) == abs {
		return &FilesystemError{Op: "clean", Path: path, Err: ErrUnsafeClean}
	}
	for _, p := range protected {
		pabs, err := filepath.Abs(p)
		if err != nil {
			return &FilesystemError{Op: "clean", Path: path, Err: err}
		}
		if pabs == abs || strings.HasPrefix(pabs, abs+string(filepath.Separator)) {
			return &FilesystemError{Op: "clean", Path: path, Err: ErrUnsafeClean}
		}
	}
	return nil
}

// unwrapPathError drops the *fs.PathError layer, whose path would repeat the
// one FilesystemError already carries.
func unwrapPathError(err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}
