// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package env

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const (
	configHeader  = "dtool_config.h"
	versionHeader = "pandaVersion.h"
)

// optionalLibraries maps the HAVE_* define of each optional library to the
// name used in build settings.
var optionalLibraries = map[string]string{
	"HAVE_EIGEN":    "eigen",
	"HAVE_BULLET":   "bullet",
	"HAVE_FREETYPE": "freetype",
}

var includeDirs = []string{
	"include",
	filepath.Join("include", "panda3d"),
	filepath.Join("built", "include"),
}

var defineRE = regexp.MustCompile(`^\s*#\s*define\s+(\w+)(?:\s+(.*?))?\s*$`)

// HeaderProbe reads engine facts from the generated configuration headers
// of an installed engine SDK rooted at Root.
type HeaderProbe struct {
	Root string

	loaded bool
	facts  *Facts
	err    error
}

var _ Probe = (*HeaderProbe)(nil)

// NewHeaderProbe returns a probe for the engine installed at root.
func NewHeaderProbe(root string) *HeaderProbe {
	return &HeaderProbe{Root: root}
}

func (p *HeaderProbe) DetectOptimizeLevel() (int, bool, error) {
	f, err := p.load()
	if err != nil {
		return 0, false, err
	}
	return f.DetectOptimizeLevel()
}

func (p *HeaderProbe) DetectOptionalLibraries() ([]string, error) {
	f, err := p.load()
	if err != nil {
		return nil, err
	}
	return f.DetectOptionalLibraries()
}

func (p *HeaderProbe) DetectVersion() (string, error) {
	f, err := p.load()
	if err != nil {
		return "", err
	}
	return f.DetectVersion()
}

func (p *HeaderProbe) load() (*Facts, error) {
	if !p.loaded {
		p.facts, p.err = p.scan()
		p.loaded = true
	}
	return p.facts, p.err
}

func (p *HeaderProbe) scan() (*Facts, error) {
	if p.Root == "" {
		return nil, fmt.Errorf("%w: engine root not set (use --engine or $%s)", ErrEnvironmentUnavailable, EngineDirEnv)
	}
	if info, err := os.Stat(p.Root); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: engine root %s is not a directory", ErrEnvironmentUnavailable, p.Root)
	}
	includeDir, ok := findIncludeDir(p.Root)
	if !ok {
		return nil, fmt.Errorf("%w: %s not found under %s", ErrEnvironmentUnavailable, configHeader, p.Root)
	}

	defines, err := readDefines(filepath.Join(includeDir, configHeader))
	if err != nil {
		return nil, err
	}
	facts := &Facts{}
	if v, ok := defines["OPTIMIZE"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("env: %s: bad OPTIMIZE value %q", configHeader, v)
		}
		facts.Optimize = n
	}
	for define, lib := range optionalLibraries {
		if v, ok := defines[define]; ok && v != "0" {
			facts.Libraries = append(facts.Libraries, lib)
		}
	}

	versionDefines, err := readDefines(filepath.Join(includeDir, versionHeader))
	switch {
	case err == nil:
		facts.Version = strings.Trim(versionDefines["PANDA_VERSION_STR"], `"`)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}
	return facts, nil
}

func findIncludeDir(root string) (string, bool) {
	for _, dir := range includeDirs {
		dir = filepath.Join(root, dir)
		if _, err := os.Stat(filepath.Join(dir, configHeader)); err == nil {
			return dir, true
		}
	}
	return "", false
}

func readDefines(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseDefines(f)
}

// parseDefines collects "#define NAME value" lines. A later #undef drops
// the name again.
func parseDefines(r io.Reader) (map[string]string, error) {
	defines := make(map[string]string)
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := s.Text()
		if m := defineRE.FindStringSubmatch(line); m != nil {
			defines[m[1]] = m[2]
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(line), "#"))
		if len(fields) == 2 && fields[0] == "undef" {
			delete(defines, fields[1])
		}
	}
	return defines, s.Err()
}
