// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package env

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// ManifestProbe reads engine facts pinned in a YAML file:
//
//	optimize: 3
//	libraries: [eigen, bullet]
//	version: 1.10.13
type ManifestProbe struct {
	Path string

	loaded bool
	facts  *Facts
	err    error
}

var _ Probe = (*ManifestProbe)(nil)

// NewManifestProbe returns a probe reading the manifest at path.
func NewManifestProbe(path string) *ManifestProbe {
	return &ManifestProbe{Path: path}
}

func (p *ManifestProbe) DetectOptimizeLevel() (int, bool, error) {
	f, err := p.load()
	if err != nil {
		return 0, false, err
	}
	return f.DetectOptimizeLevel()
}

func (p *ManifestProbe) DetectOptionalLibraries() ([]string, error) {
	f, err := p.load()
	if err != nil {
		return nil, err
	}
	return f.DetectOptionalLibraries()
}

func (p *ManifestProbe) DetectVersion() (string, error) {
	f, err := p.load()
	if err != nil {
		return "", err
	}
	return f.DetectVersion()
}

func (p *ManifestProbe) load() (*Facts, error) {
	if !p.loaded {
		p.facts, p.err = ParseManifest(p.Path)
		p.loaded = true
	}
	return p.facts, p.err
}

// ParseManifest decodes the facts manifest at path.
func ParseManifest(path string) (*Facts, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: facts manifest %s not found", ErrEnvironmentUnavailable, path)
	}
	if err != nil {
		return nil, err
	}
	var facts Facts
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&facts); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("env: facts manifest %s is empty", path)
		}
		return nil, fmt.Errorf("env: parse %s: %w", path, err)
	}
	if facts.Optimize < 0 {
		return nil, fmt.Errorf("env: %s: optimize must not be negative", path)
	}
	return &facts, nil
}
