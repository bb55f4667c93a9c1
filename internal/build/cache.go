// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package build

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/goplus/modbuilder/internal/reconcile"
)

// Build directory layout:
//
//	buildDir/
//	  .modbuilder.json    # stamp of the last successful build
//	  CMakeCache.txt
//	  ...
const stampFile = ".modbuilder.json"

// buildStamp records the settings of the last successful build in a
// directory.
type buildStamp struct {
	ModuleName string    `json:"module_name"`
	Optimize   int       `json:"optimize"`
	Libraries  []string  `json:"libraries,omitempty"`
	BuildTime  time.Time `json:"build_time"`
}

func newStamp(req *reconcile.Request, now time.Time) *buildStamp {
	return &buildStamp{
		ModuleName: req.ModuleName(),
		Optimize:   req.Optimize(),
		Libraries:  req.Libraries(),
		BuildTime:  now,
	}
}

// changes lists the settings that differ between the stamp and req.
func (s *buildStamp) changes(req *reconcile.Request) []string {
	var changed []string
	if s.ModuleName != req.ModuleName() {
		changed = append(changed, "module_name")
	}
	if s.Optimize != req.Optimize() {
		changed = append(changed, "optimize")
	}
	if !slices.Equal(s.Libraries, req.Libraries()) {
		changed = append(changed, "libraries")
	}
	return changed
}

func loadStamp(dir string) (*buildStamp, error) {
	data, err := os.ReadFile(filepath.Join(dir, stampFile))
	if err != nil {
		return nil, err
	}
	var stamp buildStamp
	if err := json.Unmarshal(data, &stamp); err != nil {
		return nil, err
	}
	return &stamp, nil
}

func saveStamp(dir string, stamp *buildStamp) error {
	data, err := json.MarshalIndent(stamp, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, stampFile), data, 0o644)
}
