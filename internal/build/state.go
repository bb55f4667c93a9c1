// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package build

// State is a stage of one build invocation. States only move forward;
// Failed is terminal.
type State int

const (
	Idle State = iota
	ConfigLoaded
	ConfigReconciled
	DirectoryPrepared
	Configured
	Compiled
	Failed
)

var stateNames = [...]string{
	Idle:              "idle",
	ConfigLoaded:      "config-loaded",
	ConfigReconciled:  "config-reconciled",
	DirectoryPrepared: "directory-prepared",
	Configured:        "configured",
	Compiled:          "compiled",
	Failed:            "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}
