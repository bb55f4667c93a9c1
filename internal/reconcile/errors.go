// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingConfiguration matches every *MissingConfigurationError.
	ErrMissingConfiguration = errors.New("missing configuration")

	// ErrInvalidConfiguration matches every *ConfigurationError.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// MissingConfigurationError reports a required setting that stayed
// unresolved after all fallbacks.
type MissingConfigurationError struct {
	Key    string
	Reason string
}

func (e *MissingConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("missing configuration: %s", e.Key)
	}
	return fmt.Sprintf("missing configuration: %s: %s", e.Key, e.Reason)
}

func (e *MissingConfigurationError) Is(target error) bool {
	return target == ErrMissingConfiguration
}

// ConfigurationError reports a setting whose value cannot be used.
type ConfigurationError struct {
	Key   string
	Value string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s = %q: %v", e.Key, e.Value, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// Conflict records a persisted value that disagreed with the host engine and
// was replaced.
type Conflict struct {
	Key       string
	Persisted string
	Detected  string
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s: stored %s, host engine uses %s", c.Key, c.Persisted, c.Detected)
}
