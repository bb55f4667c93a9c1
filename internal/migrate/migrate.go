// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package migrate drops settings that older releases asked the user for and
// that are now derived from the host engine.
package migrate

import (
	"context"

	"github.com/goplus/modbuilder/internal/config"
	"github.com/goplus/modbuilder/internal/ctxlog"
)

// Obsolete describes a setting that is no longer user-settable.
type Obsolete struct {
	Key    string
	Reason string
}

// ObsoleteKeys lists every retired setting. Migrate walks it in order.
var ObsoleteKeys = []Obsolete{
	{Key: "vc_version", Reason: "is now auto-detected"},
	{Key: "use_lib_eigen", Reason: "is now auto-detected"},
	{Key: "use_lib_bullet", Reason: "is now auto-detected"},
	{Key: "use_lib_freetype", Reason: "is now auto-detected"},
}

// Removal records one setting dropped by Migrate.
type Removal struct {
	Key    string
	Value  string
	Reason string
}

// Migrate removes every obsolete setting from c and logs one warning per
// removed key. It returns what was removed; a clean configuration yields nil.
func Migrate(ctx context.Context, c *config.Config) []Removal {
	log := ctxlog.FromContext(ctx)

	var removed []Removal
	for _, o := range ObsoleteKeys {
		v, ok := c.Lookup(o.Key)
		if !ok {
			continue
		}
		c.Delete(o.Key)
		log.Warn("removing obsolete parameter", "key", o.Key, "value", v, "reason", o.Reason)
		removed = append(removed, Removal{Key: o.Key, Value: v, Reason: o.Reason})
	}
	return removed
}
