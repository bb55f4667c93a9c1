// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config persists the user's build settings in an INI file.
//
// Settings live in the section-less part of the file. Named sections and
// comments are carried along untouched so that a load/save cycle never drops
// anything the user wrote.
package config

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// Well-known setting names.
const (
	KeyModuleName = "module_name"
	KeyOptimize   = "optimize"
	KeyGenerator  = "generator"
	KeyBuildType  = "build_type"
)

// CurrentKeys is the current key schema, in the order they are written for
// a fresh configuration.
var CurrentKeys = []string{KeyModuleName, KeyOptimize, KeyGenerator, KeyBuildType}

func init() {
	ini.PrettyFormat = false
	ini.PrettyEqual = true
}

// Values are taken as written: no inline comments, no line continuation
// with a trailing backslash, and surrounding quotes stay part of the value.
var loadOptions = ini.LoadOptions{
	IgnoreInlineComment:     true,
	IgnoreContinuation:      true,
	PreserveSurroundedQuote: true,
}

// Config is a flat set of string settings backed by an INI document.
type Config struct {
	file *ini.File
}

// New returns an empty configuration.
func New() *Config {
	return &Config{file: ini.Empty(loadOptions)}
}

// Parse decodes an INI document.
func Parse(data []byte) (*Config, error) {
	f, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, err
	}
	return &Config{file: f}, nil
}

func (c *Config) settings() *ini.Section {
	return c.file.Section("")
}

// Lookup returns the value of key and whether it is present.
func (c *Config) Lookup(key string) (string, bool) {
	sec := c.settings()
	if !sec.HasKey(key) {
		return "", false
	}
	return sec.Key(key).String(), true
}

// Get returns the value of key, or "" when absent.
func (c *Config) Get(key string) string {
	v, _ := c.Lookup(key)
	return v
}

// Has reports whether key is present, even with an empty value.
func (c *Config) Has(key string) bool {
	return c.settings().HasKey(key)
}

// Set stores value under key. New keys are appended after existing ones.
func (c *Config) Set(key, value string) {
	c.settings().Key(key).SetValue(value)
}

// Delete removes key and reports whether it was present.
func (c *Config) Delete(key string) bool {
	sec := c.settings()
	if !sec.HasKey(key) {
		return false
	}
	sec.DeleteKey(key)
	return true
}

// Keys returns the setting names in file order.
func (c *Config) Keys() []string {
	return c.settings().KeyStrings()
}

// Map returns a copy of all settings.
func (c *Config) Map() map[string]string {
	return c.settings().KeysHash()
}

// Int interprets key as an integer. ok is false when the key is absent or
// blank.
func (c *Config) Int(key string) (n int, ok bool, err error) {
	v := strings.TrimSpace(c.Get(key))
	if v == "" {
		return 0, false, nil
	}
	n, err = strconv.Atoi(v)
	if err != nil {
		return 0, false, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, true, nil
}

// Bytes encodes the configuration.
func (c *Config) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := c.file.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Clone returns a deep copy.
func (c *Config) Clone() (*Config, error) {
	data, err := c.Bytes()
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
