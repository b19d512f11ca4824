// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package source

import (
	"os"
	"strings"

	"github.com/yeetrun/argbind/pkg/env"
	"github.com/yeetrun/argbind/pkg/param"
)

// Env reads parameters from environment variables. A parameter's own
// EnvVars are tried first, in order; without them, Prefix plus the upper
// snake-case key is used when Prefix is set.
type Env struct {
	Prefix string
	// Getenv defaults to os.LookupEnv.
	Getenv func(string) (string, bool)

	name string
}

// Name implements bind.Source.
func (e *Env) Name() string {
	if e.name != "" {
		return e.name
	}
	return "env"
}

// Lookup implements bind.Source. Values of list and set parameters are
// split on whitespace.
func (e *Env) Lookup(p *param.Parameter) ([]string, bool, error) {
	get := e.Getenv
	if get == nil {
		get = os.LookupEnv
	}
	names := p.EnvVars
	if len(names) == 0 && e.Prefix != "" {
		names = []string{EnvName(e.Prefix, p)}
	}
	for _, n := range names {
		v, ok := get(n)
		if !ok {
			continue
		}
		if p.Type.IsIterable() {
			return strings.Fields(v), true, nil
		}
		return []string{v}, true, nil
	}
	return nil, false, nil
}

// EnvName returns the variable name derived for p, such as
// APP_SERVER_PORT for --server.port with prefix "APP_".
func EnvName(prefix string, p *param.Parameter) string {
	key := strings.Join(Key(p), "_")
	return prefix + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// Dotenv returns an Env source reading variables from the dotenv file
// path instead of the process environment.
func Dotenv(path, prefix string) (*Env, error) {
	vars, err := env.Read(path)
	if err != nil {
		return nil, err
	}
	return &Env{
		Prefix: prefix,
		Getenv: func(k string) (string, bool) {
			v, ok := vars[k]
			return v, ok
		},
		name: "dotenv",
	}, nil
}

// Map is a static source keyed by dotted config key, such as
// "server.port".
type Map map[string][]string

// Name implements bind.Source.
func (Map) Name() string { return "map" }

// Lookup implements bind.Source.
func (m Map) Lookup(p *param.Parameter) ([]string, bool, error) {
	v, ok := m[strings.Join(Key(p), ".")]
	return v, ok, nil
}
