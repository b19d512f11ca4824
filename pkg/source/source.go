// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package source supplies parameter values from outside the command line:
// environment variables, dotenv files, and TOML, YAML or HCL config files.
//
// Config keys follow a parameter's primary long name without the leading
// hyphens, split on "." into nested tables, so --server.port is read from
//
//	[server]
//	port = 8080
//
// Underscores may be used in place of hyphens in keys.
package source

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yeetrun/argbind/pkg/param"
)

// Key returns the config key path of p.
func Key(p *param.Parameter) []string {
	for _, n := range p.Names {
		if strings.HasPrefix(n, "--") {
			return strings.Split(strings.TrimPrefix(n, "--"), ".")
		}
	}
	parts := strings.Split(p.Name, ".")
	for i, s := range parts {
		parts[i] = param.DefaultNameTransform(s)
	}
	return parts
}

// Tree is a source backed by nested maps, the shape config files decode
// into.
type Tree struct {
	name string
	data map[string]any
}

// NewTree returns a source named name over data.
func NewTree(name string, data map[string]any) *Tree {
	return &Tree{name: name, data: data}
}

// Name implements bind.Source.
func (t *Tree) Name() string { return t.name }

// Data returns the decoded content.
func (t *Tree) Data() map[string]any { return t.data }

// Lookup implements bind.Source.
func (t *Tree) Lookup(p *param.Parameter) ([]string, bool, error) {
	v, ok := find(t.data, Key(p))
	if !ok || v == nil {
		return nil, false, nil
	}
	values, err := tokens(v)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", strings.Join(Key(p), "."), err)
	}
	return values, true, nil
}

func find(data map[string]any, key []string) (any, bool) {
	var cur any = data
	for _, k := range key {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[k]
		if !ok {
			v, ok = m[strings.ReplaceAll(k, "-", "_")]
		}
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// tokens renders a decoded config value as command-line tokens. Arrays
// become one token per element; tables become a structured literal.
func tokens(v any) ([]string, error) {
	switch v := v.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, err := scalar(e)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	case []map[string]any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, err := literal(e)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	case map[string]any:
		s, err := literal(v)
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
	s, err := scalar(v)
	if err != nil {
		return nil, err
	}
	return []string{s}, nil
}

func scalar(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case map[string]any:
		return literal(v)
	}
	return "", fmt.Errorf("unsupported value %v (%T)", v, v)
}

// literal encodes v as JSON, which the coercion engine accepts as a
// structured literal.
func literal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
