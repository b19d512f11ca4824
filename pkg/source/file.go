// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/yeetrun/argbind/pkg/bind"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// TOML reads a TOML config file.
func TOML(path string) (*Tree, error) {
	var data map[string]any
	if _, err := toml.DecodeFile(path, &data); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return NewTree("toml", data), nil
}

// YAML reads a YAML config file.
func YAML(path string) (*Tree, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := yaml.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return NewTree("yaml", data), nil
}

// HCL reads an HCL config file. Attributes are values and blocks are
// tables; block labels add further levels, so
//
//	server "api" { port = 8080 }
//
// is the key server.api.port.
func HCL(path string) (*Tree, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %w", path, diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("failed to parse %s: unexpected body type %T", path, file.Body)
	}
	data, err := hclBody(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewTree("hcl", data), nil
}

func hclBody(body *hclsyntax.Body) (map[string]any, error) {
	out := make(map[string]any)
	for name, attr := range body.Attributes {
		v, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("attribute %s: %w", name, diags)
		}
		nv, err := ctyToNative(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
		out[name] = nv
	}
	for _, blk := range body.Blocks {
		sub, err := hclBody(blk.Body)
		if err != nil {
			return nil, fmt.Errorf("block %s: %w", blk.Type, err)
		}
		dst := out
		for _, key := range append([]string{blk.Type}, blk.Labels...) {
			next, ok := dst[key].(map[string]any)
			if !ok {
				next = make(map[string]any)
				dst[key] = next
			}
			dst = next
		}
		for k, v := range sub {
			dst[k] = v
		}
	}
	return out, nil
}

// ctyToNative converts an HCL value to plain Go values. Whole numbers
// become int64, other numbers float64.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Number:
		if bf := v.AsBigFloat(); bf.IsInt() {
			var i int64
			if err := gocty.FromCtyValue(v, &i); err == nil {
				return i, nil
			}
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert number: %w", err)
		}
		return f, nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			nv, err := ctyToNative(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, nv)
		}
		return out, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			nv, err := ctyToNative(ev)
			if err != nil {
				return nil, fmt.Errorf("in %s: %w", k.AsString(), err)
			}
			out[k.AsString()] = nv
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
}

// File reads the config file at path, choosing the format by extension:
// .toml, .yaml or .yml, .hcl, or .env.
func File(path string) (bind.Source, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		return TOML(path)
	case ".yaml", ".yml":
		return YAML(path)
	case ".hcl":
		return HCL(path)
	case ".env":
		return Dotenv(path, "")
	default:
		if filepath.Base(path) == ".env" {
			return Dotenv(path, "")
		}
		return nil, fmt.Errorf("unsupported config file type %q", path)
	}
}

// Load reads config files concurrently and returns them as sources in the
// order given. Files that do not exist are skipped.
func Load(ctx context.Context, paths ...string) ([]bind.Source, error) {
	loaded := make([]bind.Source, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			src, err := File(path)
			if err != nil {
				return err
			}
			loaded[i] = src
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []bind.Source
	for _, src := range loaded {
		if src != nil {
			out = append(out, src)
		}
	}
	return out, nil
}
