// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package validate

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/yeetrun/argbind/pkg/coerce"
	"github.com/yeetrun/argbind/pkg/param"
)

// NumberOpts bounds a numeric value. Nil bounds are not checked.
type NumberOpts struct {
	Gt, Gte, Lt, Lte *float64
	// Modulo requires the value to be a multiple of it.
	Modulo *float64
}

// Number checks every number in a value against opts. Lists, sets, tuples
// and optional values are checked element by element.
func Number(opts NumberOpts) param.Validator {
	return func(_ *coerce.Type, v any) error {
		return each(v, func(rv reflect.Value) error {
			var f float64
			switch rv.Kind() {
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
				f = float64(rv.Int())
			case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
				f = float64(rv.Uint())
			case reflect.Float32, reflect.Float64:
				f = rv.Float()
			default:
				return fmt.Errorf("%v is not a number", rv.Interface())
			}
			switch {
			case opts.Gt != nil && !(f > *opts.Gt):
				return fmt.Errorf("%v must be greater than %v", f, *opts.Gt)
			case opts.Gte != nil && !(f >= *opts.Gte):
				return fmt.Errorf("%v must be greater than or equal to %v", f, *opts.Gte)
			case opts.Lt != nil && !(f < *opts.Lt):
				return fmt.Errorf("%v must be less than %v", f, *opts.Lt)
			case opts.Lte != nil && !(f <= *opts.Lte):
				return fmt.Errorf("%v must be less than or equal to %v", f, *opts.Lte)
			case opts.Modulo != nil && math.Mod(f, *opts.Modulo) != 0:
				return fmt.Errorf("%v must be a multiple of %v", f, *opts.Modulo)
			}
			return nil
		})
	}
}

// PathOpts constrains a filesystem path.
type PathOpts struct {
	// Exists requires the path to exist.
	Exists bool
	// NoFile and NoDir reject existing regular files and directories.
	NoFile bool
	NoDir  bool
	// Ext lists accepted extensions, with or without the leading dot.
	Ext []string
}

// Path checks every path in a value against opts.
func Path(opts PathOpts) param.Validator {
	exts := make([]string, len(opts.Ext))
	for i, e := range opts.Ext {
		exts[i] = "." + strings.TrimPrefix(strings.ToLower(e), ".")
	}
	return func(_ *coerce.Type, v any) error {
		return each(v, func(rv reflect.Value) error {
			if rv.Kind() != reflect.String {
				return fmt.Errorf("%v is not a path", rv.Interface())
			}
			p := rv.String()
			if len(exts) > 0 && !slices.Contains(exts, strings.ToLower(filepath.Ext(p))) {
				return fmt.Errorf("%s must have extension %s", p, strings.Join(exts, ", "))
			}
			fi, err := os.Stat(p)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				if opts.Exists {
					return fmt.Errorf("%s does not exist", p)
				}
				return nil
			case err != nil:
				return err
			case opts.NoDir && fi.IsDir():
				return fmt.Errorf("%s is a directory", p)
			case opts.NoFile && !fi.IsDir():
				return fmt.Errorf("%s is a file", p)
			}
			return nil
		})
	}
}

// each calls fn for v, or for each element when v is a container.
func each(v any, fn func(reflect.Value) error) error {
	return walk(reflect.ValueOf(v), fn)
}

func walk(rv reflect.Value, fn func(reflect.Value) error) error {
	switch rv.Kind() {
	case reflect.Invalid:
		return nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return walk(rv.Elem(), fn)
	case reflect.Slice, reflect.Array:
		for i := range rv.Len() {
			if err := walk(rv.Index(i), fn); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			if err := walk(iter.Key(), fn); err != nil {
				return err
			}
		}
		return nil
	}
	return fn(rv)
}
