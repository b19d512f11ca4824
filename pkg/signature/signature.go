// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package signature resolves a bind target (a struct prototype, a func, or an
// explicit list of fields) into an ordered set of parameters.
//
// Struct targets are described with tags:
//
//	type Flags struct {
//		Name    string        `pos:"0" help:"who to greet"`
//		Count   int           `pos:"1?" default:"1"`
//		Formal  bool          `short:"f"`
//		Files   []string      `pos:"2*"`
//		Timeout time.Duration `flag:"timeout,t" env:"APP_TIMEOUT"`
//		Server  ServerConfig  // flattened to --server.host, --server.port
//		Skip    string        `flag:"-"`
//	}
//
// Fields without a pos tag are keyword-only. A pos tag makes the field
// positional-or-keyword, or positional-only when combined with flag:"-".
// "N?" marks an optional positional, "N*" and "N+" a var-positional slice.
// A map field tagged kwargs:"true" absorbs unknown options.
//
// Other tags: help, default, env, negative ("-" disables), group, parse,
// flatten, required, consume ("single" or "multiple"), hyphen ("allow"),
// show and arity.
package signature

import (
	"reflect"

	"github.com/yeetrun/argbind/pkg/param"
)

// Signature is the resolved parameter set of one target. It is immutable and
// safe for concurrent use.
type Signature struct {
	params []*param.Parameter
	byName map[string]*param.Parameter
	names  []string

	structType reflect.Type
	proto      reflect.Value
	fn         reflect.Value
	fnCtx      bool
}

// Params returns every parameter in order: record parents precede their
// fields, var-positional and var-keyword parameters come last.
func (s *Signature) Params() []*param.Parameter { return s.params }

// Lookup finds the parameter owning an external name, including negative
// names.
func (s *Signature) Lookup(name string) (*param.Parameter, bool) {
	p, ok := s.byName[name]
	return p, ok
}

// Names returns every external name, negative names included, in parameter
// order.
func (s *Signature) Names() []string { return s.names }

// Positional returns the parameters that can be filled by position, ordered
// by declared position. The var-positional parameter, if any, is last.
func (s *Signature) Positional() []*param.Parameter {
	var out []*param.Parameter
	for _, p := range s.params {
		if p.Parent != nil || p.Kind == param.VarPositional {
			continue
		}
		if p.Kind == param.PositionalOnly || p.Kind == param.PositionalOrKeyword {
			out = append(out, p)
		}
	}
	if vp := s.VarPositional(); vp != nil {
		out = append(out, vp)
	}
	return out
}

// VarPositional returns the var-positional parameter, or nil.
func (s *Signature) VarPositional() *param.Parameter { return s.kind(param.VarPositional) }

// VarKeyword returns the var-keyword parameter, or nil.
func (s *Signature) VarKeyword() *param.Parameter { return s.kind(param.VarKeyword) }

func (s *Signature) kind(k param.Kind) *param.Parameter {
	for _, p := range s.params {
		if p.Kind == k && p.Parent == nil {
			return p
		}
	}
	return nil
}

// StructType is the struct type of a Struct target, or nil.
func (s *Signature) StructType() reflect.Type { return s.structType }

// Proto is the prototype value of a Struct target. Fields that are not
// parameters are copied from it when decoding.
func (s *Signature) Proto() reflect.Value { return s.proto }

// Func is the function of a Func target, and whether its first argument is
// a context.Context supplied at call time.
func (s *Signature) Func() (fn reflect.Value, takesContext bool) { return s.fn, s.fnCtx }
