// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bind

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/yeetrun/argbind/pkg/argerr"
	"github.com/yeetrun/argbind/pkg/coerce"
	"github.com/yeetrun/argbind/pkg/param"
)

// convert turns every bound token run into a value, then assembles record
// parents from their fields.
func (b *binder) convert() (*Arguments, error) {
	args := newArguments(b.sig, b.tokens, b.unused)
	for _, p := range b.order {
		v, err := convertParam(p, b.tokens[p])
		if err != nil {
			return nil, err
		}
		args.values.Set(p, v)
	}
	if err := assemble(args); err != nil {
		return nil, err
	}
	args.sortValues()
	return args, nil
}

func convertParam(p *param.Parameter, toks []param.Token) (any, error) {
	if p.Converter != nil {
		v, err := p.Converter(p.Type, toks)
		if err != nil {
			return nil, paramErr(p, toks, err)
		}
		return v, nil
	}
	if p.Kind == param.VarKeyword {
		return convertKwargs(p, toks)
	}
	if len(toks) == 0 {
		return coerce.Empty(p.Type), nil
	}
	// Structured literals are only decoded from keyword tokens.
	conv := coerce.Convert
	if toks[0].Positional() {
		conv = coerce.ConvertPlain
	}
	if !p.Type.IsIterable() {
		v, err := conv(p.Type, param.Values(toks))
		if err != nil {
			return nil, paramErr(p, toks, err)
		}
		return v, nil
	}

	// An implicit token (from a negative name) resets the value; runs of
	// plain tokens are converted and appended.
	var (
		acc any
		run []string
	)
	flush := func() error {
		if len(run) == 0 {
			return nil
		}
		v, err := conv(p.Type, run)
		if err != nil {
			return paramErr(p, toks, err)
		}
		run = nil
		if acc, err = coerce.Append(p.Type, acc, v); err != nil {
			return paramErr(p, toks, err)
		}
		return nil
	}
	for _, t := range toks {
		if t.HasImplicit {
			if err := flush(); err != nil {
				return nil, err
			}
			acc = t.Implicit
			continue
		}
		run = append(run, t.Value)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return acc, nil
}

// convertKwargs builds the var-keyword map from tokens grouped by option
// name.
func convertKwargs(p *param.Parameter, toks []param.Token) (any, error) {
	mt := p.Type.GoType()
	elem := p.Type.Elem()
	out := reflect.MakeMap(mt)
	var keys []string
	byKey := make(map[string][]param.Token)
	for _, t := range toks {
		if _, ok := byKey[t.Key]; !ok {
			keys = append(keys, t.Key)
		}
		byKey[t.Key] = append(byKey[t.Key], t)
	}
	per, _ := elem.TokenCount()
	per = max(per, 1)
	for _, k := range keys {
		kt := byKey[k]
		if !elem.IsIterable() && len(kt) > per {
			return nil, &argerr.RepeatedArgumentError{Param: "--" + k, First: kt[0].Keyword, Second: kt[len(kt)-1].Keyword}
		}
		values := param.Values(kt)
		v, err := coerce.Convert(elem, values)
		if err != nil {
			return nil, paramErr(&param.Parameter{Name: k, Names: []string{"--" + k}}, kt, err)
		}
		kv := reflect.ValueOf(k).Convert(mt.Key())
		ev, err := assignable(v, mt.Elem())
		if err != nil {
			return nil, paramErr(p, kt, err)
		}
		out.SetMapIndex(kv, ev)
	}
	return out.Interface(), nil
}

// paramErr attaches p to a conversion failure. Coercion errors keep their
// type; anything else becomes a validation error naming p.
func paramErr(p *param.Parameter, toks []param.Token, err error) error {
	var ce *argerr.CoercionError
	if errors.As(err, &ce) {
		out := *ce
		out.Param = p.DisplayName()
		return &out
	}
	var ve *argerr.ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	if errors.Is(err, argerr.ErrUsage) {
		return err
	}
	return &argerr.ValidationError{Params: []string{p.DisplayName()}, Err: err, Msg: fmt.Sprintf("invalid value %q", strings.Join(param.Values(toks), " "))}
}

// assemble builds record parents from the converted values of their fields.
// Parents are visited after their children so nested records compose.
func assemble(args *Arguments) error {
	params := args.sig.Params()
	for _, p := range slices.Backward(params) {
		if !p.IsRecord() {
			continue
		}
		base, bound := args.values.Get(p)
		supplied := bound
		for _, c := range p.Children {
			if _, ok := args.values.Get(c); ok {
				supplied = true
				break
			}
		}
		if !supplied {
			continue
		}
		if !bound && p.HasDefault {
			base = p.Default
		}
		v, err := buildRecord(args, p, base, !bound)
		if err != nil {
			return err
		}
		args.values.Set(p, v)
	}
	return nil
}

// buildRecord sets the values of p's fields on a copy of base. With
// fillDefaults, fields that were not supplied take their own defaults.
func buildRecord(args *Arguments, p *param.Parameter, base any, fillDefaults bool) (any, error) {
	rec := p.Type.Record()
	rt := rec.GoType()
	if rt.Kind() == reflect.Map {
		out := reflect.MakeMap(rt)
		if bv := reflect.ValueOf(deref(base)); bv.IsValid() && bv.Kind() == reflect.Map {
			iter := bv.MapRange()
			for iter.Next() {
				out.SetMapIndex(iter.Key(), iter.Value())
			}
		}
		for _, c := range p.Children {
			v, ok := args.values.Get(c)
			if !ok && fillDefaults {
				v, ok = args.valueOrDefault(c)
				ok = ok && v != nil
			}
			if !ok {
				continue
			}
			key := strings.TrimPrefix(c.Name, p.Name+".")
			ev, err := assignable(v, rt.Elem())
			if err != nil {
				return nil, &argerr.ConfigError{Param: c.Name, Err: err}
			}
			out.SetMapIndex(reflect.ValueOf(key).Convert(rt.Key()), ev)
		}
		return wrapRecord(p, out), nil
	}

	out := reflect.New(rt).Elem()
	if bv := reflect.ValueOf(deref(base)); bv.IsValid() && bv.Type() == rt {
		out.Set(bv)
	}
	for _, c := range p.Children {
		v, ok := args.values.Get(c)
		if !ok && fillDefaults {
			v, ok = args.valueOrDefault(c)
		}
		if !ok {
			continue
		}
		f, err := out.FieldByIndexErr(c.Index[len(p.Index):])
		if err != nil {
			return nil, &argerr.ConfigError{Param: c.Name, Err: err}
		}
		fv, err := assignable(v, f.Type())
		if err != nil {
			return nil, &argerr.ConfigError{Param: c.Name, Err: err}
		}
		f.Set(fv)
	}
	return wrapRecord(p, out), nil
}

func wrapRecord(p *param.Parameter, v reflect.Value) any {
	if p.Type.Kind() == coerce.Optional && p.Type.GoType().Kind() == reflect.Pointer {
		ptr := reflect.New(v.Type())
		ptr.Elem().Set(v)
		return ptr.Interface()
	}
	return v.Interface()
}

func deref(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

// assignable returns v as a value that can be stored in a slot of type rt.
func assignable(v any, rt reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(rt), nil
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.Type().AssignableTo(rt):
		return rv, nil
	case rv.Type().ConvertibleTo(rt):
		return rv.Convert(rt), nil
	case rt.Kind() == reflect.Pointer && rv.Type().AssignableTo(rt.Elem()):
		ptr := reflect.New(rt.Elem())
		ptr.Elem().Set(rv)
		return ptr, nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", v, rt)
}

// checkMissing reports the first required parameter with no value.
func (b *binder) checkMissing(args *Arguments) error {
	for _, p := range args.sig.Params() {
		if !p.Required || p.IsRecord() {
			continue
		}
		if _, ok := args.values.Get(p); ok {
			continue
		}
		if b.ancestorBound(p) {
			continue
		}
		return &argerr.MissingArgumentError{Param: p.DisplayName()}
	}
	return nil
}
