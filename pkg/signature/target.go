// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package signature

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/yeetrun/argbind/pkg/argerr"
	"github.com/yeetrun/argbind/pkg/coerce"
	"github.com/yeetrun/argbind/pkg/param"
)

// Target is anything that can be resolved into a Signature.
type Target interface {
	Resolve(opts ...Option) (*Signature, error)
}

// Option configures resolution.
type Option func(*config)

type config struct {
	scopes []param.Scope
	groups map[string]*param.Group
	fields map[string]param.Options
}

// WithScopes sets the chain of enclosing default scopes, innermost first.
func WithScopes(scopes ...param.Scope) Option {
	return func(c *config) { c.scopes = scopes }
}

// WithGroups registers groups that group tags refer to by name. Tags naming
// an unregistered group get a group private to the signature.
func WithGroups(groups ...*param.Group) Option {
	return func(c *config) {
		for _, g := range groups {
			if c.groups == nil {
				c.groups = make(map[string]*param.Group)
			}
			c.groups[g.Name] = g
		}
	}
}

// WithField sets explicit options for the parameter at path, such as
// "Server.Port". They take priority over tags and every default layer.
func WithField(path string, opts param.Options) Option {
	return func(c *config) {
		if c.fields == nil {
			c.fields = make(map[string]param.Options)
		}
		c.fields[path] = param.Merge(c.fields[path], opts)
	}
}

// rawField is a parameter as declared, before configuration is resolved.
type rawField struct {
	ident    string
	kind     param.Kind
	position int
	typ      *coerce.Type
	def      any
	hasDef   bool
	required bool
	relNames []string // tag names, relative to the record prefix
	short    []string
	opts     param.Options
	index    []int
	embedded bool
}

// Struct returns a Target for the struct (or pointer to struct) proto.
// Non-zero field values of proto are parameter defaults.
func Struct(proto any) Target {
	return structTarget{proto: proto}
}

type structTarget struct {
	proto any
}

func (t structTarget) Resolve(opts ...Option) (*Signature, error) {
	rv := reflect.ValueOf(t.proto)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			rv = reflect.New(rv.Type().Elem()).Elem()
			break
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, &argerr.ConfigError{Msg: fmt.Sprintf("struct target must be a struct, got %T", t.proto)}
	}
	typ, err := coerce.Of(rv.Type())
	if err != nil {
		return nil, &argerr.ConfigError{Err: err}
	}
	c := newConfig(opts)
	raws, err := c.structFields(typ, rv, true)
	if err != nil {
		return nil, err
	}
	sig, err := c.resolve(raws)
	if err != nil {
		return nil, err
	}
	sig.structType = rv.Type()
	sig.proto = rv
	return sig, nil
}

// structFields turns the fields of a record into raw fields. Only top-level
// fields honor pos and kwargs tags; nested record fields are keyword-only.
func (c *config) structFields(typ *coerce.Type, proto reflect.Value, top bool) ([]rawField, error) {
	var out []rawField
	for _, f := range typ.Fields() {
		rf := rawField{
			ident:    f.Name,
			kind:     param.KeywordOnly,
			position: -1,
			typ:      f.Type,
			index:    f.Index,
			embedded: f.Embedded,
		}
		if proto.IsValid() && f.Index != nil {
			fv := proto.FieldByIndex(f.Index)
			rf.def, rf.hasDef = fv.Interface(), true
		} else if f.HasDefault {
			rf.def, rf.hasDef = f.Default, true
		}
		if err := c.applyTags(&rf, f.Tag, top); err != nil {
			return nil, err
		}
		out = append(out, rf)
	}
	return out, nil
}

func (c *config) applyTags(rf *rawField, tag reflect.StructTag, top bool) error {
	cfgErr := func(format string, args ...any) error {
		return &argerr.ConfigError{Param: rf.ident, Msg: fmt.Sprintf(format, args...)}
	}
	flag := tag.Get("flag")
	if flag != "" && flag != "-" {
		for _, n := range strings.Split(flag, ",") {
			if n = strings.TrimLeft(strings.TrimSpace(n), "-"); n != "" {
				rf.relNames = append(rf.relNames, n)
			}
		}
	}
	if s := tag.Get("short"); s != "" {
		for _, n := range strings.Split(s, ",") {
			rf.short = append(rf.short, "-"+strings.TrimLeft(strings.TrimSpace(n), "-"))
		}
	}
	if top {
		if pos, ok := tag.Lookup("pos"); ok {
			n, suffix := pos, ""
			if i := strings.IndexAny(pos, "?*+"); i >= 0 {
				n, suffix = pos[:i], pos[i:]
			}
			idx, err := strconv.Atoi(n)
			if err != nil {
				return cfgErr("invalid pos tag %q", pos)
			}
			rf.position = idx
			rf.kind = param.PositionalOrKeyword
			if flag == "-" {
				rf.kind = param.PositionalOnly
			}
			switch suffix {
			case "":
				rf.required = true
				if rf.hasDef && (rf.def == nil || reflect.ValueOf(rf.def).IsZero()) {
					rf.hasDef = false
				}
			case "?":
			case "*", "+":
				if rf.typ.Kind() != coerce.List {
					return cfgErr("pos:%q requires a slice field, got %s", pos, rf.typ)
				}
				rf.kind = param.VarPositional
				rf.required = suffix == "+"
				rf.hasDef = false
			default:
				return cfgErr("invalid pos tag %q", pos)
			}
		}
		if tag.Get("kwargs") == "true" {
			if rf.typ.Kind() != coerce.Map {
				return cfgErr("kwargs requires a map field, got %s", rf.typ)
			}
			rf.kind = param.VarKeyword
			rf.hasDef = false
		}
	}

	o := &rf.opts
	if h, ok := tag.Lookup("help"); ok {
		o.Help = &h
	}
	if e := tag.Get("env"); e != "" {
		o.EnvVars = splitList(e)
	}
	if n, ok := tag.Lookup("negative"); ok {
		if n == "-" || n == "" {
			o.Negative = []string{}
		} else {
			o.Negative = splitList(n)
		}
	}
	if g := tag.Get("group"); g != "" {
		for _, name := range splitList(g) {
			o.Groups = append(o.Groups, c.group(name))
		}
	}
	for _, b := range []struct {
		key string
		dst **bool
	}{
		{"parse", &o.Parse},
		{"flatten", &o.Flatten},
		{"required", &o.Required},
		{"show", &o.Show},
	} {
		if v, ok := tag.Lookup(b.key); ok {
			parsed, err := coerce.ParseBool(v)
			if err != nil {
				return cfgErr("invalid %s tag %q", b.key, v)
			}
			*b.dst = &parsed
		}
	}
	switch v := tag.Get("consume"); v {
	case "":
	case "single":
		o.ConsumeMultiple = param.Ptr(false)
	case "multiple":
		o.ConsumeMultiple = param.Ptr(true)
	default:
		return cfgErr("invalid consume tag %q", v)
	}
	if v := tag.Get("hyphen"); v != "" {
		o.AllowLeadingHyphen = param.Ptr(v == "allow")
	}
	if v := tag.Get("arity"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfgErr("invalid arity tag %q", v)
		}
		o.Arity = &n
	}
	if v, ok := tag.Lookup("default"); ok {
		def, err := coerce.ParseDefault(rf.typ, v)
		if err != nil {
			return &argerr.ConfigError{Param: rf.ident, Msg: "invalid default tag", Err: err}
		}
		rf.def, rf.hasDef = def, true
		rf.required = false
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *config) group(name string) *param.Group {
	if g, ok := c.groups[name]; ok {
		return g
	}
	if c.groups == nil {
		c.groups = make(map[string]*param.Group)
	}
	g := &param.Group{Name: name}
	c.groups[name] = g
	return g
}

func newConfig(opts []Option) *config {
	c := &config{}
	for _, o := range opts {
		o(c)
	}
	// Copy so that groups created for tags do not leak between resolutions.
	groups := make(map[string]*param.Group, len(c.groups))
	for k, v := range c.groups {
		groups[k] = v
	}
	c.groups = groups
	return c
}

// Field declares one parameter of a Fields or Func target.
type Field struct {
	Name       string
	Kind       param.Kind
	Type       *coerce.Type
	Default    any
	HasDefault bool
	Options    param.Options
}

// Arg declares a positional-or-keyword parameter.
func Arg(name string, t *coerce.Type) Field {
	return Field{Name: name, Kind: param.PositionalOrKeyword, Type: t}
}

// Keyword declares a keyword-only parameter.
func Keyword(name string, t *coerce.Type) Field {
	return Field{Name: name, Kind: param.KeywordOnly, Type: t}
}

// VarArgs declares a var-positional parameter of elem values.
func VarArgs(name string, elem *coerce.Type) Field {
	return Field{Name: name, Kind: param.VarPositional, Type: coerce.NewList(elem)}
}

// KwArgs declares a var-keyword parameter of elem values.
func KwArgs(name string, elem *coerce.Type) Field {
	return Field{Name: name, Kind: param.VarKeyword, Type: coerce.NewMap(elem)}
}

// WithDefault returns f with a default value.
func (f Field) WithDefault(v any) Field {
	f.Default, f.HasDefault = v, true
	return f
}

// PositionalOnly returns f as a positional-only parameter.
func (f Field) PositionalOnly() Field {
	f.Kind = param.PositionalOnly
	return f
}

// With returns f with opts layered over its current options.
func (f Field) With(opts param.Options) Field {
	f.Options = param.Merge(f.Options, opts)
	return f
}

// Fields returns a Target for an explicit parameter list. Bound values are
// returned as a map keyed by field name.
func Fields(fields ...Field) Target {
	return fieldsTarget(fields)
}

type fieldsTarget []Field

func (t fieldsTarget) Resolve(opts ...Option) (*Signature, error) {
	c := newConfig(opts)
	raws, err := c.builderFields(t)
	if err != nil {
		return nil, err
	}
	return c.resolve(raws)
}

func (c *config) builderFields(fields []Field) ([]rawField, error) {
	raws := make([]rawField, 0, len(fields))
	pos := 0
	for _, f := range fields {
		if f.Type == nil {
			f.Type = coerce.AnyType
		}
		rf := rawField{
			ident:    f.Name,
			kind:     f.Kind,
			position: -1,
			typ:      f.Type,
			def:      f.Default,
			hasDef:   f.HasDefault,
			opts:     f.Options,
		}
		switch f.Kind {
		case param.PositionalOnly, param.PositionalOrKeyword:
			rf.position = pos
			pos++
			rf.required = !f.HasDefault
		case param.KeywordOnly:
			rf.required = !f.HasDefault
		case param.VarPositional:
			if f.Type.Kind() != coerce.List {
				return nil, &argerr.ConfigError{Param: f.Name, Msg: "var-positional parameter must have a list type"}
			}
		case param.VarKeyword:
			if f.Type.Kind() != coerce.Map {
				return nil, &argerr.ConfigError{Param: f.Name, Msg: "var-keyword parameter must have a map type"}
			}
		}
		raws = append(raws, rf)
	}
	return raws, nil
}

// Func returns a Target for fn. Go does not record parameter names, so
// fields describes fn's parameters in order; a field's nil Type is taken from
// fn. Parameters without a field are positional and named arg0, arg1 and so
// on. A leading context.Context parameter is not bound; it is supplied at
// call time.
func Func(fn any, fields ...Field) Target {
	return funcTarget{fn: fn, fields: fields}
}

type funcTarget struct {
	fn     any
	fields []Field
}

var contextType = reflect.TypeFor[context.Context]()

func (t funcTarget) Resolve(opts ...Option) (*Signature, error) {
	fv := reflect.ValueOf(t.fn)
	if fv.Kind() != reflect.Func {
		return nil, &argerr.ConfigError{Msg: fmt.Sprintf("func target must be a function, got %T", t.fn)}
	}
	ft := fv.Type()
	first := 0
	if ft.NumIn() > 0 && ft.In(0) == contextType {
		first = 1
	}
	n := ft.NumIn() - first
	if len(t.fields) > n {
		return nil, &argerr.ConfigError{Msg: fmt.Sprintf("%d fields given for a function with %d parameters", len(t.fields), n)}
	}
	fields := make([]Field, n)
	copy(fields, t.fields)
	for i := range fields {
		in := ft.In(first + i)
		variadic := ft.IsVariadic() && i == n-1
		f := &fields[i]
		if f.Name == "" {
			f.Name = fmt.Sprintf("arg%d", i)
		}
		if variadic {
			f.Kind = param.VarPositional
		}
		if f.Type == nil {
			typ, err := coerce.Of(in)
			if err != nil {
				return nil, &argerr.ConfigError{Param: f.Name, Err: err}
			}
			f.Type = typ
		}
		if f.Type.GoType() != nil && !f.Type.GoType().AssignableTo(in) && f.Type.GoType().Kind() != reflect.Interface {
			return nil, &argerr.ConfigError{Param: f.Name, Msg: fmt.Sprintf("type %s does not match function parameter %s", f.Type, in)}
		}
	}
	c := newConfig(opts)
	raws, err := c.builderFields(fields)
	if err != nil {
		return nil, err
	}
	for i := range raws {
		raws[i].index = []int{first + i}
	}
	sig, err := c.resolve(raws)
	if err != nil {
		return nil, err
	}
	sig.fn = fv
	sig.fnCtx = first == 1
	return sig, nil
}
