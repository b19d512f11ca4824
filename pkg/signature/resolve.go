// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package signature

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/yeetrun/argbind/pkg/argerr"
	"github.com/yeetrun/argbind/pkg/coerce"
	"github.com/yeetrun/argbind/pkg/param"
)

const (
	defaultNegativeBool     = "no-"
	defaultNegativeIterable = "empty-"
)

func kindRank(k param.Kind) int {
	switch k {
	case param.PositionalOnly, param.PositionalOrKeyword:
		return 0
	case param.KeywordOnly:
		return 1
	case param.VarPositional:
		return 2
	}
	return 3
}

func (c *config) resolve(raws []rawField) (*Signature, error) {
	slices.SortStableFunc(raws, func(a, b rawField) int {
		if r := cmp.Compare(kindRank(a.kind), kindRank(b.kind)); r != 0 {
			return r
		}
		if kindRank(a.kind) == 0 {
			return cmp.Compare(a.position, b.position)
		}
		return 0
	})

	var seenVarPos, seenVarKw bool
	for i, rf := range raws {
		if i > 0 && kindRank(rf.kind) == 0 && kindRank(raws[i-1].kind) == 0 && raws[i-1].position == rf.position {
			return nil, &argerr.ConfigError{Param: rf.ident, Msg: fmt.Sprintf("position %d already used by %s", rf.position, raws[i-1].ident)}
		}
		switch rf.kind {
		case param.VarPositional:
			if seenVarPos {
				return nil, &argerr.ConfigError{Param: rf.ident, Msg: "more than one var-positional parameter"}
			}
			seenVarPos = true
		case param.VarKeyword:
			if seenVarKw {
				return nil, &argerr.ConfigError{Param: rf.ident, Msg: "more than one var-keyword parameter"}
			}
			seenVarKw = true
		}
	}

	sig := &Signature{byName: make(map[string]*param.Parameter)}
	for i := range raws {
		if _, err := c.resolveField(sig, &raws[i], "", "", nil); err != nil {
			return nil, err
		}
	}
	return sig, nil
}

// resolveField resolves rf and, for records, its fields. namePrefix is the
// external prefix ("server.") and identPrefix the identifier path prefix
// ("Server.").
func (c *config) resolveField(sig *Signature, rf *rawField, namePrefix, identPrefix string, parent *param.Parameter) (*param.Parameter, error) {
	path := identPrefix + rf.ident
	opts := param.Resolve(param.Merge(rf.opts, c.fields[path]), c.scopes)
	transform := opts.NameTransform
	if transform == nil {
		transform = param.DefaultNameTransform
	}
	cfgErr := func(format string, args ...any) error {
		return &argerr.ConfigError{Param: path, Msg: fmt.Sprintf(format, args...)}
	}

	typ := rf.typ
	if typ.Kind() == coerce.Any && rf.hasDef && rf.def != nil {
		if inferred, err := coerce.Of(reflect.TypeOf(rf.def)); err == nil {
			typ = inferred
		}
	}
	if err := typ.Validate(); err != nil {
		return nil, &argerr.ConfigError{Param: path, Err: err}
	}

	p := &param.Parameter{
		Name:       path,
		Kind:       rf.kind,
		Type:       typ,
		Position:   rf.position,
		Parent:     parent,
		Default:    rf.def,
		HasDefault: rf.hasDef,
		Parse:      true,
		Show:       true,
		Converter:  opts.Converter,
		Validators: opts.Validators,
		Groups:     opts.Groups,
		EnvVars:    opts.EnvVars,
	}
	if rf.index != nil {
		if parent != nil {
			p.Index = append(append([]int(nil), parent.Index...), rf.index...)
		} else {
			p.Index = rf.index
		}
	}
	if opts.Default != nil {
		p.Default, p.HasDefault = opts.Default, true
	}
	p.Required = rf.required && !p.HasDefault
	if opts.Required != nil {
		p.Required = *opts.Required
	}
	if opts.Parse != nil {
		p.Parse = *opts.Parse
	}
	if opts.Show != nil {
		p.Show = *opts.Show
	}
	if opts.Help != nil {
		p.Help = *opts.Help
	}
	if opts.AllowLeadingHyphen != nil {
		p.AllowLeadingHyphen = *opts.AllowLeadingHyphen
	}
	p.ConsumeMultiple = typ.IsIterable()
	if opts.ConsumeMultiple != nil {
		p.ConsumeMultiple = *opts.ConsumeMultiple
	}

	p.TokenCount, p.ConsumeAll = typ.TokenCount()
	if opts.Arity != nil {
		if opts.Converter == nil {
			return nil, cfgErr("arity %d set without a converter", *opts.Arity)
		}
		if *opts.Arity < 0 {
			p.TokenCount, p.ConsumeAll = 1, true
		} else {
			p.TokenCount, p.ConsumeAll = *opts.Arity, false
		}
	}

	if !p.Parse && (p.Kind == param.PositionalOnly || p.Kind == param.PositionalOrKeyword) && !p.HasDefault {
		return nil, cfgErr("positional parameter with parsing disabled needs a default")
	}

	flatten := rf.embedded || (opts.Flatten != nil && *opts.Flatten)
	isRecord := typ.IsRecord() && (p.Kind == param.KeywordOnly)
	rel := rf.relNames
	if len(rel) == 0 {
		rel = []string{transform(param.NormalizeName(rf.ident))}
	}

	keyword := p.Kind == param.KeywordOnly || p.Kind == param.PositionalOrKeyword
	if keyword && !(isRecord && flatten) {
		if opts.Names != nil {
			p.Names = normalizeNames(opts.Names)
		} else {
			for _, r := range rel {
				p.Names = append(p.Names, "--"+namePrefix+r)
			}
			p.Names = append(p.Names, rf.short...)
		}
	}

	if len(p.Names) > 0 && (typ.IsBool() || typ.IsIterable()) {
		switch {
		case opts.Negative != nil:
			if len(opts.Negative) > 0 {
				p.NegativeNames = normalizeNames(opts.Negative)
			}
		default:
			prefix := defaultNegativeBool
			if opts.NegativeBoolPrefix != nil {
				prefix = *opts.NegativeBoolPrefix
			}
			if typ.IsIterable() {
				prefix = defaultNegativeIterable
				if opts.NegativeIterablePrefix != nil {
					prefix = *opts.NegativeIterablePrefix
				}
			}
			if prefix != "" {
				for _, n := range p.Names {
					if strings.HasPrefix(n, "--") {
						p.NegativeNames = append(p.NegativeNames, negate(n, prefix))
					}
				}
			}
		}
	}

	if isRecord {
		p.Required = false
	}
	if err := sig.add(p); err != nil {
		return nil, err
	}
	if !isRecord {
		return p, nil
	}

	childPrefix := namePrefix
	if !flatten {
		childPrefix = namePrefix + rel[0] + "."
	}
	children, err := c.recordFields(typ.Record(), p)
	if err != nil {
		return nil, err
	}
	for i := range children {
		child, err := c.resolveField(sig, &children[i], childPrefix, path+".", p)
		if err != nil {
			return nil, err
		}
		p.Children = append(p.Children, child)
	}
	return p, nil
}

// recordFields returns the raw fields of a record parameter. Defaults come
// from the parent's default value when it has one.
func (c *config) recordFields(rec *coerce.Type, parent *param.Parameter) ([]rawField, error) {
	if rec.GoType().Kind() == reflect.Struct {
		proto := reflect.Zero(rec.GoType())
		if parent.HasDefault && parent.Default != nil {
			rv := reflect.ValueOf(parent.Default)
			for rv.Kind() == reflect.Pointer && !rv.IsNil() {
				rv = rv.Elem()
			}
			if rv.Kind() == reflect.Struct && rv.Type() == rec.GoType() {
				proto = rv
			}
		}
		return c.structFields(rec, proto, false)
	}

	defaults, _ := parent.Default.(map[string]any)
	required := !parent.HasDefault && parent.Type.Kind() != coerce.Optional
	var out []rawField
	for _, f := range rec.Fields() {
		rf := rawField{
			ident:    f.Name,
			kind:     param.KeywordOnly,
			position: -1,
			typ:      f.Type,
			def:      f.Default,
			hasDef:   f.HasDefault,
		}
		if v, ok := defaults[f.Name]; ok {
			rf.def, rf.hasDef = v, true
		}
		rf.required = required && !rf.hasDef
		if err := c.applyTags(&rf, f.Tag, false); err != nil {
			return nil, err
		}
		out = append(out, rf)
	}
	return out, nil
}

func (s *Signature) add(p *param.Parameter) error {
	s.params = append(s.params, p)
	for _, names := range [][]string{p.Names, p.NegativeNames} {
		for _, n := range names {
			if other, ok := s.byName[n]; ok {
				return &argerr.ConfigError{Param: p.Name, Msg: fmt.Sprintf("name %s is already used by %s", n, other.Name)}
			}
			s.byName[n] = p
			s.names = append(s.names, n)
		}
	}
	return nil
}

// negate inserts prefix after the last "." of a long option name, so
// "--server.verbose" becomes "--server.no-verbose".
func negate(name, prefix string) string {
	body := strings.TrimPrefix(name, "--")
	if i := strings.LastIndex(body, "."); i >= 0 {
		return "--" + body[:i+1] + prefix + body[i+1:]
	}
	return "--" + prefix + body
}

func normalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		switch {
		case strings.HasPrefix(n, "-"):
			out = append(out, n)
		case len(n) == 1:
			out = append(out, "-"+n)
		default:
			out = append(out, "--"+n)
		}
	}
	return out
}
