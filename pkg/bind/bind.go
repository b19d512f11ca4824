// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bind assigns command-line tokens to the parameters of a resolved
// signature, converts them, and validates the result.
//
// Binding runs in fixed phases: keyword tokens are matched left to right,
// the remaining tokens fill positional parameters in order, unbound
// parameters fall back to the configured sources, every token run is
// converted, required parameters are checked, and finally per-parameter and
// group validators run.
package bind

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/yeetrun/argbind/pkg/argerr"
	"github.com/yeetrun/argbind/pkg/coerce"
	"github.com/yeetrun/argbind/pkg/param"
	"github.com/yeetrun/argbind/pkg/signature"
	"github.com/yeetrun/argbind/pkg/suggest"
)

// EndOfOptions forces every following token to be positional.
const EndOfOptions = "--"

// Options control one Bind call.
type Options struct {
	// AllowLeadingHyphen treats unrecognized option-like tokens as values.
	AllowLeadingHyphen bool
	// AllowAbbrev lets unambiguous prefixes of long option names match.
	AllowAbbrev bool
	// AllowUnknown returns unrecognized options as unused tokens instead of
	// failing.
	AllowUnknown bool
	// Sources supply values for parameters the command line left unbound,
	// highest priority first.
	Sources []Source
	// Logger receives debug traces of binding decisions. Nil discards them.
	Logger *slog.Logger
}

// positional is a token left for the positional pass. run counts the
// keyword tokens seen before it; list parameters stop at a run change.
type positional struct {
	value string
	run   int
}

type binder struct {
	sig  *signature.Signature
	opts Options
	log  *slog.Logger

	tokens map[*param.Parameter][]param.Token
	order  []*param.Parameter
	// by records the first token that supplied each parameter.
	by     map[*param.Parameter]string
	byKw   map[*param.Parameter]bool
	pos    []positional
	unused []string
}

// Bind assigns tokens to the parameters of sig and returns the converted and
// validated values. All end-user failures match argerr.ErrUsage.
func Bind(sig *signature.Signature, tokens []string, opts Options) (*Arguments, error) {
	b := &binder{
		sig:    sig,
		opts:   opts,
		log:    opts.Logger,
		tokens: make(map[*param.Parameter][]param.Token),
		by:     make(map[*param.Parameter]string),
		byKw:   make(map[*param.Parameter]bool),
	}
	if b.log == nil {
		b.log = slog.New(slog.DiscardHandler)
	}
	if err := b.scan(tokens); err != nil {
		return nil, err
	}
	if err := b.fillPositional(); err != nil {
		return nil, err
	}
	if err := b.fillFromSources(); err != nil {
		return nil, err
	}
	args, err := b.convert()
	if err != nil {
		return nil, err
	}
	if err := b.checkMissing(args); err != nil {
		return nil, err
	}
	if err := validate(args); err != nil {
		return nil, err
	}
	return args, nil
}

func (b *binder) add(p *param.Parameter, desc string, keyword bool, toks ...param.Token) {
	if _, ok := b.tokens[p]; !ok {
		b.order = append(b.order, p)
		b.by[p] = desc
		b.byKw[p] = keyword
		b.tokens[p] = nil
	}
	for _, t := range toks {
		t.Index = len(b.tokens[p])
		b.tokens[p] = append(b.tokens[p], t)
	}
}

// scan is the keyword pass. Tokens that are not keywords are queued for the
// positional pass.
func (b *binder) scan(tokens []string) error {
	run := 0
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok == EndOfOptions {
			for _, rest := range tokens[i+1:] {
				b.pos = append(b.pos, positional{value: rest, run: run})
			}
			b.log.Debug("end of options", "remaining", len(tokens)-i-1)
			return nil
		}
		if !param.IsOptionLike(tok) {
			b.pos = append(b.pos, positional{value: tok, run: run})
			continue
		}

		name, inline, hasInline := strings.Cut(tok, "=")
		p, negative, err := b.match(name)
		if err != nil {
			return err
		}
		if p == nil {
			n, err := b.unknown(tokens, i, name, inline, hasInline)
			if err != nil {
				return err
			}
			if n < 0 {
				b.pos = append(b.pos, positional{value: tok, run: run})
				continue
			}
			i += n
			run++
			continue
		}
		run++
		if !p.Parse {
			return &argerr.BindError{Param: p.DisplayName(), Token: tok, Msg: "option cannot be set on the command line"}
		}

		if negative {
			if hasInline {
				return &argerr.BindError{Param: p.DisplayName(), Token: tok, Msg: "cannot assign a value to a negative option"}
			}
			if err := b.checkRepeat(p, tok); err != nil {
				return err
			}
			t := param.Token{Keyword: name, Source: param.SourceCLI, HasImplicit: true}
			if p.Type.IsBool() {
				t.Value, t.Implicit = "false", false
			} else {
				t.Implicit = coerce.Empty(p.Type)
			}
			b.log.Debug("bound negative option", "param", p.Name, "token", tok)
			b.add(p, name, true, t)
			continue
		}

		if p.TokenCount == 0 {
			if err := b.checkRepeat(p, tok); err != nil {
				return err
			}
			t := param.Token{Keyword: name, Source: param.SourceCLI}
			if hasInline {
				t.Value = inline
			} else {
				t.Value, t.Implicit, t.HasImplicit = "true", true, true
			}
			b.log.Debug("bound flag", "param", p.Name, "token", tok)
			b.add(p, name, true, t)
			continue
		}

		if err := b.checkRepeat(p, tok); err != nil {
			return err
		}
		values, consumed, err := b.consume(p, tokens[i+1:], inline, hasInline)
		if err != nil {
			return err
		}
		toks := make([]param.Token, len(values))
		for j, v := range values {
			toks[j] = param.Token{Value: v, Keyword: name, Source: param.SourceCLI}
		}
		b.log.Debug("bound option", "param", p.Name, "token", tok, "values", values)
		b.add(p, name, true, toks...)
		i += consumed
	}
	return nil
}

// match finds the parameter for an option name. Exact names win over
// abbreviations; an abbreviation matching several parameters, or both the
// positive and negative name of one parameter, is an error.
func (b *binder) match(name string) (*param.Parameter, bool, error) {
	if p, ok := b.sig.Lookup(name); ok {
		return p, p.IsNegative(name), nil
	}
	if !b.opts.AllowAbbrev || !strings.HasPrefix(name, "--") || len(name) < 3 {
		return nil, false, nil
	}
	var (
		found          *param.Parameter
		matches        []string
		distinct       bool
		sawPos, sawNeg bool
	)
	for _, n := range b.sig.Names() {
		if !strings.HasPrefix(n, name) {
			continue
		}
		p, _ := b.sig.Lookup(n)
		matches = append(matches, n)
		if found != nil && found != p {
			distinct = true
		}
		found = p
		if p.IsNegative(n) {
			sawNeg = true
		} else {
			sawPos = true
		}
	}
	if found == nil {
		return nil, false, nil
	}
	if distinct || (sawPos && sawNeg) {
		return nil, false, &argerr.AmbiguousOptionError{Token: name, Candidates: matches}
	}
	b.log.Debug("matched abbreviation", "token", name, "options", matches)
	return found, sawNeg, nil
}

// unknown handles an option that matched no parameter. It returns the number
// of following tokens consumed, or -1 if the token is to be treated as a
// positional value.
func (b *binder) unknown(tokens []string, i int, name, inline string, hasInline bool) (int, error) {
	if vk := b.sig.VarKeyword(); vk != nil && strings.HasPrefix(name, "--") && len(name) > 2 {
		key := strings.TrimPrefix(name, "--")
		if vk.TokenCount == 0 {
			t := param.Token{Keyword: name, Key: key, Source: param.SourceCLI}
			if hasInline {
				t.Value = inline
			} else {
				t.Value, t.Implicit, t.HasImplicit = "true", true, true
			}
			b.add(vk, name, true, t)
			return 0, nil
		}
		values, consumed, err := b.consume(vk, tokens[i+1:], inline, hasInline)
		if err != nil {
			return 0, err
		}
		toks := make([]param.Token, len(values))
		for j, v := range values {
			toks[j] = param.Token{Value: v, Keyword: name, Key: key, Source: param.SourceCLI}
		}
		b.log.Debug("absorbed keyword", "param", vk.Name, "key", key, "values", values)
		b.add(vk, name, true, toks...)
		return consumed, nil
	}
	if b.opts.AllowLeadingHyphen {
		return -1, nil
	}
	tok := tokens[i]
	if b.opts.AllowUnknown {
		b.unused = append(b.unused, tok)
		return 0, nil
	}
	return 0, &argerr.UnknownOptionError{Token: tok, Suggestion: suggest.Options(tok, b.sig.Names())}
}

// consume collects the values of one keyword occurrence from rest.
func (b *binder) consume(p *param.Parameter, rest []string, inline string, hasInline bool) ([]string, int, error) {
	need := max(p.TokenCount, 1)
	var values []string
	if hasInline {
		values = append(values, inline)
	}
	n := 0
	for n < len(rest) && len(values) < need {
		if b.isBoundary(p, rest[n]) {
			break
		}
		values = append(values, rest[n])
		n++
	}
	if len(values) < need {
		return nil, 0, &argerr.MissingArgumentError{Param: p.DisplayName(), Want: need, Got: len(values)}
	}
	if p.ConsumeAll && p.ConsumeMultiple && !hasInline {
		for n < len(rest) && !b.isBoundary(p, rest[n]) {
			values = append(values, rest[n])
			n++
		}
	}
	return values, n, nil
}

// isBoundary reports whether tok ends the values of a keyword occurrence.
func (b *binder) isBoundary(p *param.Parameter, tok string) bool {
	if tok == EndOfOptions {
		return true
	}
	if p.AllowLeadingHyphen {
		return false
	}
	if !param.IsOptionLike(tok) {
		return false
	}
	if b.opts.AllowLeadingHyphen {
		name, _, _ := strings.Cut(tok, "=")
		_, ok := b.sig.Lookup(name)
		return ok
	}
	return true
}

func (b *binder) checkRepeat(p *param.Parameter, tok string) error {
	prev, ok := b.by[p]
	if !ok {
		return nil
	}
	if p.ConsumeAll {
		return nil
	}
	return &argerr.RepeatedArgumentError{Param: p.DisplayName(), First: prev, Second: tok}
}

// fillPositional assigns queued tokens to positional parameters in order.
func (b *binder) fillPositional() error {
	params := b.sig.Positional()
	next := 0
	for _, p := range params {
		if next >= len(b.pos) {
			break
		}
		if !p.Parse {
			continue
		}
		if b.byKw[p] {
			return &argerr.RepeatedArgumentError{
				Param:  p.DisplayName(),
				First:  b.by[p],
				Second: fmt.Sprintf("positional argument %q", b.pos[next].value),
			}
		}
		var take []positional
		switch {
		case p.Kind == param.VarPositional:
			take = b.pos[next:]
		case p.ConsumeAll:
			run := b.pos[next].run
			end := next
			for end < len(b.pos) && b.pos[end].run == run {
				end++
			}
			take = b.pos[next:end]
		default:
			need := max(p.TokenCount, 1)
			if len(b.pos)-next < need {
				return &argerr.MissingArgumentError{Param: p.DisplayName(), Want: need, Got: len(b.pos) - next}
			}
			take = b.pos[next : next+need]
		}
		next += len(take)
		toks := make([]param.Token, len(take))
		for i, t := range take {
			toks[i] = param.Token{Value: t.value, Source: param.SourceCLI}
		}
		b.log.Debug("bound positional", "param", p.Name, "count", len(toks))
		b.add(p, fmt.Sprintf("positional argument %q", take[0].value), false, toks...)
	}
	for _, t := range b.pos[next:] {
		b.unused = append(b.unused, t.value)
	}
	return nil
}

// fillFromSources consults the sources for parameters left unbound.
func (b *binder) fillFromSources() error {
	if len(b.opts.Sources) == 0 {
		return nil
	}
	for _, p := range b.sig.Params() {
		if !p.Parse || p.IsRecord() {
			continue
		}
		if _, ok := b.tokens[p]; ok {
			continue
		}
		if b.ancestorBound(p) {
			continue
		}
		for _, src := range b.opts.Sources {
			values, ok, err := src.Lookup(p)
			if err != nil {
				return fmt.Errorf("source %s: %w", src.Name(), err)
			}
			if !ok || (len(values) == 0 && !p.Type.IsIterable()) {
				continue
			}
			toks := make([]param.Token, len(values))
			for i, v := range values {
				toks[i] = param.Token{Value: v, Source: src.Name()}
			}
			b.log.Debug("bound from source", "param", p.Name, "source", src.Name())
			b.add(p, src.Name(), false, toks...)
			break
		}
	}
	return nil
}

// ancestorBound reports whether a record containing p was supplied as a
// whole, such as --server '{host: a, port: 1}'.
func (b *binder) ancestorBound(p *param.Parameter) bool {
	for a := p.Parent; a != nil; a = a.Parent {
		if _, ok := b.tokens[a]; ok {
			return true
		}
	}
	return false
}
