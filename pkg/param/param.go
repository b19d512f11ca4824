// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package param holds the resolved description of one bindable slot, the
// groups parameters can belong to, and the tokens bound to them.
//
// A Parameter is built once by the signature resolver from a stack of
// partial Options and is read-only afterwards; the same Parameter and Group
// values may be shared by concurrent binds.
package param

import (
	"fmt"
	"strings"

	"github.com/yeetrun/argbind/pkg/coerce"
)

// Kind is how a parameter may be supplied. The zero Kind is
// PositionalOrKeyword.
type Kind int

const (
	PositionalOrKeyword Kind = iota
	PositionalOnly
	KeywordOnly
	VarPositional
	VarKeyword
)

func (k Kind) String() string {
	switch k {
	case PositionalOnly:
		return "positional-only"
	case PositionalOrKeyword:
		return "positional-or-keyword"
	case KeywordOnly:
		return "keyword-only"
	case VarPositional:
		return "var-positional"
	case VarKeyword:
		return "var-keyword"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Converter replaces type-directed conversion for one parameter. It gets the
// declared type and every token bound to the parameter.
type Converter func(t *coerce.Type, tokens []Token) (any, error)

// Validator checks a converted value. Returning an error rejects it.
type Validator func(t *coerce.Type, v any) error

// GroupConverter rewrites the supplied values of a group's members. Dropping
// an Arg unbinds that parameter.
type GroupConverter func(members []*Parameter, supplied []Arg) ([]Arg, error)

// GroupValidator checks the supplied values of a group's members together.
type GroupValidator func(members []*Parameter, supplied []Arg) error

// Arg is one converted value and the parameter it belongs to.
type Arg struct {
	Param *Parameter
	Value any
}

// Parameter is one resolved, bindable slot.
type Parameter struct {
	// Name is the dotted identifier path, such as "Server.Port".
	Name string
	// Names are the external aliases, long names first. Positional-only
	// parameters have none.
	Names         []string
	NegativeNames []string
	Kind          Kind
	Type          *coerce.Type

	Default    any
	HasDefault bool
	Required   bool

	// TokenCount is the number of tokens one value consumes. ConsumeAll
	// means further groups of TokenCount tokens are taken up to a boundary.
	TokenCount int
	ConsumeAll bool
	// ConsumeMultiple lets a keyword-bound iterable take every value up to
	// the next option. When false each occurrence takes one element.
	ConsumeMultiple    bool
	AllowLeadingHyphen bool

	Converter  Converter
	Validators []Validator
	Groups     []*Group
	// Parse is false for parameters that must be supplied by the caller.
	Parse   bool
	EnvVars []string
	Help    string
	Show    bool

	// Position is the declared positional index, or -1.
	Position int
	// Index is the struct field path for struct-backed signatures.
	Index    []int
	Parent   *Parameter
	Children []*Parameter
}

// DisplayName is the name used in error messages: the primary long name, or
// the upper-cased identifier for positional-only parameters.
func (p *Parameter) DisplayName() string {
	if len(p.Names) > 0 {
		return p.Names[0]
	}
	name := p.Name
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToUpper(strings.ReplaceAll(DefaultNameTransform(name), "-", "_"))
}

// AcceptsPositional reports whether the parameter can be filled by position.
func (p *Parameter) AcceptsPositional() bool {
	switch p.Kind {
	case PositionalOnly, PositionalOrKeyword, VarPositional:
		return true
	}
	return false
}

// AcceptsKeyword reports whether the parameter has keyword names.
func (p *Parameter) AcceptsKeyword() bool {
	return p.Kind != PositionalOnly && p.Kind != VarPositional && len(p.Names) > 0
}

// IsRecord reports whether the parameter is the parent of flattened fields.
func (p *Parameter) IsRecord() bool { return len(p.Children) > 0 }

// IsNegative reports whether name is one of the parameter's negative names.
func (p *Parameter) IsNegative(name string) bool {
	for _, n := range p.NegativeNames {
		if n == name {
			return true
		}
	}
	return false
}

func (p *Parameter) String() string {
	return fmt.Sprintf("%s(%s %s)", p.Name, p.Kind, p.Type)
}

// Token is one input unit bound to a parameter.
type Token struct {
	Value string
	// Keyword is the option the token was matched against; empty for
	// positional tokens.
	Keyword string
	// Source names where the token came from: "cli", "env", or a config
	// source name.
	Source string
	// Index is the token's position within the run bound to its parameter.
	Index int
	// Key is the option name for tokens absorbed by a var-keyword parameter.
	Key string
	// Implicit is the value a flag implies without a token, such as true
	// for --verbose or an empty list for --empty-items.
	Implicit    any
	HasImplicit bool
}

// Positional reports whether the token was bound by position on the command
// line.
func (t Token) Positional() bool { return t.Source == SourceCLI && t.Keyword == "" }

// SourceCLI is the Token.Source of tokens from the command line.
const SourceCLI = "cli"

// Values returns the raw values of tokens.
func Values(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Value
	}
	return out
}
