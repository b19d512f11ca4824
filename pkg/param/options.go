// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package param

// Options is a partial parameter configuration. Nil fields are unset and
// fall through to lower layers during Merge.
type Options struct {
	// Names replaces the derived names. Explicit names skip NameTransform.
	Names []string
	// Negative replaces the derived negative names. A non-nil empty slice
	// disables negative names.
	Negative               []string
	NegativeBoolPrefix     *string
	NegativeIterablePrefix *string

	Default   any
	Required  *bool
	Converter Converter
	// Arity is the token count of a custom Converter when it cannot be
	// inferred from the type.
	Arity      *int
	Validators []Validator
	Groups     []*Group

	Parse              *bool
	EnvVars            []string
	Help               *string
	Show               *bool
	NameTransform      func(string) string
	ConsumeMultiple    *bool
	AllowLeadingHyphen *bool
	Flatten            *bool
}

// Ptr returns a pointer to v, for filling Options literals.
func Ptr[T any](v T) *T { return &v }

// Merge folds layers from lowest to highest priority. A field set in a later
// layer replaces the field outright; values are never merged within one
// field.
func Merge(layers ...Options) Options {
	var out Options
	for _, l := range layers {
		if l.Names != nil {
			out.Names = l.Names
		}
		if l.Negative != nil {
			out.Negative = l.Negative
		}
		if l.NegativeBoolPrefix != nil {
			out.NegativeBoolPrefix = l.NegativeBoolPrefix
		}
		if l.NegativeIterablePrefix != nil {
			out.NegativeIterablePrefix = l.NegativeIterablePrefix
		}
		if l.Default != nil {
			out.Default = l.Default
		}
		if l.Required != nil {
			out.Required = l.Required
		}
		if l.Converter != nil {
			out.Converter = l.Converter
		}
		if l.Arity != nil {
			out.Arity = l.Arity
		}
		if l.Validators != nil {
			out.Validators = l.Validators
		}
		if l.Groups != nil {
			out.Groups = l.Groups
		}
		if l.Parse != nil {
			out.Parse = l.Parse
		}
		if l.EnvVars != nil {
			out.EnvVars = l.EnvVars
		}
		if l.Help != nil {
			out.Help = l.Help
		}
		if l.Show != nil {
			out.Show = l.Show
		}
		if l.NameTransform != nil {
			out.NameTransform = l.NameTransform
		}
		if l.ConsumeMultiple != nil {
			out.ConsumeMultiple = l.ConsumeMultiple
		}
		if l.AllowLeadingHyphen != nil {
			out.AllowLeadingHyphen = l.AllowLeadingHyphen
		}
		if l.Flatten != nil {
			out.Flatten = l.Flatten
		}
	}
	return out
}

// Scope is the default configuration one command level applies to the
// parameters it registers. GroupDefaults sits below Defaults.
type Scope struct {
	Defaults      Options
	GroupDefaults Options
}

// Layers orders the configuration stack of one parameter from lowest to
// highest priority, ready for Merge. scopes is innermost first; of several
// groups, the first listed wins.
func Layers(explicit Options, groups []*Group, scopes []Scope) []Options {
	layers := make([]Options, 0, 2*len(scopes)+len(groups)+1)
	for i := len(scopes) - 1; i >= 0; i-- {
		layers = append(layers, scopes[i].GroupDefaults, scopes[i].Defaults)
	}
	for i := len(groups) - 1; i >= 0; i-- {
		if groups[i] != nil {
			layers = append(layers, groups[i].Defaults)
		}
	}
	return append(layers, explicit)
}

// Resolve merges the full configuration stack of one parameter. Group
// membership may itself come from a scope, so groups are found first and
// their defaults layered in second.
func Resolve(explicit Options, scopes []Scope) Options {
	base := Merge(Layers(explicit, nil, scopes)...)
	if len(base.Groups) == 0 {
		return base
	}
	return Merge(Layers(explicit, base.Groups, scopes)...)
}
