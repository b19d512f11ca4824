// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bind

import (
	"errors"

	"github.com/yeetrun/argbind/pkg/argerr"
	"github.com/yeetrun/argbind/pkg/param"
)

// validate runs per-parameter validators over every supplied value, then each
// group's converter and validators.
//
// Per-parameter failures are collected: every parameter is checked and all
// failures are returned together. Group checks stop at the first failure.
func validate(args *Arguments) error {
	var errs argerr.ValidationErrors
	for pair := args.values.Oldest(); pair != nil; pair = pair.Next() {
		p := pair.Key
		for _, v := range p.Validators {
			if err := v(p.Type, pair.Value); err != nil {
				errs = append(errs, validationErr([]*param.Parameter{p}, err))
				break
			}
		}
	}
	switch len(errs) {
	case 0:
	case 1:
		return errs[0]
	default:
		return errs
	}

	params := args.sig.Params()
	for _, g := range groupsOf(params) {
		members := g.Members(params)
		if g.Converter != nil {
			out, err := g.Converter(members, args.supplied(members))
			if err != nil {
				return validationErr(members, err)
			}
			args.replace(members, out)
		}
		for _, v := range g.Validators {
			if err := v(members, args.supplied(members)); err != nil {
				return validationErr(members, err)
			}
		}
	}
	return nil
}

// groupsOf returns the distinct groups of params in first-seen order.
func groupsOf(params []*param.Parameter) []*param.Group {
	var out []*param.Group
	seen := make(map[*param.Group]bool)
	for _, p := range params {
		for _, g := range p.Groups {
			if !seen[g] {
				seen[g] = true
				out = append(out, g)
			}
		}
	}
	return out
}

// validationErr wraps err so it names params. Errors that already carry
// parameter names are returned as they are.
func validationErr(params []*param.Parameter, err error) *argerr.ValidationError {
	var ve *argerr.ValidationError
	if errors.As(err, &ve) {
		if len(ve.Params) > 0 {
			return ve
		}
		out := *ve
		out.Params = displayNames(params)
		return &out
	}
	return &argerr.ValidationError{Params: displayNames(params), Err: err}
}

func displayNames(params []*param.Parameter) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.DisplayName()
	}
	return out
}
