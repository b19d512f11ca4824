// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package validate provides common parameter and group validators.
package validate

import (
	"fmt"
	"strings"

	"github.com/yeetrun/argbind/pkg/argerr"
	"github.com/yeetrun/argbind/pkg/param"
)

// LimitedChoice allows between min and max members of a group to be
// supplied. A max below min means exactly min.
func LimitedChoice(min, max int) param.GroupValidator {
	if max < min {
		max = min
	}
	return func(members []*param.Parameter, supplied []param.Arg) error {
		n := len(supplied)
		switch {
		case n > max:
			names := argNames(supplied)
			if max == 1 {
				return &argerr.ValidationError{Params: names, Msg: "mutually exclusive"}
			}
			return &argerr.ValidationError{Params: names, Msg: fmt.Sprintf("at most %d may be given", max)}
		case n < min:
			return &argerr.ValidationError{
				Params: memberNames(members),
				Msg:    fmt.Sprintf("at least %d must be given, got %d", min, n),
			}
		}
		return nil
	}
}

// MutuallyExclusive allows at most one member of a group to be supplied.
func MutuallyExclusive() param.GroupValidator { return LimitedChoice(0, 1) }

// AllOrNone requires every member of a group to be supplied, or none.
func AllOrNone() param.GroupValidator {
	return func(members []*param.Parameter, supplied []param.Arg) error {
		if len(supplied) == 0 || len(supplied) == len(members) {
			return nil
		}
		have := make(map[*param.Parameter]bool, len(supplied))
		for _, a := range supplied {
			have[a.Param] = true
		}
		for _, p := range members {
			if !have[p] {
				return &argerr.ValidationError{
					Params: []string{p.DisplayName()},
					Msg:    fmt.Sprintf("required together with %s", strings.Join(argNames(supplied), ", ")),
				}
			}
		}
		return nil
	}
}

func argNames(args []param.Arg) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = a.Param.DisplayName()
	}
	return out
}

func memberNames(members []*param.Parameter) []string {
	out := make([]string, len(members))
	for i, p := range members {
		out[i] = p.DisplayName()
	}
	return out
}
