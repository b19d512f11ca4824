// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package argerr defines the errors produced while resolving signatures and
// binding command-line tokens.
//
// Every error a user can cause by typing the wrong thing matches ErrUsage
// with errors.Is. ConfigError is the exception: it reports a mistake in the
// program's own command definitions and is never the user's fault.
package argerr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUsage is matched by every end-user error in this package.
var ErrUsage = errors.New("usage error")

// ConfigError is returned when a signature or command tree is declared in a
// way that can never bind correctly.
type ConfigError struct {
	Param string // Parameter (or command) the problem was found on, if any.
	Msg   string
	Err   error
}

func (e *ConfigError) Error() string {
	msg := e.Msg
	switch {
	case msg == "" && e.Err != nil:
		msg = e.Err.Error()
	case e.Err != nil:
		msg += ": " + e.Err.Error()
	}
	if e.Param != "" {
		return fmt.Sprintf("invalid configuration for %s: %s", e.Param, msg)
	}
	return "invalid configuration: " + msg
}

// Unwrap returns the cause unless it is itself a usage error, so that a
// ConfigError never matches ErrUsage. The cause still shows in Error.
func (e *ConfigError) Unwrap() error {
	if errors.Is(e.Err, ErrUsage) {
		return nil
	}
	return e.Err
}

// UnknownCommandError is returned when leading tokens do not name a command.
// Suggestion, if present, is a close match the user may have intended.
type UnknownCommandError struct {
	Tokens     []string
	Suggestion string
}

func (e *UnknownCommandError) Error() string {
	name := ""
	if len(e.Tokens) > 0 {
		name = e.Tokens[0]
	}
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown command: %s (did you mean %q?)", name, e.Suggestion)
	}
	return fmt.Sprintf("unknown command: %s", name)
}

func (e *UnknownCommandError) Is(target error) bool { return target == ErrUsage }

// UnknownOptionError is returned when an option-like token matches no parameter.
type UnknownOptionError struct {
	Token      string
	Suggestion string
}

func (e *UnknownOptionError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown option: %s (did you mean %q?)", e.Token, e.Suggestion)
	}
	return fmt.Sprintf("unknown option: %s", e.Token)
}

func (e *UnknownOptionError) Is(target error) bool { return target == ErrUsage }

// AmbiguousOptionError is returned when an abbreviated option matches more
// than one parameter.
type AmbiguousOptionError struct {
	Token      string
	Candidates []string
}

func (e *AmbiguousOptionError) Error() string {
	return fmt.Sprintf("ambiguous option %s: could be %s", e.Token, strings.Join(e.Candidates, ", "))
}

func (e *AmbiguousOptionError) Is(target error) bool { return target == ErrUsage }

// RepeatedArgumentError is returned when a parameter receives a value twice,
// either positionally and by keyword, or by a repeated keyword that does not
// accept multiple values.
type RepeatedArgumentError struct {
	Param  string
	First  string // Token (or "positional argument N") that supplied the value first.
	Second string
}

func (e *RepeatedArgumentError) Error() string {
	return fmt.Sprintf("parameter %s was given more than once: %s and %s", e.Param, e.First, e.Second)
}

func (e *RepeatedArgumentError) Is(target error) bool { return target == ErrUsage }

// BindError is a binding failure that has no more specific type.
type BindError struct {
	Param string
	Token string
	Msg   string
}

func (e *BindError) Error() string {
	switch {
	case e.Param != "" && e.Token != "":
		return fmt.Sprintf("%s (%s): %s", e.Token, e.Param, e.Msg)
	case e.Token != "":
		return fmt.Sprintf("%s: %s", e.Token, e.Msg)
	case e.Param != "":
		return fmt.Sprintf("%s: %s", e.Param, e.Msg)
	}
	return e.Msg
}

func (e *BindError) Is(target error) bool { return target == ErrUsage }

// CoercionError is returned when a token cannot be converted to the
// parameter's declared type.
type CoercionError struct {
	Param string
	Value string
	Type  string
	Err   error
}

func (e *CoercionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid value %q", e.Value)
	if e.Param != "" {
		fmt.Fprintf(&b, " for %s", e.Param)
	}
	if e.Type != "" {
		fmt.Fprintf(&b, ": expected %s", e.Type)
	}
	return b.String()
}

func (e *CoercionError) Unwrap() error { return e.Err }

func (e *CoercionError) Is(target error) bool { return target == ErrUsage }

// ValidationError is returned when a converted value is rejected by a
// validator. Params names every parameter involved, using external names.
type ValidationError struct {
	Params []string
	Msg    string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if len(e.Params) == 0 {
		return "invalid value: " + msg
	}
	return fmt.Sprintf("invalid value for %s: %s", strings.Join(e.Params, ", "), msg)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrUsage }

// ValidationErrors collects independent validation failures from sibling
// parameters.
type ValidationErrors []*ValidationError

func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

func (es ValidationErrors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

func (es ValidationErrors) Is(target error) bool { return target == ErrUsage }

// MissingArgumentError is returned when a required parameter received no
// value from the command line, the environment or a config source, or when a
// fixed-arity parameter ran out of tokens.
type MissingArgumentError struct {
	Param string
	Want  int // Number of tokens the parameter needed; 0 when simply absent.
	Got   int
}

func (e *MissingArgumentError) Error() string {
	if e.Want > 0 {
		return fmt.Sprintf("%s requires %d argument(s), got %d", e.Param, e.Want, e.Got)
	}
	return fmt.Sprintf("missing required argument: %s", e.Param)
}

func (e *MissingArgumentError) Is(target error) bool { return target == ErrUsage }
