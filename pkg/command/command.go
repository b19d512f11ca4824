// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package command arranges targets into a tree of named commands and picks
// the one a command line addresses before binding the rest of it.
package command

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"github.com/yeetrun/argbind/pkg/argerr"
	"github.com/yeetrun/argbind/pkg/bind"
	"github.com/yeetrun/argbind/pkg/param"
	"github.com/yeetrun/argbind/pkg/signature"
	"github.com/yeetrun/argbind/pkg/suggest"
	"tailscale.com/util/mak"
)

// Command is one node of a command tree.
//
// Exported fields must not change once the command has been parsed
// against: its signature is resolved on first use and kept.
type Command struct {
	Name    string
	Aliases []string
	Help    string
	Usage   string
	Hidden  bool

	// Target is the command's own action. A command without one only
	// groups subcommands.
	Target signature.Target
	// Default names the child to run when the command has no Target and
	// the command line names no child.
	Default string

	// Defaults and GroupDefaults apply to every parameter registered at
	// or below this command.
	Defaults      param.Options
	GroupDefaults param.Options
	// Groups are visible by name to group tags at or below this command.
	Groups []*param.Group
	// Options are passed to Target.Resolve after the scope and group
	// options.
	Options []signature.Option

	parent   *Command
	children *orderedmap.OrderedMap[string, *Command]
	meta     *orderedmap.OrderedMap[string, *Command]
	names    map[string]*Command
	metaName map[string]*Command

	once   sync.Once
	sig    *signature.Signature
	sigErr error
}

// New returns a command named name running target.
func New(name string, target signature.Target) *Command {
	return &Command{Name: name, Target: target}
}

// Add registers child as a subcommand of c.
func (c *Command) Add(child *Command) error {
	if err := c.adopt(child, c.names); err != nil {
		return err
	}
	if c.children == nil {
		c.children = orderedmap.New[string, *Command]()
	}
	c.children.Set(child.Name, child)
	for _, n := range child.allNames() {
		mak.Set(&c.names, n, child)
	}
	return nil
}

// AddMeta registers child as a meta command of c. Meta commands, such as
// "help" or "version", are reachable from c and from every command below it.
func (c *Command) AddMeta(child *Command) error {
	if err := c.adopt(child, c.metaName); err != nil {
		return err
	}
	if c.meta == nil {
		c.meta = orderedmap.New[string, *Command]()
	}
	c.meta.Set(child.Name, child)
	for _, n := range child.allNames() {
		mak.Set(&c.metaName, n, child)
	}
	return nil
}

func (c *Command) adopt(child *Command, taken map[string]*Command) error {
	if child == nil || child.Name == "" {
		return &argerr.ConfigError{Msg: "command has no name"}
	}
	if strings.HasPrefix(child.Name, "-") {
		return &argerr.ConfigError{Msg: fmt.Sprintf("command name %q looks like an option", child.Name)}
	}
	if child.parent != nil {
		return &argerr.ConfigError{Msg: fmt.Sprintf("command %q already belongs to %q", child.Name, child.parent.Name)}
	}
	for a := c; a != nil; a = a.parent {
		if a == child {
			return &argerr.ConfigError{Msg: fmt.Sprintf("adding %q under %q would create a cycle", child.Name, c.Name)}
		}
	}
	for _, n := range child.allNames() {
		if _, dup := taken[n]; dup {
			return &argerr.ConfigError{Msg: fmt.Sprintf("command name %q registered twice under %q", n, c.Name)}
		}
	}
	child.parent = c
	return nil
}

func (c *Command) allNames() []string {
	return append([]string{c.Name}, c.Aliases...)
}

// Parent returns the command c was added to, or nil for a root.
func (c *Command) Parent() *Command { return c.parent }

// Path returns the names from the root down to c.
func (c *Command) Path() []string {
	var out []string
	for a := c; a != nil; a = a.parent {
		out = append([]string{a.Name}, out...)
	}
	return out
}

// Children iterates over subcommands in registration order, including
// hidden ones. Meta commands are not included.
func (c *Command) Children() iter.Seq[*Command] {
	return func(yield func(*Command) bool) {
		if c.children == nil {
			return
		}
		for pair := c.children.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Value) {
				return
			}
		}
	}
}

// Meta iterates over the meta commands registered on c itself.
func (c *Command) Meta() iter.Seq[*Command] {
	return func(yield func(*Command) bool) {
		if c.meta == nil {
			return
		}
		for pair := c.meta.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Value) {
				return
			}
		}
	}
}

// Lookup finds the subcommand called name, by name or alias. Meta commands
// of c and its ancestors are found too, nearest first.
func (c *Command) Lookup(name string) (*Command, bool) {
	if sub, ok := c.names[name]; ok {
		return sub, true
	}
	for a := c; a != nil; a = a.parent {
		if sub, ok := a.metaName[name]; ok {
			return sub, true
		}
	}
	return nil, false
}

// visibleNames lists what a user could type at c, for suggestions.
func (c *Command) visibleNames() []string {
	var out []string
	for sub := range c.Children() {
		if !sub.Hidden {
			out = append(out, sub.allNames()...)
		}
	}
	for a := c; a != nil; a = a.parent {
		for m := range a.Meta() {
			if !m.Hidden {
				out = append(out, m.allNames()...)
			}
		}
	}
	return out
}

// Scopes returns the default scopes that apply to c, innermost first.
func (c *Command) Scopes() []param.Scope {
	var out []param.Scope
	for a := c; a != nil; a = a.parent {
		out = append(out, param.Scope{Defaults: a.Defaults, GroupDefaults: a.GroupDefaults})
	}
	return out
}

// Signature resolves c's Target with the scopes and groups of c and its
// ancestors. It returns nil and no error for a command with no Target. The
// result is computed once.
func (c *Command) Signature() (*signature.Signature, error) {
	c.once.Do(func() {
		if c.Target == nil {
			return
		}
		var groups []*param.Group
		// Outermost first, so nearer commands override by name.
		for _, a := range c.lineage() {
			groups = append(groups, a.Groups...)
		}
		opts := append([]signature.Option{
			signature.WithScopes(c.Scopes()...),
			signature.WithGroups(groups...),
		}, c.Options...)
		c.sig, c.sigErr = c.Target.Resolve(opts...)
		if c.sigErr != nil {
			c.sigErr = fmt.Errorf("command %s: %w", strings.Join(c.Path(), " "), c.sigErr)
		}
	})
	return c.sig, c.sigErr
}

// lineage returns the commands from the root down to c.
func (c *Command) lineage() []*Command {
	var out []*Command
	for a := c; a != nil; a = a.parent {
		out = append([]*Command{a}, out...)
	}
	return out
}

// Resolve consumes the leading tokens that name subcommands and returns the
// deepest command reached along with the tokens left for it. Descent stops
// at the first token that is not a subcommand name, including any option.
func (c *Command) Resolve(tokens []string) (cmd *Command, rest []string) {
	cmd = c
	for len(tokens) > 0 {
		sub, ok := cmd.Lookup(tokens[0])
		if !ok {
			break
		}
		cmd, tokens = sub, tokens[1:]
	}
	return cmd, tokens
}

// Result is a parsed command line.
type Result struct {
	// Command is the command the line addressed.
	Command *Command
	// Path is the command's names from the root, as registered.
	Path []string
	// Args holds the bound arguments. It is nil when Command has no
	// Target, in which case the caller typically prints usage.
	Args *bind.Arguments
}

// Call invokes the bound function target.
func (r *Result) Call(ctx context.Context) (any, error) {
	if r.Args == nil {
		return nil, &argerr.ConfigError{Msg: fmt.Sprintf("command %q has nothing to run", strings.Join(r.Path, " "))}
	}
	return r.Args.Call(ctx)
}

// Parse resolves tokens against the tree under root and binds what remains
// to the selected command.
func Parse(root *Command, tokens []string, opts bind.Options) (*Result, error) {
	cmd, rest := root.Resolve(tokens)
	if cmd.Target == nil && cmd.Default != "" && len(rest) == 0 {
		sub, ok := cmd.Lookup(cmd.Default)
		if !ok {
			return nil, &argerr.ConfigError{Msg: fmt.Sprintf("default command %q of %q is not registered", cmd.Default, cmd.Name)}
		}
		cmd = sub
	}
	res := &Result{Command: cmd, Path: cmd.Path()}

	sig, err := cmd.Signature()
	if err != nil {
		return nil, err
	}
	if sig == nil {
		if len(rest) == 0 {
			return res, nil
		}
		if strings.HasPrefix(rest[0], "-") && rest[0] != bind.EndOfOptions {
			return nil, &argerr.UnknownOptionError{Token: rest[0]}
		}
		return nil, &argerr.UnknownCommandError{
			Tokens:     rest,
			Suggestion: suggest.Closest(rest[0], cmd.visibleNames()),
		}
	}

	args, err := bind.Bind(sig, rest, opts)
	if err != nil {
		return nil, err
	}
	res.Args = args
	return res, nil
}

// ParseString splits line with shell quoting rules and parses the result.
func ParseString(root *Command, line string, opts bind.Options) (*Result, error) {
	tokens, err := bind.Split(line)
	if err != nil {
		return nil, err
	}
	return Parse(root, tokens, opts)
}
