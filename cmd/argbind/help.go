// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/yeetrun/argbind/pkg/command"
	"github.com/yeetrun/argbind/pkg/param"
)

// usage prints the help page of cmd: its usage line, subcommands and
// options.
func (a *app) usage(cmd *command.Command) error {
	bold := color.New(color.Bold)
	w := a.stdout

	usage := cmd.Usage
	if usage == "" {
		usage = strings.Join(cmd.Path()[1:], " ")
		if cmd.Target != nil {
			usage += " [options]"
		} else {
			usage += " COMMAND"
		}
	}
	fmt.Fprintf(w, "%s argbind %s\n", bold.Sprint("Usage:"), strings.TrimSpace(usage))
	if cmd.Help != "" {
		fmt.Fprintf(w, "\n%s\n", cmd.Help)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	var subs []*command.Command
	for c := range cmd.Children() {
		if !c.Hidden {
			subs = append(subs, c)
		}
	}
	if cmd.Parent() == nil {
		for c := range cmd.Meta() {
			subs = append(subs, c)
		}
	}
	if len(subs) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold.Sprint("Commands:"))
		for _, c := range subs {
			name := c.Name
			if len(c.Aliases) > 0 {
				name += " (" + strings.Join(c.Aliases, ", ") + ")"
			}
			fmt.Fprintf(tw, "  %s\t%s\n", name, c.Help)
		}
		tw.Flush()
	}

	sig, err := cmd.Signature()
	if err != nil {
		return err
	}
	if sig == nil {
		return nil
	}
	var shown []*param.Parameter
	for _, p := range sig.Params() {
		if p.Show && p.Parse {
			shown = append(shown, p)
		}
	}
	if len(shown) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\n%s\n", bold.Sprint("Options:"))
	for _, p := range shown {
		names := append(append([]string(nil), p.Names...), p.NegativeNames...)
		label := strings.Join(names, ", ")
		if label == "" {
			label = p.DisplayName()
		}
		help := p.Help
		switch {
		case p.Required:
			help += " (required)"
		case p.HasDefault && p.Default != nil:
			help += fmt.Sprintf(" (default: %v)", p.Default)
		}
		fmt.Fprintf(tw, "  %s\t%s\n", label, strings.TrimSpace(help))
	}
	return tw.Flush()
}
