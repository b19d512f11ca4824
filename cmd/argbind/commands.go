// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"
	"github.com/yeetrun/argbind/pkg/argerr"
	"github.com/yeetrun/argbind/pkg/bind"
	"github.com/yeetrun/argbind/pkg/coerce"
	"github.com/yeetrun/argbind/pkg/command"
	"github.com/yeetrun/argbind/pkg/env"
	"github.com/yeetrun/argbind/pkg/param"
	"github.com/yeetrun/argbind/pkg/signature"
	"github.com/yeetrun/argbind/pkg/validate"
	"tailscale.com/util/set"
)

const version = "0.3.0"

// handler runs a struct-backed command. Function-backed commands are run
// with Arguments.Call instead.
type handler func(ctx context.Context, args *bind.Arguments) error

type app struct {
	root     *command.Command
	stdout   io.Writer
	handlers map[*command.Command]handler
}

func newApp(stdout io.Writer) *app {
	a := &app{
		root: &command.Command{
			Name:   "argbind",
			Help:   "Bind command lines to Go structs and functions.",
			Groups: []*param.Group{param.NewGroup("vehicle", validate.MutuallyExclusive())},
		},
		stdout:   stdout,
		handlers: make(map[*command.Command]handler),
	}
	a.add(a.root, &command.Command{
		Name:   "greet",
		Help:   "Greet someone.",
		Usage:  "greet NAME [COUNT] [--formal]",
		Target: signature.Func(greet, signature.Arg("name", nil), signature.Arg("count", nil).WithDefault(1), signature.Keyword("formal", nil).WithDefault(false)),
	}, nil)
	a.add(a.root, &command.Command{
		Name:   "zero",
		Help:   "Write SIZE zero bytes.",
		Usage:  "zero SIZE [-o FILE]",
		Target: signature.Struct(zeroFlags{}),
		Options: []signature.Option{
			signature.WithField("Size", param.Options{Converter: byteSize}),
		},
	}, a.runZero)
	a.add(a.root, &command.Command{
		Name:   "vehicle",
		Help:   "Pick exactly one way to travel.",
		Target: signature.Struct(vehicleFlags{}),
	}, a.runVehicle)
	a.add(a.root, &command.Command{
		Name:   "serve",
		Help:   "Print the resolved server settings.",
		Target: signature.Struct(serveFlags{Server: server{Host: "localhost", Port: 8080}, Timeout: 30 * time.Second}),
		Options: []signature.Option{
			signature.WithField("Server.Port", param.Options{
				Validators: []param.Validator{validate.Number(validate.NumberOpts{Gt: param.Ptr(0.0), Lte: param.Ptr(65535.0)})},
			}),
		},
	}, a.runServe)
	a.add(a.root, &command.Command{
		Name:    "release",
		Aliases: []string{"rel"},
		Help:    "Check a release version against a constraint.",
		Target:  signature.Struct(releaseFlags{}),
	}, a.runRelease)

	envCmd := a.add(a.root, &command.Command{Name: "env", Help: "Edit dotenv files."}, nil)
	a.add(envCmd, &command.Command{
		Name:   "set",
		Help:   "Set KEY=VALUE pairs in a dotenv file.",
		Usage:  "env set FILE KEY=VALUE...",
		Target: signature.Func(a.envSet, signature.Arg("file", nil), signature.VarArgs("pairs", coerce.StringType)),
	}, nil)
	a.add(envCmd, &command.Command{
		Name:   "show",
		Help:   "Print a dotenv file with sorted keys.",
		Target: signature.Func(a.envShow, signature.Arg("file", nil)),
	}, nil)

	a.meta(&command.Command{
		Name:   "help",
		Help:   "Show help for a command.",
		Target: signature.Func(a.help, signature.VarArgs("command", coerce.StringType)),
	})
	a.meta(&command.Command{
		Name:   "version",
		Help:   "Print the version.",
		Target: signature.Func(func() string { return "argbind " + semver.MustParse(version).String() }),
	})
	return a
}

// add registers a command. Registration only fails for programming errors,
// so those panic.
func (a *app) add(parent, c *command.Command, h handler) *command.Command {
	if err := parent.Add(c); err != nil {
		panic(err)
	}
	if h != nil {
		a.handlers[c] = h
	}
	return c
}

func (a *app) meta(c *command.Command) {
	if err := a.root.AddMeta(c); err != nil {
		panic(err)
	}
}

func (a *app) dispatch(ctx context.Context, res *command.Result) error {
	if res.Args == nil {
		return a.usage(res.Command)
	}
	if unused := res.Args.Unused(); len(unused) > 0 {
		return &argerr.BindError{Token: strings.Join(unused, " "), Msg: "unexpected argument"}
	}
	if h, ok := a.handlers[res.Command]; ok {
		return h(ctx, res.Args)
	}
	out, err := res.Args.Call(ctx)
	if err != nil {
		return err
	}
	if out != nil {
		fmt.Fprintln(a.stdout, out)
	}
	return nil
}

func greet(name string, count int, formal bool) string {
	msg := "Hi, " + name + "!"
	if formal {
		msg = "Good day, " + name + "."
	}
	return strings.TrimSuffix(strings.Repeat(msg+"\n", max(count, 1)), "\n")
}

type zeroFlags struct {
	Size   int64  `pos:"0" help:"Byte count, with an optional kb, mb or gb suffix"`
	Output string `short:"o" help:"Write to this file instead of reporting the count"`
}

// byteSize converts "3mb" style sizes.
func byteSize(_ *coerce.Type, toks []param.Token) (any, error) {
	s := strings.ToLower(param.Values(toks)[0])
	mult := int64(1)
	for _, u := range []struct {
		suffix string
		mult   int64
	}{{"gb", 1 << 30}, {"mb", 1 << 20}, {"kb", 1 << 10}, {"b", 1}} {
		if strings.HasSuffix(s, u.suffix) {
			s, mult = strings.TrimSuffix(s, u.suffix), u.mult
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("invalid size %q", param.Values(toks)[0])
	}
	return n * mult, nil
}

func (a *app) runZero(_ context.Context, args *bind.Arguments) error {
	var f zeroFlags
	if err := args.Decode(&f); err != nil {
		return err
	}
	if f.Output == "" {
		fmt.Fprintf(a.stdout, "%d bytes\n", f.Size)
		return nil
	}
	if err := os.WriteFile(f.Output, make([]byte, f.Size), 0644); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "wrote %d bytes to %s\n", f.Size, f.Output)
	return nil
}

type vehicleFlags struct {
	Car   bool    `group:"vehicle" help:"Drive"`
	Truck bool    `group:"vehicle" help:"Haul"`
	Bike  bool    `group:"vehicle" help:"Pedal"`
	Miles float64 `default:"1" help:"Trip length"`
}

func (a *app) runVehicle(_ context.Context, args *bind.Arguments) error {
	var f vehicleFlags
	if err := args.Decode(&f); err != nil {
		return err
	}
	how := "walking"
	switch {
	case f.Car:
		how = "driving"
	case f.Truck:
		how = "hauling"
	case f.Bike:
		how = "cycling"
	}
	fmt.Fprintf(a.stdout, "%s %g miles\n", how, f.Miles)
	return nil
}

type server struct {
	Host string `help:"Listen host"`
	Port int    `help:"Listen port"`
}

type serveFlags struct {
	Name    string        `pos:"0?" help:"Service name"`
	Server  server        `help:"Listen address"`
	Tags    []string      `help:"Tags to attach"`
	Timeout time.Duration `help:"Shutdown timeout"`
	DryRun  bool          `help:"Print settings without serving"`
}

func (a *app) runServe(_ context.Context, args *bind.Arguments) error {
	var f serveFlags
	if err := args.Decode(&f); err != nil {
		return err
	}
	tags := set.Of(f.Tags...).Slice()
	slices.Sort(tags)
	name := f.Name
	if name == "" {
		name = "default"
	}
	fmt.Fprintf(a.stdout, "serve %s on %s:%d tags=%s timeout=%s dry-run=%t\n",
		name, f.Server.Host, f.Server.Port, strings.Join(tags, ","), f.Timeout, f.DryRun)
	return nil
}

type releaseFlags struct {
	Version  *semver.Version     `pos:"0" help:"Release version"`
	Requires *semver.Constraints `help:"Version constraint the release must satisfy"`
	ID       uuid.UUID           `flag:"id" help:"Release ID"`
	Digest   digest.Digest       `help:"Artifact digest"`
}

func (a *app) runRelease(_ context.Context, args *bind.Arguments) error {
	var f releaseFlags
	if err := args.Decode(&f); err != nil {
		return err
	}
	if f.Requires != nil {
		if ok, errs := f.Requires.Validate(f.Version); !ok {
			return fmt.Errorf("release %s: %w", f.Version, errors.Join(errs...))
		}
	}
	id := f.ID
	if id == uuid.Nil {
		id = uuid.NewSHA1(uuid.NameSpaceURL, []byte("argbind/"+f.Version.String()))
	}
	fmt.Fprintf(a.stdout, "release %s id=%s", f.Version, id)
	if f.Digest != "" {
		fmt.Fprintf(a.stdout, " %s=%s", f.Digest.Algorithm(), f.Digest.Encoded())
	}
	fmt.Fprintln(a.stdout)
	return nil
}

func (a *app) envSet(file string, pairs ...string) error {
	vars, err := env.Read(file)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if vars == nil {
		vars = make(map[string]string)
	}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return fmt.Errorf("invalid pair %q, want KEY=VALUE", p)
		}
		vars[k] = v
	}
	return env.Write(file, vars)
}

func (a *app) envShow(file string) error {
	vars, err := env.Read(file)
	if err != nil {
		return err
	}
	return env.Marshal(a.stdout, vars)
}

func (a *app) help(path ...string) error {
	cmd, rest := a.root.Resolve(path)
	if len(rest) > 0 {
		return fmt.Errorf("no help for %q", strings.Join(path, " "))
	}
	return a.usage(cmd)
}
