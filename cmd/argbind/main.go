// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command argbind is a small CLI built on the argbind engine. It shows
// commands backed by structs and functions, config files, environment
// variables, and validators working together.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/shayne/yargs"
	"github.com/yeetrun/argbind/pkg/argerr"
	"github.com/yeetrun/argbind/pkg/bind"
	"github.com/yeetrun/argbind/pkg/command"
	"github.com/yeetrun/argbind/pkg/source"
	"golang.org/x/term"
)

const (
	defaultConfig = "argbind.toml"
	dotenvFile    = ".env"
	envPrefix     = "ARGBIND_"
)

type globalFlagsParsed struct {
	Config  string `flag:"config" help:"Config file (argbind.toml, .yaml or .hcl)"`
	NoColor bool   `flag:"no-color" help:"Disable colored output"`
	Debug   bool   `flag:"debug" help:"Log binding decisions to stderr"`
}

func parseGlobalFlags(args []string) (globalFlagsParsed, []string, error) {
	result, err := yargs.ParseKnownFlags[globalFlagsParsed](args, yargs.KnownFlagsOptions{})
	if err != nil {
		return globalFlagsParsed{}, nil, err
	}
	return result.Flags, result.RemainingArgs, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command line and returns the process exit code: 0 on
// success, 2 for usage errors and 1 for anything else.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags, remaining, err := parseGlobalFlags(args)
	if err != nil {
		printCLIError(stderr, err)
		return 2
	}
	color.NoColor = !colorEnabled(stderr, flags.NoColor)

	logger := slog.New(slog.DiscardHandler)
	if flags.Debug {
		logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	sources, err := loadSources(ctx, flags.Config)
	if err != nil {
		printCLIError(stderr, err)
		return 1
	}

	a := newApp(stdout)
	res, err := command.Parse(a.root, remaining, bind.Options{
		AllowAbbrev: true,
		Sources:     sources,
		Logger:      logger,
	})
	if err != nil {
		printCLIError(stderr, err)
		if errors.Is(err, argerr.ErrUsage) {
			return 2
		}
		return 1
	}
	if err := a.dispatch(ctx, res); err != nil {
		printCLIError(stderr, err)
		if errors.Is(err, argerr.ErrUsage) {
			return 2
		}
		return 1
	}
	return 0
}

// loadSources returns the fallback value sources, highest priority first:
// ARGBIND_* variables, then the config file, then .env.
func loadSources(ctx context.Context, config string) ([]bind.Source, error) {
	sources := []bind.Source{&source.Env{Prefix: envPrefix}}

	explicit := config != ""
	if !explicit {
		config = defaultConfig
	}
	if explicit {
		if _, err := os.Stat(config); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	files, err := source.Load(ctx, config)
	if err != nil {
		return nil, err
	}
	sources = append(sources, files...)

	dotenv, err := source.Dotenv(dotenvFile, envPrefix)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		sources = append(sources, dotenv)
	}
	return sources, nil
}

func colorEnabled(w io.Writer, disabled bool) bool {
	if disabled || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func printCLIError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprint(w, color.RedString("error: "))
	fmt.Fprintln(w, err)
	if errors.Is(err, argerr.ErrUsage) {
		fmt.Fprintln(w, color.YellowString("Run 'argbind help' for usage."))
	}
}
