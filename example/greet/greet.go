// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yeetrun/argbind/pkg/bind"
	"github.com/yeetrun/argbind/pkg/signature"
)

type flags struct {
	Name     string        `pos:"0?" help:"Who to greet"`
	Interval time.Duration `default:"2s" help:"Delay between greetings"`
	Count    int           `short:"n" default:"1" help:"Number of greetings, 0 for forever"`
	Shout    bool          `help:"Upper-case the greeting"`
}

func main() {
	sig, err := signature.Struct(flags{Name: "World"}).Resolve()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	args, err := bind.Bind(sig, os.Args[1:], bind.Options{AllowAbbrev: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	var f flags
	if err := args.Decode(&f); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	greet(context.Background(), f)
}

func greet(ctx context.Context, f flags) {
	msg := fmt.Sprintf("Hello, %s!", f.Name)
	if f.Shout {
		msg = strings.ToUpper(msg)
	}
	for i := 0; f.Count == 0 || i < f.Count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(f.Interval):
			}
		}
		fmt.Println(msg)
	}
}
