// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bind

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/yeetrun/argbind/pkg/argerr"
	"github.com/yeetrun/argbind/pkg/coerce"
	"github.com/yeetrun/argbind/pkg/param"
	"github.com/yeetrun/argbind/pkg/signature"
)

func mustResolve(t *testing.T, target signature.Target, opts ...signature.Option) *signature.Signature {
	t.Helper()
	sig, err := target.Resolve(opts...)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return sig
}

func decode[T any](t *testing.T, proto T, tokens []string, opts Options) (T, error) {
	t.Helper()
	sig := mustResolve(t, signature.Struct(proto))
	var out T
	args, err := Bind(sig, tokens, opts)
	if err != nil {
		return out, err
	}
	if err := args.Decode(&out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return out, nil
}

type greetFlags struct {
	Name   string `pos:"0" help:"who to greet"`
	Count  int    `pos:"1?" default:"1"`
	Formal bool   `short:"f"`
}

func TestBindStruct(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want greetFlags
	}{
		{"positional then flag", []string{"Alice", "3", "--formal"}, greetFlags{Name: "Alice", Count: 3, Formal: true}},
		{"defaults", []string{"Bob"}, greetFlags{Name: "Bob", Count: 1}},
		{"keywords", []string{"--count", "2", "--name", "Eve"}, greetFlags{Name: "Eve", Count: 2}},
		{"inline value", []string{"--name=Zed", "--count=0x10"}, greetFlags{Name: "Zed", Count: 16}},
		{"short flag", []string{"Al", "-f"}, greetFlags{Name: "Al", Count: 1, Formal: true}},
		{"explicit bool", []string{"Al", "--formal=yes"}, greetFlags{Name: "Al", Count: 1, Formal: true}},
		{"end of options", []string{"--", "--odd"}, greetFlags{Name: "--odd", Count: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decode(t, greetFlags{}, tt.args, Options{})
			if err != nil {
				t.Fatalf("Bind(%q) error = %v", tt.args, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Bind(%q) mismatch (-want +got):\n%s", tt.args, diff)
			}
		})
	}
}

func TestNegativeValues(t *testing.T) {
	type flags struct {
		Timeout time.Duration
		Offset  int
	}
	got, err := decode(t, flags{}, []string{"--timeout", "-5s", "--offset", "-3"}, Options{})
	if err != nil {
		t.Fatalf("Bind error = %v", err)
	}
	if diff := cmp.Diff(flags{Timeout: -5 * time.Second, Offset: -3}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestBindErrors(t *testing.T) {
	type verboseFlags struct {
		Verbose bool
	}
	tests := []struct {
		name    string
		args    []string
		proto   any
		wantErr any
	}{
		{"keyword then positional for same param", []string{"--name", "Bob", "Alice"}, greetFlags{}, new(*argerr.RepeatedArgumentError)},
		{"repeated scalar", []string{"--name", "a", "--name", "b"}, greetFlags{}, new(*argerr.RepeatedArgumentError)},
		{"missing required", nil, greetFlags{}, new(*argerr.MissingArgumentError)},
		{"missing value", []string{"--name"}, greetFlags{}, new(*argerr.MissingArgumentError)},
		{"bad int", []string{"Al", "three"}, greetFlags{}, new(*argerr.CoercionError)},
		{"unknown option", []string{"Al", "--formla"}, greetFlags{}, new(*argerr.UnknownOptionError)},
		{"negative with value", []string{"--verbose", "--no-verbose=true"}, verboseFlags{}, new(*argerr.BindError)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := mustResolve(t, signature.Struct(tt.proto))
			_, err := Bind(sig, tt.args, Options{})
			if err == nil {
				t.Fatalf("Bind(%q) succeeded, want error", tt.args)
			}
			if !errors.As(err, tt.wantErr) {
				t.Errorf("Bind(%q) error = %T (%v), want %T", tt.args, err, err, tt.wantErr)
			}
			if !errors.Is(err, argerr.ErrUsage) {
				t.Errorf("Bind(%q) error %v does not match ErrUsage", tt.args, err)
			}
		})
	}
}

func TestUnknownOptionSuggestion(t *testing.T) {
	sig := mustResolve(t, signature.Struct(greetFlags{}))
	_, err := Bind(sig, []string{"Al", "--formla"}, Options{})
	var ue *argerr.UnknownOptionError
	if !errors.As(err, &ue) {
		t.Fatalf("error = %v, want UnknownOptionError", err)
	}
	if ue.Suggestion != "--formal" {
		t.Errorf("Suggestion = %q, want --formal", ue.Suggestion)
	}
}

func TestMissingNamesParameter(t *testing.T) {
	sig := mustResolve(t, signature.Struct(greetFlags{}))
	_, err := Bind(sig, nil, Options{})
	if err == nil || !strings.Contains(err.Error(), "--name") {
		t.Errorf("error = %v, want it to name --name", err)
	}
}

func TestListConsumption(t *testing.T) {
	type flags struct {
		Items []int
		Flag  bool
	}
	tests := []struct {
		name string
		args []string
		want flags
	}{
		{"runs to next option", []string{"--items", "1", "2", "3", "--flag"}, flags{Items: []int{1, 2, 3}, Flag: true}},
		{"repeated occurrences append", []string{"--items", "1", "--items", "2"}, flags{Items: []int{1, 2}}},
		{"negative empties", []string{"--items", "1", "--empty-items"}, flags{Items: []int{}}},
		{"negative then more", []string{"--empty-items", "--items", "4"}, flags{Items: []int{4}}},
		{"negative numbers are values", []string{"--items", "-1", "-2"}, flags{Items: []int{-1, -2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decode(t, flags{}, tt.args, Options{})
			if err != nil {
				t.Fatalf("Bind(%q) error = %v", tt.args, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Bind(%q) mismatch (-want +got):\n%s", tt.args, diff)
			}
		})
	}
}

func TestConsumeSingle(t *testing.T) {
	type flags struct {
		Tags []string `consume:"single"`
	}
	sig := mustResolve(t, signature.Struct(flags{}))
	args, err := Bind(sig, []string{"--tags", "a", "--tags", "b", "c"}, Options{})
	if err != nil {
		t.Fatalf("Bind error = %v", err)
	}
	got, _ := args.Value("Tags")
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Errorf("Tags mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"c"}, args.Unused()); diff != "" {
		t.Errorf("Unused mismatch (-want +got):\n%s", diff)
	}
}

func TestNegativeBool(t *testing.T) {
	type flags struct {
		Verbose bool
	}
	got, err := decode(t, flags{Verbose: true}, []string{"--no-verbose"}, Options{})
	if err != nil {
		t.Fatalf("Bind error = %v", err)
	}
	if got.Verbose {
		t.Errorf("Verbose = true, want false")
	}

	sig := mustResolve(t, signature.Struct(flags{}))
	_, err = Bind(sig, []string{"--verbose", "--no-verbose"}, Options{})
	var re *argerr.RepeatedArgumentError
	if !errors.As(err, &re) {
		t.Errorf("--verbose --no-verbose error = %v, want RepeatedArgumentError", err)
	}
}

func TestAbbreviations(t *testing.T) {
	type flags struct {
		Verbose bool
		Version bool
	}
	sig := mustResolve(t, signature.Struct(flags{}))

	args, err := Bind(sig, []string{"--verb"}, Options{AllowAbbrev: true})
	if err != nil {
		t.Fatalf("Bind(--verb) error = %v", err)
	}
	if v, _ := args.Value("--verbose"); v != true {
		t.Errorf("Verbose = %v, want true", v)
	}

	_, err = Bind(sig, []string{"--ver"}, Options{AllowAbbrev: true})
	var ae *argerr.AmbiguousOptionError
	if !errors.As(err, &ae) {
		t.Fatalf("Bind(--ver) error = %v, want AmbiguousOptionError", err)
	}
	if diff := cmp.Diff([]string{"--verbose", "--version"}, ae.Candidates); diff != "" {
		t.Errorf("Candidates mismatch (-want +got):\n%s", diff)
	}

	_, err = Bind(sig, []string{"--verb"}, Options{})
	if !errors.As(err, new(*argerr.UnknownOptionError)) {
		t.Errorf("Bind(--verb) without abbreviations error = %v, want UnknownOptionError", err)
	}
}

func TestUnknownHandling(t *testing.T) {
	type flags struct {
		Files []string `pos:"0*"`
	}
	sig := mustResolve(t, signature.Struct(flags{}))

	args, err := Bind(sig, []string{"a", "--weird", "b"}, Options{AllowLeadingHyphen: true})
	if err != nil {
		t.Fatalf("AllowLeadingHyphen: Bind error = %v", err)
	}
	got, _ := args.Value("Files")
	if diff := cmp.Diff([]string{"a", "--weird", "b"}, got); diff != "" {
		t.Errorf("AllowLeadingHyphen: Files mismatch (-want +got):\n%s", diff)
	}

	args, err = Bind(sig, []string{"a", "--weird"}, Options{AllowUnknown: true})
	if err != nil {
		t.Fatalf("AllowUnknown: Bind error = %v", err)
	}
	if diff := cmp.Diff([]string{"--weird"}, args.Unused()); diff != "" {
		t.Errorf("AllowUnknown: Unused mismatch (-want +got):\n%s", diff)
	}
}

func TestMutuallyExclusiveGroup(t *testing.T) {
	atMostOne := func(members []*param.Parameter, supplied []param.Arg) error {
		if len(supplied) <= 1 {
			return nil
		}
		names := make([]string, len(supplied))
		for i, a := range supplied {
			names[i] = a.Param.DisplayName()
		}
		return &argerr.ValidationError{Params: names, Msg: "mutually exclusive"}
	}
	vehicle := param.NewGroup("vehicle", atMostOne)
	type flags struct {
		Car   bool `group:"vehicle"`
		Truck bool `group:"vehicle"`
	}
	sig := mustResolve(t, signature.Struct(flags{}), signature.WithGroups(vehicle))

	if _, err := Bind(sig, []string{"--car"}, Options{}); err != nil {
		t.Errorf("Bind(--car) error = %v", err)
	}
	_, err := Bind(sig, []string{"--car", "--truck"}, Options{})
	var ve *argerr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Bind(--car --truck) error = %v, want ValidationError", err)
	}
	if diff := cmp.Diff([]string{"--car", "--truck"}, ve.Params); diff != "" {
		t.Errorf("Params mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupConverterUnbinds(t *testing.T) {
	dropDebug := &param.Group{
		Name: "debug",
		Converter: func(_ []*param.Parameter, supplied []param.Arg) ([]param.Arg, error) {
			var out []param.Arg
			for _, a := range supplied {
				if a.Param.Name != "Trace" {
					out = append(out, a)
				}
			}
			return out, nil
		},
	}
	type flags struct {
		Debug bool `group:"debug"`
		Trace bool `group:"debug"`
	}
	sig := mustResolve(t, signature.Struct(flags{}), signature.WithGroups(dropDebug))
	args, err := Bind(sig, []string{"--debug", "--trace"}, Options{})
	if err != nil {
		t.Fatalf("Bind error = %v", err)
	}
	if args.Supplied("Trace") {
		t.Error("Trace still supplied after the group converter dropped it")
	}
	if !args.Supplied("Debug") {
		t.Error("Debug not supplied")
	}
}

func TestValidatorsCollectErrors(t *testing.T) {
	positive := func(_ *coerce.Type, v any) error {
		if v.(int) <= 0 {
			return fmt.Errorf("must be positive")
		}
		return nil
	}
	sig := mustResolve(t, signature.Fields(
		signature.Keyword("a", coerce.IntType).With(param.Options{Validators: []param.Validator{positive}}),
		signature.Keyword("b", coerce.IntType).With(param.Options{Validators: []param.Validator{positive}}),
	))
	_, err := Bind(sig, []string{"--a", "0", "--b", "-1"}, Options{})
	var errs argerr.ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("error = %v, want ValidationErrors", err)
	}
	if len(errs) != 2 {
		t.Fatalf("len(errs) = %d, want 2", len(errs))
	}
	if got := errs[1].Params; len(got) != 1 || got[0] != "--b" {
		t.Errorf("errs[1].Params = %q, want [--b]", got)
	}

	if _, err := Bind(sig, []string{"--a", "1", "--b", "2"}, Options{}); err != nil {
		t.Errorf("valid values: error = %v", err)
	}
}

func TestCustomConverter(t *testing.T) {
	bytes := func(_ *coerce.Type, toks []param.Token) (any, error) {
		s := strings.ToLower(toks[0].Value)
		mult := 1
		for suffix, m := range map[string]int{"kb": 1 << 10, "mb": 1 << 20, "gb": 1 << 30} {
			if strings.HasSuffix(s, suffix) {
				s, mult = strings.TrimSuffix(s, suffix), m
				break
			}
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, err
		}
		return n * mult, nil
	}
	sig := mustResolve(t, signature.Fields(
		signature.Keyword("size", coerce.IntType).With(param.Options{Converter: bytes}),
	))
	args, err := Bind(sig, []string{"--size", "3mb"}, Options{})
	if err != nil {
		t.Fatalf("Bind error = %v", err)
	}
	if v, _ := args.Value("size"); v != 3*1024*1024 {
		t.Errorf("size = %v, want %d", v, 3*1024*1024)
	}

	_, err = Bind(sig, []string{"--size", "lots"}, Options{})
	var ve *argerr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("bad size error = %v, want ValidationError", err)
	}
	if ve.Params[0] != "--size" {
		t.Errorf("Params = %q, want [--size]", ve.Params)
	}
}

func TestBindFunc(t *testing.T) {
	greet := func(ctx context.Context, name string, count int, formal bool) (string, error) {
		if ctx == nil {
			return "", errors.New("no context")
		}
		greeting := "Hi"
		if formal {
			greeting = "Good day"
		}
		return strings.Repeat(greeting+" "+name+". ", count), nil
	}
	sig := mustResolve(t, signature.Func(greet,
		signature.Arg("name", nil),
		signature.Arg("count", nil),
		signature.Keyword("formal", nil).WithDefault(false),
	))
	args, err := Bind(sig, []string{"Alice", "3", "--formal"}, Options{})
	if err != nil {
		t.Fatalf("Bind error = %v", err)
	}
	want := map[string]any{"name": "Alice", "count": 3, "formal": true}
	if diff := cmp.Diff(want, args.Map()); diff != "" {
		t.Errorf("Map mismatch (-want +got):\n%s", diff)
	}
	got, err := args.Call(context.Background())
	if err != nil {
		t.Fatalf("Call error = %v", err)
	}
	if got != "Good day Alice. Good day Alice. Good day Alice. " {
		t.Errorf("Call = %q", got)
	}
}

func TestBindFuncVariadic(t *testing.T) {
	sum := func(label string, nums ...int) string {
		total := 0
		for _, n := range nums {
			total += n
		}
		return fmt.Sprintf("%s=%d", label, total)
	}
	sig := mustResolve(t, signature.Func(sum, signature.Arg("label", nil), signature.Field{Name: "nums"}))
	args, err := Bind(sig, []string{"total", "1", "2", "3"}, Options{})
	if err != nil {
		t.Fatalf("Bind error = %v", err)
	}
	got, err := args.Call(context.Background())
	if err != nil {
		t.Fatalf("Call error = %v", err)
	}
	if got != "total=6" {
		t.Errorf("Call = %v, want total=6", got)
	}
}

func TestVarKeyword(t *testing.T) {
	sig := mustResolve(t, signature.Fields(
		signature.Keyword("name", coerce.StringType),
		signature.KwArgs("extra", coerce.StringType),
	))
	args, err := Bind(sig, []string{"--name", "x", "--color", "red", "--size=3"}, Options{})
	if err != nil {
		t.Fatalf("Bind error = %v", err)
	}
	got, _ := args.Value("extra")
	want := map[string]string{"color": "red", "size": "3"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("extra mismatch (-want +got):\n%s", diff)
	}
}

type server struct {
	Host string
	Port int
}

type serveFlags struct {
	Server server
	Debug  bool
}

func TestRecords(t *testing.T) {
	proto := serveFlags{Server: server{Host: "localhost", Port: 80}}
	tests := []struct {
		name string
		args []string
		want serveFlags
	}{
		{"defaults", nil, proto},
		{"one field", []string{"--server.port", "8080"}, serveFlags{Server: server{Host: "localhost", Port: 8080}}},
		{"literal", []string{"--server", "{host: example.com, port: 443}"}, serveFlags{Server: server{Host: "example.com", Port: 443}}},
		{"literal then field", []string{"--server", "{host: a, port: 1}", "--server.port", "2"}, serveFlags{Server: server{Host: "a", Port: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decode(t, proto, tt.args, Options{})
			if err != nil {
				t.Fatalf("Bind(%q) error = %v", tt.args, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Bind(%q) mismatch (-want +got):\n%s", tt.args, diff)
			}
		})
	}
}

type tlsConf struct {
	Cert string `default:"cert.pem"`
}

type listen struct {
	Host string `default:"localhost"`
	Port int    `default:"8080"`
	TLS  tlsConf
}

type listenFlags struct {
	Srv listen
}

func TestRecordFieldDefaults(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want listen
	}{
		{"none supplied", nil, listen{"localhost", 8080, tlsConf{"cert.pem"}}},
		{"one field", []string{"--srv.host", "a"}, listen{"a", 8080, tlsConf{"cert.pem"}}},
		{"nested field", []string{"--srv.tls.cert", "x.pem"}, listen{"localhost", 8080, tlsConf{"x.pem"}}},
		{"partial literal", []string{"--srv", "{host: b}"}, listen{"b", 8080, tlsConf{"cert.pem"}}},
	}
	sig := mustResolve(t, signature.Struct(listenFlags{}))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := Bind(sig, tt.args, Options{})
			if err != nil {
				t.Fatalf("Bind(%q) error = %v", tt.args, err)
			}
			var got listenFlags
			if err := args.Decode(&got); err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if diff := cmp.Diff(tt.want, got.Srv); diff != "" {
				t.Errorf("Decode mismatch (-want +got):\n%s", diff)
			}
			port, _ := args.Lookup("--srv.port")
			if port != got.Srv.Port {
				t.Errorf("Lookup(--srv.port) = %v, Decode gave %d", port, got.Srv.Port)
			}
			srv, _ := args.Lookup("--srv")
			if diff := cmp.Diff(tt.want, srv); diff != "" {
				t.Errorf("Lookup(--srv) mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOptionalRecordFieldDefaults(t *testing.T) {
	type flags struct {
		Srv *listen
	}
	got, err := decode(t, flags{}, nil, Options{})
	if err != nil {
		t.Fatalf("Bind error = %v", err)
	}
	if got.Srv != nil {
		t.Errorf("Srv = %+v, want nil", got.Srv)
	}
	got, err = decode(t, flags{}, []string{"--srv.port", "1"}, Options{})
	if err != nil {
		t.Fatalf("Bind error = %v", err)
	}
	if diff := cmp.Diff(&listen{"localhost", 1, tlsConf{"cert.pem"}}, got.Srv); diff != "" {
		t.Errorf("Srv mismatch (-want +got):\n%s", diff)
	}
}

func TestStructuredLiteralNeedsKeyword(t *testing.T) {
	type limitFlags struct {
		Limits map[string]int `pos:"0?"`
	}
	got, err := decode(t, limitFlags{}, []string{"--limits", "{a: 1}"}, Options{})
	if err != nil {
		t.Fatalf("keyword literal error = %v", err)
	}
	if diff := cmp.Diff(map[string]int{"a": 1}, got.Limits); diff != "" {
		t.Errorf("Limits mismatch (-want +got):\n%s", diff)
	}
	_, err = decode(t, limitFlags{}, []string{"{a: 1}"}, Options{})
	var ce *argerr.CoercionError
	if !errors.As(err, &ce) {
		t.Fatalf("positional literal error = %v, want *argerr.CoercionError", err)
	}
}

type mapSource map[string][]string

func (mapSource) Name() string { return "test" }

func (m mapSource) Lookup(p *param.Parameter) ([]string, bool, error) {
	v, ok := m[p.Name]
	return v, ok, nil
}

func TestSources(t *testing.T) {
	src := mapSource{"Count": {"7"}, "Name": {"FromSource"}}
	sig := mustResolve(t, signature.Struct(greetFlags{}))
	args, err := Bind(sig, []string{"Alice"}, Options{Sources: []Source{src}})
	if err != nil {
		t.Fatalf("Bind error = %v", err)
	}
	var got greetFlags
	if err := args.Decode(&got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(greetFlags{Name: "Alice", Count: 7}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if toks := args.Tokens("Count"); len(toks) != 1 || toks[0].Source != "test" {
		t.Errorf("Count tokens = %+v, want one token from test", toks)
	}
}

func TestParseDisabled(t *testing.T) {
	type flags struct {
		Name   string
		Client any `parse:"false"`
	}
	sig := mustResolve(t, signature.Struct(flags{}))
	args, err := Bind(sig, []string{"--name", "x"}, Options{})
	if err != nil {
		t.Fatalf("Bind error = %v", err)
	}
	if diff := cmp.Diff([]string{"Client"}, args.Ignored()); diff != "" {
		t.Errorf("Ignored mismatch (-want +got):\n%s", diff)
	}
	if _, err := Bind(sig, []string{"--client", "x"}, Options{}); !errors.As(err, new(*argerr.BindError)) {
		t.Errorf("--client error = %v, want BindError", err)
	}
}

func TestBindIsRepeatable(t *testing.T) {
	sig := mustResolve(t, signature.Struct(greetFlags{}))
	tokens := []string{"Alice", "--count", "2"}
	first, err := Bind(sig, tokens, Options{})
	if err != nil {
		t.Fatalf("Bind error = %v", err)
	}
	second, err := Bind(sig, tokens, Options{})
	if err != nil {
		t.Fatalf("second Bind error = %v", err)
	}
	if diff := cmp.Diff(first.Map(), second.Map()); diff != "" {
		t.Errorf("repeated Bind mismatch (-first +second):\n%s", diff)
	}
}

func TestSplit(t *testing.T) {
	got, err := Split(`greet "Alice Smith" --count 2`)
	if err != nil {
		t.Fatalf("Split error = %v", err)
	}
	if diff := cmp.Diff([]string{"greet", "Alice Smith", "--count", "2"}, got); diff != "" {
		t.Errorf("Split mismatch (-want +got):\n%s", diff)
	}
}
