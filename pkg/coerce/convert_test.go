// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package coerce

import (
	"errors"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"
	"github.com/yeetrun/argbind/pkg/argerr"
)

type color int

const (
	red color = iota + 1
	green
	darkBlue
)

func (color) EnumMembers() []EnumMember {
	return []EnumMember{
		{Name: "RED", Value: red},
		{Name: "GREEN", Value: green},
		{Name: "DARK_BLUE", Value: darkBlue},
	}
}

func TestConvertScalars(t *testing.T) {
	tests := []struct {
		name   string
		typ    *Type
		tokens []string
		want   any
	}{
		{"string", StringType, []string{"hello"}, "hello"},
		{"any is string", AnyType, []string{"42"}, "42"},
		{"bool yes", BoolType, []string{"YES"}, true},
		{"bool t", BoolType, []string{"t"}, true},
		{"bool 0", BoolType, []string{"0"}, false},
		{"bool F", BoolType, []string{"F"}, false},
		{"int decimal", IntType, []string{"42"}, 42},
		{"int negative", IntType, []string{"-7"}, -7},
		{"int hex", IntType, []string{"0x1A"}, 26},
		{"int binary", IntType, []string{"0b101"}, 5},
		{"int octal", IntType, []string{"0o17"}, 15},
		{"int leading zero is decimal", IntType, []string{"010"}, 10},
		{"int rounds float", IntType, []string{"2.6"}, 3},
		{"int half to even down", IntType, []string{"2.5"}, 2},
		{"int half to even up", IntType, []string{"3.5"}, 4},
		{"int negative half", IntType, []string{"-2.5"}, -2},
		{"int8", For[int8](), []string{"-128"}, int8(-128)},
		{"uint16", For[uint16](), []string{"0xffff"}, uint16(0xffff)},
		{"float", FloatType, []string{"1.5e3"}, 1500.0},
		{"float32", For[float32](), []string{"0.25"}, float32(0.25)},
		{"complex", ComplexType, []string{"1+2j"}, complex(1, 2)},
		{"complex i", ComplexType, []string{"3-4i"}, complex(3, -4)},
		{"duration", DurationType, []string{"1m30s"}, 90 * time.Second},
		{"enum by name", For[color](), []string{"red"}, red},
		{"enum hyphenated", For[color](), []string{"dark-blue"}, darkBlue},
		{"enum underscore", For[color](), []string{"Dark_Blue"}, darkBlue},
		{"literal string", NewLiteral("fast", "slow"), []string{"slow"}, "slow"},
		{"literal mixed", NewLiteral("auto", 1, 2), []string{"2"}, 2},
		{"union int first", NewUnion(IntType, StringType), []string{"10"}, 10},
		{"union falls back", NewUnion(IntType, StringType), []string{"abc"}, "abc"},
		{"union skips none", NewUnion(NoneType, IntType), []string{"5"}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.typ, tt.tokens)
			if err != nil {
				t.Fatalf("Convert(%s, %q) error = %v", tt.typ, tt.tokens, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Convert(%s, %q) = %#v, want %#v", tt.typ, tt.tokens, got, tt.want)
			}
		})
	}
}

func TestConvertErrors(t *testing.T) {
	tests := []struct {
		name     string
		typ      *Type
		tokens   []string
		wantType string
	}{
		{"bool word", BoolType, []string{"maybe"}, "bool"},
		{"int word", IntType, []string{"ten"}, "int"},
		{"int8 overflow", For[int8](), []string{"300"}, "int8"},
		{"uint negative", For[uint](), []string{"-1"}, "uint"},
		{"enum value not name", For[color](), []string{"r"}, "coerce.color"},
		{"literal miss", NewLiteral("a", "b"), []string{"c"}, `Literal["a", "b"]`},
		{"union exhausted", NewUnion(IntType, FloatType), []string{"x"}, "Union[int, float64]"},
		{"too many tokens", IntType, []string{"1", "2"}, "int"},
		{"record without literal", For[struct{ A int }](), []string{"1"}, "struct { A int }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Convert(tt.typ, tt.tokens)
			var ce *argerr.CoercionError
			if !errors.As(err, &ce) {
				t.Fatalf("Convert() error = %v, want *argerr.CoercionError", err)
			}
			if ce.Type != tt.wantType {
				t.Errorf("CoercionError.Type = %q, want %q", ce.Type, tt.wantType)
			}
			if !errors.Is(err, argerr.ErrUsage) {
				t.Errorf("errors.Is(err, ErrUsage) = false, want true")
			}
		})
	}
}

func TestConvertContainers(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		got, err := Convert(For[[]int](), []string{"1", "2", "3"})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]int{1, 2, 3}, got); diff != "" {
			t.Errorf("list mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("set", func(t *testing.T) {
		got, err := Convert(For[map[string]struct{}](), []string{"a", "b", "a"})
		if err != nil {
			t.Fatal(err)
		}
		want := map[string]struct{}{"a": {}, "b": {}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("set mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("array tuple", func(t *testing.T) {
		got, err := Convert(For[[2]float64](), []string{"1.5", "2"})
		if err != nil {
			t.Fatal(err)
		}
		if got != [2]float64{1.5, 2} {
			t.Errorf("tuple = %v, want [1.5 2]", got)
		}
	})
	t.Run("mixed tuple", func(t *testing.T) {
		typ := NewTuple(StringType, IntType, BoolType)
		if n, all := typ.TokenCount(); n != 3 || all {
			t.Fatalf("TokenCount() = %d, %v, want 3, false", n, all)
		}
		got, err := Convert(typ, []string{"x", "4", "yes"})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]any{"x", 4, true}, got); diff != "" {
			t.Errorf("tuple mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("nested tuple arity", func(t *testing.T) {
		typ := NewTuple(NewTuple(IntType, IntType), StringType)
		if n, _ := typ.TokenCount(); n != 3 {
			t.Errorf("TokenCount() = %d, want 3", n)
		}
	})
	t.Run("list of pairs", func(t *testing.T) {
		got, err := Convert(For[[][2]int](), []string{"1", "2", "3", "4"})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([][2]int{{1, 2}, {3, 4}}, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
		if _, err := Convert(For[[][2]int](), []string{"1", "2", "3"}); err == nil {
			t.Error("odd token count: error = nil, want error")
		}
	})
	t.Run("optional", func(t *testing.T) {
		got, err := Convert(For[*int](), []string{"9"})
		if err != nil {
			t.Fatal(err)
		}
		p, ok := got.(*int)
		if !ok || *p != 9 {
			t.Errorf("Convert(*int) = %#v, want pointer to 9", got)
		}
	})
	t.Run("empty", func(t *testing.T) {
		if got := Empty(For[[]string]()); !reflect.DeepEqual(got, []string{}) {
			t.Errorf("Empty([]string) = %#v, want []string{}", got)
		}
	})
	t.Run("append", func(t *testing.T) {
		got, err := Append(For[[]int](), []int{1}, []int{2, 3})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]int{1, 2, 3}, got); diff != "" {
			t.Errorf("Append mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestConvertRegisteredScalars(t *testing.T) {
	id := "8c2d8f06-47b5-4bd2-8b7f-2a4b7d54c0b1"
	got, err := Convert(For[uuid.UUID](), []string{id})
	if err != nil {
		t.Fatal(err)
	}
	if got.(uuid.UUID).String() != id {
		t.Errorf("uuid = %v, want %v", got, id)
	}

	got, err = Convert(For[*semver.Version](), []string{"1.2.3"})
	if err != nil {
		t.Fatal(err)
	}
	if got.(*semver.Version).Minor() != 2 {
		t.Errorf("semver minor = %d, want 2", got.(*semver.Version).Minor())
	}

	got, err = Convert(For[*semver.Constraints](), []string{">= 1.2"})
	if err != nil {
		t.Fatal(err)
	}
	if !got.(*semver.Constraints).Check(semver.MustParse("1.4.0")) {
		t.Errorf("constraint >= 1.2 rejected 1.4.0")
	}

	d := "sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	got, err = Convert(For[digest.Digest](), []string{d})
	if err != nil {
		t.Fatal(err)
	}
	if got != digest.Digest(d) {
		t.Errorf("digest = %v, want %v", got, d)
	}
	if _, err := Convert(For[digest.Digest](), []string{"nope"}); err == nil {
		t.Error("invalid digest: error = nil, want error")
	}

	got, err = Convert(For[url.URL](), []string{"https://example.com/x"})
	if err != nil {
		t.Fatal(err)
	}
	if u := got.(url.URL); u.Host != "example.com" {
		t.Errorf("url host = %q, want example.com", u.Host)
	}
}

type level int

func (l *level) UnmarshalText(b []byte) error {
	switch string(b) {
	case "low":
		*l = 1
	case "high":
		*l = 2
	default:
		return errors.New("bad level")
	}
	return nil
}

func TestConvertTextUnmarshaler(t *testing.T) {
	typ := For[level]()
	if typ.Kind() != Scalar {
		t.Fatalf("Kind() = %v, want scalar", typ.Kind())
	}
	got, err := Convert(typ, []string{"high"})
	if err != nil {
		t.Fatal(err)
	}
	if got != level(2) {
		t.Errorf("Convert(level) = %v, want 2", got)
	}
}

func TestConvertRecordLiteral(t *testing.T) {
	type point struct {
		X    int
		Y    int
		Name string `flag:"label"`
	}
	got, err := Convert(For[point](), []string{`{"x": 1, "y": "0x10", "label": "origin"}`})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(point{X: 1, Y: 16, Name: "origin"}, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	got, err = Convert(For[*point](), []string{`{x: 2, y: 3}`})
	if err != nil {
		t.Fatal(err)
	}
	if p := got.(*point); p.X != 2 || p.Y != 3 {
		t.Errorf("optional record = %+v, want {X:2 Y:3}", p)
	}

	if _, err := Convert(For[point](), []string{`{"z": 1}`}); err == nil {
		t.Error("unknown field: error = nil, want error")
	}

	rec := NewRecord("Server",
		Field{Name: "host", Type: StringType},
		Field{Name: "port", Type: IntType, Default: 80, HasDefault: true},
	)
	got, err = Convert(rec, []string{`{host: example.com}`})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]any{"host": "example.com", "port": 80}, got); diff != "" {
		t.Errorf("map record mismatch (-want +got):\n%s", diff)
	}

	// Unioned with string, a brace is just text.
	got, err = Convert(NewUnion(rec, StringType), []string{"{x}"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "{x}" {
		t.Errorf("Convert(Union[record, string]) = %#v, want %q", got, "{x}")
	}
}

func TestRecordLiteralDefaultTags(t *testing.T) {
	type tls struct {
		Cert string `default:"cert.pem"`
	}
	type listen struct {
		Host string   `default:"localhost"`
		Port int      `default:"8080"`
		Tags []string `default:"a b"`
		TLS  tls
	}
	got, err := Convert(For[listen](), []string{`{host: example.com}`})
	if err != nil {
		t.Fatal(err)
	}
	want := listen{Host: "example.com", Port: 8080, Tags: []string{"a", "b"}, TLS: tls{Cert: "cert.pem"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	type bad struct {
		N int `default:"lots"`
	}
	if _, err := Convert(For[bad](), []string{`{}`}); err == nil {
		t.Error("bad default tag: error = nil, want error")
	}
}

func TestConvertPlain(t *testing.T) {
	m := For[map[string]int]()
	if _, err := Convert(m, []string{"{a: 1}"}); err != nil {
		t.Fatalf("Convert(%s) error = %v", m, err)
	}
	if _, err := ConvertPlain(m, []string{"{a: 1}"}); !errors.Is(err, argerr.ErrUsage) {
		t.Errorf("ConvertPlain(%s) error = %v, want a usage error", m, err)
	}
	// Types that do not take structure convert the same either way.
	got, err := ConvertPlain(AnyType, []string{"{a: 1}"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "{a: 1}" {
		t.Errorf("ConvertPlain(any) = %#v, want %q", got, "{a: 1}")
	}
}

func TestParseDefault(t *testing.T) {
	tests := []struct {
		typ  *Type
		in   string
		want any
	}{
		{IntType, "7", 7},
		{StringType, "two words", "two words"},
		{For[[]int](), "1 2 3", []int{1, 2, 3}},
		{For[[]int](), "", []int{}},
	}
	for _, tt := range tests {
		got, err := ParseDefault(tt.typ, tt.in)
		if err != nil {
			t.Errorf("ParseDefault(%s, %q) error: %v", tt.typ, tt.in, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParseDefault(%s, %q) mismatch (-want +got):\n%s", tt.typ, tt.in, diff)
		}
	}
}

func TestOfErrors(t *testing.T) {
	if _, err := Of(reflect.TypeFor[[][]int]()); err == nil {
		t.Error("Of([][]int) error = nil, want nested sequence error")
	}
	if _, err := Of(reflect.TypeFor[map[int]string]()); err == nil {
		t.Error("Of(map[int]string) error = nil, want error")
	}
	if _, err := Of(reflect.TypeFor[chan int]()); err == nil {
		t.Error("Of(chan int) error = nil, want error")
	}
	if err := NewUnion(IntType, NewTuple(IntType, IntType)).Validate(); err == nil {
		t.Error("Validate(union with mismatched arity) = nil, want error")
	}
}

func TestTokenCount(t *testing.T) {
	tests := []struct {
		typ     *Type
		n       int
		consume bool
	}{
		{BoolType, 0, false},
		{IntType, 1, false},
		{For[*bool](), 0, false},
		{For[[]string](), 1, true},
		{For[[3]int](), 3, false},
		{NewUnion(NoneType, IntType), 1, false},
	}
	for _, tt := range tests {
		n, consume := tt.typ.TokenCount()
		if n != tt.n || consume != tt.consume {
			t.Errorf("%s.TokenCount() = %d, %v, want %d, %v", tt.typ, n, consume, tt.n, tt.consume)
		}
	}
}
