// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package coerce

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/yeetrun/argbind/pkg/argerr"
)

var (
	trueWords  = []string{"yes", "y", "1", "true", "t"}
	falseWords = []string{"no", "n", "0", "false", "f"}
)

// Convert converts tokens into a value of t. The number of tokens must match
// t.TokenCount, except that a single token starting with '{' may supply a
// whole record, map or list as a structured literal.
//
// Failures are *argerr.CoercionError values naming the offending token and
// the type; the Param field is left for the caller to fill in.
func Convert(t *Type, tokens []string) (any, error) {
	return convertTokens(t, tokens, true)
}

// ConvertPlain is Convert without structured literals: a token starting
// with '{' is converted like any other. Positional tokens use it.
func ConvertPlain(t *Type, tokens []string) (any, error) {
	return convertTokens(t, tokens, false)
}

func convertTokens(t *Type, tokens []string, literals bool) (any, error) {
	v, err := convert(t, tokens, literals)
	if err == nil {
		return v, nil
	}
	var ce *argerr.CoercionError
	if errors.As(err, &ce) {
		return nil, ce
	}
	return nil, &argerr.CoercionError{Value: strings.Join(tokens, " "), Type: t.String(), Err: err}
}

// ParseBool parses s against the fixed true-like and false-like word sets,
// ignoring case.
func ParseBool(s string) (bool, error) {
	ls := strings.ToLower(s)
	for _, w := range trueWords {
		if ls == w {
			return true, nil
		}
	}
	for _, w := range falseWords {
		if ls == w {
			return false, nil
		}
	}
	return false, fmt.Errorf("not a boolean: %q", s)
}

func convert(t *Type, tokens []string, literals bool) (any, error) {
	if literals && len(tokens) == 1 && isStructuredLiteral(t, tokens[0]) {
		return decodeLiteral(t, tokens[0])
	}
	switch t.kind {
	case Any:
		if len(tokens) == 1 {
			return tokens[0], nil
		}
		return append([]string(nil), tokens...), nil
	case None:
		return nil, nil
	case Optional:
		v, err := convert(t.elem, tokens, literals)
		if err != nil {
			return nil, err
		}
		return wrapOptional(t, v), nil
	case Union:
		for _, m := range t.elems {
			if m.kind == None {
				continue
			}
			if v, err := convert(m, tokens, literals); err == nil {
				return v, nil
			}
		}
		return nil, coercionErr(t, tokens, nil)
	case Literal:
		for i, ct := range t.elems {
			v, err := convert(ct, tokens, literals)
			if err == nil && reflect.DeepEqual(v, t.choices[i]) {
				return t.choices[i], nil
			}
		}
		return nil, coercionErr(t, tokens, nil)
	case Tuple:
		return convertTuple(t, tokens, literals)
	case List, Set:
		return convertSeq(t, tokens, literals)
	case Map, Record:
		return nil, coercionErr(t, tokens, fmt.Errorf("expected a structured literal starting with '{'"))
	}

	if len(tokens) != 1 {
		return nil, coercionErr(t, tokens, fmt.Errorf("expected 1 token, got %d", len(tokens)))
	}
	s := tokens[0]
	v, err := convertScalar(t, s)
	if err != nil {
		return nil, coercionErr(t, tokens, err)
	}
	return v, nil
}

func convertScalar(t *Type, s string) (any, error) {
	switch t.kind {
	case String:
		return reflect.ValueOf(s).Convert(t.goType).Interface(), nil
	case Bool:
		b, err := ParseBool(s)
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(b).Convert(t.goType).Interface(), nil
	case Int:
		n, err := parseInt(s)
		if err != nil {
			return nil, err
		}
		rv := reflect.New(t.goType).Elem()
		if rv.OverflowInt(n) {
			return nil, fmt.Errorf("%d overflows %s", n, t.goType)
		}
		rv.SetInt(n)
		return rv.Interface(), nil
	case Uint:
		n, err := parseInt(s)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("negative value for %s", t.goType)
		}
		rv := reflect.New(t.goType).Elem()
		if rv.OverflowUint(uint64(n)) {
			return nil, fmt.Errorf("%d overflows %s", n, t.goType)
		}
		rv.SetUint(uint64(n))
		return rv.Interface(), nil
	case Float:
		f, err := strconv.ParseFloat(s, t.goType.Bits())
		if err != nil {
			return nil, err
		}
		rv := reflect.New(t.goType).Elem()
		rv.SetFloat(f)
		return rv.Interface(), nil
	case Complex:
		cs := s
		if strings.HasSuffix(cs, "j") {
			cs = cs[:len(cs)-1] + "i"
		}
		c, err := strconv.ParseComplex(cs, t.goType.Bits())
		if err != nil {
			return nil, err
		}
		rv := reflect.New(t.goType).Elem()
		rv.SetComplex(c)
		return rv.Interface(), nil
	case Duration:
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(d).Convert(t.goType).Interface(), nil
	case Scalar:
		return t.parse(s)
	case Enum:
		return matchEnum(t, s)
	}
	return nil, fmt.Errorf("cannot convert to %s", t)
}

// parseInt accepts decimal, 0x, 0b and 0o forms, and rounds decimal floats
// half to even.
func parseInt(s string) (int64, error) {
	body := strings.TrimLeft(s, "+-")
	if len(body) > 1 && body[0] == '0' && strings.ContainsRune("xXbBoO", rune(body[1])) {
		return strconv.ParseInt(s, 0, 64)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int64(math.RoundToEven(f)), nil
}

func normalizeEnumName(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "_", "-")
}

func matchEnum(t *Type, s string) (any, error) {
	want := normalizeEnumName(s)
	for _, m := range t.members {
		if normalizeEnumName(m.Name) == want {
			return m.Value, nil
		}
	}
	names := make([]string, len(t.members))
	for i, m := range t.members {
		names[i] = normalizeEnumName(m.Name)
	}
	return nil, fmt.Errorf("choose from %s", strings.Join(names, ", "))
}

func convertTuple(t *Type, tokens []string, literals bool) (any, error) {
	want, _ := t.TokenCount()
	if len(tokens) != want {
		return nil, coercionErr(t, tokens, fmt.Errorf("expected %d tokens, got %d", want, len(tokens)))
	}
	vals := make([]any, len(t.elems))
	i := 0
	for j, e := range t.elems {
		c, _ := e.TokenCount()
		c = max(c, 1)
		v, err := convert(e, tokens[i:i+c], literals)
		if err != nil {
			return nil, err
		}
		vals[j] = v
		i += c
	}
	if t.goType.Kind() == reflect.Array {
		arr := reflect.New(t.goType).Elem()
		for j, v := range vals {
			arr.Index(j).Set(valueFor(v, t.goType.Elem()))
		}
		return arr.Interface(), nil
	}
	return vals, nil
}

func convertSeq(t *Type, tokens []string, literals bool) (any, error) {
	c, _ := t.elem.TokenCount()
	c = max(c, 1)
	if len(tokens)%c != 0 {
		return nil, coercionErr(t, tokens, fmt.Errorf("expected a multiple of %d tokens, got %d", c, len(tokens)))
	}
	n := len(tokens) / c
	var out reflect.Value
	if t.kind == List {
		out = reflect.MakeSlice(t.goType, 0, n)
	} else {
		out = reflect.MakeMapWithSize(t.goType, n)
	}
	for i := 0; i < len(tokens); i += c {
		v, err := convert(t.elem, tokens[i:i+c], literals)
		if err != nil {
			return nil, err
		}
		if out, err = addElem(t, out, v); err != nil {
			return nil, err
		}
	}
	return out.Interface(), nil
}

// Empty returns the zero-element value of a list, set or map type, or nil for
// anything else.
func Empty(t *Type) any {
	switch t.kind {
	case Optional:
		if v := Empty(t.elem); v != nil {
			return wrapOptional(t, v)
		}
	case List:
		return reflect.MakeSlice(t.goType, 0, 0).Interface()
	case Set, Map:
		return reflect.MakeMap(t.goType).Interface()
	}
	return nil
}

// Append adds the elements of a converted list or set b to a. It is used when
// a parameter receives values from several keyword occurrences.
func Append(t *Type, a, b any) (any, error) {
	if a == nil {
		return b, nil
	}
	if b == nil {
		return a, nil
	}
	if t.kind == Optional {
		av := unwrapOptional(a)
		bv := unwrapOptional(b)
		v, err := Append(t.elem, av, bv)
		if err != nil {
			return nil, err
		}
		return wrapOptional(t, v), nil
	}
	switch t.kind {
	case List:
		return reflect.AppendSlice(reflect.ValueOf(a), reflect.ValueOf(b)).Interface(), nil
	case Set:
		out := reflect.ValueOf(a)
		iter := reflect.ValueOf(b).MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), iter.Value())
		}
		return out.Interface(), nil
	}
	return nil, fmt.Errorf("cannot append values of %s", t)
}

func addElem(t *Type, out reflect.Value, v any) (reflect.Value, error) {
	switch t.kind {
	case List:
		return reflect.Append(out, valueFor(v, t.goType.Elem())), nil
	case Set:
		k := valueFor(v, t.goType.Key())
		if !k.Type().Comparable() {
			return out, fmt.Errorf("set element %v is not comparable", v)
		}
		out.SetMapIndex(k, reflect.Zero(t.goType.Elem()))
	}
	return out, nil
}

// valueFor returns v as a reflect.Value assignable to rt.
func valueFor(v any, rt reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(rt)
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(rt) {
		return rv
	}
	if rv.Type().ConvertibleTo(rt) {
		return rv.Convert(rt)
	}
	return rv
}

func wrapOptional(t *Type, v any) any {
	if v == nil || t.goType.Kind() != reflect.Pointer {
		return v
	}
	rv := reflect.ValueOf(v)
	if rv.Type() == t.goType {
		return v
	}
	p := reflect.New(t.goType.Elem())
	p.Elem().Set(valueFor(v, t.goType.Elem()))
	return p.Interface()
}

func unwrapOptional(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		return rv.Elem().Interface()
	}
	return v
}

func coercionErr(t *Type, tokens []string, err error) *argerr.CoercionError {
	return &argerr.CoercionError{Value: strings.Join(tokens, " "), Type: t.String(), Err: err}
}
