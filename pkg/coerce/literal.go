// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package coerce

import (
	"fmt"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// isStructuredLiteral reports whether s should be decoded as a whole
// structured value rather than converted token by token. Types unioned with
// a plain string never are, so "{x}" stays a valid string.
func isStructuredLiteral(t *Type, s string) bool {
	if !strings.HasPrefix(s, "{") {
		return false
	}
	return acceptsStructure(t)
}

func acceptsStructure(t *Type) bool {
	switch t.kind {
	case Record, Map:
		return true
	case Optional:
		return acceptsStructure(t.elem)
	case Union:
		structured := false
		for _, m := range t.elems {
			if m.kind == String {
				return false
			}
			structured = structured || acceptsStructure(m)
		}
		return structured
	}
	return false
}

// decodeLiteral parses a JSON or YAML flow mapping and builds a value of t
// from it, converting every leaf with the normal per-type rules.
func decodeLiteral(t *Type, s string) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(s), &doc); err != nil {
		return nil, coercionErr(t, []string{s}, err)
	}
	n := &doc
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = n.Content[0]
	}
	v, err := fromNode(t, n)
	if err != nil {
		return nil, coercionErr(t, []string{s}, err)
	}
	return v, nil
}

func fromNode(t *Type, n *yaml.Node) (any, error) {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	if n.Tag == "!!null" && t.kind != String {
		if t.goType == nil {
			return nil, nil
		}
		return reflect.Zero(t.goType).Interface(), nil
	}
	switch t.kind {
	case Any:
		if n.Kind == yaml.ScalarNode {
			return n.Value, nil
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	case Optional:
		v, err := fromNode(t.elem, n)
		if err != nil {
			return nil, err
		}
		return wrapOptional(t, v), nil
	case Union:
		var firstErr error
		for _, m := range t.elems {
			if m.kind == None {
				continue
			}
			v, err := fromNode(m, n)
			if err == nil {
				return v, nil
			}
			if firstErr == nil {
				firstErr = err
			}
		}
		return nil, fmt.Errorf("no member of %s matches: %w", t, firstErr)
	case Record:
		if n.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: expected a mapping for %s", n.Line, t)
		}
		return recordFromNode(t, n)
	case Map:
		if n.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: expected a mapping for %s", n.Line, t)
		}
		out := reflect.MakeMapWithSize(t.goType, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := fromNode(t.elem, n.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", n.Content[i].Value, err)
			}
			k := reflect.ValueOf(n.Content[i].Value).Convert(t.goType.Key())
			out.SetMapIndex(k, valueFor(v, t.goType.Elem()))
		}
		return out.Interface(), nil
	case List, Set:
		if n.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("line %d: expected a sequence for %s", n.Line, t)
		}
		var out reflect.Value
		if t.kind == List {
			out = reflect.MakeSlice(t.goType, 0, len(n.Content))
		} else {
			out = reflect.MakeMapWithSize(t.goType, len(n.Content))
		}
		for _, c := range n.Content {
			v, err := fromNode(t.elem, c)
			if err != nil {
				return nil, err
			}
			if out, err = addElem(t, out, v); err != nil {
				return nil, err
			}
		}
		return out.Interface(), nil
	case Tuple:
		if n.Kind != yaml.SequenceNode || len(n.Content) != len(t.elems) {
			return nil, fmt.Errorf("line %d: expected a sequence of %d values for %s", n.Line, len(t.elems), t)
		}
		vals := make([]any, len(t.elems))
		for i, e := range t.elems {
			v, err := fromNode(e, n.Content[i])
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		if t.goType.Kind() == reflect.Array {
			arr := reflect.New(t.goType).Elem()
			for i, v := range vals {
				arr.Index(i).Set(valueFor(v, t.goType.Elem()))
			}
			return arr.Interface(), nil
		}
		return vals, nil
	}
	if n.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("line %d: expected a single value for %s", n.Line, t)
	}
	return convert(t, []string{n.Value}, false)
}

func recordFromNode(t *Type, n *yaml.Node) (any, error) {
	isStruct := t.goType.Kind() == reflect.Struct
	var rv reflect.Value
	var m map[string]any
	if isStruct {
		rv = reflect.New(t.goType).Elem()
		if err := applyDefaultTags(t, rv); err != nil {
			return nil, err
		}
	} else {
		m = make(map[string]any, len(t.fields))
		for _, f := range t.fields {
			if f.HasDefault {
				m[f.Name] = f.Default
			}
		}
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		f, index, ok := t.lookupField(key)
		if !ok {
			return nil, fmt.Errorf("line %d: unknown field %q for %s", n.Content[i].Line, key, t)
		}
		v, err := fromNode(f.Type, n.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		if isStruct {
			fv := rv.FieldByIndex(index)
			fv.Set(valueFor(v, fv.Type()))
		} else {
			m[f.Name] = v
		}
	}
	if isStruct {
		return rv.Interface(), nil
	}
	for _, f := range t.fields {
		if _, ok := m[f.Name]; !ok && f.Type.kind != Optional {
			return nil, fmt.Errorf("missing field %q for %s", f.Name, t)
		}
	}
	return m, nil
}

// applyDefaultTags sets the default tags of a struct record's fields on rv.
// Nested struct records without a tag of their own get theirs applied too.
func applyDefaultTags(t *Type, rv reflect.Value) error {
	for _, f := range t.fields {
		fv := rv.FieldByIndex(f.Index)
		if s, ok := f.Tag.Lookup("default"); ok {
			v, err := ParseDefault(f.Type, s)
			if err != nil {
				return fmt.Errorf("field %s: invalid default tag: %w", f.Name, err)
			}
			fv.Set(valueFor(v, fv.Type()))
			continue
		}
		if f.Type.kind == Record && fv.Kind() == reflect.Struct {
			if err := applyDefaultTags(f.Type, fv); err != nil {
				return err
			}
		}
	}
	return nil
}

// ParseDefault converts the text of a default struct tag to a value of t.
// Types that take several tokens split s on whitespace.
func ParseDefault(t *Type, s string) (any, error) {
	n, all := t.TokenCount()
	tokens := []string{s}
	if all || n > 1 {
		tokens = strings.Fields(s)
		if len(tokens) == 0 {
			return Empty(t), nil
		}
	}
	return Convert(t, tokens)
}

// lookupField finds the field a literal key refers to. Keys match the Go
// field name or its flag name, ignoring case, hyphens and underscores.
// Fields of embedded records are promoted.
func (t *Type) lookupField(key string) (Field, []int, bool) {
	want := foldKey(key)
	for _, f := range t.fields {
		if f.Embedded {
			if sub, idx, ok := f.Type.lookupField(key); ok {
				return sub, append(append([]int(nil), f.Index...), idx...), true
			}
			continue
		}
		if foldKey(f.Name) == want {
			return f, f.Index, true
		}
		if name, _, _ := strings.Cut(f.Tag.Get("flag"), ","); name != "" && foldKey(name) == want {
			return f, f.Index, true
		}
	}
	return Field{}, nil, false
}

func foldKey(s string) string {
	s = strings.TrimLeft(s, "-")
	s = strings.NewReplacer("-", "", "_", "").Replace(s)
	return strings.ToLower(s)
}
