// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package coerce

import (
	"encoding"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Kind is the structural shape of a Type. Conversion dispatches on it.
type Kind uint8

const (
	Invalid Kind = iota
	Any
	None
	String
	Bool
	Int
	Uint
	Float
	Complex
	Duration
	Scalar
	Enum
	Literal
	Union
	Optional
	Tuple
	List
	Set
	Map
	Record
)

var kindNames = [...]string{
	Invalid:  "invalid",
	Any:      "any",
	None:     "none",
	String:   "string",
	Bool:     "bool",
	Int:      "int",
	Uint:     "uint",
	Float:    "float",
	Complex:  "complex",
	Duration: "duration",
	Scalar:   "scalar",
	Enum:     "enum",
	Literal:  "literal",
	Union:    "union",
	Optional: "optional",
	Tuple:    "tuple",
	List:     "list",
	Set:      "set",
	Map:      "map",
	Record:   "record",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Type describes the semantic type a run of tokens is converted into.
// Types are immutable once built and may be shared between parameters.
type Type struct {
	kind    Kind
	goType  reflect.Type
	name    string
	elem    *Type
	elems   []*Type
	choices []any
	members []EnumMember
	fields  []Field
	parse   func(string) (any, error)
	err     error // deferred construction error, reported by Validate
}

// Field is one named sub-field of a Record type.
type Field struct {
	Name       string
	Type       *Type
	Tag        reflect.StructTag
	Index      []int // Struct field index; nil for map-backed records.
	Embedded   bool
	Default    any
	HasDefault bool
}

// EnumMember is one member of an enumeration. Tokens are matched against
// Name; Value is what conversion produces.
type EnumMember struct {
	Name  string
	Value any
}

// Enumer is implemented by Go types that behave as enumerations. The method
// is called on the zero value.
type Enumer interface {
	EnumMembers() []EnumMember
}

var (
	anyType             = reflect.TypeFor[any]()
	durationType        = reflect.TypeFor[time.Duration]()
	enumerType          = reflect.TypeFor[Enumer]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	emptyStructType     = reflect.TypeFor[struct{}]()
	recordMapType       = reflect.TypeFor[map[string]any]()
)

// Predefined types for the builder API.
var (
	AnyType      = &Type{kind: Any, goType: anyType}
	NoneType     = &Type{kind: None, goType: anyType}
	StringType   = For[string]()
	BoolType     = For[bool]()
	IntType      = For[int]()
	FloatType    = For[float64]()
	ComplexType  = For[complex128]()
	DurationType = For[time.Duration]()
)

func (t *Type) Kind() Kind { return t.kind }

// GoType is the Go type of values produced by Convert.
func (t *Type) GoType() reflect.Type { return t.goType }

// Elem is the element type of Optional, List, Set and Map types.
func (t *Type) Elem() *Type { return t.elem }

// Elems returns tuple elements or union members.
func (t *Type) Elems() []*Type { return t.elems }

// Choices returns the values of a Literal type.
func (t *Type) Choices() []any { return t.choices }

// Members returns the members of an Enum type.
func (t *Type) Members() []EnumMember { return t.members }

// Fields returns the sub-fields of a Record type.
func (t *Type) Fields() []Field { return t.fields }

// IsBool reports whether t behaves as a flag: bool or Optional[bool].
func (t *Type) IsBool() bool {
	switch t.kind {
	case Bool:
		return true
	case Optional:
		return t.elem.IsBool()
	}
	return false
}

// IsIterable reports whether t is a variable-length container, optionally
// wrapped in Optional.
func (t *Type) IsIterable() bool {
	switch t.kind {
	case List, Set:
		return true
	case Optional:
		return t.elem.IsIterable()
	}
	return false
}

// IsRecord reports whether t is a record that should be flattened into
// per-field parameters. A record unioned with a string is not.
func (t *Type) IsRecord() bool {
	switch t.kind {
	case Record:
		return true
	case Optional:
		return t.elem.IsRecord()
	}
	return false
}

// Record returns the underlying record type of t, unwrapping Optional.
func (t *Type) Record() *Type {
	if t.kind == Optional {
		return t.elem.Record()
	}
	if t.kind == Record {
		return t
	}
	return nil
}

// TokenCount reports how many tokens one value of t consumes, and whether t
// keeps consuming further groups of that many tokens until a boundary.
// Bool reports zero: as a keyword flag it takes no value.
func (t *Type) TokenCount() (n int, consumeAll bool) {
	switch t.kind {
	case Bool, None:
		return 0, false
	case Optional:
		return t.elem.TokenCount()
	case Union:
		for _, m := range t.elems {
			if m.kind == None {
				continue
			}
			return m.TokenCount()
		}
		return 1, false
	case Tuple:
		for _, e := range t.elems {
			c, all := e.TokenCount()
			n += max(c, 1)
			consumeAll = consumeAll || all
		}
		return n, consumeAll
	case List, Set:
		c, _ := t.elem.TokenCount()
		return max(c, 1), true
	case Map:
		return t.elem.TokenCount()
	}
	return 1, false
}

// Validate reports declaration problems that make t impossible to bind:
// sequences nested in sequences, unions whose members need different token
// counts, and unsupported literal choices.
func (t *Type) Validate() error {
	if t.err != nil {
		return t.err
	}
	switch t.kind {
	case List, Set:
		if t.elem.IsIterable() {
			return fmt.Errorf("%s: sequence of sequences is not supported", t)
		}
		if _, all := t.elem.TokenCount(); all {
			return fmt.Errorf("%s: element type %s has no fixed token count", t, t.elem)
		}
		return t.elem.Validate()
	case Optional, Map:
		return t.elem.Validate()
	case Tuple:
		for _, e := range t.elems {
			if e.IsIterable() {
				return fmt.Errorf("%s: variable-length element %s in tuple", t, e)
			}
			if err := e.Validate(); err != nil {
				return err
			}
		}
	case Union:
		want := -1
		for _, m := range t.elems {
			if m.kind == None {
				continue
			}
			if err := m.Validate(); err != nil {
				return err
			}
			n, all := m.TokenCount()
			if all {
				n = -2
			}
			if want == -1 {
				want = n
			} else if n != want {
				return fmt.Errorf("%s: members consume different numbers of tokens", t)
			}
		}
	case Record:
		for _, f := range t.fields {
			if err := f.Type.Validate(); err != nil {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
		}
	}
	return nil
}

func (t *Type) String() string {
	switch t.kind {
	case Any, None:
		return t.kind.String()
	case Union:
		return "Union[" + joinTypes(t.elems) + "]"
	case Optional:
		return "Optional[" + t.elem.String() + "]"
	case Literal:
		parts := make([]string, len(t.choices))
		for i, c := range t.choices {
			parts[i] = fmt.Sprintf("%#v", c)
		}
		return "Literal[" + strings.Join(parts, ", ") + "]"
	case Tuple:
		if t.goType != nil && t.goType.Kind() == reflect.Array {
			return t.goType.String()
		}
		return "Tuple[" + joinTypes(t.elems) + "]"
	case List:
		return "[]" + t.elem.String()
	case Set:
		return "Set[" + t.elem.String() + "]"
	case Map:
		return "map[string]" + t.elem.String()
	case Record:
		if t.name != "" {
			return t.name
		}
	}
	if t.goType != nil {
		return t.goType.String()
	}
	return t.kind.String()
}

func joinTypes(ts []*Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// For returns the Type of T. It panics if T is not supported; use Of when
// the type is not known at compile time.
func For[T any]() *Type {
	t, err := Of(reflect.TypeFor[T]())
	if err != nil {
		panic(err)
	}
	return t
}

// Of derives a Type from a Go type.
//
// Pointers become Optional, arrays become fixed tuples, slices become lists,
// map[T]struct{} becomes a set, other maps with string keys become Map, and
// structs become records unless they are registered scalars or implement
// encoding.TextUnmarshaler.
func Of(rt reflect.Type) (*Type, error) {
	t, err := of(rt, map[reflect.Type]bool{})
	if err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func of(rt reflect.Type, visiting map[reflect.Type]bool) (*Type, error) {
	if rt == nil {
		return AnyType, nil
	}
	if parse, ok := lookupScalar(rt); ok {
		return &Type{kind: Scalar, goType: rt, parse: parse}, nil
	}
	if rt == durationType {
		return &Type{kind: Duration, goType: rt}, nil
	}
	if rt.Implements(enumerType) && rt.Kind() != reflect.Pointer && rt.Kind() != reflect.Interface {
		members := reflect.Zero(rt).Interface().(Enumer).EnumMembers()
		return &Type{kind: Enum, goType: rt, members: members}, nil
	}
	if rt.Kind() != reflect.Pointer && rt.Kind() != reflect.Interface && reflect.PointerTo(rt).Implements(textUnmarshalerType) {
		return &Type{kind: Scalar, goType: rt, parse: textParser(rt)}, nil
	}

	switch rt.Kind() {
	case reflect.Interface:
		if rt.NumMethod() == 0 {
			return &Type{kind: Any, goType: rt}, nil
		}
	case reflect.String:
		return &Type{kind: String, goType: rt}, nil
	case reflect.Bool:
		return &Type{kind: Bool, goType: rt}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &Type{kind: Int, goType: rt}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Type{kind: Uint, goType: rt}, nil
	case reflect.Float32, reflect.Float64:
		return &Type{kind: Float, goType: rt}, nil
	case reflect.Complex64, reflect.Complex128:
		return &Type{kind: Complex, goType: rt}, nil
	case reflect.Pointer:
		elem, err := of(rt.Elem(), visiting)
		if err != nil {
			return nil, err
		}
		return &Type{kind: Optional, goType: rt, elem: elem}, nil
	case reflect.Array:
		elem, err := of(rt.Elem(), visiting)
		if err != nil {
			return nil, err
		}
		elems := make([]*Type, rt.Len())
		for i := range elems {
			elems[i] = elem
		}
		return &Type{kind: Tuple, goType: rt, elems: elems}, nil
	case reflect.Slice:
		elem, err := of(rt.Elem(), visiting)
		if err != nil {
			return nil, err
		}
		return &Type{kind: List, goType: rt, elem: elem}, nil
	case reflect.Map:
		if rt.Elem() == emptyStructType {
			key, err := of(rt.Key(), visiting)
			if err != nil {
				return nil, err
			}
			return &Type{kind: Set, goType: rt, elem: key}, nil
		}
		if rt.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map key type %s", rt.Key())
		}
		elem, err := of(rt.Elem(), visiting)
		if err != nil {
			return nil, err
		}
		return &Type{kind: Map, goType: rt, elem: elem}, nil
	case reflect.Struct:
		return structRecord(rt, visiting)
	}
	return nil, fmt.Errorf("unsupported type %s", rt)
}

func structRecord(rt reflect.Type, visiting map[reflect.Type]bool) (*Type, error) {
	if visiting[rt] {
		return nil, fmt.Errorf("recursive record type %s", rt)
	}
	visiting[rt] = true
	defer delete(visiting, rt)

	t := &Type{kind: Record, goType: rt}
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() || (sf.Tag.Get("flag") == "-" && sf.Tag.Get("pos") == "") {
			continue
		}
		ft, err := of(sf.Type, visiting)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", rt.Name(), sf.Name, err)
		}
		t.fields = append(t.fields, Field{
			Name:     sf.Name,
			Type:     ft,
			Tag:      sf.Tag,
			Index:    sf.Index,
			Embedded: sf.Anonymous && ft.kind == Record,
		})
	}
	return t, nil
}

// NewUnion returns a type that tries each member left to right. NoneType
// members mark the value as optional and are skipped during conversion.
func NewUnion(members ...*Type) *Type {
	t := &Type{kind: Union, elems: members, goType: anyType}
	var common reflect.Type
	for _, m := range members {
		if m.kind == None {
			continue
		}
		if common == nil {
			common = m.goType
		} else if common != m.goType {
			common = anyType
		}
	}
	if common != nil {
		t.goType = common
	}
	if len(members) == 0 {
		t.err = fmt.Errorf("union with no members")
	}
	return t
}

// NewOptional wraps elem so that conversion produces a pointer to the value.
func NewOptional(elem *Type) *Type {
	gt := anyType
	if elem.goType != nil && elem.goType.Kind() != reflect.Interface {
		gt = reflect.PointerTo(elem.goType)
	}
	return &Type{kind: Optional, goType: gt, elem: elem}
}

// NewLiteral returns a type accepting exactly the given choices. Each token
// is converted with the choice's own type and compared to the choice.
func NewLiteral(choices ...any) *Type {
	t := &Type{kind: Literal, choices: choices, goType: anyType}
	var common reflect.Type
	for _, c := range choices {
		ct, err := Of(reflect.TypeOf(c))
		if err != nil {
			t.err = fmt.Errorf("literal choice %#v: %w", c, err)
			return t
		}
		t.elems = append(t.elems, ct)
		if common == nil {
			common = ct.goType
		} else if common != ct.goType {
			common = anyType
		}
	}
	if common != nil {
		t.goType = common
	}
	if len(choices) == 0 {
		t.err = fmt.Errorf("literal with no choices")
	}
	return t
}

// NewTuple returns a fixed-length tuple. When every element shares one Go
// type the value is an array of it, otherwise []any.
func NewTuple(elems ...*Type) *Type {
	t := &Type{kind: Tuple, elems: elems}
	var common reflect.Type
	for _, e := range elems {
		if common == nil {
			common = e.goType
		} else if common != e.goType {
			common = nil
			break
		}
	}
	if common != nil && len(elems) > 0 {
		t.goType = reflect.ArrayOf(len(elems), common)
	} else {
		t.goType = reflect.TypeFor[[]any]()
	}
	return t
}

// NewList returns a variable-length list of elem.
func NewList(elem *Type) *Type {
	return &Type{kind: List, goType: reflect.SliceOf(elem.goType), elem: elem}
}

// NewSet returns a variable-length set of elem.
func NewSet(elem *Type) *Type {
	return &Type{kind: Set, goType: reflect.MapOf(elem.goType, emptyStructType), elem: elem}
}

// NewMap returns a string-keyed map of elem.
func NewMap(elem *Type) *Type {
	return &Type{kind: Map, goType: reflect.MapOf(reflect.TypeFor[string](), elem.goType), elem: elem}
}

// NewRecord returns a map-backed record. Values are map[string]any keyed by
// field name.
func NewRecord(name string, fields ...Field) *Type {
	return &Type{kind: Record, name: name, goType: recordMapType, fields: fields}
}
