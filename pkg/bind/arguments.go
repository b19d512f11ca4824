// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bind

import (
	"context"
	"fmt"
	"iter"
	"reflect"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"github.com/yeetrun/argbind/pkg/argerr"
	"github.com/yeetrun/argbind/pkg/coerce"
	"github.com/yeetrun/argbind/pkg/param"
	"github.com/yeetrun/argbind/pkg/signature"
)

// Arguments is the result of a successful Bind: the converted value of every
// supplied parameter, in declaration order, plus the tokens nothing claimed.
type Arguments struct {
	sig    *signature.Signature
	values *orderedmap.OrderedMap[*param.Parameter, any]
	tokens map[*param.Parameter][]param.Token
	unused []string
}

func newArguments(sig *signature.Signature, tokens map[*param.Parameter][]param.Token, unused []string) *Arguments {
	return &Arguments{
		sig:    sig,
		values: orderedmap.New[*param.Parameter, any](),
		tokens: tokens,
		unused: unused,
	}
}

// sortValues puts values in declaration order.
func (a *Arguments) sortValues() {
	sorted := orderedmap.New[*param.Parameter, any](a.values.Len())
	for _, p := range a.sig.Params() {
		if v, ok := a.values.Get(p); ok {
			sorted.Set(p, v)
		}
	}
	a.values = sorted
}

// Signature returns the signature the arguments were bound against.
func (a *Arguments) Signature() *signature.Signature { return a.sig }

// All iterates over supplied parameters and their values in declaration
// order.
func (a *Arguments) All() iter.Seq2[*param.Parameter, any] {
	return func(yield func(*param.Parameter, any) bool) {
		for pair := a.values.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// Param finds a parameter by identifier path ("Server.Port") or by any of
// its external names ("--server.port").
func (a *Arguments) Param(name string) (*param.Parameter, bool) {
	if p, ok := a.sig.Lookup(name); ok {
		return p, true
	}
	for _, p := range a.sig.Params() {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Value returns the supplied value of a parameter. Defaults are not
// reported; use Lookup for that.
func (a *Arguments) Value(name string) (any, bool) {
	p, ok := a.Param(name)
	if !ok {
		return nil, false
	}
	return a.values.Get(p)
}

// Lookup returns the supplied value of a parameter, or its default.
func (a *Arguments) Lookup(name string) (any, bool) {
	p, ok := a.Param(name)
	if !ok {
		return nil, false
	}
	return a.valueOrDefault(p)
}

func (a *Arguments) valueOrDefault(p *param.Parameter) (any, bool) {
	if v, ok := a.values.Get(p); ok {
		return v, true
	}
	// An unsupplied record is its default with its fields' defaults applied.
	// An optional record without a default stays absent.
	present := p.Type.Kind() != coerce.Optional || (p.HasDefault && deref(p.Default) != nil)
	if p.IsRecord() && present && childDefaults(p) {
		if v, err := buildRecord(a, p, p.Default, true); err == nil {
			return v, true
		}
	}
	if p.HasDefault {
		return p.Default, true
	}
	return nil, false
}

func childDefaults(p *param.Parameter) bool {
	for _, c := range p.Children {
		if c.HasDefault || childDefaults(c) {
			return true
		}
	}
	return false
}

// Supplied reports whether a parameter received a value from the command
// line or a source.
func (a *Arguments) Supplied(name string) bool {
	_, ok := a.Value(name)
	return ok
}

// Tokens returns the tokens bound to a parameter.
func (a *Arguments) Tokens(name string) []param.Token {
	p, ok := a.Param(name)
	if !ok {
		return nil
	}
	return a.tokens[p]
}

// Unused returns the tokens no parameter claimed.
func (a *Arguments) Unused() []string { return a.unused }

// Ignored returns the identifier paths of parameters that are never parsed
// and must be supplied with Set.
func (a *Arguments) Ignored() []string {
	var out []string
	for _, p := range a.sig.Params() {
		if !p.Parse {
			out = append(out, p.Name)
		}
	}
	return out
}

// Set supplies the value of a parameter, typically one that is not parsed
// from the command line.
func (a *Arguments) Set(name string, v any) error {
	p, ok := a.Param(name)
	if !ok {
		return &argerr.ConfigError{Param: name, Msg: "no such parameter"}
	}
	a.values.Set(p, v)
	a.sortValues()
	return nil
}

// Map returns top-level parameters keyed by identifier, with defaults for
// those not supplied.
func (a *Arguments) Map() map[string]any {
	out := make(map[string]any)
	for _, p := range a.sig.Params() {
		if p.Parent != nil {
			continue
		}
		if v, ok := a.valueOrDefault(p); ok {
			out[p.Name] = v
		}
	}
	return out
}

func (a *Arguments) supplied(members []*param.Parameter) []param.Arg {
	var out []param.Arg
	for _, p := range members {
		if v, ok := a.values.Get(p); ok {
			out = append(out, param.Arg{Param: p, Value: v})
		}
	}
	return out
}

// replace sets the values of members to out. Members missing from out are
// unbound.
func (a *Arguments) replace(members []*param.Parameter, out []param.Arg) {
	keep := make(map[*param.Parameter]any, len(out))
	for _, arg := range out {
		keep[arg.Param] = arg.Value
	}
	for _, p := range members {
		if v, ok := keep[p]; ok {
			a.values.Set(p, v)
		} else {
			a.values.Delete(p)
		}
	}
	a.sortValues()
}

// Decode stores the arguments in dst, a pointer to the struct a Struct
// target was built from. Unsupplied parameters get their defaults; fields
// that are not parameters keep the prototype's values.
func (a *Arguments) Decode(dst any) error {
	st := a.sig.StructType()
	if st == nil {
		return &argerr.ConfigError{Msg: "signature was not built from a struct"}
	}
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Type() != st {
		return &argerr.ConfigError{Msg: fmt.Sprintf("Decode needs a non-nil *%s, got %T", st, dst)}
	}
	out := rv.Elem()
	if proto := a.sig.Proto(); proto.IsValid() {
		out.Set(proto)
	}
	for _, p := range a.sig.Params() {
		if p.Parent != nil || len(p.Index) == 0 {
			continue
		}
		v, ok := a.valueOrDefault(p)
		if !ok {
			continue
		}
		if err := setField(out, p, v); err != nil {
			return err
		}
	}
	return nil
}

func setField(out reflect.Value, p *param.Parameter, v any) error {
	f, err := out.FieldByIndexErr(p.Index)
	if err != nil {
		return &argerr.ConfigError{Param: p.Name, Err: err}
	}
	fv, err := assignable(v, f.Type())
	if err != nil {
		return &argerr.ConfigError{Param: p.Name, Err: err}
	}
	f.Set(fv)
	return nil
}

// Call invokes the function a Func target was built from. ctx is passed as
// the first argument when the function takes one. The first non-error result
// is returned along with the function's error result, if any.
func (a *Arguments) Call(ctx context.Context) (any, error) {
	fn, takesCtx := a.sig.Func()
	if !fn.IsValid() {
		return nil, &argerr.ConfigError{Msg: "signature was not built from a function"}
	}
	ft := fn.Type()
	in := make([]reflect.Value, ft.NumIn())
	if takesCtx {
		in[0] = reflect.ValueOf(ctx)
	}
	for _, p := range a.sig.Params() {
		if p.Parent != nil || len(p.Index) == 0 {
			continue
		}
		i := p.Index[0]
		v, ok := a.valueOrDefault(p)
		if !ok {
			if p.Kind != param.VarPositional {
				return nil, &argerr.MissingArgumentError{Param: p.DisplayName()}
			}
			v = nil
		}
		av, err := assignable(v, ft.In(i))
		if err != nil {
			return nil, &argerr.ConfigError{Param: p.Name, Err: err}
		}
		in[i] = av
	}
	for i, v := range in {
		if !v.IsValid() {
			in[i] = reflect.Zero(ft.In(i))
		}
	}

	var out []reflect.Value
	if ft.IsVariadic() {
		out = fn.CallSlice(in)
	} else {
		out = fn.Call(in)
	}
	return splitResults(out)
}

var errorType = reflect.TypeFor[error]()

func splitResults(out []reflect.Value) (any, error) {
	var (
		result any
		err    error
		found  bool
	)
	for _, v := range out {
		if v.Type() == errorType {
			if !v.IsNil() {
				err = v.Interface().(error)
			}
			continue
		}
		if !found {
			result, found = v.Interface(), true
		}
	}
	return result, err
}
