// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package coerce

import (
	"encoding"
	"fmt"
	"net/url"
	"reflect"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"
)

var (
	scalarsMu sync.RWMutex
	scalars   = map[reflect.Type]func(string) (any, error){}
)

func init() {
	RegisterScalar(func(s string) (url.URL, error) {
		u, err := url.Parse(s)
		if err != nil {
			return url.URL{}, err
		}
		return *u, nil
	})
	RegisterScalar(url.Parse)
	RegisterScalar(uuid.Parse)
	RegisterScalar(semver.NewVersion)
	RegisterScalar(func(s string) (semver.Version, error) {
		v, err := semver.NewVersion(s)
		if err != nil {
			return semver.Version{}, err
		}
		return *v, nil
	})
	RegisterScalar(semver.NewConstraint)
	RegisterScalar(digest.Parse)
}

// RegisterScalar makes T convertible from a single token using parse. It is
// meant to be called from init functions; types derived afterwards pick it
// up, types already derived do not.
func RegisterScalar[T any](parse func(string) (T, error)) {
	rt := reflect.TypeFor[T]()
	scalarsMu.Lock()
	defer scalarsMu.Unlock()
	scalars[rt] = func(s string) (any, error) {
		v, err := parse(s)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// NewScalar returns a Type for T backed by parse, without registering it
// globally.
func NewScalar[T any](parse func(string) (T, error)) *Type {
	return &Type{
		kind:   Scalar,
		goType: reflect.TypeFor[T](),
		parse: func(s string) (any, error) {
			v, err := parse(s)
			if err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

func lookupScalar(rt reflect.Type) (func(string) (any, error), bool) {
	scalarsMu.RLock()
	defer scalarsMu.RUnlock()
	p, ok := scalars[rt]
	return p, ok
}

// textParser converts through encoding.TextUnmarshaler on *rt.
func textParser(rt reflect.Type) func(string) (any, error) {
	return func(s string) (any, error) {
		p := reflect.New(rt)
		u, ok := p.Interface().(encoding.TextUnmarshaler)
		if !ok {
			return nil, fmt.Errorf("%s does not implement encoding.TextUnmarshaler", rt)
		}
		if err := u.UnmarshalText([]byte(s)); err != nil {
			return nil, err
		}
		return p.Elem().Interface(), nil
	}
}
