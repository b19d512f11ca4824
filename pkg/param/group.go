// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package param

// Group bundles parameters for help placement and joint conversion or
// validation. A Group holds no references to its members; the same Group may
// be attached to parameters of several commands.
type Group struct {
	Name       string
	Help       string
	Hidden     bool
	Defaults   Options
	Converter  GroupConverter
	Validators []GroupValidator
}

// NewGroup returns a named group checked by validators.
func NewGroup(name string, validators ...GroupValidator) *Group {
	return &Group{Name: name, Validators: validators}
}

// Members returns the parameters of params that belong to g, in order.
func (g *Group) Members(params []*Parameter) []*Parameter {
	var out []*Parameter
	for _, p := range params {
		for _, pg := range p.Groups {
			if pg == g {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func (g *Group) String() string {
	if g.Name == "" {
		return "(anonymous group)"
	}
	return g.Name
}
