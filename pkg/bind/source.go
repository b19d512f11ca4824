// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bind

import "github.com/yeetrun/argbind/pkg/param"

// Source supplies values for parameters the command line left unbound, such
// as environment variables or a config file.
type Source interface {
	// Name identifies the source in tokens and error messages.
	Name() string
	// Lookup returns the raw values for p. ok is false when the source has
	// nothing for p.
	Lookup(p *param.Parameter) (values []string, ok bool, err error)
}
