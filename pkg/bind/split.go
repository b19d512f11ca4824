// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bind

import (
	"fmt"

	"github.com/google/shlex"
)

// Split breaks a command line into tokens using shell quoting rules.
func Split(line string) ([]string, error) {
	toks, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("split %q: %w", line, err)
	}
	return toks, nil
}
