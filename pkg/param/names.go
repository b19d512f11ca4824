// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package param

import (
	"strings"
	"time"
	"unicode"
)

// DefaultNameTransform turns a Go or snake_case identifier into a lower
// kebab-case option name: "MaxRetries" and "max_retries" both become
// "max-retries", and "HTTPServer" becomes "http-server".
func DefaultNameTransform(s string) string {
	rs := []rune(s)
	var b strings.Builder
	for i, r := range rs {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			b.WriteByte('-')
			continue
		case unicode.IsUpper(r):
			if i > 0 {
				prev := rs[i-1]
				nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('-')
				}
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return collapseHyphens(b.String())
}

// NormalizeName replaces the word separators of an identifier with hyphens
// and trims them from both ends: "__max_retries" becomes "max-retries".
// Name transforms run on its result.
func NormalizeName(s string) string {
	return collapseHyphens(strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsSpace(r) {
			return '-'
		}
		return r
	}, s))
}

func collapseHyphens(s string) string {
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}

// IsOptionLike reports whether tok looks like an option rather than a
// value. Negative numbers and durations such as "-5s" are values.
func IsOptionLike(tok string) bool {
	if len(tok) < 2 || tok[0] != '-' {
		return false
	}
	if IsNumeric(tok) {
		return false
	}
	_, err := time.ParseDuration(tok)
	return err != nil
}

// IsNumeric reports whether s is a number, including negative, hex and
// complex forms.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	hasDigit := false
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(".eE+-xXoObBjJ_abcdefABCDEF", r):
		default:
			return false
		}
	}
	return hasDigit && unicode.IsDigit(rune(s[0])) || (s[0] == '.' && len(s) > 1 && unicode.IsDigit(rune(s[1])))
}
