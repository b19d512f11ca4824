// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package suggest picks the registered name a user most likely meant.
package suggest

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Closest returns the candidate closest to target, or "" if none is close
// enough to be worth suggesting.
//
// A candidate that target is a prefix of wins first, then the smallest edit
// distance within max(2, len(target)/3), then the best fuzzy subsequence
// match.
func Closest(target string, candidates []string) string {
	if target == "" || len(candidates) == 0 {
		return ""
	}
	lt := strings.ToLower(target)
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c), lt) {
			return c
		}
	}

	threshold := max(2, len(target)/3)
	best, bestDist := "", threshold+1
	for _, c := range candidates {
		d := levenshtein.Distance(lt, strings.ToLower(c), nil)
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	if best != "" {
		return best
	}

	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}

// Options returns the closest option name to token. Leading hyphens are
// ignored when comparing, so "-verbos" still suggests "--verbose".
func Options(token string, names []string) string {
	bare := strings.TrimLeft(token, "-")
	if i := strings.IndexByte(bare, '='); i >= 0 {
		bare = bare[:i]
	}
	stripped := make([]string, 0, len(names))
	index := make(map[string]string, len(names))
	for _, n := range names {
		if !strings.HasPrefix(n, "--") {
			continue
		}
		s := strings.TrimPrefix(n, "--")
		if _, ok := index[s]; !ok {
			stripped = append(stripped, s)
			index[s] = n
		}
	}
	return index[Closest(bare, stripped)]
}
