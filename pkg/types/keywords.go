// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// Keywords returns the set of lower-cased whitespace-separated words in s.
func Keywords(s string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		words[w] = struct{}{}
	}
	return words
}

// KeywordOverlap counts the words a and b share, ignoring case.
func KeywordOverlap(a, b string) int {
	aw := Keywords(a)
	n := 0
	for w := range Keywords(b) {
		if _, ok := aw[w]; ok {
			n++
		}
	}
	return n
}
