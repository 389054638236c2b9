// Package sanitize strips reasoning markup from raw model output.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinLength is the shortest cleaned reply still considered a real answer.
const MinLength = 10

var (
	reasoningBlock = regexp.MustCompile(`(?is)<think>.*?</think>|<reasoning>.*?</reasoning>|<thought>.*?</thought>`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// Clean removes <think>, <reasoning> and <thought> blocks (tags included,
// case-insensitive, across lines), collapses whitespace runs to one space and
// trims the result.
func Clean(raw string) string {
	text := reasoningBlock.ReplaceAllString(raw, " ")
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Substantive reports whether cleaned text carries at least min characters.
// A non-positive min falls back to MinLength.
func Substantive(text string, min int) bool {
	if min <= 0 {
		min = MinLength
	}
	return utf8.RuneCountInString(text) >= min
}
