// Package sanitizer normalizes resident-supplied free text before it is
// persisted or rendered into notification payloads.
package sanitizer

import (
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func trim(s string) string {
	return strings.TrimSpace(s)
}

// collapseWhitespace folds runs of whitespace (including newlines in event
// names pasted from elsewhere) into single spaces.
func collapseWhitespace(s string) string {
	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// NormalizeEventName cleans an event title for display and notifications.
func NormalizeEventName(input string) string {
	p := Pipeline{
		stripControl,
		collapseWhitespace,
		trim,
	}
	return p.Apply(input)
}

// NormalizeFreeText cleans multi-line text (special requirements, damage
// descriptions, notes) while preserving its content.
func NormalizeFreeText(input string) string {
	p := Pipeline{
		stripControl,
		collapseWhitespace,
		trim,
	}
	return p.Apply(input)
}
