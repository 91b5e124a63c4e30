package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText strips all markup from user free text, trims it and caps it at maxRunes.
// An empty result is returned as nil.
func SanitizeText(input string, maxRunes int) *string {
	clean := strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(input)))
	if maxRunes > 0 {
		if r := []rune(clean); len(r) > maxRunes {
			clean = strings.TrimSpace(string(r[:maxRunes]))
		}
	}
	if clean == "" {
		return nil
	}
	return &clean
}

// SanitizeString is SanitizeText for fields that are never null.
func SanitizeString(input string, maxRunes int) string {
	if s := SanitizeText(input, maxRunes); s != nil {
		return *s
	}
	return ""
}
