package jsdecode

import (
	"regexp"
	"strings"
)

var iifePattern = regexp.MustCompile(`(?s)\(\s*function\s*\(.*?\)\s*\{.*?\}\s*\(.*?\)\);?`)

// StripIIFE removes the first `(function(...){...}(...));` wrapper from
// script and trims the result
func StripIIFE(script string) string {
	loc := iifePattern.FindStringIndex(script)
	if loc == nil {
		return strings.TrimSpace(script)
	}
	return strings.TrimSpace(script[:loc[0]] + script[loc[1]:])
}
