package utils

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// strips and collapses spaces, uppercases the first letter of every word,
// leaves the rest alone so "McAdams" survives
func CleanupName(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return cases.Title(language.English, cases.NoLower).String(s)
}
