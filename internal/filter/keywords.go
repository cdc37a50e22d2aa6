package filter

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"
)

// normalizeText folds case and full-width forms so "ＰＭ" and "pm" compare equal.
func normalizeText(str string) string {
	narrowed, _, err := transform.String(width.Fold, str)
	if err != nil {
		narrowed = str
	}
	//Caser keeps state, so one per call
	return cases.Fold().String(strings.TrimSpace(narrowed))
}

// KeepTitle reports whether title passes the exclusion list. Any keyword
// found in the title, ignoring case, drops the job.
func KeepTitle(title string, exclusions []string) bool {
	text := normalizeText(title)
	if text == "" {
		return true
	}

	for _, excluded := range exclusions {
		needle := normalizeText(excluded)
		if needle == "" {
			continue
		}
		if strings.Contains(text, needle) {
			return false
		}
	}
	return true
}
