package sanitizer

import (
	"regexp"
	"strings"
	"unicode"
)

var reNonAlnum = regexp.MustCompile(`[^0-9\p{L}]+`)

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

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

func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

// MatchKey folds a display string into the form used for name comparisons:
// lower case, punctuation collapsed to single spaces. "Hot  Yoga-60" and
// "hot yoga 60" share a key.
func MatchKey(s string) string {
	s = strings.ToLower(TrimAndNormalize(s))
	s = reNonAlnum.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// FullName joins first and last name the way staff directories display them.
func FullName(first, last string) string {
	return TrimAndNormalize(first + " " + last)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
