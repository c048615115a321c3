package utils

import (
	"regexp"
	"strings"
)

var nonSlug = regexp.MustCompile("[^a-z0-9]+")

// maxSlugLen keeps generated file names readable.
const maxSlugLen = 48

// Slugify lowercases s and joins its alphanumeric runs with hyphens. The
// result is cut to a word boundary when longer than maxSlugLen.
func Slugify(s string) string {
	s = strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if len(s) <= maxSlugLen {
		return s
	}
	s = s[:maxSlugLen]
	if i := strings.LastIndexByte(s, '-'); i > 0 {
		s = s[:i]
	}
	return strings.Trim(s, "-")
}
