// Package slug turns article titles into URL-safe identifiers and keeps them
// unique across the article population.
package slug

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FallbackPrefix prefixes slugs generated for titles with no usable characters.
const FallbackPrefix = "news"

var (
	disallowed = regexp.MustCompile(`[^\w\s\p{Zs}-]`)
	whitespace = regexp.MustCompile(`[\s\p{Zs}]+`)
	hyphens    = regexp.MustCompile(`-{2,}`)
)

// Canonicalize lower-cases the title, strips diacritics and reduces it to
// word characters separated by single hyphens. Characters outside ASCII word
// characters are dropped, so a title made only of them yields "".
func Canonicalize(title string) string {
	s := strings.ToLower(title)

	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}

	s = disallowed.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = whitespace.ReplaceAllString(s, "-")
	s = hyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Fallback returns the placeholder slug used when a title canonicalizes to
// nothing.
func Fallback(now time.Time) string {
	return fmt.Sprintf("%s-%d", FallbackPrefix, now.UnixMilli())
}

// Timestamped appends the epoch milliseconds of now to base. It is the last
// resort when numbered suffixes keep colliding.
func Timestamped(base string, now time.Time) string {
	return fmt.Sprintf("%s-%d", base, now.UnixMilli())
}

// Base returns the canonical slug for title, or the time based fallback.
func Base(title string, now time.Time) string {
	if s := Canonicalize(title); s != "" {
		return s
	}
	return Fallback(now)
}
