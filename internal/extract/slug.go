package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	slugStripRE = regexp.MustCompile(`[^\p{L}\p{N}_\s-]+`)
	slugSpaceRE = regexp.MustCompile(`\s+`)
)

const maxSlugRunes = 120

// Slugify turns a group display name into a stable, filesystem-safe cache
// key: NFC-normalized, punctuation stripped, whitespace collapsed to
// underscores, lowercased, capped at 120 runes. Returns "" for names with no
// usable characters; callers substitute an identity-based fallback.
//
// The slug is lossy on purpose: two distinct names that collapse to the same
// slug share one collage. That collision is an accepted product trade-off.
func Slugify(name string) string {
	s := norm.NFC.String(name)
	s = slugStripRE.ReplaceAllString(s, "")
	s = slugSpaceRE.ReplaceAllString(strings.TrimSpace(s), "_")
	s = strings.ToLower(s)

	runes := []rune(s)
	if len(runes) > maxSlugRunes {
		s = string(runes[:maxSlugRunes])
	}
	return s
}
