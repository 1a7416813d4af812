// Package extract turns raw channel postings into structured offers. All of
// it is pure: identical inputs produce identical offers and no I/O happens
// here. Fragments whose numeric fields fail to parse are skipped one at a
// time; a posting with no matching fragments yields zero offers.
package extract

import (
	"fmt"
	"strings"
)

// availabilityMarker is boilerplate the channels prepend to postings that
// are still on the market. It carries no offer data and is stripped first.
const availabilityMarker = "В наявності"

// Extractor parses postings from one channel.
type Extractor struct {
	// ChannelBase is the public base URL of the source channel, used for
	// synthesized deep links (e.g. "https://t.me/KyivOfficeRent").
	ChannelBase string
}

func stripBoilerplate(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, availabilityMarker, ""))
}

func fallbackSlug(slug string, postingID int) string {
	if slug == "" {
		return fmt.Sprintf("offer_%d", postingID)
	}
	return slug
}
