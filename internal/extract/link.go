package extract

import (
	"fmt"
	"strings"

	"github.com/kyiv-estate/rentscout/internal/model"
)

// ResolveLink picks the detail URL for an offer fragment starting at
// fragStart (a byte offset into text). Postings do not tie a link to "its"
// fragment syntactically, so the span whose start offset is closest to the
// fragment start wins; ties keep the first span encountered. This is a
// proximity heuristic, not a guarantee.
//
// When no span resolves to a usable URL the channel-message deep link
// <channelBase>/<postingID> is synthesized, so the result is never empty.
func ResolveLink(text string, spans []model.Span, fragStart int, channelBase string, postingID int) string {
	var chosen *model.Span
	bestDist := -1
	for i := range spans {
		dist := spans[i].Offset - fragStart
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			bestDist = dist
			chosen = &spans[i]
		}
	}

	if chosen != nil {
		if link := strings.TrimSpace(chosen.URL(text)); link != "" {
			return link
		}
	}
	return FallbackLink(channelBase, postingID)
}

// FallbackLink synthesizes the deep link to the source posting.
func FallbackLink(channelBase string, postingID int) string {
	return fmt.Sprintf("%s/%d", strings.TrimRight(channelBase, "/"), postingID)
}
