package model

// SpanKind is the closed set of rich-text annotation variants carried by a
// posting.
type SpanKind string

const (
	// SpanLiteralURL marks a span whose covered substring is itself a URL.
	SpanLiteralURL SpanKind = "literal_url"
	// SpanLinkedText marks a span of display text linking to TargetURL.
	SpanLinkedText SpanKind = "linked_text"
)

// Span is one rich-text annotation. Offset and Length are byte positions
// into Posting.Text.
type Span struct {
	Kind      SpanKind `json:"kind"`
	Offset    int      `json:"offset"`
	Length    int      `json:"length"`
	TargetURL string   `json:"target_url,omitempty"`
}

// URL resolves the span to its link: the target for linked text, the covered
// substring for a literal URL. Returns "" if the span does not fit the text.
func (s Span) URL(text string) string {
	if s.Kind == SpanLinkedText {
		return s.TargetURL
	}
	end := s.Offset + s.Length
	if s.Offset < 0 || end > len(text) || s.Offset > end {
		return ""
	}
	return text[s.Offset:end]
}
