package source

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"

	"github.com/kyiv-estate/rentscout/internal/model"
)

// flattenRichText renders a message body node to plain text, turning <br>
// into newlines and recording anchor positions as spans. Offsets are byte
// positions into the returned text.
func flattenRichText(n *html.Node) (string, []model.Span) {
	var (
		b     strings.Builder
		spans []model.Span
	)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		flattenNode(c, &b, &spans)
	}
	return b.String(), spans
}

func flattenNode(n *html.Node, b *strings.Builder, spans *[]model.Span) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
	case html.ElementNode:
		switch n.Data {
		case "br":
			b.WriteString("\n")
		case "a":
			flattenAnchor(n, b, spans)
		default:
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				flattenNode(c, b, spans)
			}
		}
	}
}

func flattenAnchor(n *html.Node, b *strings.Builder, spans *[]model.Span) {
	start := b.Len()
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		flattenNode(c, b, spans)
	}
	length := b.Len() - start
	if length == 0 {
		return
	}

	href := attrValue(n, "href")
	if href == "" {
		return
	}

	covered := b.String()[start:]
	if covered == href {
		*spans = append(*spans, model.Span{
			Kind: model.SpanLiteralURL, Offset: start, Length: length,
		})
		return
	}
	*spans = append(*spans, model.Span{
		Kind: model.SpanLinkedText, Offset: start, Length: length, TargetURL: href,
	})
}

func attrValue(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

var backgroundImageRE = regexp.MustCompile(`background-image:\s*url\('([^']+)'\)`)

// photoURLs extracts photo URLs from a posting embed page, in document
// order, capped at max.
func photoURLs(page []byte, max int) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, eris.Wrap(err, "source: parse embed page")
	}

	var urls []string
	doc.Find(".tgme_widget_message_photo_wrap").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		style, ok := s.Attr("style")
		if !ok {
			return true
		}
		if m := backgroundImageRE.FindStringSubmatch(style); m != nil {
			urls = append(urls, m[1])
		}
		return max <= 0 || len(urls) < max
	})
	return urls, nil
}
