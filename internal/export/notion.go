package export

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kyiv-estate/rentscout/internal/model"
)

// pageClient is the slice of the Notion client the publisher needs.
type pageClient interface {
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
	QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

// Publisher pushes offers into a Notion database, one page per offer. Offers
// whose deep link is already in the database are not re-published.
type Publisher struct {
	client     pageClient
	databaseID string
}

// NewPublisher creates a Publisher targeting the given database.
func NewPublisher(client pageClient, databaseID string) *Publisher {
	return &Publisher{client: client, databaseID: databaseID}
}

// Publish creates one page per new offer and returns how many were created.
// A failed page is logged and skipped; the error reports only total failure.
func (p *Publisher) Publish(ctx context.Context, offers []model.Offer) (int, error) {
	existing, err := p.existingLinks(ctx)
	if err != nil {
		return 0, err
	}

	created, attempted := 0, 0
	for _, o := range offers {
		if o.Link != "" && existing[o.Link] {
			continue
		}
		attempted++
		if _, err := p.client.CreatePage(ctx, p.pageRequest(o)); err != nil {
			zap.L().Warn("export: create notion page",
				zap.String("group", o.GroupName), zap.Int("posting", o.Identity), zap.Error(err))
			continue
		}
		created++
	}
	if created == 0 && attempted > 0 {
		return 0, eris.Errorf("export: all %d notion pages failed", attempted)
	}
	return created, nil
}

// existingLinks walks the database and collects every Link property value.
func (p *Publisher) existingLinks(ctx context.Context) (map[string]bool, error) {
	links := make(map[string]bool)
	req := &notionapi.DatabaseQueryRequest{PageSize: 100}

	for {
		resp, err := p.client.QueryDatabase(ctx, p.databaseID, req)
		if err != nil {
			return nil, eris.Wrap(err, "export: query notion database")
		}
		for _, page := range resp.Results {
			if prop, ok := page.Properties["Link"].(*notionapi.URLProperty); ok && prop.URL != "" {
				links[prop.URL] = true
			}
		}
		if !resp.HasMore {
			return links, nil
		}
		req.StartCursor = notionapi.Cursor(resp.NextCursor)
	}
}

func (p *Publisher) pageRequest(o model.Offer) *notionapi.PageCreateRequest {
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Title: []notionapi.RichText{{Text: &notionapi.Text{Content: o.GroupName}}},
		},
		"Kind": notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(o.Kind)},
		},
		"Size m2":  notionapi.NumberProperty{Number: o.SizeM2},
		"Price":    notionapi.NumberProperty{Number: o.PriceTotal},
		"Price/m2": notionapi.NumberProperty{Number: o.PricePerM2},
	}
	if o.Link != "" {
		props["Link"] = notionapi.URLProperty{URL: o.Link}
	}
	if o.Metro != "" {
		props["Metro"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: o.Metro}}},
		}
	}
	if o.Address != "" {
		props["Address"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: o.Address}}},
		}
	}

	return &notionapi.PageCreateRequest{
		Parent:     notionapi.Parent{Type: notionapi.ParentTypeDatabaseID, DatabaseID: notionapi.DatabaseID(p.databaseID)},
		Properties: props,
	}
}
