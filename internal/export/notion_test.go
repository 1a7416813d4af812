package export

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyiv-estate/rentscout/internal/model"
)

type fakePageClient struct {
	requests      []*notionapi.PageCreateRequest
	failFor       map[string]bool
	existingLinks []string
}

func (f *fakePageClient) CreatePage(_ context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	title := req.Properties["Name"].(notionapi.TitleProperty).Title[0].Text.Content
	if f.failFor[title] {
		return nil, eris.New("boom")
	}
	f.requests = append(f.requests, req)
	return &notionapi.Page{}, nil
}

func (f *fakePageClient) QueryDatabase(_ context.Context, _ string, _ *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	resp := &notionapi.DatabaseQueryResponse{}
	for _, link := range f.existingLinks {
		resp.Results = append(resp.Results, notionapi.Page{
			Properties: notionapi.Properties{"Link": &notionapi.URLProperty{URL: link}},
		})
	}
	return resp, nil
}

func TestPublishCreatesPagePerOffer(t *testing.T) {
	t.Parallel()

	fake := &fakePageClient{}
	pub := NewPublisher(fake, "db-1")

	created, err := pub.Publish(context.Background(), []model.Offer{
		{Kind: model.KindOffice, GroupName: "БЦ Форум", SizeM2: 80, PriceTotal: 1200, Link: "https://t.me/KyivOfficeRent/3"},
		{Kind: model.KindWarehouse, GroupName: "Склад", SizeM2: 500, PriceTotal: 2500, Address: "Київ"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	require.Len(t, fake.requests, 2)

	first := fake.requests[0]
	assert.Equal(t, notionapi.DatabaseID("db-1"), first.Parent.DatabaseID)
	assert.Equal(t, "office", first.Properties["Kind"].(notionapi.SelectProperty).Select.Name)
	assert.Equal(t, "https://t.me/KyivOfficeRent/3", first.Properties["Link"].(notionapi.URLProperty).URL)
	_, hasAddress := first.Properties["Address"]
	assert.False(t, hasAddress, "office offers carry no address")

	second := fake.requests[1]
	_, hasLink := second.Properties["Link"]
	assert.False(t, hasLink)
	assert.Equal(t, "Київ", second.Properties["Address"].(notionapi.RichTextProperty).RichText[0].Text.Content)
}

func TestPublishSkipsAlreadyPublished(t *testing.T) {
	t.Parallel()

	fake := &fakePageClient{existingLinks: []string{"https://t.me/KyivOfficeRent/3"}}
	pub := NewPublisher(fake, "db-1")

	created, err := pub.Publish(context.Background(), []model.Offer{
		{GroupName: "старий", Link: "https://t.me/KyivOfficeRent/3"},
		{GroupName: "новий", Link: "https://t.me/KyivOfficeRent/4"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	require.Len(t, fake.requests, 1)
	assert.Equal(t, "новий", fake.requests[0].Properties["Name"].(notionapi.TitleProperty).Title[0].Text.Content)
}

func TestPublishSkipsFailedPages(t *testing.T) {
	t.Parallel()

	fake := &fakePageClient{failFor: map[string]bool{"зламаний": true}}
	pub := NewPublisher(fake, "db-1")

	created, err := pub.Publish(context.Background(), []model.Offer{
		{GroupName: "зламаний"},
		{GroupName: "цілий"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created)
}

func TestPublishAllFailed(t *testing.T) {
	t.Parallel()

	fake := &fakePageClient{failFor: map[string]bool{"зламаний": true}}
	pub := NewPublisher(fake, "db-1")

	_, err := pub.Publish(context.Background(), []model.Offer{{GroupName: "зламаний"}})
	assert.Error(t, err)
}
