// Package notion publishes offer pages to a Notion workspace. The wrapper
// owns request pacing: Notion allows an average of three requests per second
// per integration and answers burst overruns with 429s.
package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const requestsPerSec = 3

// Client talks to the Notion API with built-in request pacing.
type Client struct {
	api     *notionapi.Client
	limiter *rate.Limiter
}

// NewClient creates a paced client for the given integration token.
func NewClient(token string) *Client {
	return &Client{
		api:     notionapi.NewClient(notionapi.Token(token)),
		limiter: rate.NewLimiter(requestsPerSec, 1),
	}
}

// throttle blocks until a request slot frees up or ctx expires.
func (c *Client) throttle(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "notion: throttle")
	}
	return nil
}

// CreatePage adds one page under its parent database.
func (c *Client) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	page, err := c.api.Page.Create(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "notion: create page")
	}
	return page, nil
}

// QueryDatabase reads one result page of a database query.
func (c *Client) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	resp, err := c.api.Database.Query(ctx, notionapi.DatabaseID(dbID), req)
	if err != nil {
		return nil, eris.Wrapf(err, "notion: query database %s", dbID)
	}
	return resp, nil
}
