// Package archive persists fetched channel postings so searches can answer
// from local history before reaching out to the channel source.
package archive

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/kyiv-estate/rentscout/internal/model"
)

// Store is the posting archive. Postings are keyed by (channel, id); saving
// an already archived posting replaces its text and spans, since channel
// posts get edited in place.
type Store interface {
	SavePostings(ctx context.Context, postings []model.Posting) error
	// Postings returns up to limit archived postings for the channel,
	// newest first. limit <= 0 means no limit.
	Postings(ctx context.Context, channel string, limit int) ([]model.Posting, error)
	// LatestID returns the highest archived posting id for the channel,
	// or 0 when the channel has no history yet.
	LatestID(ctx context.Context, channel string) (int, error)
	Migrate(ctx context.Context) error
	Close() error
}

// New opens a Store for the configured driver.
func New(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn)
	default:
		return nil, eris.Errorf("archive: unknown driver %q", driver)
	}
}
