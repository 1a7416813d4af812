package archive

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/kyiv-estate/rentscout/internal/model"
)

// Pool is the subset of pgxpool.Pool the archive uses. pgxmock implements it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "archive: parse config")
	}
	cfg.MaxConns = 5
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "archive: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "archive: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS postings (
	channel    TEXT NOT NULL,
	id         BIGINT NOT NULL,
	text       TEXT NOT NULL,
	spans      JSONB,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (channel, id)
);

CREATE INDEX IF NOT EXISTS idx_postings_channel_id ON postings(channel, id DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "archive: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SavePostings(ctx context.Context, postings []model.Posting) error {
	now := time.Now().UTC()
	for _, p := range postings {
		spans, err := marshalSpans(p.Spans)
		if err != nil {
			return err
		}
		var spansArg any
		if spans != "" {
			spansArg = spans
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO postings (channel, id, text, spans, fetched_at) VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (channel, id) DO UPDATE SET text = EXCLUDED.text, spans = EXCLUDED.spans, fetched_at = EXCLUDED.fetched_at`,
			p.Channel, p.ID, p.Text, spansArg, now,
		)
		if err != nil {
			return eris.Wrapf(err, "archive: upsert posting %s/%d", p.Channel, p.ID)
		}
	}
	return nil
}

func (s *PostgresStore) Postings(ctx context.Context, channel string, limit int) ([]model.Posting, error) {
	query := `SELECT channel, id, text, spans FROM postings WHERE channel = $1 ORDER BY id DESC`
	args := []any{channel}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "archive: query postings %s", channel)
	}
	defer rows.Close()

	var out []model.Posting
	for rows.Next() {
		var p model.Posting
		var spans *string
		if err := rows.Scan(&p.Channel, &p.ID, &p.Text, &spans); err != nil {
			return nil, eris.Wrap(err, "archive: scan posting")
		}
		if spans != nil {
			if p.Spans, err = unmarshalSpans(*spans); err != nil {
				return nil, err
			}
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "archive: iterate postings")
}

func (s *PostgresStore) LatestID(ctx context.Context, channel string) (int, error) {
	var id *int
	err := s.pool.QueryRow(ctx,
		`SELECT MAX(id) FROM postings WHERE channel = $1`, channel,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "archive: latest id %s", channel)
	}
	if id == nil {
		return 0, nil
	}
	return *id, nil
}
