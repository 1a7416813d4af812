package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/kyiv-estate/rentscout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "archive: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "archive: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS postings (
	channel    TEXT NOT NULL,
	id         INTEGER NOT NULL,
	text       TEXT NOT NULL,
	spans      TEXT,
	fetched_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (channel, id)
);

CREATE INDEX IF NOT EXISTS idx_postings_channel_id ON postings(channel, id DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "archive: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SavePostings(ctx context.Context, postings []model.Posting) error {
	if len(postings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "archive: begin tx")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, p := range postings {
		spans, err := marshalSpans(p.Spans)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO postings (channel, id, text, spans, fetched_at) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (channel, id) DO UPDATE SET text = excluded.text, spans = excluded.spans, fetched_at = excluded.fetched_at`,
			p.Channel, p.ID, p.Text, spans, now,
		)
		if err != nil {
			return eris.Wrapf(err, "archive: upsert posting %s/%d", p.Channel, p.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "archive: commit")
}

func (s *SQLiteStore) Postings(ctx context.Context, channel string, limit int) ([]model.Posting, error) {
	query := `SELECT channel, id, text, spans FROM postings WHERE channel = ? ORDER BY id DESC`
	args := []any{channel}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "archive: query postings %s", channel)
	}
	defer rows.Close()

	var out []model.Posting
	for rows.Next() {
		var p model.Posting
		var spans sql.NullString
		if err := rows.Scan(&p.Channel, &p.ID, &p.Text, &spans); err != nil {
			return nil, eris.Wrap(err, "archive: scan posting")
		}
		if p.Spans, err = unmarshalSpans(spans.String); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "archive: iterate postings")
}

func (s *SQLiteStore) LatestID(ctx context.Context, channel string) (int, error) {
	var id sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(id) FROM postings WHERE channel = ?`, channel,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "archive: latest id %s", channel)
	}
	return int(id.Int64), nil
}

func marshalSpans(spans []model.Span) (string, error) {
	if len(spans) == 0 {
		return "", nil
	}
	data, err := json.Marshal(spans)
	if err != nil {
		return "", eris.Wrap(err, "archive: marshal spans")
	}
	return string(data), nil
}

func unmarshalSpans(data string) ([]model.Span, error) {
	if data == "" {
		return nil, nil
	}
	var spans []model.Span
	if err := json.Unmarshal([]byte(data), &spans); err != nil {
		return nil, eris.Wrap(err, "archive: unmarshal spans")
	}
	return spans, nil
}
