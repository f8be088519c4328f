// Package postgres keeps index records in a pgvector column and ranks them
// with the cosine distance operator.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	log "github.com/sirupsen/logrus"

	"profanity/pkg/index"
)

var _ index.Store = (*Store)(nil)

type Store struct {
	db    *pgxpool.Pool
	table string
	dims  int
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	db, err := pgxpool.Connect(ctx, cfg.ConString())
	if err != nil {
		return nil, err
	}
	s := Store{
		db:    db,
		table: pgx.Identifier{cfg.table()}.Sanitize(),
		dims:  cfg.dimensions(),
	}

	return &s, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) Close() {
	s.db.Close()
}

// EnsureSchema enables the vector extension and creates the table.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`)
	if err != nil {
		return fmt.Errorf("enabling pgvector: %w", err)
	}

	_, err = s.db.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			word TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			language TEXT NOT NULL DEFAULT '',
			embedding vector(%d) NOT NULL
		)
	`, s.table, s.dims))
	if err != nil {
		return fmt.Errorf("creating table %s: %w", s.table, err)
	}

	return nil
}

// Upsert inserts or updates a batch of records within a single transaction.
func (s *Store) Upsert(ctx context.Context, records []index.Record) (int, error) {
	if err := index.Validate(records, s.dims); err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`
		INSERT INTO %s (id, word, category, language, embedding)
		VALUES ($1, $2, $3, $4, $5::vector)
		ON CONFLICT (id)
		DO UPDATE SET
			word = EXCLUDED.word,
			category = EXCLUDED.category,
			language = EXCLUDED.language,
			embedding = EXCLUDED.embedding
	`, s.table)

	batch := new(pgx.Batch)
	for _, r := range records {
		batch.Queue(query,
			r.ID,
			r.Metadata.Word,
			r.Metadata.Category,
			r.Metadata.Language,
			vectorLiteral(r.Values),
		)
	}

	res := tx.SendBatch(ctx, batch)
	if err := res.Close(); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	log.Debugf("[postgres] upserted %d records into %s", len(records), s.table)
	return len(records), nil
}

// Query returns the nearest records by cosine distance. The score is
// 1 - distance.
func (s *Store) Query(ctx context.Context, vector []float32, opts index.QueryOptions) ([]index.Match, error) {
	if opts.TopK <= 0 {
		return []index.Match{}, nil
	}

	rows, err := s.db.Query(ctx, fmt.Sprintf(`
		SELECT id, word, category, language, 1 - (embedding <=> $1::vector) AS score
		FROM %s
		ORDER BY embedding <=> $1::vector
		LIMIT $2
	`, s.table),
		vectorLiteral(vector),
		opts.TopK,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []index.Match
	for rows.Next() {
		var (
			m  index.Match
			md index.Metadata
		)
		err := rows.Scan(
			&m.ID,
			&md.Word,
			&md.Category,
			&md.Language,
			&m.Score,
		)
		if err != nil {
			return nil, err
		}
		m.Score = index.Clamp(m.Score)
		if opts.ReturnMetadata {
			m.Metadata = &md
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return matches, nil
}

// vectorLiteral renders v in pgvector's text input format.
func vectorLiteral(v []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}
