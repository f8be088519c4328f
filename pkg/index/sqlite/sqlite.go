// Package sqlite persists index records in a SQLite file and serves queries
// from an in-memory copy loaded at startup.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"profanity/pkg/index"
	"profanity/pkg/index/memory"
)

var _ index.Store = (*Store)(nil)

const schema = `
	CREATE TABLE IF NOT EXISTS vectors (
		id        TEXT PRIMARY KEY,
		word      TEXT NOT NULL,
		category  TEXT NOT NULL DEFAULT '',
		language  TEXT NOT NULL DEFAULT '',
		embedding BLOB NOT NULL
	)
`

type Store struct {
	db  *sql.DB
	mem *memory.Store
}

// New opens or creates the database at path and loads every stored vector.
// Use ":memory:" for a throwaway database.
func New(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A second connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s := &Store{db: db, mem: memory.New()}
	if err := s.load(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading vectors: %w", err)
	}

	log.Infof("[sqlite] loaded %d vectors from %s", s.mem.Len(), path)
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, word, category, language, embedding FROM vectors`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var records []index.Record
	for rows.Next() {
		var (
			r    index.Record
			blob []byte
		)
		if err := rows.Scan(&r.ID, &r.Metadata.Word, &r.Metadata.Category, &r.Metadata.Language, &blob); err != nil {
			return err
		}
		r.Values = decodeVector(blob)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(records) == 0 {
		return nil
	}
	_, err = s.mem.Upsert(ctx, records)
	return err
}

// Upsert writes the records in one transaction and then makes them visible to
// queries.
func (s *Store) Upsert(ctx context.Context, records []index.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	// Checked before writing so the table never holds rows the memory index
	// would refuse on the next load.
	dims := s.mem.Dimensions()
	if dims == 0 {
		dims = len(records[0].Values)
	}
	if err := index.Validate(records, dims); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (id, word, category, language, embedding)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			word = excluded.word,
			category = excluded.category,
			language = excluded.language,
			embedding = excluded.embedding
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx, r.ID, r.Metadata.Word, r.Metadata.Category, r.Metadata.Language, encodeVector(r.Values))
		if err != nil {
			return 0, fmt.Errorf("upserting %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return s.mem.Upsert(ctx, records)
}

func (s *Store) Query(ctx context.Context, vector []float32, opts index.QueryOptions) ([]index.Match, error) {
	return s.mem.Query(ctx, vector, opts)
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) []float32 {
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v
}
