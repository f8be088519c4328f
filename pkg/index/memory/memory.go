// Package memory is an in-process index that scans every stored vector.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"profanity/pkg/index"
)

var _ index.Store = (*Store)(nil)

// Store holds vectors of a single size, fixed by the first upsert.
type Store struct {
	mu      sync.RWMutex
	records map[string]index.Record
	dims    int
}

func New() *Store {
	s := Store{
		records: make(map[string]index.Record),
	}

	return &s
}

// Upsert stores copies of the records, replacing any with the same ID. Every
// record must have the size of the vectors already stored.
func (s *Store) Upsert(ctx context.Context, records []index.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dims := s.dims
	if dims == 0 {
		dims = len(records[0].Values)
	}
	if err := index.Validate(records, dims); err != nil {
		return 0, err
	}
	s.dims = dims

	for _, r := range records {
		r.Values = append([]float32(nil), r.Values...)
		s.records[r.ID] = r
	}

	return len(records), nil
}

// Query ranks every stored vector by cosine similarity. Equal scores are
// ordered by ID so results are stable.
func (s *Store) Query(ctx context.Context, vector []float32, opts index.QueryOptions) ([]index.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.TopK <= 0 {
		return []index.Match{}, nil
	}

	s.mu.RLock()
	if s.dims > 0 && len(vector) != s.dims {
		dims := s.dims
		s.mu.RUnlock()
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", index.ErrDimensionMismatch, len(vector), dims)
	}
	matches := make([]index.Match, 0, len(s.records))
	for _, r := range s.records {
		m := index.Match{ID: r.ID, Score: index.Cosine(vector, r.Values)}
		if opts.ReturnMetadata {
			md := r.Metadata
			m.Metadata = &md
		}
		matches = append(matches, m)
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > opts.TopK {
		matches = matches[:opts.TopK]
	}

	return matches, nil
}

// Dimensions returns the vector size of the stored records, or 0 while the
// store is empty.
func (s *Store) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dims
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Records returns a copy of every stored record.
func (s *Store) Records() []index.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]index.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
