// Package index defines the similarity index used to look up the nearest
// known term for a candidate vector.
package index

import (
	"context"
	"errors"
	"math"
)

var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrEmptyVector       = errors.New("empty vector")
	ErrNoRecordID        = errors.New("record ID not provided")
)

// Metadata is stored alongside every vector.
type Metadata struct {
	Word     string `json:"word" bson:"word"`
	Category string `json:"category,omitempty" bson:"category,omitempty"`
	Language string `json:"language,omitempty" bson:"language,omitempty"`
}

// Record is a stored vector.
type Record struct {
	ID       string    `json:"id" bson:"_id"`
	Values   []float32 `json:"values" bson:"values"`
	Metadata Metadata  `json:"metadata" bson:"metadata"`
}

// Match is a single neighbour returned by a query.
type Match struct {
	ID       string
	Score    float64
	Metadata *Metadata
}

// Term returns the known term the match stands for: the metadata word when
// present, the record ID otherwise.
func (m Match) Term() string {
	if m.Metadata != nil && m.Metadata.Word != "" {
		return m.Metadata.Word
	}
	return m.ID
}

// QueryOptions tune a single query.
type QueryOptions struct {
	TopK           int
	ReturnMetadata bool
}

// Querier finds the nearest stored vectors. Matches are sorted by Score
// descending and there are at most TopK of them.
type Querier interface {
	Query(ctx context.Context, vector []float32, opts QueryOptions) ([]Match, error)
}

// Store is a Querier that can also be written to.
type Store interface {
	Querier
	// Upsert inserts or replaces records by ID and returns how many were
	// written.
	Upsert(ctx context.Context, records []Record) (int, error)
}

// Cosine returns the cosine similarity of a and b clamped to [0,1]. Vectors
// of different length or zero magnitude score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}

	return Clamp(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// Clamp limits a backend score to [0,1].
func Clamp(score float64) float64 {
	switch {
	case math.IsNaN(score), score < 0:
		return 0
	case score > 1:
		return 1
	}
	return score
}

// Validate checks records before they are written.
func Validate(records []Record, dims int) error {
	for _, r := range records {
		if r.ID == "" {
			return ErrNoRecordID
		}
		if len(r.Values) == 0 {
			return ErrEmptyVector
		}
		if dims > 0 && len(r.Values) != dims {
			return ErrDimensionMismatch
		}
	}
	return nil
}

// Batches splits records into consecutive slices of at most size records.
func Batches(records []Record, size int) [][]Record {
	if size <= 0 {
		size = len(records)
	}
	var out [][]Record
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		out = append(out, records[start:end])
	}
	return out
}
