// Package seed populates the similarity index with known disallowed words.
package seed

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"

	"profanity/pkg/embedding"
	"profanity/pkg/index"
)

var (
	ErrEmbedding = errors.New("embedding failed")
	ErrUpsert    = errors.New("upsert failed")
	// ErrInvalidRecords reports precomputed vectors that cannot be stored,
	// such as ones produced by a model of a different size.
	ErrInvalidRecords = errors.New("invalid records")
)

const (
	EmbedBatchSize  = 100
	UpsertBatchSize = 1000
	Category        = "profanity"
)

var whitespace = regexp.MustCompile(`\s`)

// RecordID derives the deterministic ID of a word; whitespace becomes '-'.
func RecordID(word string) string {
	return "profanity-" + whitespace.ReplaceAllString(word, "-")
}

// Embed turns words into index records, one embedder call per batch of
// EmbedBatchSize words. Language may be empty. A batch without output fails
// the whole call.
func Embed(ctx context.Context, e embedding.Embedder, words []string, language string) ([]index.Record, error) {
	records := make([]index.Record, 0, len(words))

	for start := 0; start < len(words); start += EmbedBatchSize {
		end := start + EmbedBatchSize
		if end > len(words) {
			end = len(words)
		}
		batch := words[start:end]

		vectors, err := e.EmbedBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
		}
		if err := embedding.Check(batch, vectors); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
		}

		for i, w := range batch {
			id := RecordID(w)
			if language != "" {
				id = RecordID(language + " " + w)
			}
			records = append(records, index.Record{
				ID:     id,
				Values: vectors[i],
				Metadata: index.Metadata{
					Word:     w,
					Category: Category,
					Language: language,
				},
			})
		}
		log.Debugf("[seed] embedded %d/%d words", end, len(words))
	}

	return records, nil
}

// EmbedLists embeds every language of lists.
func EmbedLists(ctx context.Context, e embedding.Embedder, lists Lists) ([]index.Record, error) {
	var records []index.Record
	for _, lang := range lists.Languages() {
		rs, err := Embed(ctx, e, lists[lang], lang)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", lang, err)
		}
		records = append(records, rs...)
	}
	return records, nil
}

// Seeder writes words and precomputed vectors into a store.
type Seeder struct {
	embedder embedding.Embedder
	store    index.Store
}

func New(e embedding.Embedder, s index.Store) *Seeder {
	return &Seeder{embedder: e, store: s}
}

// SeedWords embeds the distinct non-blank words and upserts them. It returns
// the number of records written.
func (s *Seeder) SeedWords(ctx context.Context, words []string) (int, error) {
	cleaned := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			cleaned = append(cleaned, w)
		}
	}
	cleaned = unique(cleaned)
	if len(cleaned) == 0 {
		return 0, nil
	}

	records, err := Embed(ctx, s.embedder, cleaned, "")
	if err != nil {
		return 0, err
	}

	return s.UploadVectors(ctx, records)
}

// UploadVectors upserts records in batches of UpsertBatchSize. Records must
// match the embedder's vector size, otherwise queries could never compare
// against them.
func (s *Seeder) UploadVectors(ctx context.Context, records []index.Record) (int, error) {
	dims := 0
	if s.embedder != nil {
		dims = s.embedder.Dimensions()
	}
	if err := index.Validate(records, dims); err != nil {
		if errors.Is(err, index.ErrDimensionMismatch) {
			err = fmt.Errorf("%w: want %d dimensions", err, dims)
		}
		return 0, fmt.Errorf("%w: %w", ErrInvalidRecords, err)
	}

	total := 0
	for _, batch := range index.Batches(records, UpsertBatchSize) {
		n, err := s.store.Upsert(ctx, batch)
		total += n
		if err != nil {
			return total, fmt.Errorf("%w: %w", ErrUpsert, err)
		}
	}

	log.Infof("[seed] upserted %d records", total)
	return total, nil
}
