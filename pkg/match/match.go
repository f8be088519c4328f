// Package match looks up the nearest known term for every candidate.
package match

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"profanity/pkg/candidate"
	"profanity/pkg/embedding"
	"profanity/pkg/index"
)

var (
	ErrEmbedding  = errors.New("embedding provider failure")
	ErrIndexQuery = errors.New("index query failure")
)

const (
	DefaultBatchSize        = 100
	DefaultQueryConcurrency = 16
)

// Result is the classification of a single candidate.
type Result struct {
	Text        string         `json:"word"`
	Kind        candidate.Kind `json:"kind"`
	Score       float64        `json:"matchScore"`
	MatchedTerm string         `json:"matchedProfanity"`
	IsProfane   bool           `json:"isProfane"`
}

type Config struct {
	// BatchSize is the number of texts sent to the embedder per call.
	BatchSize int `toml:"batchSize"`
	// QueryConcurrency bounds the index queries in flight for one batch.
	QueryConcurrency int `toml:"queryConcurrency"`
}

type Matcher struct {
	embedder embedding.Embedder
	index    index.Querier
	cfg      Config
}

func New(e embedding.Embedder, q index.Querier, cfg Config) *Matcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.QueryConcurrency <= 0 {
		cfg.QueryConcurrency = DefaultQueryConcurrency
	}

	return &Matcher{embedder: e, index: q, cfg: cfg}
}

// Match returns exactly one Result per candidate, in candidate order. Any
// embedder or index failure aborts the whole call.
func (m *Matcher) Match(ctx context.Context, cs []candidate.Candidate, threshold float64) ([]Result, error) {
	results := make([]Result, len(cs))

	for start := 0; start < len(cs); start += m.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + m.cfg.BatchSize
		if end > len(cs) {
			end = len(cs)
		}
		if err := m.matchBatch(ctx, cs[start:end], results[start:end], threshold); err != nil {
			return nil, err
		}
	}

	return results, nil
}

// matchBatch fills out, which has one slot per candidate in batch.
func (m *Matcher) matchBatch(ctx context.Context, batch []candidate.Candidate, out []Result, threshold float64) error {
	texts := candidate.Texts(batch)

	vectors, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if err := embedding.Check(texts, vectors); err != nil {
		return fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	log.Debugf("[match] embedded batch of %d candidates", len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.QueryConcurrency)

	for i := range batch {
		// Stop launching queries once the caller gave up or one failed.
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			matches, err := m.index.Query(gctx, vectors[i], index.QueryOptions{TopK: 1, ReturnMetadata: true})
			if err != nil {
				return fmt.Errorf("%w: %q: %w", ErrIndexQuery, batch[i].Text, err)
			}
			out[i] = classify(batch[i], matches, threshold)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	// Queries skipped after cancellation leave empty slots.
	return ctx.Err()
}

func classify(c candidate.Candidate, matches []index.Match, threshold float64) Result {
	r := Result{Text: c.Text, Kind: c.Kind}
	if len(matches) == 0 {
		return r
	}

	best := matches[0]
	r.Score = index.Clamp(best.Score)
	r.MatchedTerm = best.Term()
	r.IsProfane = r.Score >= threshold
	return r
}
