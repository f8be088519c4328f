// Package elastic stores vectors in an Elasticsearch dense_vector field and
// answers queries with approximate kNN search.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	log "github.com/sirupsen/logrus"

	"profanity/pkg/index"
)

var _ index.Store = (*Store)(nil)

var ErrBulkFailed = errors.New("bulk upsert failed")

const (
	DefaultIndex         = "profanity-vectors"
	DefaultNumCandidates = 50
)

type Config struct {
	Addresses []string `toml:"addresses"`
	Index     string   `toml:"index"`
	Username  string   `toml:"username"`
	Password  string   `toml:"password"`
	// Dimensions is used for the index mapping only.
	Dimensions int `toml:"dimensions"`
	// NumCandidates is the per-shard candidate pool for kNN; never below TopK.
	NumCandidates int `toml:"numCandidates"`
}

type Store struct {
	es            *elasticsearch.Client
	index         string
	dims          int
	numCandidates int
}

type document struct {
	Word     string    `json:"word"`
	Category string    `json:"category,omitempty"`
	Language string    `json:"language,omitempty"`
	Values   []float32 `json:"values"`
}

func New(cfg Config) (*Store, error) {
	if cfg.Index == "" {
		cfg.Index = DefaultIndex
	}
	if cfg.NumCandidates <= 0 {
		cfg.NumCandidates = DefaultNumCandidates
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}

	s := Store{
		es:            es,
		index:         cfg.Index,
		dims:          cfg.Dimensions,
		numCandidates: cfg.NumCandidates,
	}

	return &s, nil
}

// EnsureIndex creates the index with a cosine dense_vector mapping unless it
// already exists.
func (s *Store) EnsureIndex(ctx context.Context) error {
	res, err := s.es.Indices.Exists([]string{s.index}, s.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return err
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("checking index %s: %s", s.index, res.Status())
	}

	values := map[string]any{"type": "dense_vector", "index": true, "similarity": "cosine"}
	if s.dims > 0 {
		values["dims"] = s.dims
	}
	mapping := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"word":     map[string]any{"type": "keyword"},
				"category": map[string]any{"type": "keyword"},
				"language": map[string]any{"type": "keyword"},
				"values":   values,
			},
		},
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return err
	}

	res, err = s.es.Indices.Create(s.index,
		s.es.Indices.Create.WithBody(bytes.NewReader(body)),
		s.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("creating index %s: %s", s.index, readError(res))
	}

	log.Infof("[elastic] created index %s", s.index)
	return nil
}

// Upsert indexes the records with a single bulk request. Documents are keyed
// by record ID so repeated upserts replace.
func (s *Store) Upsert(ctx context.Context, records []index.Record) (int, error) {
	if err := index.Validate(records, s.dims); err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range records {
		action := map[string]any{"index": map[string]any{"_index": s.index, "_id": r.ID}}
		if err := enc.Encode(action); err != nil {
			return 0, err
		}
		doc := document{
			Word:     r.Metadata.Word,
			Category: r.Metadata.Category,
			Language: r.Metadata.Language,
			Values:   r.Values,
		}
		if err := enc.Encode(doc); err != nil {
			return 0, err
		}
	}

	res, err := s.es.Bulk(&buf,
		s.es.Bulk.WithContext(ctx),
		s.es.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("%w: %s", ErrBulkFailed, readError(res))
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
			Error  *struct {
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return 0, fmt.Errorf("decoding bulk response: %w", err)
	}

	written := 0
	var firstErr string
	for _, item := range bulkResp.Items {
		for _, op := range item {
			if op.Error == nil && op.Status < 300 {
				written++
			} else if firstErr == "" && op.Error != nil {
				firstErr = op.Error.Reason
			}
		}
	}
	if bulkResp.Errors {
		return written, fmt.Errorf("%w: %d of %d written: %s", ErrBulkFailed, written, len(records), firstErr)
	}

	log.Debugf("[elastic] upserted %d documents into %s", written, s.index)
	return written, nil
}

// Query runs a kNN search. Elasticsearch reports cosine similarity as
// (1+cos)/2; scores are converted back before clamping.
func (s *Store) Query(ctx context.Context, vector []float32, opts index.QueryOptions) ([]index.Match, error) {
	if opts.TopK <= 0 {
		return []index.Match{}, nil
	}

	numCandidates := s.numCandidates
	if numCandidates < opts.TopK {
		numCandidates = opts.TopK
	}

	req := map[string]any{
		"knn": map[string]any{
			"field":          "values",
			"query_vector":   vector,
			"k":              opts.TopK,
			"num_candidates": numCandidates,
		},
		"size": opts.TopK,
	}
	if opts.ReturnMetadata {
		req["_source"] = []string{"word", "category", "language"}
	} else {
		req["_source"] = false
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("searching %s: %s", s.index, readError(res))
	}

	var searchResp struct {
		Hits struct {
			Hits []struct {
				ID     string          `json:"_id"`
				Score  float64         `json:"_score"`
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	matches := make([]index.Match, 0, len(searchResp.Hits.Hits))
	for _, hit := range searchResp.Hits.Hits {
		m := index.Match{ID: hit.ID, Score: index.Clamp(2*hit.Score - 1)}
		if opts.ReturnMetadata && len(hit.Source) > 0 {
			var doc document
			if err := json.Unmarshal(hit.Source, &doc); err != nil {
				return nil, fmt.Errorf("decoding hit %s: %w", hit.ID, err)
			}
			m.Metadata = &index.Metadata{Word: doc.Word, Category: doc.Category, Language: doc.Language}
		}
		matches = append(matches, m)
	}
	if len(matches) > opts.TopK {
		matches = matches[:opts.TopK]
	}

	return matches, nil
}

func readError(res *esapi.Response) string {
	b, err := io.ReadAll(res.Body)
	if err != nil || len(b) == 0 {
		return res.Status()
	}
	return string(b)
}
