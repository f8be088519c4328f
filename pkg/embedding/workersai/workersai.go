// Package workersai provides an Embedder backed by the Cloudflare Workers AI
// REST API.
package workersai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"profanity/pkg/embedding"
)

var _ embedding.Embedder = (*Embedder)(nil)

const (
	DefaultBaseURL    = "https://api.cloudflare.com/client/v4"
	DefaultModel      = "@cf/baai/bge-small-en-v1.5"
	DefaultDimensions = 384
	DefaultTimeout    = 30 * time.Second
)

// Config holds Workers AI credentials and tuning.
type Config struct {
	AccountID string
	APIToken  string
	BaseURL   string
	Model     string
	// Dimensions must match the model; bge-small is 384.
	Dimensions        int
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Embedder runs a text embedding model on Workers AI.
type Embedder struct {
	client     *http.Client
	limiter    *rate.Limiter
	url        string
	token      string
	model      string
	dimensions int
}

type runRequest struct {
	Text []string `json:"text"`
}

type runResponse struct {
	Result *struct {
		Shape []int       `json:"shape"`
		Data  [][]float64 `json:"data"`
	} `json:"result"`
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// New validates cfg and returns an Embedder.
func New(cfg Config) (*Embedder, error) {
	if cfg.AccountID == "" {
		return nil, errors.New("workersai: account ID is required")
	}
	if cfg.APIToken == "" {
		return nil, errors.New("workersai: API token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	e := &Embedder{
		client:     &http.Client{Timeout: cfg.Timeout},
		url:        fmt.Sprintf("%s/accounts/%s/ai/run/%s", strings.TrimRight(cfg.BaseURL, "/"), cfg.AccountID, cfg.Model),
		token:      cfg.APIToken,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return e, nil
}

// EmbedBatch embeds all texts in a single model run.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("workersai: rate limit wait: %w", err)
		}
	}

	b, err := json.Marshal(runRequest{Text: texts})
	if err != nil {
		return nil, fmt.Errorf("workersai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("workersai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("workersai: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("workersai: read response: %w", err)
	}

	var runResp runResponse
	if err := json.Unmarshal(body, &runResp); err != nil {
		return nil, fmt.Errorf("workersai: decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !runResp.Success {
		msg := http.StatusText(resp.StatusCode)
		if len(runResp.Errors) > 0 {
			msg = runResp.Errors[0].Message
		}
		return nil, fmt.Errorf("workersai: status %d: %s", resp.StatusCode, msg)
	}
	if runResp.Result == nil || runResp.Result.Data == nil {
		return nil, fmt.Errorf("workersai: %w", embedding.ErrNoData)
	}

	vectors := make([][]float32, len(runResp.Result.Data))
	for i, row := range runResp.Result.Data {
		v := make([]float32, len(row))
		for j, x := range row {
			v[j] = float32(x)
		}
		vectors[i] = v
	}

	if err := embedding.Check(texts, vectors); err != nil {
		return nil, fmt.Errorf("workersai: %w", err)
	}

	log.Debugf("[workersai] embedded %d texts with %s", len(texts), e.model)
	return vectors, nil
}

func (e *Embedder) Dimensions() int { return e.dimensions }

func (e *Embedder) ModelName() string { return e.model }
