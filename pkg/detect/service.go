// Package detect classifies text by matching obfuscation-resistant candidates
// against a similarity index of known disallowed terms.
package detect

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"profanity/pkg/candidate"
	"profanity/pkg/embedding"
	"profanity/pkg/index"
	"profanity/pkg/match"
	"profanity/pkg/normalize"
)

// Service runs the detection pipeline. It holds no per-request state and is
// safe for concurrent use.
type Service struct {
	normalizer *normalize.Normalizer
	generator  *candidate.Generator
	matcher    *match.Matcher
	cfg        Config
}

func New(e embedding.Embedder, q index.Querier, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.Markers == "" {
		cfg.Markers = def.Markers
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = def.MaxChars
	}
	if cfg.MaxWords <= 0 {
		cfg.MaxWords = def.MaxWords
	}
	if !validThreshold(cfg.DefaultThreshold) || cfg.DefaultThreshold == 0 {
		cfg.DefaultThreshold = def.DefaultThreshold
	}

	return &Service{
		normalizer: normalize.New(
			normalize.WithMarkers(cfg.Markers),
			normalize.WithWhitelist(cfg.Whitelist...),
		),
		generator: candidate.New(cfg.Candidates),
		matcher:   match.New(e, q, cfg.Match),
		cfg:       cfg,
	}
}

// DefaultThreshold is the threshold used when a request does not set one.
func (s *Service) DefaultThreshold() float64 {
	return s.cfg.DefaultThreshold
}

// Check classifies text. Oversize input is answered with Evaluated set to
// false rather than an error.
func (s *Service) Check(ctx context.Context, text string, threshold float64) (Result, error) {
	if !validThreshold(threshold) {
		return Result{}, ErrInvalidThreshold
	}

	cleaned := normalize.Clean(text)
	if msg := s.tooLarge(cleaned); msg != "" {
		log.Debugf("[detect] input not evaluated: %s", msg)
		return Result{
			Matches:     []match.Result{},
			CleanedText: cleaned,
			Message:     msg,
		}, nil
	}

	normalized := s.normalizer.Normalize(text)
	cs := s.generator.Generate(normalized)
	log.Debugf("[detect] %d candidates from %d runes", len(cs), utf8.RuneCountInString(normalized))

	results, err := s.matcher.Match(ctx, cs, threshold)
	if err != nil {
		return Result{}, err
	}

	return aggregate(results, cleaned), nil
}

func (s *Service) tooLarge(cleaned string) string {
	if n := utf8.RuneCountInString(cleaned); n > s.cfg.MaxChars {
		return fmt.Sprintf("text too long: %d characters, maximum %d", n, s.cfg.MaxChars)
	}
	if n := len(strings.Fields(cleaned)); n > s.cfg.MaxWords {
		return fmt.Sprintf("text too long: %d words, maximum %d", n, s.cfg.MaxWords)
	}
	return ""
}

func validThreshold(t float64) bool {
	return !math.IsNaN(t) && t >= 0 && t <= 1
}
