package detect

import (
	"profanity/pkg/candidate"
	"profanity/pkg/match"
	"profanity/pkg/normalize"
)

// DefaultThreshold is the similarity at or above which a candidate counts as
// a match when the caller does not choose one.
const DefaultThreshold = 0.8

const (
	DefaultMaxChars = 10000
	DefaultMaxWords = 500
)

// Config carries every tunable of the pipeline.
type Config struct {
	// Whitelist holds benign words removed before matching.
	Whitelist []string `toml:"whitelist"`
	// Markers are the obfuscation characters stripped from the text.
	Markers string `toml:"markers"`

	Candidates candidate.Config `toml:"candidates"`
	Match      match.Config     `toml:"match"`

	// MaxChars and MaxWords bound the cleaned input; longer texts are not
	// evaluated.
	MaxChars int `toml:"maxChars"`
	MaxWords int `toml:"maxWords"`

	DefaultThreshold float64 `toml:"defaultThreshold"`
}

func DefaultConfig() Config {
	return Config{
		Markers:          normalize.DefaultMarkers,
		Candidates:       candidate.DefaultConfig(),
		Match:            match.Config{BatchSize: match.DefaultBatchSize, QueryConcurrency: match.DefaultQueryConcurrency},
		MaxChars:         DefaultMaxChars,
		MaxWords:         DefaultMaxWords,
		DefaultThreshold: DefaultThreshold,
	}
}
