package config

import (
	"fmt"

	"profanity/pkg/embedding"
	"profanity/pkg/embedding/hash"
	"profanity/pkg/embedding/openai"
	"profanity/pkg/embedding/workersai"
)

// NewEmbedder builds the configured embedding provider.
func (e Embedding) NewEmbedder() (embedding.Embedder, error) {
	switch e.Provider {
	case ProviderOpenAI:
		return openai.New(openai.Config{
			APIKey:            e.OpenAI.APIKey,
			BaseURL:           e.OpenAI.BaseURL,
			Model:             e.OpenAI.Model,
			Dimensions:        e.OpenAI.Dimensions,
			Timeout:           e.OpenAI.Timeout,
			RequestsPerSecond: e.OpenAI.RequestsPerSecond,
			Burst:             e.OpenAI.Burst,
		}), nil

	case ProviderWorkersAI:
		w, err := workersai.New(workersai.Config{
			AccountID:         e.WorkersAI.AccountID,
			APIToken:          e.WorkersAI.APIToken,
			BaseURL:           e.WorkersAI.BaseURL,
			Model:             e.WorkersAI.Model,
			Dimensions:        e.WorkersAI.Dimensions,
			Timeout:           e.WorkersAI.Timeout,
			RequestsPerSecond: e.WorkersAI.RequestsPerSecond,
			Burst:             e.WorkersAI.Burst,
		})
		if err != nil {
			return nil, err
		}
		return w, nil

	case ProviderHash, "":
		return hash.New(e.Hash.Dimensions), nil
	}

	return nil, fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidConfig, e.Provider)
}
