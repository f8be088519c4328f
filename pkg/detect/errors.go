package detect

import (
	"errors"

	"profanity/pkg/match"
)

var (
	ErrInvalidThreshold = errors.New("threshold must be between 0 and 1")

	// ErrEmbedding and ErrIndexQuery mark failures of the external
	// collaborators; the request cannot be answered.
	ErrEmbedding  = match.ErrEmbedding
	ErrIndexQuery = match.ErrIndexQuery
)
