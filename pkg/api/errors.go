package api

import (
	"context"
	"errors"
	"net/http"

	"profanity/pkg/detect"
	"profanity/pkg/seed"
)

var errUnauthorized = errors.New("unauthorized")

// statusFor maps a service error to the HTTP status sent to the client.
func statusFor(err error) int {
	switch {
	case errors.Is(err, detect.ErrInvalidThreshold),
		errors.Is(err, seed.ErrInvalidRecords):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, detect.ErrEmbedding),
		errors.Is(err, detect.ErrIndexQuery),
		errors.Is(err, seed.ErrEmbedding),
		errors.Is(err, seed.ErrUpsert):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func messageFor(status int) string {
	switch status {
	case http.StatusBadGateway:
		return "Upstream provider error"
	case http.StatusGatewayTimeout:
		return "Upstream provider timeout"
	}
	return http.StatusText(status)
}
