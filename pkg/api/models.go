package api

import "profanity/pkg/index"

type checkRequest struct {
	Text      *string  `json:"text"`
	Threshold *float64 `json:"threshold"`
}

type wordsRequest struct {
	Words []string `json:"words"`
}

type vectorsRequest struct {
	Vectors []index.Record `json:"vectors"`
}

type seedResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type infoResponse struct {
	Name             string   `json:"name"`
	DefaultThreshold float64  `json:"defaultThreshold"`
	Endpoints        []string `json:"endpoints"`
}
