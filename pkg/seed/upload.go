package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"profanity/pkg/index"
)

// WordsPayload is the body of the admin words endpoint.
type WordsPayload struct {
	Words []string `json:"words"`
}

// VectorsPayload is the body of the admin upload-vectors endpoint.
type VectorsPayload struct {
	Vectors []index.Record `json:"vectors"`
}

// UploadResponse is what the admin endpoints answer.
type UploadResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// Upload posts payload as JSON to an admin endpoint with a bearer token.
func Upload(ctx context.Context, client *http.Client, url, token string, payload any) (UploadResponse, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return UploadResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return UploadResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return UploadResponse{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return UploadResponse{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return UploadResponse{}, fmt.Errorf("upload failed: %s: %s", resp.Status, bytes.TrimSpace(body))
	}

	var out UploadResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return UploadResponse{}, fmt.Errorf("decoding upload response: %w", err)
	}

	return out, nil
}
