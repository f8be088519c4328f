package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"

	"profanity/pkg/detect"
	"profanity/pkg/embedding/hash"
	"profanity/pkg/index"
	"profanity/pkg/index/memory"
	"profanity/pkg/seed"
)

const (
	testRequestID   = "9b4f6c5d-1a32-4d8f-b5a6-23c9e1f7d2a1"
	testUploadToken = "upload-secret"
)

func TestMain(m *testing.M) {
	log.SetLevel(log.PanicLevel)
	exitCode := m.Run()
	os.Exit(exitCode)
}

// newTestAPI returns an API over a hash embedder and an in-memory index
// seeded with a few words.
func newTestAPI(t *testing.T, cfg detect.Config) (*API, *memory.Store) {
	t.Helper()
	e := hash.New(hash.DefaultDimensions)
	store := memory.New()
	seeder := seed.New(e, store)
	if _, err := seeder.SeedWords(context.Background(), []string{"shit", "crap"}); err != nil {
		t.Fatalf("failed to seed index: %v", err)
	}

	api := New("profanity-test", detect.New(e, store, cfg), seeder, nil)
	api.UploadToken = testUploadToken
	return api, store
}

func doRequest(api *API, method, target string, body any, header map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		json.NewEncoder(&buf).Encode(b)
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("X-Request-Id", testRequestID)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	api.Router().ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to unmarshal response body %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestAPI_infoHandler(t *testing.T) {
	api, _ := newTestAPI(t, detect.DefaultConfig())

	rr := doRequest(api, http.MethodGet, "/", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("want status code %v, got status code %v", http.StatusOK, rr.Code)
	}

	got := decode[infoResponse](t, rr)
	if got.Name != "profanity-test" {
		t.Errorf("want name %q, got %q", "profanity-test", got.Name)
	}
	if got.DefaultThreshold != detect.DefaultThreshold {
		t.Errorf("want default threshold %v, got %v", detect.DefaultThreshold, got.DefaultThreshold)
	}
	if len(got.Endpoints) == 0 {
		t.Error("want endpoints listed")
	}
}

func TestAPI_checkHandler(t *testing.T) {
	api, _ := newTestAPI(t, detect.DefaultConfig())

	tests := []struct {
		name        string
		body        any
		wantProfane bool
	}{
		{"Leet", map[string]any{"text": "you are a sh1t", "threshold": 0.99}, true},
		{"Spaced out", map[string]any{"text": "s h i t", "threshold": 0.99}, true},
		{"Clean", map[string]any{"text": "have a nice day", "threshold": 0.99}, false},
		{"Empty text", map[string]any{"text": ""}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(api, http.MethodPost, "/api/profanity/vector", tt.body, nil)
			if rr.Code != http.StatusOK {
				t.Fatalf("want status code %v, got status code %v: %s", http.StatusOK, rr.Code, rr.Body.String())
			}

			got := decode[detect.Result](t, rr)
			if got.HasProfanity != tt.wantProfane {
				t.Errorf("want hasProfanity %v, got %v", tt.wantProfane, got.HasProfanity)
			}
			if !got.Evaluated {
				t.Error("want evaluated result")
			}
		})
	}
}

func TestAPI_checkHandlerResponseFormat(t *testing.T) {
	api, _ := newTestAPI(t, detect.DefaultConfig())

	rr := doRequest(api, http.MethodPost, "/api/profanity/vector", map[string]any{"text": "Sh1t", "threshold": 0.99}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("want status code %v, got status code %v", http.StatusOK, rr.Code)
	}

	var raw map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"hasProfanity", "matches", "overallScore", "text", "evaluated"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("want key %q in response, got %v", key, raw)
		}
	}
	if raw["text"] != "Sh1t" {
		t.Errorf("want text %q, got %v", "Sh1t", raw["text"])
	}

	matches, _ := raw["matches"].([]any)
	if len(matches) == 0 {
		t.Fatal("want at least one match")
	}
	first, _ := matches[0].(map[string]any)
	for _, key := range []string{"word", "matchScore", "matchedProfanity", "isProfane", "kind"} {
		if _, ok := first[key]; !ok {
			t.Errorf("want key %q in match, got %v", key, first)
		}
	}
	if first["matchedProfanity"] != "shit" || first["kind"] != "word" {
		t.Errorf("want word match on shit, got %v", first)
	}
}

func TestAPI_checkHandlerBadRequest(t *testing.T) {
	api, _ := newTestAPI(t, detect.DefaultConfig())

	tests := []struct {
		name string
		body any
	}{
		{"Missing text", map[string]any{"threshold": 0.5}},
		{"Text not a string", map[string]any{"text": 42}},
		{"Malformed JSON", "{"},
		{"Threshold too high", map[string]any{"text": "hello", "threshold": 1.5}},
		{"Threshold negative", map[string]any{"text": "hello", "threshold": -0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(api, http.MethodPost, "/api/profanity/vector", tt.body, nil)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("want status code %v, got status code %v", http.StatusBadRequest, rr.Code)
			}
			got := decode[errorResponse](t, rr)
			if got.Error == "" {
				t.Error("want error message")
			}
		})
	}
}

func TestAPI_checkHandlerZeroThreshold(t *testing.T) {
	api, _ := newTestAPI(t, detect.DefaultConfig())

	rr := doRequest(api, http.MethodPost, "/api/profanity/vector", map[string]any{"text": "hello", "threshold": 0}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("want status code %v, got status code %v", http.StatusOK, rr.Code)
	}
	if got := decode[detect.Result](t, rr); !got.HasProfanity {
		t.Error("want every candidate profane at threshold 0")
	}
}

func TestAPI_checkHandlerOversize(t *testing.T) {
	api, _ := newTestAPI(t, detect.Config{MaxWords: 5})

	rr := doRequest(api, http.MethodPost, "/api/profanity/vector", map[string]any{"text": strings.Repeat("word ", 6)}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("want status code %v, got status code %v", http.StatusOK, rr.Code)
	}

	got := decode[detect.Result](t, rr)
	if got.Evaluated {
		t.Error("want oversize text not evaluated")
	}
	if got.Message == "" {
		t.Error("want message for oversize text")
	}
}

type failingChecker struct{ err error }

func (c failingChecker) Check(ctx context.Context, text string, threshold float64) (detect.Result, error) {
	return detect.Result{}, c.err
}

func (c failingChecker) DefaultThreshold() float64 { return detect.DefaultThreshold }

func TestAPI_checkHandlerErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"Embedding", fmt.Errorf("%w: provider down", detect.ErrEmbedding), http.StatusBadGateway},
		{"Index", fmt.Errorf("%w: index down", detect.ErrIndexQuery), http.StatusBadGateway},
		{"Timeout", fmt.Errorf("%w: %w", detect.ErrEmbedding, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"Other", fmt.Errorf("unexpected"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := New("", failingChecker{tt.err}, nil, nil)

			rr := doRequest(api, http.MethodPost, "/api/profanity/vector", map[string]any{"text": "hello"}, nil)
			if rr.Code != tt.wantStatus {
				t.Errorf("want status code %v, got status code %v", tt.wantStatus, rr.Code)
			}
		})
	}
}

func TestAPI_seedWordsHandler(t *testing.T) {
	api, store := newTestAPI(t, detect.DefaultConfig())
	auth := map[string]string{"Authorization": "Bearer " + testUploadToken}

	rr := doRequest(api, http.MethodPost, "/api/admin/words", map[string]any{"words": []string{"bitch", "bitch", "frick"}}, auth)
	if rr.Code != http.StatusOK {
		t.Fatalf("want status code %v, got status code %v: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	got := decode[seedResponse](t, rr)
	if got.Count != 2 {
		t.Errorf("want count 2, got %d", got.Count)
	}
	if store.Len() != 4 {
		t.Errorf("want 4 records in index, got %d", store.Len())
	}

	rr = doRequest(api, http.MethodPost, "/api/profanity/vector", map[string]any{"text": "b1tch", "threshold": 0.99}, nil)
	if res := decode[detect.Result](t, rr); !res.HasProfanity {
		t.Error("want newly seeded word detected")
	}
}

func TestAPI_seedWordsHandlerEmpty(t *testing.T) {
	api, _ := newTestAPI(t, detect.DefaultConfig())
	auth := map[string]string{"Authorization": "Bearer " + testUploadToken}

	rr := doRequest(api, http.MethodPost, "/api/admin/words", map[string]any{"words": []string{}}, auth)
	if rr.Code != http.StatusOK {
		t.Fatalf("want status code %v, got status code %v", http.StatusOK, rr.Code)
	}
	if got := decode[seedResponse](t, rr); got.Count != 0 || got.Message == "" {
		t.Errorf("want nothing-to-do response, got %+v", got)
	}

	rr = doRequest(api, http.MethodPost, "/api/admin/words", map[string]any{"words": "shit"}, auth)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("want status code %v, got status code %v", http.StatusBadRequest, rr.Code)
	}

	rr = doRequest(api, http.MethodPost, "/api/admin/words", map[string]any{}, auth)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("want status code %v, got status code %v", http.StatusBadRequest, rr.Code)
	}
}

func TestAPI_uploadVectorsHandler(t *testing.T) {
	api, store := newTestAPI(t, detect.DefaultConfig())
	auth := map[string]string{"Authorization": "Bearer " + testUploadToken}

	e := hash.New(hash.DefaultDimensions)
	records := []index.Record{
		{ID: "profanity-en-frick", Values: e.Vector("frick"), Metadata: index.Metadata{Word: "frick", Category: "profanity", Language: "en"}},
	}

	rr := doRequest(api, http.MethodPost, "/api/admin/upload-vectors", map[string]any{"vectors": records}, auth)
	if rr.Code != http.StatusOK {
		t.Fatalf("want status code %v, got status code %v: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	if got := decode[seedResponse](t, rr); got.Count != 1 {
		t.Errorf("want count 1, got %d", got.Count)
	}
	if store.Len() != 3 {
		t.Errorf("want 3 records in index, got %d", store.Len())
	}

	rr = doRequest(api, http.MethodPost, "/api/admin/upload-vectors", map[string]any{"vectors": []index.Record{{ID: "x"}}}, auth)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("want status code %v for empty vector, got status code %v", http.StatusBadRequest, rr.Code)
	}
	small := []index.Record{{ID: "profanity-en-frack", Values: hash.New(64).Vector("frack"), Metadata: index.Metadata{Word: "frack"}}}
	rr = doRequest(api, http.MethodPost, "/api/admin/upload-vectors", map[string]any{"vectors": small}, auth)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("want status code %v for wrong vector size, got status code %v", http.StatusBadRequest, rr.Code)
	}
	if store.Len() != 3 {
		t.Errorf("want wrong-size vectors rejected, got %d records in index", store.Len())
	}
}

func TestAPI_adminAuth(t *testing.T) {
	api, _ := newTestAPI(t, detect.DefaultConfig())
	body := map[string]any{"words": []string{"bitch"}}

	tests := []struct {
		name       string
		header     map[string]string
		wantStatus int
	}{
		{"Missing header", nil, http.StatusUnauthorized},
		{"Not bearer", map[string]string{"Authorization": "Basic " + testUploadToken}, http.StatusUnauthorized},
		{"Wrong token", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"Valid token", map[string]string{"Authorization": "Bearer " + testUploadToken}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(api, http.MethodPost, "/api/admin/words", body, tt.header)
			if rr.Code != tt.wantStatus {
				t.Errorf("want status code %v, got status code %v", tt.wantStatus, rr.Code)
			}
		})
	}
}

func TestAPI_adminDisabled(t *testing.T) {
	api, _ := newTestAPI(t, detect.DefaultConfig())
	api.UploadToken = ""

	rr := doRequest(api, http.MethodPost, "/api/admin/words", map[string]any{"words": []string{"x"}}, map[string]string{"Authorization": "Bearer "})
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("want status code %v, got status code %v", http.StatusServiceUnavailable, rr.Code)
	}
}

func TestAPI_preflight(t *testing.T) {
	api, _ := newTestAPI(t, detect.DefaultConfig())

	for _, path := range []string{"/api/profanity/vector", "/api/admin/words"} {
		rr := doRequest(api, http.MethodOptions, path, nil, nil)
		if rr.Code != http.StatusNoContent {
			t.Errorf("%s: want status code %v, got status code %v", path, http.StatusNoContent, rr.Code)
		}
		if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Errorf("%s: want CORS headers on preflight", path)
		}
	}
}
