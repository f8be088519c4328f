// Package api exposes the detection service and the admin seeding endpoints
// over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"profanity/pkg/detect"
	"profanity/pkg/index"
)

const maxBodyBytes = 1 << 20

// Checker classifies text.
type Checker interface {
	Check(ctx context.Context, text string, threshold float64) (detect.Result, error)
	DefaultThreshold() float64
}

// Seeder writes known words into the index.
type Seeder interface {
	SeedWords(ctx context.Context, words []string) (int, error)
	UploadVectors(ctx context.Context, records []index.Record) (int, error)
}

type API struct {
	ServiceName string
	// UploadToken guards the admin endpoints; they are disabled when empty.
	UploadToken string

	r       *mux.Router
	kw      MessageWriter
	checker Checker
	seeder  Seeder
}

// New wires the routes. kafkaWriter may be nil, in which case request logs
// are not published.
func New(name string, checker Checker, seeder Seeder, kafkaWriter MessageWriter) *API {
	api := API{
		ServiceName: name,
		r:           mux.NewRouter(),
		kw:          kafkaWriter,
		checker:     checker,
		seeder:      seeder,
	}
	api.endpoints()

	return &api
}

func (api *API) Router() *mux.Router {
	return api.r
}

func (api *API) endpoints() {
	api.r.Use(api.requestIDMiddleware)
	api.r.Use(api.headerMiddleware)

	if api.kw != nil {
		api.r.Use(api.loggingMiddleware(api.kw))
	}

	api.r.HandleFunc("/", api.infoHandler).Methods(http.MethodGet)
	api.r.HandleFunc("/api/profanity/vector", api.checkHandler).Methods(http.MethodPost)

	admin := api.r.PathPrefix("/api/admin").Subrouter()
	admin.Use(api.authMiddleware)
	admin.HandleFunc("/words", api.seedWordsHandler).Methods(http.MethodPost)
	admin.HandleFunc("/upload-vectors", api.uploadVectorsHandler).Methods(http.MethodPost)

	api.r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(api.preflightHandler)
}

func (api *API) preflightHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (api *API) infoHandler(w http.ResponseWriter, r *http.Request) {
	resp := infoResponse{
		Name:             api.ServiceName,
		DefaultThreshold: api.checker.DefaultThreshold(),
		Endpoints: []string{
			"POST /api/profanity/vector",
			"POST /api/admin/words",
			"POST /api/admin/upload-vectors",
		},
	}
	writeJSON(w, http.StatusOK, resp)
}

func (api *API) checkHandler(w http.ResponseWriter, r *http.Request) {
	reqID := GetRequestID(r.Context())
	sID := shorten(reqID)

	var req checkRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
	if err != nil || req.Text == nil {
		writeError(w, http.StatusBadRequest, "Text field is required and must be a string")
		log.Debugf("[checkHandler][%s] invalid request body: %v", sID, err)
		return
	}
	defer r.Body.Close()

	threshold := api.checker.DefaultThreshold()
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if threshold < 0 || threshold > 1 {
		writeError(w, http.StatusBadRequest, "Threshold must be between 0 and 1")
		log.Debugf("[checkHandler][%s] threshold out of range: %v", sID, threshold)
		return
	}

	result, err := api.checker.Check(r.Context(), *req.Text, threshold)
	if err != nil {
		status := statusFor(err)
		writeError(w, status, messageFor(status))
		log.Errorf("[checkHandler][%s] Check() returned error: %v", sID, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
	log.Debugf("[checkHandler][%s] hasProfanity:%v evaluated:%v matches:%d", sID, result.HasProfanity, result.Evaluated, len(result.Matches))
}

func (api *API) seedWordsHandler(w http.ResponseWriter, r *http.Request) {
	reqID := GetRequestID(r.Context())
	sID := shorten(reqID)

	var req wordsRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
	if err != nil || req.Words == nil {
		writeError(w, http.StatusBadRequest, "`words` field is required and must be an array of strings")
		log.Debugf("[seedWordsHandler][%s] invalid request body: %v", sID, err)
		return
	}
	defer r.Body.Close()

	n, err := api.seeder.SeedWords(r.Context(), req.Words)
	if err != nil {
		status := statusFor(err)
		writeError(w, status, "Failed to seed words")
		log.Errorf("[seedWordsHandler][%s] SeedWords() returned error: %v", sID, err)
		return
	}

	msg := fmt.Sprintf("Successfully seeded %d words.", n)
	if n == 0 {
		msg = "No words provided, nothing to do."
	}
	writeJSON(w, http.StatusOK, seedResponse{Message: msg, Count: n})
	log.Infof("[seedWordsHandler][%s] seeded %d words", sID, n)
}

func (api *API) uploadVectorsHandler(w http.ResponseWriter, r *http.Request) {
	reqID := GetRequestID(r.Context())
	sID := shorten(reqID)

	var req vectorsRequest
	// Precomputed vectors are large; the whole default list is tens of MB.
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 256*maxBodyBytes)).Decode(&req)
	if err != nil || req.Vectors == nil {
		writeError(w, http.StatusBadRequest, "`vectors` field is required and must be an array")
		log.Debugf("[uploadVectorsHandler][%s] invalid request body: %v", sID, err)
		return
	}
	defer r.Body.Close()

	if err := index.Validate(req.Vectors, 0); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		log.Debugf("[uploadVectorsHandler][%s] invalid vectors: %v", sID, err)
		return
	}

	n, err := api.seeder.UploadVectors(r.Context(), req.Vectors)
	if err != nil {
		status := statusFor(err)
		msg := "Failed to upload vectors"
		if status == http.StatusBadRequest {
			msg = err.Error()
		}
		writeError(w, status, msg)
		log.Errorf("[uploadVectorsHandler][%s] UploadVectors() returned error after %d records: %v", sID, n, err)
		return
	}

	writeJSON(w, http.StatusOK, seedResponse{Message: fmt.Sprintf("Successfully upserted %d vectors.", n), Count: n})
	log.Infof("[uploadVectorsHandler][%s] upserted %d vectors", sID, n)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Errorf("[writeJSON] failed to encode response data: %v", err)
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	w.WriteHeader(status)
	w.Write(b)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

// GetRequestID extracts the request ID from the context.
// It returns the request ID as a string if present, otherwise returns an empty string.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}

// shorten truncates a string to 6 characters if it is longer than 6, appends '...' at the end,
// otherwise it returns the string unchanged.
func shorten(s string) string {
	if len(s) > 6 {
		return s[:6] + "..."
	}
	return s
}
