// Package stub provides in-process fake Ollama and Qdrant servers for tests.
// Configure the exported fields, call Start, and Close when done.
// Fields must not change after Start.
package stub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/go-chi/chi/v5"
)

// EmbedRequest is a recorded /api/embeddings call.
type EmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// Ollama fakes the embeddings and tags endpoints.
type Ollama struct {
	// Vector is returned as {"embedding": Vector}.
	Vector []float64
	// Status overrides the embeddings response code (0 = 200).
	Status int
	// Body, when set, is written verbatim instead of the JSON response.
	Body string

	server *httptest.Server
	rec    recorder

	mu       sync.Mutex
	requests []EmbedRequest
}

// Start launches the server.
func (o *Ollama) Start() *Ollama {
	r := chi.NewRouter()
	r.Use(o.rec.middleware)
	r.Post("/api/embeddings", o.handleEmbeddings)
	r.Get("/api/tags", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"models": []map[string]string{{"name": "nomic-embed-text:latest"}},
		})
	})
	o.server = httptest.NewServer(r)
	return o
}

// URL returns the server base URL.
func (o *Ollama) URL() string { return o.server.URL }

// Close shuts the server down.
func (o *Ollama) Close() { o.server.Close() }

// Hits returns the number of HTTP requests served on any route.
func (o *Ollama) Hits() int { return o.rec.count() }

// Requests returns the recorded embedding requests.
func (o *Ollama) Requests() []EmbedRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]EmbedRequest, len(o.requests))
	copy(out, o.requests)
	return out
}

func (o *Ollama) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req EmbedRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	o.mu.Lock()
	o.requests = append(o.requests, req)
	o.mu.Unlock()

	status := o.Status
	if status == 0 {
		status = http.StatusOK
	}
	if o.Body != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(o.Body))
		return
	}
	writeJSON(w, status, map[string]any{"embedding": o.Vector})
}

type recorder struct {
	mu   sync.Mutex
	hits int
}

func (rc *recorder) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc.mu.Lock()
		rc.hits++
		rc.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (rc *recorder) count() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.hits
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
