package stub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// Point is one stored search result.
type Point struct {
	ID      any
	Score   float64
	Payload map[string]any
}

// SearchCall is a recorded points/search request.
type SearchCall struct {
	Collection  string
	Vector      []float64
	Limit       int
	WithPayload bool
}

// Qdrant fakes the collection search and liveness endpoints.
// Results are returned exactly in the configured order.
type Qdrant struct {
	// Collections maps a collection name to its ranked points. Unknown names yield 404.
	Collections map[string][]Point
	// Failures maps a collection name to a forced HTTP status.
	Failures map[string]int
	// IgnoreLimit returns every point regardless of the requested limit.
	IgnoreLimit bool
	// Delay is applied before every search response.
	Delay time.Duration

	server *httptest.Server
	rec    recorder

	mu    sync.Mutex
	calls []SearchCall
}

// Start launches the server.
func (q *Qdrant) Start() *Qdrant {
	r := chi.NewRouter()
	r.Use(q.rec.middleware)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("healthz check passed"))
	})
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"title": "qdrant - vector search engine", "version": "stub"})
	})
	r.Post("/collections/{name}/points/search", q.handleSearch)
	q.server = httptest.NewServer(r)
	return q
}

// URL returns the server base URL.
func (q *Qdrant) URL() string { return q.server.URL }

// Close shuts the server down.
func (q *Qdrant) Close() { q.server.Close() }

// Hits returns the number of HTTP requests served on any route.
func (q *Qdrant) Hits() int { return q.rec.count() }

// Calls returns the recorded search requests.
func (q *Qdrant) Calls() []SearchCall {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]SearchCall, len(q.calls))
	copy(out, q.calls)
	return out
}

type searchBody struct {
	Vector      []float64 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type scoredPoint struct {
	ID      any            `json:"id"`
	Version int            `json:"version"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload,omitempty"`
}

func (q *Qdrant) handleSearch(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var body searchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeStatusError(w, http.StatusBadRequest, "Format error in JSON body: "+err.Error())
		return
	}
	q.mu.Lock()
	q.calls = append(q.calls, SearchCall{
		Collection: name, Vector: body.Vector, Limit: body.Limit, WithPayload: body.WithPayload,
	})
	q.mu.Unlock()

	if q.Delay > 0 {
		select {
		case <-time.After(q.Delay):
		case <-r.Context().Done():
			return
		}
	}

	if status, ok := q.Failures[name]; ok {
		writeStatusError(w, status, "Service internal error: forced failure")
		return
	}
	points, ok := q.Collections[name]
	if !ok {
		writeStatusError(w, http.StatusNotFound, fmt.Sprintf("Not found: Collection `%s` doesn't exist!", name))
		return
	}
	if !q.IgnoreLimit && body.Limit >= 0 && len(points) > body.Limit {
		points = points[:body.Limit]
	}

	result := make([]scoredPoint, len(points))
	for i, p := range points {
		result[i] = scoredPoint{ID: p.ID, Score: p.Score, Payload: p.Payload}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"result": result,
		"status": "ok",
		"time":   0.0001,
	})
}

func writeStatusError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"status": map[string]string{"error": msg},
		"time":   0.0,
	})
}
