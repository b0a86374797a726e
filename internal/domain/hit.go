package domain

import "math"

// Payload keys read from a vector store hit. Each field has one fallback key.
const (
	PayloadRelPath         = "relpath"
	PayloadRelPathFallback = "path"
	PayloadChunk           = "chunk_index"
	PayloadChunkFallback   = "chunk"
	PayloadExcerpt         = "excerpt"
	PayloadExcerptFallback = "text"
)

// Hit is a single ranked result from a similarity query.
// Optional fields are resolved once in NewHit.
type Hit struct {
	id    string
	score float64

	relPath    string
	hasRelPath bool
	chunk      int
	hasChunk   bool
	excerpt    string
	hasExcerpt bool
}

// NewHit builds a hit from a raw payload mapping. Missing or mistyped fields are absent, not errors.
func NewHit(id string, score float64, payload map[string]any) Hit {
	h := Hit{id: id, score: score}
	h.relPath, h.hasRelPath = payloadString(payload, PayloadRelPath, PayloadRelPathFallback)
	h.chunk, h.hasChunk = payloadInt(payload, PayloadChunk, PayloadChunkFallback)
	h.excerpt, h.hasExcerpt = payloadString(payload, PayloadExcerpt, PayloadExcerptFallback)
	return h
}

// ID returns the point identifier as reported by the store.
func (h Hit) ID() string { return h.id }

// Score returns the similarity score (higher = more similar).
func (h Hit) Score() float64 { return h.score }

// RelPath returns the source path, if present.
func (h Hit) RelPath() (string, bool) { return h.relPath, h.hasRelPath }

// ChunkIndex returns the chunk index within the source, if present.
func (h Hit) ChunkIndex() (int, bool) { return h.chunk, h.hasChunk }

// Excerpt returns the stored text snippet, if present.
func (h Hit) Excerpt() (string, bool) { return h.excerpt, h.hasExcerpt }

func payloadString(p map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := p[k].(string); ok {
			return s, true
		}
	}
	return "", false
}

func payloadInt(p map[string]any, keys ...string) (int, bool) {
	for _, k := range keys {
		switch v := p[k].(type) {
		case int:
			return v, true
		case int64:
			return int(v), true
		case float64:
			// math.MaxInt rounds up to 2^63 as a float64, hence the strict upper bound.
			if v == math.Trunc(v) && v >= math.MinInt && v < math.MaxInt {
				return int(v), true
			}
		}
	}
	return 0, false
}
