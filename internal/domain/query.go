package domain

import (
	"fmt"
	"strings"
)

// Query limits.
const (
	DefaultK = 6
	MinK     = 1
	MaxK     = 20
)

// Query is a validated retrieval request. Immutable once built.
type Query struct {
	text        string
	k           int
	collections []string
}

// NewQuery trims the text, clamps k into [MinK, MaxK] and drops blank or
// repeated collection names while keeping the configured order.
// An empty question yields ErrValidation.
func NewQuery(text string, k int, collections []string) (Query, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Query{}, fmt.Errorf("question is empty: %w", ErrValidation)
	}

	seen := make(map[string]struct{}, len(collections))
	names := make([]string, 0, len(collections))
	for _, c := range collections {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		names = append(names, c)
	}

	return Query{text: text, k: ClampK(k), collections: names}, nil
}

// ClampK bounds a requested result count to [MinK, MaxK].
func ClampK(k int) int {
	if k < MinK {
		return MinK
	}
	if k > MaxK {
		return MaxK
	}
	return k
}

// Text returns the trimmed question.
func (q Query) Text() string { return q.text }

// K returns the clamped per-collection result limit.
func (q Query) K() int { return q.k }

// Collections returns the collection names in query order.
func (q Query) Collections() []string {
	out := make([]string, len(q.collections))
	copy(out, q.collections)
	return out
}
