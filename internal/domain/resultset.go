package domain

// CollectionResult is the outcome of querying one collection.
// Hits keep the store's ranking; Err is set when the query failed.
type CollectionResult struct {
	Collection string
	Hits       []Hit
	Err        error
}

// Failed reports whether the collection query failed.
func (r CollectionResult) Failed() bool { return r.Err != nil }

// ResultSet holds per-collection results in query order. Collections are never interleaved.
type ResultSet struct {
	results []CollectionResult
}

// Add appends a collection outcome.
func (s *ResultSet) Add(r CollectionResult) {
	s.results = append(s.results, r)
}

// All returns every collection outcome in query order.
func (s ResultSet) All() []CollectionResult { return s.results }

// TotalHits counts hits across successful collections.
func (s ResultSet) TotalHits() int {
	n := 0
	for _, r := range s.results {
		n += len(r.Hits)
	}
	return n
}

// Failures returns the failed collection outcomes.
func (s ResultSet) Failures() []CollectionResult {
	var out []CollectionResult
	for _, r := range s.results {
		if r.Failed() {
			out = append(out, r)
		}
	}
	return out
}
