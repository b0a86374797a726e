package query

import (
	"fmt"
	"io"
	"strings"

	"github.com/nowa-engine/ragquery/internal/domain"
	"github.com/nowa-engine/ragquery/internal/logger"
)

// ExcerptLimit is the maximum excerpt length, in runes, in the diagnostic trace.
const ExcerptLimit = 220

const (
	noQuestionNotice = "No question given; nothing to search."
	unknownSource    = "<unknown source>"
)

// Truncate cuts s to n runes and appends "..." when anything was removed.
// Shorter strings are returned unchanged.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// writeTrace records every hit with score, source, chunk and excerpt.
func writeTrace(sink *logger.Sink, rs domain.ResultSet) {
	sink.Banner("RESULTS")
	for _, r := range rs.All() {
		if r.Failed() {
			sink.Linef("[%s] failed: %v", r.Collection, r.Err)
			continue
		}
		sink.Linef("[%s] %d hit(s)", r.Collection, len(r.Hits))
		for i, h := range r.Hits {
			sink.Linef("[%s] #%d score=%.4f id=%s relpath=%s chunk=%s",
				r.Collection, i+1, h.Score(), h.ID(), relPathOrUnknown(h), chunkOrDash(h))
			if e, ok := h.Excerpt(); ok {
				sink.Linef("    excerpt: %s", Truncate(e, ExcerptLimit))
			}
		}
	}
}

// writeSummary prints one header per collection and one line per hit.
// Collections appear in query order; hits keep the store's order.
func writeSummary(w io.Writer, rs domain.ResultSet) error {
	var b strings.Builder
	all := rs.All()
	if len(all) == 0 {
		b.WriteString("No collections configured.\n")
	}
	for _, r := range all {
		if r.Failed() {
			fmt.Fprintf(&b, "== %s: search failed (see log) ==\n", r.Collection)
			continue
		}
		fmt.Fprintf(&b, "== %s (%d) ==\n", r.Collection, len(r.Hits))
		if len(r.Hits) == 0 {
			b.WriteString("(no hits)\n")
		}
		for _, h := range r.Hits {
			line := relPathOrUnknown(h)
			if c, ok := h.ChunkIndex(); ok {
				line += fmt.Sprintf(" [chunk %d]", c)
			}
			b.WriteString(line + "\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func relPathOrUnknown(h domain.Hit) string {
	if p, ok := h.RelPath(); ok && p != "" {
		return p
	}
	return unknownSource
}

func chunkOrDash(h domain.Hit) string {
	if c, ok := h.ChunkIndex(); ok {
		return fmt.Sprint(c)
	}
	return "-"
}
