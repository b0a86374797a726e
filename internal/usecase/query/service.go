package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nowa-engine/ragquery/internal/domain"
	"github.com/nowa-engine/ragquery/internal/logger"
	"github.com/nowa-engine/ragquery/internal/usecase/health"
)

// State is a stage of a query run.
type State string

// Run states, in order. NoOp, Succeeded and Failed are terminal.
const (
	StateInit          State = "init"
	StateHealthChecked State = "health_checked"
	StateEmbedded      State = "embedded"
	StateSearched      State = "searched"
	StateMerged        State = "merged"
	StateRendered      State = "rendered"
	StateSucceeded     State = "succeeded"
	StateNoOp          State = "noop"
	StateFailed        State = "failed"
)

// Request is the raw, unvalidated input of one run.
type Request struct {
	Question    string
	K           int
	Collections []string
}

// Report describes a finished run.
type Report struct {
	State        State
	Query        domain.Query
	Health       *health.Report
	EmbeddingDim int
	Results      domain.ResultSet
}

// Service orchestrates one question: health, embedding, per-collection search, rendering.
type Service struct {
	embed    Embedder
	search   Searcher
	health   HealthChecker
	recorder SearchRecorder
	sink     *logger.Sink
	out      io.Writer
}

// New creates a query service. The summary goes to out; the trace goes to sink.
func New(embed Embedder, search Searcher, sink *logger.Sink, out io.Writer) *Service {
	if sink == nil {
		sink = logger.NopSink()
	}
	if out == nil {
		out = io.Discard
	}
	return &Service{embed: embed, search: search, sink: sink, out: out}
}

// WithHealth enables the pre-flight health probe.
func (s *Service) WithHealth(h HealthChecker) *Service {
	s.health = h
	return s
}

// WithRecorder attaches a search metrics recorder.
func (s *Service) WithRecorder(r SearchRecorder) *Service {
	s.recorder = r
	return s
}

// Execute runs one question to completion. It is the single error boundary:
// panics are recovered into domain.ErrUnexpected, and every returned error
// has been written to the sink under a FAILED banner.
// An empty question is not an error; the report state is StateNoOp.
// Per-collection failures are recorded in the result set and do not fail the run.
func (s *Service) Execute(ctx context.Context, req Request) (rep Report, err error) {
	start := time.Now()
	ctx = logger.ContextWithSink(ctx, s.sink)
	rep.State = StateInit

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", domain.ErrUnexpected, r)
		}
		if err != nil {
			s.logFailure(rep.State, err)
			rep.State = StateFailed
			return
		}
		s.sink.Banner("DONE")
		for _, r := range rep.Results.All() {
			if r.Failed() {
				s.sink.Linef("%s: failed", r.Collection)
				continue
			}
			s.sink.Linef("%s: %d hit(s)", r.Collection, len(r.Hits))
		}
		s.sink.Logger().Info("run finished",
			zap.String("state", string(rep.State)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Int("hits", rep.Results.TotalHits()),
			zap.Int("failed_collections", len(rep.Results.Failures())),
		)
	}()

	s.sink.Banner("RAGQUERY START")
	s.logArgs(req)

	q, qerr := domain.NewQuery(req.Question, req.K, req.Collections)
	if qerr != nil {
		s.sink.Linef("%v; nothing to do", qerr)
		if _, werr := fmt.Fprintln(s.out, noQuestionNotice); werr != nil {
			return rep, fmt.Errorf("%w: write output: %w", domain.ErrUnexpected, werr)
		}
		s.advance(&rep, StateNoOp)
		return rep, nil
	}
	rep.Query = q

	if s.health != nil {
		hr := s.checkHealth(ctx)
		rep.Health = &hr
	}
	s.advance(&rep, StateHealthChecked)

	s.sink.Banner("EMBED QUERY")
	emb, err := s.embed.Embed(ctx, q.Text())
	if err != nil {
		if !errors.Is(err, domain.ErrEmbeddingService) {
			err = fmt.Errorf("%w: %w", domain.ErrEmbeddingService, err)
		}
		return rep, err
	}
	rep.EmbeddingDim = emb.Dim()
	s.sink.Linef("embedding dim: %d", emb.Dim())
	s.advance(&rep, StateEmbedded)

	results := s.searchAll(ctx, q, emb.Embedding)
	s.advance(&rep, StateSearched)

	for _, r := range results {
		s.logCollection(r, q.K())
		if errors.Is(r.Err, domain.ErrUnexpected) {
			return rep, r.Err
		}
		rep.Results.Add(r)
	}
	s.advance(&rep, StateMerged)

	writeTrace(s.sink, rep.Results)
	if err := writeSummary(s.out, rep.Results); err != nil {
		return rep, fmt.Errorf("%w: write output: %w", domain.ErrUnexpected, err)
	}
	s.advance(&rep, StateRendered)

	s.advance(&rep, StateSucceeded)
	return rep, nil
}

func (s *Service) advance(rep *Report, next State) {
	s.sink.Logger().Debug("state transition",
		zap.String("from", string(rep.State)),
		zap.String("to", string(next)),
	)
	rep.State = next
}

func (s *Service) logArgs(req Request) {
	s.sink.Banner("ARGS")
	s.sink.Linef("question: %q", req.Question)
	s.sink.Linef("k: %d (effective %d)", req.K, domain.ClampK(req.K))
	s.sink.Linef("collections: %v", req.Collections)
}

func (s *Service) checkHealth(ctx context.Context) health.Report {
	s.sink.Banner("HEALTH")
	hr := s.health.Check(ctx)
	for _, c := range hr.Checks {
		s.sink.Linef("%s", c.String())
	}
	s.sink.Linef("health status: %s", hr.Status)
	return hr
}

// searchAll queries every collection concurrently. Results come back in query order;
// a failing collection never affects the others.
func (s *Service) searchAll(ctx context.Context, q domain.Query, vec []float32) []domain.CollectionResult {
	names := q.Collections()
	out := make([]domain.CollectionResult, len(names))

	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			out[i] = s.searchOne(ctx, name, vec, q.K())
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Service) searchOne(ctx context.Context, name string, vec []float32, k int) (res domain.CollectionResult) {
	res.Collection = name
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res.Hits = nil
			res.Err = &domain.CollectionError{
				Collection: name,
				Err:        fmt.Errorf("%w: panic: %v", domain.ErrUnexpected, r),
			}
		}
		if s.recorder != nil {
			s.recorder.ObserveSearch(name, len(res.Hits), res.Err, time.Since(start))
		}
	}()

	hits, err := s.search.Search(ctx, name, vec, k)
	if err != nil {
		if !errors.Is(err, domain.ErrVectorStore) {
			err = fmt.Errorf("%w: %w", domain.ErrVectorStore, err)
		}
		res.Err = &domain.CollectionError{Collection: name, Err: err}
		return res
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	res.Hits = hits
	return res
}

func (s *Service) logCollection(r domain.CollectionResult, k int) {
	s.sink.Banner("SEARCH " + r.Collection)
	if r.Failed() {
		s.sink.Linef("search failed: %v", r.Err)
		s.sink.Logger().Warn("collection search failed",
			zap.String("collection", r.Collection),
			zap.Error(r.Err),
		)
		return
	}
	s.sink.Linef("limit: %d, hits: %d", k, len(r.Hits))
}

func (s *Service) logFailure(stage State, err error) {
	s.sink.Banner("FAILED")
	s.sink.Linef("failed after stage %s: %v", stage, err)
	s.sink.Logger().Error("query failed",
		zap.String("stage", string(stage)),
		zap.Error(err),
		zap.Stack("stacktrace"),
	)
}

// UserMessage maps a run error to a short, stable line for the summary channel.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmbeddingService):
		return "embedding service unavailable or returned an unusable vector"
	default:
		return "unexpected internal error"
	}
}
