package health

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nowa-engine/ragquery/internal/domain"
	"github.com/nowa-engine/ragquery/internal/stub"
)

// --- Mocks ---

type mockProber struct {
	mu      sync.Mutex
	results map[string]Result
	calls   []string
}

func (m *mockProber) Probe(_ context.Context, url string) Result {
	m.mu.Lock()
	m.calls = append(m.calls, url)
	m.mu.Unlock()
	return m.results[url]
}

type mockRecorder struct {
	mu  sync.Mutex
	got map[string]string
}

func (m *mockRecorder) ObserveHealth(service, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.got == nil {
		m.got = map[string]string{}
	}
	m.got[service] = result
}

var (
	ollamaTarget = Target{Service: "ollama", URL: "http://ollama/api/tags"}
	qdrantTarget = Target{Service: "qdrant", URL: "http://qdrant/healthz"}
)

func reachable(code int) Result { return Result{Reachable: true, StatusCode: code} }

func unreachable() Result {
	return Result{Err: errors.Join(errors.New("conn refused"), domain.ErrServiceUnreachable)}
}

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	p := &mockProber{results: map[string]Result{
		ollamaTarget.URL: reachable(200),
		qdrantTarget.URL: reachable(200),
	}}
	r := New(p, ollamaTarget, qdrantTarget).Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if len(r.Checks) != 2 || r.Checks[0].Service != "ollama" || r.Checks[1].Service != "qdrant" {
		t.Errorf("checks must follow target order: %+v", r.Checks)
	}
}

func TestCheck_AnyStatusCodeIsReachable(t *testing.T) {
	p := &mockProber{results: map[string]Result{
		ollamaTarget.URL: reachable(500),
		qdrantTarget.URL: reachable(404),
	}}
	r := New(p, ollamaTarget, qdrantTarget).Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
}

func TestCheck_OneUnreachable(t *testing.T) {
	p := &mockProber{results: map[string]Result{
		ollamaTarget.URL: unreachable(),
		qdrantTarget.URL: reachable(200),
	}}
	rec := &mockRecorder{}
	r := New(p, ollamaTarget, qdrantTarget).WithRecorder(rec).Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks[0].Reachable || !errors.Is(r.Checks[0].Err, domain.ErrServiceUnreachable) {
		t.Errorf("ollama should be unreachable: %+v", r.Checks[0])
	}
	if !r.Checks[1].Reachable {
		t.Error("qdrant result must not be affected by ollama failure")
	}
	if rec.got["ollama"] != ResultUnreachable || rec.got["qdrant"] != ResultReachable {
		t.Errorf("unexpected recorded results: %v", rec.got)
	}
}

func TestCheck_BothFail(t *testing.T) {
	p := &mockProber{results: map[string]Result{
		ollamaTarget.URL: unreachable(),
		qdrantTarget.URL: unreachable(),
	}}
	r := New(p, ollamaTarget, qdrantTarget).Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if len(p.calls) != 2 {
		t.Errorf("both services must be probed, got %d calls", len(p.calls))
	}
}

func TestCheck_NoTargets(t *testing.T) {
	r := New(&mockProber{}).Check(context.Background())
	if r.Status != Healthy || len(r.Checks) != 0 {
		t.Errorf("unexpected report: %+v", r)
	}
}

func TestHTTPProbe_Reachable(t *testing.T) {
	srv := (&stub.Qdrant{}).Start()
	defer srv.Close()

	res := NewHTTPProbe(time.Second, nil).Probe(context.Background(), srv.URL()+"/healthz")
	if !res.Reachable || res.StatusCode != http.StatusOK {
		t.Fatalf("expected reachable 200, got %+v", res)
	}
	if !strings.Contains(res.BodyPreview, "healthz check passed") {
		t.Errorf("BodyPreview = %q", res.BodyPreview)
	}
	if !strings.Contains(res.String(), "-> 200") {
		t.Errorf("String() = %q", res.String())
	}
}

func TestHTTPProbe_NotFoundStillReachable(t *testing.T) {
	srv := (&stub.Ollama{}).Start()
	defer srv.Close()

	res := NewHTTPProbe(time.Second, nil).Probe(context.Background(), srv.URL()+"/nope")
	if !res.Reachable || res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected reachable 404, got %+v", res)
	}
}

func TestHTTPProbe_Unreachable(t *testing.T) {
	srv := (&stub.Ollama{}).Start()
	url := srv.URL()
	srv.Close()

	res := NewHTTPProbe(time.Second, nil).Probe(context.Background(), url+"/api/tags")
	if res.Reachable {
		t.Fatal("expected unreachable")
	}
	if !errors.Is(res.Err, domain.ErrServiceUnreachable) {
		t.Errorf("expected ErrServiceUnreachable, got %v", res.Err)
	}
	if !strings.Contains(res.String(), "unreachable") {
		t.Errorf("String() = %q", res.String())
	}
}
