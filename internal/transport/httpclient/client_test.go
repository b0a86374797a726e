package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNormalizeURL(t *testing.T) {
	tests := map[string]string{
		"http://localhost:6333":    "http://localhost:6333",
		"http://localhost:6333/":   "http://localhost:6333",
		"localhost:11434":          "http://localhost:11434",
		" https://qdrant.local// ": "https://qdrant.local",
	}
	for in, want := range tests {
		if got := NormalizeURL(in); got != want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("short", 10); got != "short" {
		t.Errorf("Preview(short) = %q", got)
	}
	if got := Preview("abcdef", 3); got != "abc..." {
		t.Errorf("Preview(abcdef, 3) = %q", got)
	}
	if got := Preview("äöüß", 2); got != "äö..." {
		t.Errorf("Preview must cut on runes, got %q", got)
	}
}

func TestNew_TimeoutIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := New(srv.URL, 50*time.Millisecond, nil)
	if _, err := c.R().Get("/"); err == nil {
		t.Fatal("expected timeout error")
	}
}
