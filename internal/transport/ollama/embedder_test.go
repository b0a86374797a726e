package ollama

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/nowa-engine/ragquery/internal/domain"
	"github.com/nowa-engine/ragquery/internal/stub"
)

func TestEmbedder_Embed(t *testing.T) {
	srv := (&stub.Ollama{Vector: []float64{0.1, 0.2, 0.3, 0.4}}).Start()
	defer srv.Close()

	emb := NewEmbedder(&Config{BaseURL: srv.URL(), Model: "nomic-embed-text"})

	result, err := emb.Embed(context.Background(), "how do I spawn an entity")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	expected := []float32{0.1, 0.2, 0.3, 0.4}
	if len(result.Embedding) != len(expected) {
		t.Fatalf("expected %d dimensions, got %d", len(expected), len(result.Embedding))
	}
	for i, v := range result.Embedding {
		if v != expected[i] {
			t.Errorf("vec[%d] = %f, expected %f", i, v, expected[i])
		}
	}
	if result.Model != "nomic-embed-text" {
		t.Errorf("Model = %q", result.Model)
	}

	reqs := srv.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected exactly 1 request, got %d", len(reqs))
	}
	if reqs[0].Model != "nomic-embed-text" || reqs[0].Prompt != "how do I spawn an entity" {
		t.Errorf("unexpected request body: %+v", reqs[0])
	}
}

func TestEmbedder_DefaultModel(t *testing.T) {
	srv := (&stub.Ollama{Vector: []float64{1}}).Start()
	defer srv.Close()

	emb := NewEmbedder(&Config{BaseURL: srv.URL()})
	if _, err := emb.Embed(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}
	if got := srv.Requests()[0].Model; got != DefaultModel {
		t.Errorf("model = %q, want %q", got, DefaultModel)
	}
}

func TestEmbedder_Failures(t *testing.T) {
	tests := []struct {
		name string
		srv  *stub.Ollama
	}{
		{"non-2xx", &stub.Ollama{Status: http.StatusInternalServerError, Body: `{"error":"model not loaded"}`}},
		{"not found", &stub.Ollama{Status: http.StatusNotFound, Body: `404 page not found`}},
		{"missing field", &stub.Ollama{Body: `{"model":"x"}`}},
		{"empty vector", &stub.Ollama{Body: `{"embedding":[]}`}},
		{"wrong type", &stub.Ollama{Body: `{"embedding":"0.1,0.2"}`}},
		{"non-numeric element", &stub.Ollama{Body: `{"embedding":[0.1,"x"]}`}},
		{"null element", &stub.Ollama{Body: `{"embedding":[0.1,null,0.3]}`}},
		{"all null", &stub.Ollama{Body: `{"embedding":[null]}`}},
		{"error field", &stub.Ollama{Body: `{"error":"out of memory"}`}},
		{"not json", &stub.Ollama{Body: `<html>`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := tt.srv.Start()
			defer srv.Close()

			emb := NewEmbedder(&Config{BaseURL: srv.URL()})
			_, err := emb.Embed(context.Background(), "q")
			if !errors.Is(err, domain.ErrEmbeddingService) {
				t.Fatalf("expected ErrEmbeddingService, got %v", err)
			}
			if srv.Hits() != 1 {
				t.Errorf("expected exactly one request (no retry), got %d", srv.Hits())
			}
		})
	}
}

func TestEmbedder_Unreachable(t *testing.T) {
	srv := (&stub.Ollama{}).Start()
	url := srv.URL()
	srv.Close()

	emb := NewEmbedder(&Config{BaseURL: url, Timeout: time.Second})
	_, err := emb.Embed(context.Background(), "q")
	if !errors.Is(err, domain.ErrEmbeddingService) {
		t.Fatalf("expected ErrEmbeddingService, got %v", err)
	}
}

func TestEmbedder_Labels(t *testing.T) {
	emb := NewEmbedder(&Config{Model: "mxbai-embed-large"})
	if emb.Provider() != "ollama" {
		t.Errorf("Provider() = %q", emb.Provider())
	}
	if emb.Model() != "mxbai-embed-large" {
		t.Errorf("Model() = %q", emb.Model())
	}
}
