package embedding

import (
	"errors"
	"slices"
	"testing"

	"github.com/kailas-cloud/docassist/internal/domain"
)

func TestRegistry(t *testing.T) {
	docs := &mockEmbedder{}
	queries := &mockEmbedder{}
	r, err := NewRegistry(map[string]Vectorizer{
		"openai-small": {Documents: docs, Queries: queries},
		"e5":           {Documents: &mockEmbedder{}, Queries: &mockEmbedder{}},
	}, "openai-small")
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	got, err := r.Documents("")
	if err != nil || got != docs {
		t.Errorf("default documents embedder = %v, %v", got, err)
	}
	got, err = r.Queries("openai-small")
	if err != nil || got != queries {
		t.Errorf("queries embedder = %v, %v", got, err)
	}
	if !slices.Equal(r.Names(), []string{"e5", "openai-small"}) {
		t.Errorf("names = %v", r.Names())
	}
	if _, err := r.Get("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNewRegistry_Validation(t *testing.T) {
	if _, err := NewRegistry(map[string]Vectorizer{}, "x"); err == nil {
		t.Error("expected error for unknown default")
	}
	if _, err := NewRegistry(map[string]Vectorizer{"x": {Documents: &mockEmbedder{}}}, "x"); err == nil {
		t.Error("expected error for missing query embedder")
	}
}
