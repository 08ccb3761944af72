package retrieval

import (
	"math"
	"testing"

	"github.com/kailas-cloud/docassist/internal/domain/search/result"
)

func makeHit(id string) result.Hit {
	return result.Hit{ID: id, SourcePage: id + ".pdf", Content: "content-" + id}
}

func TestFuseRRF_DisjointLists(t *testing.T) {
	vector := []result.Hit{makeHit("a"), makeHit("b")}
	text := []result.Hit{makeHit("c"), makeHit("d")}

	hits := fuseRRF(vector, text, 10, false)
	if len(hits) != 4 {
		t.Fatalf("expected 4 hits, got %d", len(hits))
	}

	ids := make(map[string]bool)
	for _, h := range hits {
		ids[h.ID] = true
	}
	for _, id := range []string{"a", "b", "c", "d"} {
		if !ids[id] {
			t.Errorf("missing hit %s", id)
		}
	}
	// Equal rank-0 scores keep the vector hit first.
	if hits[0].ID != "a" || hits[1].ID != "c" {
		t.Errorf("unexpected order %s, %s", hits[0].ID, hits[1].ID)
	}
}

func TestFuseRRF_OverlappingLists(t *testing.T) {
	vector := []result.Hit{makeHit("a"), makeHit("b"), makeHit("c")}
	text := []result.Hit{makeHit("b"), makeHit("d"), makeHit("a")}

	hits := fuseRRF(vector, text, 10, false)
	if len(hits) != 4 {
		t.Fatalf("expected 4 hits, got %d", len(hits))
	}

	// "b": 1/62 + 1/61 beats "a": 1/61 + 1/63
	if hits[0].ID != "b" || hits[1].ID != "a" {
		t.Errorf("expected b, a first, got %s, %s", hits[0].ID, hits[1].ID)
	}
	for _, h := range hits[2:] {
		if h.Score >= hits[1].Score {
			t.Errorf("single-list hit %s scored %f >= overlap %f", h.ID, h.Score, hits[1].Score)
		}
	}
}

func TestFuseRRF_EmptyInputs(t *testing.T) {
	t.Run("both empty", func(t *testing.T) {
		if hits := fuseRRF(nil, nil, 10, false); len(hits) != 0 {
			t.Fatalf("expected 0 hits, got %d", len(hits))
		}
	})

	t.Run("vector empty", func(t *testing.T) {
		if hits := fuseRRF(nil, []result.Hit{makeHit("a")}, 10, false); len(hits) != 1 {
			t.Fatalf("expected 1 hit, got %d", len(hits))
		}
	})

	t.Run("text empty", func(t *testing.T) {
		if hits := fuseRRF([]result.Hit{makeHit("a")}, nil, 10, false); len(hits) != 1 {
			t.Fatalf("expected 1 hit, got %d", len(hits))
		}
	})
}

func TestFuseRRF_TopKLimiting(t *testing.T) {
	vector := []result.Hit{makeHit("a"), makeHit("b"), makeHit("c")}
	text := []result.Hit{makeHit("d"), makeHit("e"), makeHit("f")}

	if hits := fuseRRF(vector, text, 3, false); len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
}

func TestFuseRRF_SortedByScore(t *testing.T) {
	vector := []result.Hit{makeHit("a"), makeHit("b")}
	text := []result.Hit{makeHit("c"), makeHit("d"), makeHit("a")}

	hits := fuseRRF(vector, text, 10, false)
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("hits not sorted: %f > %f at index %d", hits[i].Score, hits[i-1].Score, i)
		}
	}
}

func TestFuseRRF_DuplicateResolution(t *testing.T) {
	full := result.Hit{ID: "a", SourcePage: "a.pdf", Content: "full page text"}
	caption := result.Hit{ID: "a", SourcePage: "a.pdf", Content: "page . text"}

	hits := fuseRRF([]result.Hit{full}, []result.Hit{caption}, 10, false)
	if hits[0].Content != "full page text" {
		t.Errorf("expected vector hit kept, got %q", hits[0].Content)
	}

	hits = fuseRRF([]result.Hit{full}, []result.Hit{caption}, 10, true)
	if hits[0].Content != "page . text" {
		t.Errorf("expected caption kept, got %q", hits[0].Content)
	}
}

func TestFuseRRF_ScoreFormula(t *testing.T) {
	hits := fuseRRF([]result.Hit{makeHit("a")}, []result.Hit{makeHit("a")}, 10, false)
	// rank 0 in both: 1/(60+1) + 1/(60+1) = 2/61
	expected := 2.0 / 61.0
	if math.Abs(hits[0].Score-expected) > 1e-10 {
		t.Errorf("expected score %f, got %f", expected, hits[0].Score)
	}
}

func TestFuseRRF_FallsBackToKey(t *testing.T) {
	a := result.Hit{Key: "docassist:chunk:a", SourcePage: "a", Content: "x"}
	b := result.Hit{Key: "docassist:chunk:b", SourcePage: "b", Content: "y"}

	if hits := fuseRRF([]result.Hit{a}, []result.Hit{b, a}, 10, false); len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
}
