package retrieval

import (
	"sort"

	"github.com/kailas-cloud/docassist/internal/domain/search/result"
)

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// fuseRRF merges vector and keyword hits via Reciprocal Rank Fusion.
// score(d) = sum of 1/(k + rank_i(d)) for each ranking where d appears.
// When a hit appears in both lists, the vector hit is kept unless preferText
// is set (keyword hits carry captions).
func fuseRRF(vector, text []result.Hit, topK int, preferText bool) []result.Hit {
	type scored struct {
		hit   result.Hit
		score float64
	}

	merged := make(map[string]*scored, len(vector)+len(text))
	order := make([]string, 0, len(vector)+len(text))

	for rank, h := range vector {
		key := hitKey(h)
		if _, dup := merged[key]; dup {
			continue
		}
		merged[key] = &scored{hit: h, score: 1.0 / float64(rrfK+rank+1)}
		order = append(order, key)
	}

	for rank, h := range text {
		key := hitKey(h)
		s := 1.0 / float64(rrfK+rank+1)
		if existing, ok := merged[key]; ok {
			existing.score += s
			if preferText {
				existing.hit = h
			}
			continue
		}
		merged[key] = &scored{hit: h, score: s}
		order = append(order, key)
	}

	hits := make([]result.Hit, 0, len(merged))
	for _, key := range order {
		s := merged[key]
		h := s.hit
		h.Score = s.score
		hits = append(hits, h)
	}

	// Stable keeps vector-first order among equal fused scores.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

func hitKey(h result.Hit) string {
	if h.ID != "" {
		return h.ID
	}
	return h.Key
}
