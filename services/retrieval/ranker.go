package retrieval

import (
	"math"
	"sort"

	"github.com/bscm/assistant-backend/models"
	"go.uber.org/zap"
)

// ScoredMatch pairs a knowledge entry with its similarity to a query.
// Transient: produced per query, never persisted.
type ScoredMatch struct {
	Entry      *models.KnowledgeEntry
	Similarity float64
}

// Ranker scores a knowledge corpus against a query vector by brute-force
// cosine similarity. Linear scan is adequate at corpus sizes in the tens of
// thousands; swap in an ANN index behind this type for anything larger.
type Ranker struct {
	logger *zap.Logger
}

// NewRanker creates a new similarity ranker
func NewRanker(logger *zap.Logger) *Ranker {
	return &Ranker{logger: logger}
}

// Rank computes cosine similarity between the query and every corpus entry
// carrying an embedding of matching dimensionality, keeps entries scoring at
// least threshold, and returns the topK best in descending order. Ties keep
// corpus iteration order. Entries without an embedding, or with an embedding
// of a different dimensionality, are skipped silently.
func (r *Ranker) Rank(query []float64, corpus []*models.KnowledgeEntry, topK int, threshold float64) []ScoredMatch {
	if len(query) == 0 || topK <= 0 {
		return nil
	}

	var matches []ScoredMatch
	for _, entry := range corpus {
		if !entry.HasEmbedding() || len(entry.Embedding) != len(query) {
			continue
		}

		similarity := CosineSimilarity(query, entry.Embedding)
		if similarity >= threshold {
			matches = append(matches, ScoredMatch{Entry: entry, Similarity: similarity})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}

	if len(matches) > 0 && r.logger.Core().Enabled(zap.DebugLevel) {
		scores := make([]float64, len(matches))
		for i, m := range matches {
			scores[i] = m.Similarity
		}
		r.logger.Debug("knowledge ranked",
			zap.Int("candidates", len(corpus)),
			zap.Float64s("top_scores", scores))
	}

	return matches
}

// CosineSimilarity returns the cosine of the angle between two equal-length
// vectors, in [-1, 1]. Defined as 0 when either vector has zero norm or the
// lengths differ.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
