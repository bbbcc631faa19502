package repositories

import (
	"context"

	"github.com/bscm/assistant-backend/models"
)

// KnowledgeRepository handles knowledge base data operations
type KnowledgeRepository interface {
	// ListAll retrieves every knowledge entry, embeddings decoded where present.
	// Returned slices are fresh copies; callers may hold them as snapshots.
	ListAll(ctx context.Context) ([]*models.KnowledgeEntry, error)

	// ListByCategory retrieves entries of one category ordered by ascending
	// question length
	ListByCategory(ctx context.Context, category models.KnowledgeCategory) ([]*models.KnowledgeEntry, error)

	// SearchByKeyword retrieves entries of one category whose question (and,
	// when searchAnswers is set, answer) contains the keyword, case-insensitive
	SearchByKeyword(ctx context.Context, category models.KnowledgeCategory, keyword string, searchAnswers bool) ([]*models.KnowledgeEntry, error)

	// ListMissingEmbeddings retrieves entries whose embedding has not been
	// computed yet
	ListMissingEmbeddings(ctx context.Context) ([]*models.KnowledgeEntry, error)

	// UpdateEmbedding persists a computed embedding for one entry
	UpdateEmbedding(ctx context.Context, id int64, embedding []float64) error
}
