package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bscm/assistant-backend/models"
	"github.com/bscm/assistant-backend/repositories"
	"go.uber.org/zap"
)

// KnowledgeRepository implements the repositories.KnowledgeRepository interface
type KnowledgeRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewKnowledgeRepository creates a new knowledge repository
func NewKnowledgeRepository(db *DB, logger *zap.Logger) repositories.KnowledgeRepository {
	return &KnowledgeRepository{
		db:     db,
		logger: logger,
	}
}

// ListAll retrieves every knowledge entry with embeddings decoded.
// Entries whose stored vector fails to decode are returned without an
// embedding; the retrieval pipeline skips them.
func (r *KnowledgeRepository) ListAll(ctx context.Context) ([]*models.KnowledgeEntry, error) {
	query := `
		SELECT id, question, answer, category, vector, created_at, updated_at
		FROM knowledge_base
		ORDER BY id
	`

	return r.queryEntries(ctx, query)
}

// ListByCategory retrieves entries of one category ordered by ascending question length
func (r *KnowledgeRepository) ListByCategory(ctx context.Context, category models.KnowledgeCategory) ([]*models.KnowledgeEntry, error) {
	query := `
		SELECT id, question, answer, category, vector, created_at, updated_at
		FROM knowledge_base
		WHERE category = $1
		ORDER BY LENGTH(question) ASC
	`

	return r.queryEntries(ctx, query, category)
}

// SearchByKeyword retrieves entries of one category matching the keyword,
// case-insensitive, ordered by ascending question length. Answers are searched
// only when searchAnswers is set.
func (r *KnowledgeRepository) SearchByKeyword(ctx context.Context, category models.KnowledgeCategory, keyword string, searchAnswers bool) ([]*models.KnowledgeEntry, error) {
	pattern := "%" + keyword + "%"

	if searchAnswers {
		query := `
			SELECT id, question, answer, category, vector, created_at, updated_at
			FROM knowledge_base
			WHERE category = $1 AND (question ILIKE $2 OR answer ILIKE $2)
			ORDER BY LENGTH(question) ASC
		`
		return r.queryEntries(ctx, query, category, pattern)
	}

	query := `
		SELECT id, question, answer, category, vector, created_at, updated_at
		FROM knowledge_base
		WHERE category = $1 AND question ILIKE $2
		ORDER BY LENGTH(question) ASC
	`
	return r.queryEntries(ctx, query, category, pattern)
}

// ListMissingEmbeddings retrieves entries whose embedding has not been computed yet
func (r *KnowledgeRepository) ListMissingEmbeddings(ctx context.Context) ([]*models.KnowledgeEntry, error) {
	query := `
		SELECT id, question, answer, category, vector, created_at, updated_at
		FROM knowledge_base
		WHERE vector IS NULL OR vector = ''
		ORDER BY id
	`

	return r.queryEntries(ctx, query)
}

// UpdateEmbedding persists a computed embedding for one entry
func (r *KnowledgeRepository) UpdateEmbedding(ctx context.Context, id int64, embedding []float64) error {
	raw, err := models.EncodeEmbedding(embedding)
	if err != nil {
		return err
	}

	query := `
		UPDATE knowledge_base
		SET vector = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`

	result, err := r.db.ExecContext(ctx, query, raw, id)
	if err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("knowledge entry not found: %d", id)
	}

	r.logger.Debug("embedding persisted",
		zap.Int64("id", id),
		zap.Int("dimensions", len(embedding)))
	return nil
}

// queryEntries runs a SELECT returning knowledge rows and scans them
func (r *KnowledgeRepository) queryEntries(ctx context.Context, query string, args ...interface{}) ([]*models.KnowledgeEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.KnowledgeEntry
	for rows.Next() {
		entry := &models.KnowledgeEntry{}
		var vector sql.NullString

		err := rows.Scan(
			&entry.ID,
			&entry.Question,
			&entry.Answer,
			&entry.Category,
			&vector,
			&entry.CreatedAt,
			&entry.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan knowledge entry: %w", err)
		}

		if vector.Valid && vector.String != "" {
			embedding, err := models.DecodeEmbedding(vector.String)
			if err != nil {
				// A corrupt stored vector must not block retrieval of the rest
				// of the corpus; the entry simply stays unranked.
				r.logger.Warn("skipping undecodable embedding",
					zap.Int64("id", entry.ID),
					zap.Error(err))
			} else {
				entry.Embedding = embedding
			}
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate knowledge entries: %w", err)
	}

	return entries, nil
}
