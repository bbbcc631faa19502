package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/bscm/assistant-backend/models"
	"github.com/bscm/assistant-backend/repositories"
	"go.uber.org/zap"
)

// Service exposes knowledge base browsing over the repository
type Service struct {
	repo   repositories.KnowledgeRepository
	logger *zap.Logger
}

// NewService creates a new knowledge browsing service
func NewService(repo repositories.KnowledgeRepository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Browse lists knowledge entries of one category, optionally filtered by a
// case-insensitive keyword. When searchAnswers is set the keyword also
// matches answer text. Results are ordered by ascending question length so
// the most focused entries come first.
func (s *Service) Browse(ctx context.Context, category models.KnowledgeCategory, keyword string, searchAnswers bool) ([]*models.KnowledgeEntry, error) {
	if !category.IsValid() {
		return nil, fmt.Errorf("invalid knowledge category: %q", category)
	}

	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return s.repo.ListByCategory(ctx, category)
	}

	s.logger.Debug("searching knowledge base",
		zap.String("category", string(category)),
		zap.String("keyword", keyword),
		zap.Bool("search_answers", searchAnswers))

	return s.repo.SearchByKeyword(ctx, category, keyword, searchAnswers)
}
