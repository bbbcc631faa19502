package rag

import (
	"context"

	"github.com/bscm/assistant-backend/config"
	"github.com/bscm/assistant-backend/models"
	"github.com/bscm/assistant-backend/repositories"
	"github.com/bscm/assistant-backend/services/audit"
	"github.com/bscm/assistant-backend/services/retrieval"
	"go.uber.org/zap"
)

// Embedder produces embedding vectors for free text
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// EnhancedPrompt is the result of grounding a question against the knowledge
// base. Degraded marks prompts built without retrieval context after an
// upstream or storage failure.
type EnhancedPrompt struct {
	Prompt   string
	Matches  []retrieval.ScoredMatch
	Degraded bool
}

// Service orchestrates the retrieval pipeline: embed the question, rank it
// against the knowledge corpus, and assemble the grounded prompt. It never
// fails the caller; every failure path degrades to an ungrounded prompt so
// the chat flow stays available.
type Service struct {
	embedder  Embedder
	repo      repositories.KnowledgeRepository
	ranker    *retrieval.Ranker
	assembler *retrieval.Assembler
	recorder  audit.Recorder
	cfg       config.RetrievalConfig
	logger    *zap.Logger
}

// NewService creates a new retrieval orchestration service
func NewService(
	embedder Embedder,
	repo repositories.KnowledgeRepository,
	ranker *retrieval.Ranker,
	assembler *retrieval.Assembler,
	recorder audit.Recorder,
	cfg config.RetrievalConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		embedder:  embedder,
		repo:      repo,
		ranker:    ranker,
		assembler: assembler,
		recorder:  recorder,
		cfg:       cfg,
		logger:    logger,
	}
}

// EnhancePrompt builds the grounded prompt for question. History is the full
// conversation so far; the assembler applies its own window. All retrieval
// failures degrade to an ungrounded prompt instead of propagating.
func (s *Service) EnhancePrompt(ctx context.Context, question string, history []models.ChatMessage) *EnhancedPrompt {
	matches, degraded := s.retrieve(ctx, question)

	prompt := s.assembler.BuildPrompt(question, matches, history)

	s.recorder.Event(audit.KindPromptAssembled,
		zap.Int("matches", len(matches)),
		zap.Bool("degraded", degraded),
		zap.Int("prompt_length", len(prompt)))

	return &EnhancedPrompt{
		Prompt:   prompt,
		Matches:  matches,
		Degraded: degraded,
	}
}

// retrieve returns the ranked knowledge matches for question. The bool marks
// a degraded pass: some retrieval stage failed and grounding was skipped. A
// ranking pass that simply finds nothing above the similarity floor is not
// degraded.
func (s *Service) retrieve(ctx context.Context, question string) ([]retrieval.ScoredMatch, bool) {
	queryEmbedding, err := s.embedder.Embed(ctx, question)
	if err != nil {
		s.recorder.Failure(audit.KindRetrievalFailed, err, zap.String("stage", "embed"))
		return nil, true
	}
	if len(queryEmbedding) == 0 {
		s.logger.Warn("empty query embedding, skipping retrieval")
		return nil, true
	}

	corpus, err := s.repo.ListAll(ctx)
	if err != nil {
		s.recorder.Failure(audit.KindRetrievalFailed, err, zap.String("stage", "corpus"))
		return nil, true
	}

	return s.ranker.Rank(queryEmbedding, corpus, s.cfg.TopK, s.cfg.MinSimilarity), false
}

// EnsureEmbeddings backfills embedding vectors for knowledge entries that
// lack one. Entries whose embedding request fails are skipped and retried on
// the next run. Returns the number of entries updated.
func (s *Service) EnsureEmbeddings(ctx context.Context) (int, error) {
	missing, err := s.repo.ListMissingEmbeddings(ctx)
	if err != nil {
		return 0, err
	}
	if len(missing) == 0 {
		return 0, nil
	}

	s.logger.Info("backfilling knowledge embeddings", zap.Int("pending", len(missing)))

	updated := 0
	for _, entry := range missing {
		if err := ctx.Err(); err != nil {
			return updated, err
		}

		embedding, err := s.embedder.Embed(ctx, entry.Question)
		if err != nil {
			s.recorder.Failure(audit.KindRetrievalFailed, err,
				zap.String("stage", "backfill"),
				zap.Int64("entry_id", entry.ID))
			continue
		}
		if len(embedding) == 0 {
			continue
		}

		if err := s.repo.UpdateEmbedding(ctx, entry.ID, embedding); err != nil {
			s.recorder.Failure(audit.KindRetrievalFailed, err,
				zap.String("stage", "backfill_store"),
				zap.Int64("entry_id", entry.ID))
			continue
		}

		s.recorder.Event(audit.KindEmbeddingFilled, zap.Int64("entry_id", entry.ID))
		updated++
	}

	return updated, nil
}
