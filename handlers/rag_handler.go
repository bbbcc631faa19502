package handlers

import (
	"net/http"

	"github.com/bscm/assistant-backend/utils"
	"go.uber.org/zap"
)

// EnhancedPromptResponse is the response body for prompt enhancement
type EnhancedPromptResponse struct {
	Prompt   string         `json:"prompt"`
	Degraded bool           `json:"degraded"`
	Matches  []MatchSummary `json:"matches"`
}

// MatchSummary describes one knowledge match used for grounding
type MatchSummary struct {
	ID         int64   `json:"id"`
	Question   string  `json:"question"`
	Similarity float64 `json:"similarity"`
}

// RagHandler exposes the prompt enhancement pipeline directly, mainly for
// debugging what context a question retrieves
type RagHandler struct {
	enhancer PromptEnhancer
	logger   *zap.Logger
}

// NewRagHandler creates a new RagHandler
func NewRagHandler(enhancer PromptEnhancer, logger *zap.Logger) *RagHandler {
	return &RagHandler{
		enhancer: enhancer,
		logger:   logger,
	}
}

// HandleEnhancedPrompt handles POST /api/v1/rag/enhanced-prompt
func (h *RagHandler) HandleEnhancedPrompt(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeChatRequest(w, r, h.logger)
	if !ok {
		return
	}

	enhanced := h.enhancer.EnhancePrompt(r.Context(), req.Question, req.History)

	matches := make([]MatchSummary, 0, len(enhanced.Matches))
	for _, m := range enhanced.Matches {
		matches = append(matches, MatchSummary{
			ID:         m.Entry.ID,
			Question:   m.Entry.Question,
			Similarity: m.Similarity,
		})
	}

	_ = utils.WriteOK(w, EnhancedPromptResponse{
		Prompt:   enhanced.Prompt,
		Degraded: enhanced.Degraded,
		Matches:  matches,
	})
}
