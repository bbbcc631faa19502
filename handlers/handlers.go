package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bscm/assistant-backend/models"
	"github.com/bscm/assistant-backend/services/chat"
	"github.com/bscm/assistant-backend/services/rag"
	"github.com/bscm/assistant-backend/utils"
	"go.uber.org/zap"
)

// PromptEnhancer grounds a question against the knowledge base
type PromptEnhancer interface {
	EnhancePrompt(ctx context.Context, question string, history []models.ChatMessage) *rag.EnhancedPrompt
}

// CompletionRelay bridges the upstream completion API
type CompletionRelay interface {
	StreamComplete(ctx context.Context, messages []models.ChatMessage, sink chat.Sink) error
	Complete(ctx context.Context, messages []models.ChatMessage) (string, string, error)
}

// ChatRequest is the request body shared by the chat endpoints
type ChatRequest struct {
	Question string               `json:"question" validate:"required"`
	History  []models.ChatMessage `json:"history" validate:"omitempty,dive"`
}

// decodeChatRequest parses and validates the shared chat request body.
// A whitespace-only question is rejected here, before any retrieval or
// upstream call happens; the `required` tag alone only catches "".
func decodeChatRequest(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (*ChatRequest, bool) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("failed to parse chat request", zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return nil, false
	}

	if err := utils.ValidateStruct(&req); err != nil {
		handleValidationError(w, err, logger)
		return nil, false
	}

	if strings.TrimSpace(req.Question) == "" {
		_ = utils.WriteBadRequest(w, "Validation failed", map[string]interface{}{
			"Question": "Question must not be blank",
		})
		return nil, false
	}

	return &req, true
}

// handleValidationError writes a 400 with per-field details
func handleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		details := make(map[string]interface{})
		for field, msg := range utils.GetValidationFields(err) {
			details[field] = msg
		}
		_ = utils.WriteBadRequest(w, "Validation failed", details)
		return
	}
	logger.Error("unexpected validation failure", zap.Error(err))
	_ = utils.WriteInternalServerError(w, "")
}

// handleRelayError maps a relay failure to an HTTP error response. Upstream
// rejections pass through as 502 so callers can distinguish them from local
// faults.
func handleRelayError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var relayErr *chat.RelayError
	if errors.As(err, &relayErr) && relayErr.Code == chat.ErrCodeUpstream {
		logger.Warn("upstream completion rejected",
			zap.Int("upstream_status", relayErr.StatusCode),
			zap.String("message", relayErr.Message))
		_ = utils.WriteError(w, http.StatusBadGateway, relayErr.Message, nil)
		return
	}
	logger.Error("completion failed", zap.Error(err))
	_ = utils.WriteInternalServerError(w, "")
}
