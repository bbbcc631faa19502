package handlers

import (
	"context"
	"net/http"

	"github.com/bscm/assistant-backend/models"
	"github.com/bscm/assistant-backend/utils"
	"go.uber.org/zap"
)

// KnowledgeBrowser lists knowledge base entries
type KnowledgeBrowser interface {
	Browse(ctx context.Context, category models.KnowledgeCategory, keyword string, searchAnswers bool) ([]*models.KnowledgeEntry, error)
}

// KnowledgeHandler handles knowledge base browsing requests
type KnowledgeHandler struct {
	browser KnowledgeBrowser
	logger  *zap.Logger
}

// NewKnowledgeHandler creates a new KnowledgeHandler
func NewKnowledgeHandler(browser KnowledgeBrowser, logger *zap.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{
		browser: browser,
		logger:  logger,
	}
}

// HandleList handles GET /api/v1/knowledge?category=&keyword=&search_answers=
func (h *KnowledgeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	category := models.KnowledgeCategory(query.Get("category"))
	if !category.IsValid() {
		_ = utils.WriteBadRequest(w, "Invalid or missing category", map[string]interface{}{
			"allowed": []string{string(models.CategoryBasicKnowledge), string(models.CategoryCaseStudy)},
		})
		return
	}

	searchAnswers := query.Get("search_answers") == "true"

	entries, err := h.browser.Browse(r.Context(), category, query.Get("keyword"), searchAnswers)
	if err != nil {
		h.logger.Error("knowledge browse failed",
			zap.String("category", string(category)),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	if entries == nil {
		entries = []*models.KnowledgeEntry{}
	}
	_ = utils.WriteOK(w, entries)
}
