package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bscm/assistant-backend/models"
	"github.com/bscm/assistant-backend/services/audit"
	"github.com/bscm/assistant-backend/services/chat"
	"github.com/bscm/assistant-backend/utils"
	"go.uber.org/zap"
)

// ChatMessageResponse is the response body for single-shot chat
type ChatMessageResponse struct {
	Content string `json:"content"`
	Topic   string `json:"topic,omitempty"`
}

// ChatHandler handles the chat endpoints, streaming and single-shot
type ChatHandler struct {
	enhancer PromptEnhancer
	relay    CompletionRelay
	recorder audit.Recorder
	logger   *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(enhancer PromptEnhancer, relay CompletionRelay, recorder audit.Recorder, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		enhancer: enhancer,
		relay:    relay,
		recorder: recorder,
		logger:   logger,
	}
}

// HandleStream handles POST /api/v1/chat/stream. The response is a
// server-sent event stream of answer fragments; failures after the stream
// has started are reported as a final "ERROR:" data frame since the status
// line is already committed.
func (h *ChatHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := decodeChatRequest(w, r, h.logger)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("response writer does not support flushing")
		_ = utils.WriteInternalServerError(w, "Streaming not supported")
		return
	}

	enhanced := h.enhancer.EnhancePrompt(ctx, req.Question, req.History)
	messages := []models.ChatMessage{models.UserMessage(enhanced.Prompt)}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.recorder.Event(audit.KindStreamOpened,
		zap.Int("question_length", len(req.Question)),
		zap.Bool("degraded", enhanced.Degraded))

	sink := chat.SinkFunc(func(chunk string) error {
		if _, err := fmt.Fprintf(w, "data: %s\n\n", chunk); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})

	// The relay runs in its own goroutine; it terminates on its own when the
	// request context is cancelled, so the handler always drains the result
	// before returning and no writes outlive this function.
	errCh := make(chan error, 1)
	go func() {
		errCh <- h.relay.StreamComplete(ctx, messages, sink)
	}()

	if err := <-errCh; err != nil {
		h.recorder.Failure(audit.KindStreamFailed, err)
		if chat.IsSinkClosed(err) || ctx.Err() != nil {
			// Client is gone, nothing left to write
			return
		}
		fmt.Fprintf(w, "data: ERROR:%s\n\n", relayErrorMessage(err))
		flusher.Flush()
		return
	}

	h.recorder.Event(audit.KindStreamFinished)
}

// HandleMessage handles POST /api/v1/chat/message, a single-shot completion
// that also extracts the conversation topic label when the model appends one.
func (h *ChatHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := decodeChatRequest(w, r, h.logger)
	if !ok {
		return
	}

	enhanced := h.enhancer.EnhancePrompt(ctx, req.Question, req.History)
	messages := []models.ChatMessage{models.UserMessage(enhanced.Prompt)}

	content, topic, err := h.relay.Complete(ctx, messages)
	if err != nil {
		handleRelayError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, ChatMessageResponse{
		Content: content,
		Topic:   topic,
	})
}

func relayErrorMessage(err error) string {
	var relayErr *chat.RelayError
	if errors.As(err, &relayErr) {
		return relayErr.Message
	}
	return "chat service unavailable"
}
