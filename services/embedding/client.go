package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bscm/assistant-backend/config"
	"go.uber.org/zap"
)

// Error codes surfaced by the embedding client
const (
	ErrCodeUpstream  = "UPSTREAM_ERROR"
	ErrCodeTransport = "TRANSPORT_ERROR"
	ErrCodeMalformed = "MALFORMED_RESPONSE"
)

// Error represents a failure talking to the embedding endpoint
type Error struct {
	Code       string
	Message    string
	StatusCode int
	Cause      error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping
func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(code, message string, statusCode int, cause error) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// Client converts text into embedding vectors via an OpenAI-style
// /embeddings endpoint. It performs no retries; retry policy, if wanted,
// belongs to the caller.
type Client struct {
	cfg        config.EmbeddingConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new embedding client
func NewClient(cfg config.EmbeddingConfig, logger *zap.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

type upstreamErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Embed turns text into a fixed-length vector. Empty or whitespace-only text
// returns an empty vector and no error, signaling the caller to skip
// embedding-based retrieval.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		c.logger.Warn("empty text, skipping embedding call")
		return nil, nil
	}

	reqBody, err := json.Marshal(embeddingRequest{
		Model: c.cfg.Model,
		Input: trimmed,
	})
	if err != nil {
		return nil, newError(ErrCodeTransport, "failed to marshal embedding request", 0, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/embeddings", bytes.NewReader(reqBody))
	if err != nil {
		return nil, newError(ErrCodeTransport, "failed to create embedding request", 0, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, newError(ErrCodeTransport, "embedding request failed", 0, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, newError(ErrCodeTransport, "failed to read embedding response", httpResp.StatusCode, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, c.handleErrorResponse(httpResp.StatusCode, respBody)
	}

	var resp embeddingResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, newError(ErrCodeMalformed, "failed to unmarshal embedding response", httpResp.StatusCode, err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, newError(ErrCodeMalformed, "embedding response carries no vector", httpResp.StatusCode, nil)
	}

	vector := resp.Data[0].Embedding
	if c.cfg.Dimensions > 0 && len(vector) != c.cfg.Dimensions {
		c.logger.Warn("embedding dimensionality differs from configured model size",
			zap.Int("got", len(vector)),
			zap.Int("want", c.cfg.Dimensions))
	}

	c.logger.Debug("embedding generated", zap.Int("dimensions", len(vector)))
	return vector, nil
}

// handleErrorResponse converts a non-2xx upstream reply into a structured Error
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var errResp upstreamErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		return newError(ErrCodeUpstream,
			fmt.Sprintf("embedding service unavailable (status %d)", statusCode),
			statusCode, nil)
	}

	return newError(ErrCodeUpstream, errResp.Error.Message, statusCode,
		errors.New(errResp.Error.Message))
}
