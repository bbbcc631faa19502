package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/bscm/assistant-backend/config"
	"github.com/bscm/assistant-backend/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Error codes surfaced by the relay
const (
	ErrCodeUpstream   = "UPSTREAM_ERROR"
	ErrCodeTransport  = "TRANSPORT_ERROR"
	ErrCodeSinkClosed = "SINK_CLOSED"
)

const (
	dataPrefix = "data: "
	doneMarker = "[DONE]"

	// maxTopicLength bounds the trailing topic marker the model may append
	maxTopicLength = 25
)

// topicPattern matches a trailing {"topic": "..."} marker at the very end of
// a completion. Applied in single-shot mode only; streamed output is relayed
// verbatim.
var topicPattern = regexp.MustCompile(`(?i)\{\s*"topic"\s*:\s*"([^"]+)"\s*\}\s*$`)

// RelayError represents a failure bridging the upstream completion API
type RelayError struct {
	Code       string
	Message    string
	StatusCode int
	Cause      error
}

// Error implements the error interface
func (e *RelayError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping
func (e *RelayError) Unwrap() error {
	return e.Cause
}

// IsSinkClosed reports whether err is a relay failure caused by the
// downstream sink rejecting a write
func IsSinkClosed(err error) bool {
	var relayErr *RelayError
	return errors.As(err, &relayErr) && relayErr.Code == ErrCodeSinkClosed
}

func newRelayError(code, message string, statusCode int, cause error) *RelayError {
	return &RelayError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// Sink is the downstream consumer of streamed completion fragments. Send
// blocks until the fragment is written and returns an error once the consumer
// is gone; that error stops the relay.
type Sink interface {
	Send(chunk string) error
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(chunk string) error

// Send implements Sink
func (f SinkFunc) Send(chunk string) error {
	return f(chunk)
}

// Relay bridges an OpenAI-style chat-completions API to a downstream
// consumer, fragment by fragment, without buffering whole answers. It holds
// no cross-request state; each invocation owns its own stream session.
type Relay struct {
	cfg          config.ChatConfig
	httpClient   *http.Client // single-shot completions
	streamClient *http.Client // streaming completions, longer deadline
	logger       *zap.Logger
}

// NewRelay creates a new completion relay
func NewRelay(cfg config.ChatConfig, logger *zap.Logger) *Relay {
	return &Relay{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		streamClient: &http.Client{
			Timeout: cfg.StreamTimeout,
		},
		logger: logger,
	}
}

type completionRequest struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	Stream      bool                 `json:"stream"`
	Temperature float64              `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type streamPayload struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type upstreamErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// StreamComplete opens a streaming completion for messages and forwards each
// decoded content fragment to sink in arrival order. It returns nil on the
// upstream [DONE] marker or a clean close, and a *RelayError on upstream
// failure, transport failure, or a sink write failure. Once the sink rejects
// a write no further upstream reads are attempted.
func (r *Relay) StreamComplete(ctx context.Context, messages []models.ChatMessage, sink Sink) error {
	sessionID := uuid.New()

	resp, err := r.openCompletion(ctx, r.streamClient, messages, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	r.logger.Debug("completion stream opened",
		zap.String("session_id", sessionID.String()),
		zap.Int("messages", len(messages)))

	var (
		buffer    string
		delivered int
		read      = make([]byte, 8192)
	)

	for {
		n, readErr := resp.Body.Read(read)

		if n > 0 {
			data := buffer + string(read[:n])
			lines := strings.Split(data, "\n")
			// The final segment may be an incomplete frame split across
			// network reads; retain it as the prefix of the next read.
			buffer = lines[len(lines)-1]

			for _, line := range lines[:len(lines)-1] {
				line = strings.TrimSpace(line)
				if line == "" || !strings.HasPrefix(line, dataPrefix) {
					continue
				}

				payload := line[len(dataPrefix):]
				if payload == doneMarker {
					r.logger.Debug("completion stream finished",
						zap.String("session_id", sessionID.String()),
						zap.Int("chunks", delivered))
					return nil
				}

				var chunk streamPayload
				if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
					// Keep-alive and comment frames are not fatal
					r.logger.Debug("skipping unparseable stream payload",
						zap.String("session_id", sessionID.String()),
						zap.String("payload", payload))
					continue
				}

				content := ""
				if len(chunk.Choices) > 0 {
					content = chunk.Choices[0].Delta.Content
				}
				if content == "" {
					continue
				}

				if err := sink.Send(content); err != nil {
					r.logger.Warn("sink rejected chunk, terminating stream",
						zap.String("session_id", sessionID.String()),
						zap.Int("chunks", delivered),
						zap.Error(err))
					return newRelayError(ErrCodeSinkClosed, "downstream sink closed", 0, err)
				}
				delivered++
			}
		}

		if readErr != nil {
			if readErr == io.EOF {
				// Clean close without [DONE] still terminates the stream
				// successfully; delivered chunks stand.
				return nil
			}
			return newRelayError(ErrCodeTransport, "completion stream read failed", 0, readErr)
		}
	}
}

// Complete performs a single-shot (non-streaming) completion and returns the
// answer text. A trailing {"topic": "..."} marker, when present and at most
// 25 characters, is extracted as the topic label and stripped from the text;
// its absence is not an error.
func (r *Relay) Complete(ctx context.Context, messages []models.ChatMessage) (string, string, error) {
	resp, err := r.openCompletion(ctx, r.httpClient, messages, false)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", newRelayError(ErrCodeTransport, "failed to read completion response", resp.StatusCode, err)
	}

	var completion completionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", "", newRelayError(ErrCodeUpstream, "failed to unmarshal completion response", resp.StatusCode, err)
	}

	content := ""
	if len(completion.Choices) > 0 {
		content = completion.Choices[0].Message.Content
	}

	content, topic := extractTopic(content)

	r.logger.Info("completion received",
		zap.Int("content_length", len(content)),
		zap.String("topic", topic))

	return content, topic, nil
}

// openCompletion issues the chat-completions request and returns the response
// for 2xx statuses; any other status is consumed and converted to a RelayError.
func (r *Relay) openCompletion(ctx context.Context, client *http.Client, messages []models.ChatMessage, stream bool) (*http.Response, error) {
	reqBody, err := json.Marshal(completionRequest{
		Model:       r.cfg.Model,
		Messages:    messages,
		Stream:      stream,
		Temperature: r.cfg.Temperature,
	})
	if err != nil {
		return nil, newRelayError(ErrCodeTransport, "failed to marshal completion request", 0, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return nil, newRelayError(ErrCodeTransport, "failed to create completion request", 0, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, newRelayError(ErrCodeTransport, "completion request failed", 0, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, r.handleErrorResponse(resp.StatusCode, body)
	}

	return resp, nil
}

// handleErrorResponse converts a non-2xx upstream reply into a RelayError,
// preferring the nested error message, then the error code, then a generic
// unavailable message.
func (r *Relay) handleErrorResponse(statusCode int, body []byte) error {
	message := fmt.Sprintf("chat service unavailable (status %d)", statusCode)

	var errResp upstreamErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		if errResp.Error.Message != "" {
			message = errResp.Error.Message
		} else if errResp.Error.Code != "" {
			message = "chat service error: " + errResp.Error.Code
		}
	}

	r.logger.Error("completion request rejected",
		zap.Int("status", statusCode),
		zap.String("message", message))

	return newRelayError(ErrCodeUpstream, message, statusCode, nil)
}

// extractTopic pulls a trailing topic marker off the completion text.
// Content comes back untouched unless a valid marker was extracted.
func extractTopic(content string) (string, string) {
	match := topicPattern.FindStringSubmatch(content)
	if match == nil {
		return content, ""
	}

	topic := match[1]
	if topic == "" || len([]rune(topic)) > maxTopicLength {
		return content, ""
	}

	stripped := strings.TrimSpace(topicPattern.ReplaceAllString(content, ""))
	return stripped, topic
}
