package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bscm/assistant-backend/config"
	"github.com/bscm/assistant-backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testChatConfig(baseURL string) config.ChatConfig {
	return config.ChatConfig{
		APIKey:      "test-key",
		BaseURL:     baseURL,
		Model:       "gpt-4o-mini",
		Temperature: 0.7,
	}
}

func newTestRelay(t *testing.T, baseURL string) *Relay {
	t.Helper()
	return NewRelay(testChatConfig(baseURL), zaptest.NewLogger(t))
}

type collectingSink struct {
	chunks  []string
	failAt  int // fail on the n-th Send (1-based), 0 means never
	sendErr error
}

func (s *collectingSink) Send(chunk string) error {
	if s.failAt > 0 && len(s.chunks)+1 >= s.failAt {
		return s.sendErr
	}
	s.chunks = append(s.chunks, chunk)
	return nil
}

func deltaFrame(content string) string {
	return fmt.Sprintf(`data: {"choices":[{"delta":{"content":%q}}]}`, content) + "\n\n"
}

func TestStreamCompleteReassemblesSplitFrames(t *testing.T) {
	frame := deltaFrame("AB")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		assert.InDelta(t, 0.7, req.Temperature, 1e-9)

		flusher, ok := w.(http.Flusher)
		require.True(t, ok)

		// Split one SSE frame across two network writes
		fmt.Fprint(w, frame[:12])
		flusher.Flush()
		fmt.Fprint(w, frame[12:])
		flusher.Flush()
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	sink := &collectingSink{}
	err := newTestRelay(t, server.URL).StreamComplete(context.Background(), []models.ChatMessage{
		models.UserMessage("你好"),
	}, sink)

	require.NoError(t, err)
	assert.Equal(t, []string{"AB"}, sink.chunks)
}

func TestStreamCompleteStopsAtDoneMarker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, deltaFrame("first"))
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, deltaFrame("after done"))
	}))
	defer server.Close()

	sink := &collectingSink{}
	err := newTestRelay(t, server.URL).StreamComplete(context.Background(), []models.ChatMessage{
		models.UserMessage("hi"),
	}, sink)

	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, sink.chunks)
}

func TestStreamCompleteCleanCloseWithoutDone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, deltaFrame("only"))
	}))
	defer server.Close()

	sink := &collectingSink{}
	err := newTestRelay(t, server.URL).StreamComplete(context.Background(), []models.ChatMessage{
		models.UserMessage("hi"),
	}, sink)

	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, sink.chunks)
}

func TestStreamCompleteSkipsUnparseablePayloads(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: not json at all\n\n")
		fmt.Fprint(w, ": keep-alive comment\n\n")
		fmt.Fprint(w, deltaFrame("survived"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	sink := &collectingSink{}
	err := newTestRelay(t, server.URL).StreamComplete(context.Background(), []models.ChatMessage{
		models.UserMessage("hi"),
	}, sink)

	require.NoError(t, err)
	assert.Equal(t, []string{"survived"}, sink.chunks)
}

func TestStreamCompleteUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited"}}`)
	}))
	defer server.Close()

	sink := &collectingSink{}
	err := newTestRelay(t, server.URL).StreamComplete(context.Background(), []models.ChatMessage{
		models.UserMessage("hi"),
	}, sink)

	require.Error(t, err)
	var relayErr *RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, ErrCodeUpstream, relayErr.Code)
	assert.Equal(t, http.StatusTooManyRequests, relayErr.StatusCode)
	assert.Equal(t, "rate limited", relayErr.Message)
	assert.Empty(t, sink.chunks)
}

func TestStreamCompleteUpstreamErrorUnparseableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream exploded")
	}))
	defer server.Close()

	err := newTestRelay(t, server.URL).StreamComplete(context.Background(), []models.ChatMessage{
		models.UserMessage("hi"),
	}, &collectingSink{})

	var relayErr *RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, "chat service unavailable (status 502)", relayErr.Message)
}

func TestStreamCompleteSinkFailureStopsReading(t *testing.T) {
	served := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 1; i <= 5; i++ {
			fmt.Fprint(w, deltaFrame(fmt.Sprintf("chunk-%d", i)))
			flusher.Flush()
			served++
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	sinkErr := errors.New("client went away")
	sink := &collectingSink{failAt: 3, sendErr: sinkErr}
	err := newTestRelay(t, server.URL).StreamComplete(context.Background(), []models.ChatMessage{
		models.UserMessage("hi"),
	}, sink)

	require.Error(t, err)
	assert.True(t, IsSinkClosed(err))
	assert.ErrorIs(t, err, sinkErr)
	assert.Equal(t, []string{"chunk-1", "chunk-2"}, sink.chunks)
}

func TestStreamCompleteContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, deltaFrame("never"))
	}))
	defer server.Close()

	err := newTestRelay(t, server.URL).StreamComplete(ctx, []models.ChatMessage{
		models.UserMessage("hi"),
	}, &collectingSink{})

	require.Error(t, err)
	var relayErr *RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, ErrCodeTransport, relayErr.Code)
}

func TestCompleteExtractsTopicMarker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{
					"content": "蛛网膜下腔出血需要立即就医。\n\n{\"topic\": \"蛛网膜下腔出血\"}",
				}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	content, topic, err := newTestRelay(t, server.URL).Complete(context.Background(), []models.ChatMessage{
		models.UserMessage("什么是蛛网膜下腔出血?"),
	})

	require.NoError(t, err)
	assert.Equal(t, "蛛网膜下腔出血", topic)
	assert.Equal(t, "蛛网膜下腔出血需要立即就医。", content)
}

func TestCompleteTopicMarkerEdgeCases(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantContent string
		wantTopic   string
	}{
		{
			name:        "no marker",
			content:     "plain answer",
			wantContent: "plain answer",
			wantTopic:   "",
		},
		{
			name:        "no marker keeps surrounding whitespace",
			content:     "  answer with padding  \n",
			wantContent: "  answer with padding  \n",
			wantTopic:   "",
		},
		{
			name:        "marker not at end is kept",
			content:     `{"topic": "early"} followed by text`,
			wantContent: `{"topic": "early"} followed by text`,
			wantTopic:   "",
		},
		{
			name:        "case insensitive key",
			content:     `answer {"TOPIC": "Stroke"}`,
			wantContent: "answer",
			wantTopic:   "Stroke",
		},
		{
			name:        "overlong topic ignored",
			content:     `answer {"topic": "` + "一二三四五六七八九十一二三四五六七八九十一二三四五六" + `"}`,
			wantContent: `answer {"topic": "` + "一二三四五六七八九十一二三四五六七八九十一二三四五六" + `"}`,
			wantTopic:   "",
		},
		{
			name:        "whitespace inside marker",
			content:     "answer { \"topic\" : \"简短\" }  ",
			wantContent: "answer",
			wantTopic:   "简短",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotContent, gotTopic := extractTopic(tt.content)
			assert.Equal(t, tt.wantContent, gotContent)
			assert.Equal(t, tt.wantTopic, gotTopic)
		})
	}
}

func TestCompleteUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"code":"invalid_api_key"}}`)
	}))
	defer server.Close()

	_, _, err := newTestRelay(t, server.URL).Complete(context.Background(), []models.ChatMessage{
		models.UserMessage("hi"),
	})

	var relayErr *RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, "chat service error: invalid_api_key", relayErr.Message)
	assert.Equal(t, http.StatusUnauthorized, relayErr.StatusCode)
}

func TestCompleteEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer server.Close()

	content, topic, err := newTestRelay(t, server.URL).Complete(context.Background(), []models.ChatMessage{
		models.UserMessage("hi"),
	})

	require.NoError(t, err)
	assert.Empty(t, content)
	assert.Empty(t, topic)
}
