package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/znorris/claude-code-api/internal/chat"
	"github.com/znorris/claude-code-api/internal/claude"
	"github.com/znorris/claude-code-api/internal/db"
	"github.com/znorris/claude-code-api/internal/openai"
	"github.com/znorris/claude-code-api/internal/store"
)

type stubBackend struct {
	result claude.Result
	deltas []string
	err    error
}

func (s *stubBackend) Complete(ctx context.Context, inv claude.Invocation) (claude.Result, error) {
	if s.err != nil {
		return claude.Result{}, s.err
	}
	return s.result, nil
}

func (s *stubBackend) Stream(ctx context.Context, inv claude.Invocation, onDelta func(string) error) (claude.StreamOutcome, error) {
	if s.err != nil {
		return claude.StreamOutcome{}, s.err
	}
	var text string
	for _, d := range s.deltas {
		if err := onDelta(d); err != nil {
			return claude.StreamOutcome{}, err
		}
		text += d
	}
	return claude.StreamOutcome{Text: text, SessionID: s.result.SessionID, SawResult: true}, nil
}

func newTestHandler(t *testing.T, backend chat.Backend) http.HandlerFunc {
	t.Helper()
	conn := db.MustOpen(filepath.Join(t.TempDir(), "sessions.db"))
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.Migrate(context.Background(), conn))
	svc := chat.NewService(store.New(conn), backend, claude.NewImageResolver(), time.Hour, zerolog.Nop())
	return ChatCompletions(svc, zerolog.Nop())
}

func postCompletion(t *testing.T, h http.HandlerFunc, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewBufferString(body))
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestChatCompletionsBlocking(t *testing.T) {
	t.Run("returns the aggregate response with a session header", func(t *testing.T) {
		h := newTestHandler(t, &stubBackend{result: claude.Result{
			Text:         "Hi Alice",
			InputTokens:  10,
			OutputTokens: 2,
			SessionID:    "backend-1",
		}})

		rec := postCompletion(t, h, `{"model":"sonnet","messages":[{"role":"user","content":"My name is Alice"}]}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get(SessionHeader))

		var resp openai.ChatCompletionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "chat.completion", resp.Object)
		require.Len(t, resp.Choices, 1)
		assert.Equal(t, "Hi Alice", resp.Choices[0].Message.Content)
		assert.Equal(t, 12, resp.Usage.TotalTokens)
	})

	t.Run("a bogus session id is replaced, not echoed", func(t *testing.T) {
		h := newTestHandler(t, &stubBackend{result: claude.Result{Text: "ok"}})

		header := http.Header{}
		header.Set(SessionHeader, "invalid-uuid")
		rec := postCompletion(t, h, `{"model":"sonnet","messages":[{"role":"user","content":"hi"}]}`, header)
		require.Equal(t, http.StatusOK, rec.Code)
		got := rec.Header().Get(SessionHeader)
		assert.NotEmpty(t, got)
		assert.NotEqual(t, "invalid-uuid", got)
	})

	t.Run("unsupported models are rejected before any backend work", func(t *testing.T) {
		h := newTestHandler(t, &stubBackend{err: &claude.ProcessError{ExitCode: 1}})
		rec := postCompletion(t, h, `{"model":"gpt-4","messages":[{"role":"user","content":"hi"}]}`, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var body openai.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "invalid_request_error", body.Error.Type)
	})

	t.Run("invalid json is a 400", func(t *testing.T) {
		h := newTestHandler(t, &stubBackend{})
		rec := postCompletion(t, h, `{"model":`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("backend process failure is a 502 with a structured body", func(t *testing.T) {
		h := newTestHandler(t, &stubBackend{err: &claude.ProcessError{ExitCode: 1, Stderr: "boom"}})
		rec := postCompletion(t, h, `{"model":"sonnet","messages":[{"role":"user","content":"hi"}]}`, nil)
		require.Equal(t, http.StatusBadGateway, rec.Code)

		var body openai.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "upstream_error", body.Error.Type)
		assert.Contains(t, body.Error.Message, "boom")
	})

	t.Run("timeouts map to 504", func(t *testing.T) {
		h := newTestHandler(t, &stubBackend{err: &claude.TimeoutError{Budget: 30 * time.Second}})
		rec := postCompletion(t, h, `{"model":"sonnet","messages":[{"role":"user","content":"hi"}]}`, nil)
		assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	})
}

func sseDataLines(t *testing.T, body string) []string {
	t.Helper()
	var out []string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "data: ") {
			out = append(out, strings.TrimPrefix(line, "data: "))
		}
	}
	return out
}

func TestChatCompletionsStreaming(t *testing.T) {
	t.Run("emits delta frames, a stop frame and the end marker", func(t *testing.T) {
		h := newTestHandler(t, &stubBackend{
			deltas: []string{"Hi ", "Alice"},
			result: claude.Result{SessionID: "backend-1"},
		})

		rec := postCompletion(t, h, `{"model":"sonnet","stream":true,"messages":[{"role":"user","content":"My name is Alice"}]}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
		assert.NotEmpty(t, rec.Header().Get(SessionHeader))

		frames := sseDataLines(t, rec.Body.String())
		require.Len(t, frames, 4)
		assert.Equal(t, "[DONE]", frames[3])

		var text string
		for _, f := range frames[:2] {
			var chunk openai.ChatCompletionChunk
			require.NoError(t, json.Unmarshal([]byte(f), &chunk))
			assert.Equal(t, "chat.completion.chunk", chunk.Object)
			text += chunk.Choices[0].Delta.Content
		}
		assert.Equal(t, "Hi Alice", text)

		var final openai.ChatCompletionChunk
		require.NoError(t, json.Unmarshal([]byte(frames[2]), &final))
		assert.Equal(t, "stop", final.Choices[0].FinishReason)
	})

	t.Run("mid-stream failure appends one error frame before the end marker", func(t *testing.T) {
		h := newTestHandler(t, &stubBackend{err: &claude.ProtocolError{Reason: "no result found"}})

		rec := postCompletion(t, h, `{"model":"sonnet","stream":true,"messages":[{"role":"user","content":"hi"}]}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		frames := sseDataLines(t, rec.Body.String())
		require.Len(t, frames, 2)
		assert.Equal(t, "[DONE]", frames[1])

		var body openai.ErrorResponse
		require.NoError(t, json.Unmarshal([]byte(frames[0]), &body))
		assert.Contains(t, body.Error.Message, "no result found")
	})
}

func TestListModels(t *testing.T) {
	rec := httptest.NewRecorder()
	ListModels()(rec, httptest.NewRequest(http.MethodGet, "/v1/models", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp openai.ModelsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "list", resp.Object)
	require.NotEmpty(t, resp.Data)
	assert.Equal(t, "sonnet", resp.Data[0].ID)
}
