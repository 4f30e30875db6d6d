package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/znorris/claude-code-api/internal/chat"
	"github.com/znorris/claude-code-api/internal/claude"
	"github.com/znorris/claude-code-api/internal/openai"
)

// SessionHeader carries the caller's session id in and the resolved session
// id back out on every response, streaming or not.
const SessionHeader = "X-Session-ID"

func ListModels() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, openai.ModelsResponse{
			Object: "list",
			Data:   openai.ListModels(),
		})
	}
}

func ChatCompletions(svc *chat.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "invalid_request_error")
			return
		}
		if req.Model == "" {
			req.Model = openai.DefaultModel
		}
		if !openai.SupportedModel(req.Model) {
			writeError(w, http.StatusBadRequest, "model '"+req.Model+"' is not supported", "invalid_request_error")
			return
		}

		sessionID := svc.ResolveSession(r.Context(), r.Header.Get(SessionHeader))
		w.Header().Set(SessionHeader, sessionID)

		if req.Stream {
			streamChatCompletion(w, r, svc, req, sessionID, logger)
			return
		}

		resp, err := svc.Complete(r.Context(), req, sessionID)
		if err != nil {
			logger.Error().Err(err).Str("model", req.Model).Msg("chat completion failed")
			status, errType := classify(err)
			writeError(w, status, err.Error(), errType)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func streamChatCompletion(w http.ResponseWriter, r *http.Request, svc *chat.Service, req openai.ChatCompletionRequest, sessionID string, logger zerolog.Logger) {
	fl, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusBadRequest, "streaming not supported", "invalid_request_error")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	emit := func(data any) error {
		b, err := json.Marshal(data)
		if err != nil {
			return err
		}
		if _, err := w.Write([]byte("data: ")); err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
		if _, err := w.Write([]byte("\n\n")); err != nil {
			return err
		}
		fl.Flush()
		return nil
	}

	if err := svc.Stream(r.Context(), req, sessionID, emit); err != nil {
		// fail-open: the client already holds partial text, so the error
		// becomes one explicit frame on the stream instead of a torn
		// connection
		logger.Error().Err(err).Str("model", req.Model).Msg("streaming failed")
		_, errType := classify(err)
		_ = emit(openai.ErrorResponse{Error: openai.ErrorDetail{
			Message: err.Error(),
			Type:    errType,
		}})
	}

	_, _ = w.Write([]byte("data: [DONE]\n\n"))
	fl.Flush()
}

// classify maps the error taxonomy onto HTTP status and OpenAI error type.
func classify(err error) (int, string) {
	var (
		cfgErr     *claude.ConfigurationError
		valErr     *claude.ValidationError
		fetchErr   *claude.FetchError
		procErr    *claude.ProcessError
		timeoutErr *claude.TimeoutError
		protoErr   *claude.ProtocolError
		backendErr *claude.BackendError
	)
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &valErr):
		return http.StatusBadRequest, "invalid_request_error"
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout, "timeout_error"
	case errors.As(err, &fetchErr), errors.As(err, &procErr),
		errors.As(err, &protoErr), errors.As(err, &backendErr):
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal_server_error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, errType string) {
	writeJSON(w, status, openai.ErrorResponse{Error: openai.ErrorDetail{
		Message: msg,
		Type:    errType,
	}})
}
