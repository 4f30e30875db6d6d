package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/znorris/claude-code-api/internal/claude"
	"github.com/znorris/claude-code-api/internal/openai"
	"github.com/znorris/claude-code-api/internal/store"
)

// Backend runs one invocation of the external assistant.
type Backend interface {
	Complete(ctx context.Context, inv claude.Invocation) (claude.Result, error)
	Stream(ctx context.Context, inv claude.Invocation, onDelta func(text string) error) (claude.StreamOutcome, error)
}

// Service reconciles caller sessions with backend sessions and drives one
// full turn per request: translate, invoke, interpret, persist.
type Service struct {
	store       *store.Store
	backend     Backend
	translator  *claude.Translator
	ttl         time.Duration
	legacyInput bool
	log         zerolog.Logger
}

func NewService(st *store.Store, backend Backend, images *claude.ImageResolver, ttl time.Duration, log zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		store:      st,
		backend:    backend,
		translator: claude.NewTranslator(images),
		ttl:        ttl,
		log:        log,
	}
}

// UseLegacyInput switches invocations to flat-prompt mode for claude builds
// that do not accept stream-json on stdin. The whole conversation is resent
// as text each turn instead of relying on backend session resume.
func (s *Service) UseLegacyInput(enable bool) { s.legacyInput = enable }

// ResolveSession returns a usable session id. Absent, unknown, malformed or
// expired ids all degrade to a freshly minted session; store failures do
// too, since session bookkeeping must never fail a completion.
func (s *Service) ResolveSession(ctx context.Context, callerID string) string {
	if callerID != "" {
		ok, err := s.store.Sessions().Exists(ctx, callerID)
		if err != nil {
			s.log.Warn().Err(err).Str("session", callerID).Msg("session lookup failed, minting new session")
		} else if ok {
			if err := s.store.Sessions().Touch(ctx, callerID); err != nil {
				s.log.Warn().Err(err).Str("session", callerID).Msg("session touch failed")
			}
			return callerID
		}
	}
	id := uuid.NewString()
	if err := s.store.Sessions().Create(ctx, id, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("session", id).Msg("session create failed, continuing without persistence")
	}
	return id
}

// Complete handles a blocking turn for an already-resolved session.
func (s *Service) Complete(ctx context.Context, req openai.ChatCompletionRequest, sessionID string) (openai.ChatCompletionResponse, error) {
	inv, empty, err := s.prepare(ctx, req, sessionID)
	if err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	if empty {
		// nothing to translate: a no-op result, not a failure
		return s.response(req.Model, "", claude.Result{}), nil
	}

	res, err := s.backend.Complete(ctx, inv)
	if err != nil {
		return openai.ChatCompletionResponse{}, err
	}

	s.persistTurn(ctx, sessionID, req.Messages, res.Text, res.SessionID)
	return s.response(req.Model, res.Text, res), nil
}

// Stream handles a streaming turn, emitting OpenAI chunk objects through
// emit as backend deltas arrive. The turn is persisted only once the result
// event completed it.
func (s *Service) Stream(ctx context.Context, req openai.ChatCompletionRequest, sessionID string, emit func(any) error) error {
	id := completionID()
	created := time.Now().Unix()

	inv, empty, err := s.prepare(ctx, req, sessionID)
	if err != nil {
		return err
	}
	if empty {
		return emit(finalChunk(id, created, req.Model))
	}

	out, err := s.backend.Stream(ctx, inv, func(text string) error {
		return emit(deltaChunk(id, created, req.Model, text))
	})
	if err != nil {
		return err
	}

	s.persistTurn(ctx, sessionID, req.Messages, out.Text, out.SessionID)
	return emit(finalChunk(id, created, req.Model))
}

// prepare loads history, translates the request and attaches the stored
// resume token. empty means there was no user turn at all.
func (s *Service) prepare(ctx context.Context, req openai.ChatCompletionRequest, sessionID string) (inv claude.Invocation, empty bool, err error) {
	// History is a bookkeeping prefix for latest-user selection only; the
	// backend already knows prior turns through session resume.
	history, herr := s.store.Messages().History(ctx, sessionID)
	if herr != nil {
		s.log.Warn().Err(herr).Str("session", sessionID).Msg("history load failed")
	}
	effective := make([]openai.ChatMessage, 0, len(history)+len(req.Messages))
	for _, m := range history {
		effective = append(effective, openai.ChatMessage{Role: m.Role, Content: openai.Text(m.Content)})
	}
	effective = append(effective, req.Messages...)

	backendSID, berr := s.store.Sessions().BackendSessionID(ctx, sessionID)
	if berr != nil && !errors.Is(berr, store.ErrNotFound) {
		s.log.Warn().Err(berr).Str("session", sessionID).Msg("backend session lookup failed")
	}

	if s.legacyInput {
		if !hasUserTurn(effective) {
			return claude.Invocation{}, true, nil
		}
		return claude.Invocation{
			Model:            req.Model,
			BackendSessionID: backendSID,
			LegacyPrompt:     claude.FlattenPrompt(effective),
		}, false, nil
	}

	input, terr := s.translator.BuildUserInput(ctx, effective)
	if terr != nil {
		var cfgErr *claude.ConfigurationError
		if errors.As(terr, &cfgErr) {
			return claude.Invocation{}, true, nil
		}
		return claude.Invocation{}, false, terr
	}

	payload, merr := json.Marshal(input)
	if merr != nil {
		return claude.Invocation{}, false, merr
	}

	return claude.Invocation{
		Model:            req.Model,
		BackendSessionID: backendSID,
		Input:            payload,
	}, false, nil
}

func hasUserTurn(messages []openai.ChatMessage) bool {
	for _, m := range messages {
		if m.Role == openai.RoleUser {
			return true
		}
	}
	return false
}

// persistTurn appends the caller's new messages and the assistant reply in
// order, and binds the backend session token on the first successful turn.
func (s *Service) persistTurn(ctx context.Context, sessionID string, submitted []openai.ChatMessage, reply, backendSID string) {
	if backendSID != "" {
		if err := s.store.Sessions().SetBackendSessionID(ctx, sessionID, backendSID); err != nil {
			s.log.Warn().Err(err).Str("session", sessionID).Msg("backend session bind failed")
		}
	}
	for _, m := range submitted {
		if err := s.store.Messages().Append(ctx, sessionID, m.Role, m.Content.HistoryText()); err != nil {
			s.log.Warn().Err(err).Str("session", sessionID).Msg("message append failed")
		}
	}
	if err := s.store.Messages().Append(ctx, sessionID, openai.RoleAssistant, reply); err != nil {
		s.log.Warn().Err(err).Str("session", sessionID).Msg("assistant append failed")
	}
}

func (s *Service) response(model, content string, res claude.Result) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		ID:      completionID(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []openai.ChatCompletionChoice{{
			Index:        0,
			Message:      openai.ResponseMessage{Role: openai.RoleAssistant, Content: content},
			FinishReason: "stop",
		}},
		Usage: openai.Usage{
			PromptTokens:     res.InputTokens,
			CompletionTokens: res.OutputTokens,
			TotalTokens:      res.InputTokens + res.OutputTokens,
		},
	}
}

func deltaChunk(id string, created int64, model, text string) openai.ChatCompletionChunk {
	return openai.ChatCompletionChunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: created,
		Model:   model,
		Choices: []openai.ChunkChoice{{Index: 0, Delta: openai.ChunkDelta{Content: text}}},
	}
}

func finalChunk(id string, created int64, model string) openai.ChatCompletionChunk {
	return openai.ChatCompletionChunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: created,
		Model:   model,
		Choices: []openai.ChunkChoice{{Index: 0, FinishReason: "stop"}},
	}
}

func completionID() string {
	return "chatcmpl-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:29]
}
