//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hybridrag/corerag/internal/apperror"
	"github.com/hybridrag/corerag/internal/config"
	"github.com/hybridrag/corerag/internal/course"
	"github.com/hybridrag/corerag/internal/envelope"
	"github.com/hybridrag/corerag/internal/qcm"
	"github.com/hybridrag/corerag/internal/ragengine"
	"github.com/hybridrag/corerag/internal/registry"
)

// feature identifies which of the three chat-completions surfaces (§6) a
// request landed on; it only changes the models list, never the framing.
type feature string

const (
	featureRAG    feature = "rag"
	featureCourse feature = "course"
	featureQCM    feature = "qcm"
)

// Per-request wall-clock budgets.
const (
	ragDeadline    = 60 * time.Second
	courseDeadline = 10 * time.Minute
	qcmDeadline    = 5 * time.Minute
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// chatMessage mirrors the OpenAI chat message shape used by the inbound
// chat-completions request.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionRequest is the inbound request body for all three
// `/api/chat/completions` endpoints. TopK is an extension field specific
// to the RAG surface; OpenAI-compatible clients that omit it get the
// configured default. A pointer distinguishes "absent" from an explicit
// top_k of 0, which is a schema violation.
type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	TopK     *int          `json:"top_k,omitempty"`
}

// modelObject is one entry in an OpenAI-style GET .../api/models listing.
type modelObject struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

type modelsResponse struct {
	Object string        `json:"object"`
	Data   []modelObject `json:"data"`
}

// handleHealth handles the GET /healthz endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleModels returns the collection registry as a models listing; every
// feature surface shares the same registry.
func (s *Server) handleModels(_ feature) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names := s.registry.Names()
		data := make([]modelObject, 0, len(names))
		for _, name := range names {
			data = append(data, modelObject{ID: name, Object: "model", OwnedBy: "hybridrag"})
		}
		s.respondJSON(w, http.StatusOK, modelsResponse{Object: "list", Data: data})
	}
}

// decodeChatRequest parses and minimally validates the inbound body,
// returning a malformed-request app error on schema violations.
func decodeChatRequest(r *http.Request) (chatCompletionRequest, error) {
	var req chatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, apperror.Wrap(apperror.CodeMalformedRequest, "invalid request body", err)
	}
	if req.Model == "" {
		return req, apperror.New(apperror.CodeMalformedRequest, "model is required")
	}
	if lastUserMessage(req.Messages) == "" {
		return req, apperror.New(apperror.CodeMalformedRequest, "at least one user message is required")
	}
	if req.TopK != nil && *req.TopK < 1 {
		return req, apperror.New(apperror.CodeMalformedRequest, "top_k must be at least 1")
	}
	return req, nil
}

// lastUserMessage returns the content of the last message with role
// "user", or "" if there is none.
func lastUserMessage(messages []chatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}

// userMessages returns the content of every message with role "user", in
// order, for replaying the QCM conversation state machine over history.
func userMessages(messages []chatMessage) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.Role == "user" {
			out = append(out, strings.TrimSpace(m.Content))
		}
	}
	return out
}

// resolveCollection reports a BadRequest UnknownCollection error response
// and returns false if name isn't registered.
func (s *Server) resolveCollection(w http.ResponseWriter, name string) bool {
	if _, err := s.registry.Resolve(name); errors.Is(err, registry.ErrUnknownCollection) {
		s.respondError(w, http.StatusBadRequest, string(apperror.CodeUnknownCollection), "unknown collection: "+name)
		return false
	}
	return true
}

// handleRAGChat handles POST /rag/api/chat/completions.
func (s *Server) handleRAGChat(w http.ResponseWriter, r *http.Request) {
	req, err := decodeChatRequest(r)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	if !s.resolveCollection(w, req.Model) {
		return
	}

	topK := 0 // 0 lets the engine fall back to its configured default
	if req.TopK != nil {
		topK = config.ClampTopK(*req.TopK, 0)
	}
	question := lastUserMessage(req.Messages)

	ctx, cancel := context.WithTimeout(r.Context(), ragDeadline)
	defer cancel()

	events, errs := s.rag.StreamRAG(ctx, req.Model, question, topK)
	s.streamRAGEvents(w, req.Model, req.Stream, events, errs)
}

// handleCourseChat handles POST /course/api/chat/completions. The subject
// is the last user message; no parameter-collection phase applies.
func (s *Server) handleCourseChat(w http.ResponseWriter, r *http.Request) {
	req, err := decodeChatRequest(r)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	if !s.resolveCollection(w, req.Model) {
		return
	}

	subject := lastUserMessage(req.Messages)

	ctx, cancel := context.WithTimeout(r.Context(), courseDeadline)
	defer cancel()

	events, errs := s.course.Generate(ctx, req.Model, subject)
	s.streamCourseEvents(w, req.Model, req.Stream, events, errs)
}

// handleQCMChat handles POST /qcm/api/chat/completions. It replays the
// conversation's prior user turns through the state manager (a pure
// function of the message history) to recover the current phase, applies
// the latest turn, and either re-prompts or launches generation.
func (s *Server) handleQCMChat(w http.ResponseWriter, r *http.Request) {
	req, err := decodeChatRequest(r)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	turns := userMessages(req.Messages)
	if len(turns) == 0 {
		s.respondError(w, http.StatusBadRequest, string(apperror.CodeMalformedRequest), "at least one user message is required")
		return
	}

	state := qcm.NewState()
	var prompt string
	for _, turn := range turns {
		state, prompt = qcm.Advance(state, turn)
	}

	if state.Phase != qcm.PhaseRunning {
		s.respondSimpleContent(w, req.Model, req.Stream, prompt)
		return
	}
	if !s.resolveCollection(w, req.Model) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), qcmDeadline)
	defer cancel()

	events, errs := s.qcm.Generate(ctx, req.Model, state.Topic, state.Difficulty, state.Count)
	s.streamQCMEvents(w, req.Model, req.Stream, events, errs)
}

// respondSimpleContent emits a single content event, used for the QCM
// parameter-collection re-prompts which never touch the LLM or retrieval.
func (s *Server) respondSimpleContent(w http.ResponseWriter, model string, stream bool, text string) {
	if !stream {
		s.respondJSON(w, http.StatusOK, simpleCompletion(model, text))
		return
	}

	wr, err := envelope.NewWriter(w, uuid.NewString(), model, time.Now())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "STREAMING_ERROR", "streaming not supported")
		return
	}
	_ = wr.Role()
	_ = wr.Content(text)
	_ = wr.Done(nil)
}

// streamRAGEvents drains the RAG engine's event channel to the client,
// either as SSE chunks or, for a non-streaming request, as one buffered
// completion.
func (s *Server) streamRAGEvents(w http.ResponseWriter, model string, stream bool, events <-chan ragengine.Event, errs <-chan error) {
	if !stream {
		var content strings.Builder
		for ev := range events {
			if ev.Kind == ragengine.EventContent {
				content.WriteString(ev.Text)
			}
		}
		if err := <-errs; err != nil {
			s.respondAppError(w, err)
			return
		}
		s.respondJSON(w, http.StatusOK, simpleCompletion(model, content.String()))
		return
	}

	wr, werr := envelope.NewWriter(w, uuid.NewString(), model, time.Now())
	if werr != nil {
		s.respondError(w, http.StatusInternalServerError, "STREAMING_ERROR", "streaming not supported")
		return
	}
	_ = wr.Role()

	var sources any
	for ev := range events {
		switch ev.Kind {
		case ragengine.EventProgress:
			_ = wr.Progress(ev.Text)
		case ragengine.EventContent:
			_ = wr.Content(ev.Text)
		case ragengine.EventDone:
			sources = ev.Sources
		}
	}
	if err := <-errs; err != nil {
		_ = wr.Content("\n\n_Error: " + err.Error() + "_")
	}
	_ = wr.Done(sources)
}

// streamCourseEvents mirrors streamRAGEvents for the course orchestrator's
// event vocabulary.
func (s *Server) streamCourseEvents(w http.ResponseWriter, model string, stream bool, events <-chan course.Event, errs <-chan error) {
	if !stream {
		var content strings.Builder
		for ev := range events {
			if ev.Kind == course.EventContent {
				content.WriteString(ev.Text)
			}
		}
		if err := <-errs; err != nil {
			s.respondAppError(w, err)
			return
		}
		s.respondJSON(w, http.StatusOK, simpleCompletion(model, content.String()))
		return
	}

	wr, werr := envelope.NewWriter(w, uuid.NewString(), model, time.Now())
	if werr != nil {
		s.respondError(w, http.StatusInternalServerError, "STREAMING_ERROR", "streaming not supported")
		return
	}
	_ = wr.Role()

	var sources any
	for ev := range events {
		switch ev.Kind {
		case course.EventProgress:
			_ = wr.Progress(ev.Text)
		case course.EventContent:
			_ = wr.Content(ev.Text)
		case course.EventDone:
			sources = ev.Sources
		}
	}
	if err := <-errs; err != nil {
		_ = wr.Content("\n\n_Error: " + err.Error() + "_")
	}
	_ = wr.Done(sources)
}

// streamQCMEvents mirrors streamRAGEvents for the QCM orchestrator, whose
// event vocabulary carries no terminal Sources field — the generated
// markdown already embeds the fileserver link.
func (s *Server) streamQCMEvents(w http.ResponseWriter, model string, stream bool, events <-chan qcm.Event, errs <-chan error) {
	if !stream {
		var content strings.Builder
		for ev := range events {
			if ev.Kind == qcm.EventContent {
				content.WriteString(ev.Text)
			}
		}
		if err := <-errs; err != nil {
			s.respondAppError(w, err)
			return
		}
		s.respondJSON(w, http.StatusOK, simpleCompletion(model, content.String()))
		return
	}

	wr, werr := envelope.NewWriter(w, uuid.NewString(), model, time.Now())
	if werr != nil {
		s.respondError(w, http.StatusInternalServerError, "STREAMING_ERROR", "streaming not supported")
		return
	}
	_ = wr.Role()

	for ev := range events {
		switch ev.Kind {
		case qcm.EventProgress:
			_ = wr.Progress(ev.Text)
		case qcm.EventContent:
			_ = wr.Content(ev.Text)
		}
	}
	if err := <-errs; err != nil {
		_ = wr.Content("\n\n_Error: " + err.Error() + "_")
	}
	_ = wr.Done(nil)
}

// simpleCompletion builds a non-streaming OpenAI-style chat completion
// response for a single assistant message.
func simpleCompletion(model, content string) map[string]any {
	return map[string]any{
		"id":      uuid.NewString(),
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]string{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
	}
}

// respondJSON sends a JSON response with a Link header pointing at the
// OpenAPI document, so API-discovery clients can follow RFC 8631.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Link", `</v1/openapi.json>; rel="service-desc"`)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// respondError sends an error response.
func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// respondAppError maps a typed apperror.Error to its HTTP status. Only
// pre-stream failures reach here; once bytes are on the wire, errors go
// in-band via the stream.
func (s *Server) respondAppError(w http.ResponseWriter, err error) {
	code := apperror.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case apperror.CodeUnknownCollection, apperror.CodeMalformedRequest:
		status = http.StatusBadRequest
	case apperror.CodeAuthMissing, apperror.CodeAuthInvalid:
		status = http.StatusUnauthorized
	case apperror.CodeRetrievalUnavailable:
		status = http.StatusServiceUnavailable
	case apperror.CodeDeadlineExceeded:
		status = http.StatusGatewayTimeout
	}
	s.respondError(w, status, string(code), err.Error())
}
