// Package http exposes wizard sessions over a JSON API and serves the remote
// uniqueness check consumed by ValidatorClient.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/storewizard"
	"github.com/aretw0/storewizard/internal/logging"
	"github.com/aretw0/storewizard/internal/runtime"
	"github.com/aretw0/storewizard/pkg/domain"
	"github.com/aretw0/storewizard/pkg/ports"
	"github.com/aretw0/storewizard/pkg/session"
	"github.com/go-chi/chi/v5"
)

// Server routes API requests to the session manager.
type Server struct {
	Sessions  *session.Manager
	Validator ports.RemoteValidator
	Streams   *StreamManager

	logger   *slog.Logger
	validate bool
}

// Option configures the Server.
type Option func(*Server)

// WithRemoteValidator serves POST /validate/unique from v.
func WithRemoteValidator(v ports.RemoteValidator) Option {
	return func(s *Server) {
		s.Validator = v
	}
}

// WithStreams shares a stream manager whose Hooks are registered on the engine.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRequestValidation toggles OpenAPI request validation. Enabled by default.
func WithRequestValidation(enabled bool) Option {
	return func(s *Server) {
		s.validate = enabled
	}
}

// NewServer creates a server over sessions.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		Sessions: sessions,
		logger:   logging.NewNop(),
		validate: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}
	return s
}

// NewHandler creates the HTTP handler for sessions.
func NewHandler(sessions *session.Manager, opts ...Option) (http.Handler, error) {
	return NewServer(sessions, opts...).Handler()
}

// Handler builds the router.
func (s *Server) Handler() (http.Handler, error) {
	doc, err := GetSpec()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(RawSpec())
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})

	r.Group(func(r chi.Router) {
		if s.validate {
			r.Use(validateRequest(doc))
		}
		r.Get("/health", s.GetHealth)
		r.Get("/info", s.GetInfo)
		r.Get("/sessions", s.ListSessions)
		r.Post("/sessions/{key}", s.OpenSession)
		r.Get("/sessions/{key}", s.GetSession)
		r.Delete("/sessions/{key}", s.CloseSession)
		r.Patch("/sessions/{key}/draft", s.UpdateDraft)
		r.Post("/sessions/{key}/next", s.GoNext)
		r.Post("/sessions/{key}/back", s.GoBack)
		r.Post("/sessions/{key}/jump", s.JumpTo)
		r.Post("/sessions/{key}/template", s.ApplyTemplate)
		r.Post("/sessions/{key}/resume", s.Resume)
		r.Post("/sessions/{key}/discard", s.Discard)
		r.Post("/sessions/{key}/submit", s.Submit)
		r.Get("/sessions/{key}/events", s.SubscribeEvents)
		r.Post("/validate/unique", s.CheckUnique)
	})

	return enableCORS(r), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>storewizard API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// NavigationResponse is returned by next, back and jump.
type NavigationResponse struct {
	Moved    bool                 `json:"moved"`
	Snapshot storewizard.Snapshot `json:"snapshot"`
}

// SubmitResponse is returned by submit.
type SubmitResponse struct {
	Result   *domain.SubmissionResult `json:"result,omitempty"`
	Snapshot storewizard.Snapshot     `json:"snapshot"`
	Error    string                   `json:"error,omitempty"`
}

// UniqueRequest is the body of POST /validate/unique.
type UniqueRequest struct {
	Scope   domain.ScopeKind `json:"scope"`
	ScopeID string           `json:"scope_id,omitempty"`
	Field   string           `json:"field"`
	Value   any              `json:"value"`
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := GetSpec(); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "storewizard-http",
		"version":     strings.TrimSpace(storewizard.Version),
		"api_version": apiVersion,
	})
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": s.Sessions.List()})
}

// OpenSession handles POST /sessions/{key}.
func (s *Server) OpenSession(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.Sessions.Open(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.fail(w, r, "open", err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Snapshot())
}

// GetSession handles GET /sessions/{key}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.Sessions.Get(chi.URLParam(r, "key"))
	if err != nil {
		s.fail(w, r, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Snapshot())
}

// CloseSession handles DELETE /sessions/{key}.
func (s *Server) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Close(r.Context(), chi.URLParam(r, "key")); err != nil {
		s.fail(w, r, "close", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateDraft handles PATCH /sessions/{key}/draft.
func (s *Server) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	var partial map[string]any
	if !decodeBody(w, r, &partial) {
		return
	}
	s.withSession(w, r, "update", func(ctx context.Context, ctrl *runtime.Controller) (any, error) {
		if err := ctrl.UpdateDraft(partial); err != nil {
			return nil, err
		}
		return ctrl.Snapshot(), nil
	})
}

// GoNext handles POST /sessions/{key}/next.
func (s *Server) GoNext(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, "next", func(ctx context.Context, ctrl *runtime.Controller) (any, error) {
		moved, err := ctrl.GoNext(ctx)
		if err != nil {
			return nil, err
		}
		return NavigationResponse{Moved: moved, Snapshot: ctrl.Snapshot()}, nil
	})
}

// GoBack handles POST /sessions/{key}/back.
func (s *Server) GoBack(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, "back", func(ctx context.Context, ctrl *runtime.Controller) (any, error) {
		moved := ctrl.GoBack()
		return NavigationResponse{Moved: moved, Snapshot: ctrl.Snapshot()}, nil
	})
}

// JumpTo handles POST /sessions/{key}/jump.
func (s *Server) JumpTo(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Step int `json:"step"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s.withSession(w, r, "jump", func(ctx context.Context, ctrl *runtime.Controller) (any, error) {
		moved, err := ctrl.JumpTo(ctx, body.Step)
		if err != nil {
			return nil, err
		}
		return NavigationResponse{Moved: moved, Snapshot: ctrl.Snapshot()}, nil
	})
}

// ApplyTemplate handles POST /sessions/{key}/template.
func (s *Server) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TemplateID string `json:"template_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s.withSession(w, r, "template", func(ctx context.Context, ctrl *runtime.Controller) (any, error) {
		if err := ctrl.ApplyTemplate(ctx, body.TemplateID); err != nil {
			return nil, err
		}
		return ctrl.Snapshot(), nil
	})
}

// Resume handles POST /sessions/{key}/resume.
func (s *Server) Resume(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, "resume", func(ctx context.Context, ctrl *runtime.Controller) (any, error) {
		resumed := ctrl.Resume(ctx)
		return map[string]any{"resumed": resumed, "snapshot": ctrl.Snapshot()}, nil
	})
}

// Discard handles POST /sessions/{key}/discard.
func (s *Server) Discard(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, "discard", func(ctx context.Context, ctrl *runtime.Controller) (any, error) {
		if err := ctrl.Discard(ctx); err != nil {
			return nil, err
		}
		return ctrl.Snapshot(), nil
	})
}

// Submit handles POST /sessions/{key}/submit. Invalid steps and fatal step
// failures answer 422 with the snapshot so clients can show the errors.
func (s *Server) Submit(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var (
		resp   SubmitResponse
		status = http.StatusOK
	)
	err := s.Sessions.WithLock(r.Context(), key, func(ctx context.Context, ctrl *runtime.Controller) error {
		result, err := ctrl.Submit(ctx)
		resp.Snapshot = ctrl.Snapshot()
		var invalid *domain.StepsInvalidError
		switch {
		case err == nil:
			resp.Result = &result
		case errors.As(err, &invalid):
			status = http.StatusUnprocessableEntity
			resp.Error = err.Error()
		case errors.Is(err, domain.ErrSubmissionInProgress), errors.Is(err, domain.ErrSessionCompleted):
			return err
		default:
			status = http.StatusUnprocessableEntity
			resp.Result = &result
			resp.Error = err.Error()
		}
		return nil
	})
	if err != nil {
		s.fail(w, r, "submit", err)
		return
	}
	writeJSON(w, status, resp)
}

// CheckUnique handles POST /validate/unique.
func (s *Server) CheckUnique(w http.ResponseWriter, r *http.Request) {
	if s.Validator == nil {
		writeError(w, http.StatusNotImplemented, errors.New("no remote validator configured"))
		return
	}
	var body UniqueRequest
	if !decodeBody(w, r, &body) {
		return
	}
	result, err := s.Validator.CheckUnique(r.Context(), body.Scope, body.ScopeID, body.Field, body.Value)
	if err != nil {
		s.fail(w, r, "check unique", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SubscribeEvents handles GET /sessions/{key}/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming not supported"))
		return
	}
	key := chi.URLParam(r, "key")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(key)
	defer cancel()

	s.logger.Info("SSE: subscribing to session events", "session_key", key)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: client disconnected", "session_key", key)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) withSession(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, *runtime.Controller) (any, error)) {
	var resp any
	err := s.Sessions.WithLock(r.Context(), chi.URLParam(r, "key"), func(ctx context.Context, ctrl *runtime.Controller) error {
		var err error
		resp, err = fn(ctx, ctrl)
		return err
	})
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "op", op, "err", err)
	} else {
		s.logger.DebugContext(r.Context(), "request rejected", "op", op, "status", status, "err", err)
	}
	writeError(w, status, err)
}

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	var invalid *domain.StepsInvalidError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrTemplateNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStepOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSubmissionInProgress), errors.Is(err, domain.ErrSessionCompleted):
		return http.StatusConflict
	case errors.As(err, &invalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, runtime.ErrNoTemplateProvider):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
