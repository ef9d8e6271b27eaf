// Package mcp exposes wizard sessions as Model Context Protocol tools, so an
// agent can fill, navigate and submit a wizard on a user's behalf.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/storewizard"
	"github.com/aretw0/storewizard/internal/logging"
	"github.com/aretw0/storewizard/internal/runtime"
	"github.com/aretw0/storewizard/pkg/blueprint"
	"github.com/aretw0/storewizard/pkg/domain"
	"github.com/aretw0/storewizard/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"
)

// BlueprintURI is the resource describing the wizard's steps.
const BlueprintURI = "storewizard://blueprint"

// NavigationResult is returned by the navigation tools.
type NavigationResult struct {
	Moved    bool                 `json:"moved"`
	Snapshot storewizard.Snapshot `json:"snapshot"`
}

// SubmitResult is returned by the submit tool.
type SubmitResult struct {
	Result   *domain.SubmissionResult `json:"result,omitempty"`
	Snapshot storewizard.Snapshot     `json:"snapshot"`
	Error    string                   `json:"error,omitempty"`
}

// Server exposes a session manager as an MCP server.
type Server struct {
	sessions  *session.Manager
	blueprint *blueprint.Blueprint
	logger    *slog.Logger
	mcpServer *server.MCPServer
	handlers  map[string]server.ToolHandlerFunc
}

// Option configures the Server.
type Option func(*Server)

// WithBlueprint publishes bp as the blueprint resource.
func WithBlueprint(bp blueprint.Blueprint) Option {
	return func(s *Server) {
		s.blueprint = &bp
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions:  sessions,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("storewizard-mcp", strings.TrimSpace(storewizard.Version)),
		handlers:  make(map[string]server.ToolHandlerFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP SSE transport on port until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Call invokes a registered tool directly, bypassing the transport.
func (s *Server) Call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	h, ok := s.handlers[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return h(ctx, req)
}

func (s *Server) addTool(tool mcp.Tool, h server.ToolHandlerFunc) {
	s.handlers[tool.Name] = h
	s.mcpServer.AddTool(tool, h)
}

func sessionKeyParam() mcp.ToolOption {
	return mcp.WithString("session_key", mcp.Required(), mcp.Description("Identifies the wizard session"))
}

type sessionArgs struct {
	SessionKey string `mapstructure:"session_key"`
}

type setFieldArgs struct {
	SessionKey string `mapstructure:"session_key"`
	Field      string `mapstructure:"field"`
	Value      any    `mapstructure:"value"`
}

type updateArgs struct {
	SessionKey string         `mapstructure:"session_key"`
	Fields     map[string]any `mapstructure:"fields"`
}

type jumpArgs struct {
	SessionKey string `mapstructure:"session_key"`
	Step       int    `mapstructure:"step"`
}

type templateArgs struct {
	SessionKey string `mapstructure:"session_key"`
	TemplateID string `mapstructure:"template_id"`
}

func (s *Server) registerTools() {
	s.addTool(mcp.NewTool("open_session",
		mcp.WithDescription("Open (or reattach to) a wizard session and return its snapshot."),
		sessionKeyParam(),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args sessionArgs
		if err := decodeArgs(req, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ctrl, err := s.sessions.Open(ctx, args.SessionKey)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("open failed: %v", err)), nil
		}
		return jsonResult(ctrl.Snapshot())
	})

	s.addTool(mcp.NewTool("get_snapshot",
		mcp.WithDescription("Return the current step, draft and validation errors of a session."),
		sessionKeyParam(),
	), s.sessionTool(func(ctx context.Context, ctrl *runtime.Controller, _ map[string]any) (any, error) {
		return ctrl.Snapshot(), nil
	}))

	s.addTool(mcp.NewTool("update_draft",
		mcp.WithDescription("Shallow-merge top-level fields into the draft. Does not validate."),
		sessionKeyParam(),
		mcp.WithObject("fields", mcp.Required(), mcp.Description("Top-level draft fields to replace")),
	), s.sessionTool(func(ctx context.Context, ctrl *runtime.Controller, raw map[string]any) (any, error) {
		var args updateArgs
		if err := weakDecode(raw, &args); err != nil {
			return nil, err
		}
		if err := ctrl.UpdateDraft(args.Fields); err != nil {
			return nil, err
		}
		return ctrl.Snapshot(), nil
	}))

	s.addTool(mcp.NewTool("set_field",
		mcp.WithDescription("Set one field. Dotted names address sections (e.g. seo.title); JSON values are decoded."),
		sessionKeyParam(),
		mcp.WithString("field", mcp.Required(), mcp.Description("Field key")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Value as text or JSON")),
	), s.sessionTool(func(ctx context.Context, ctrl *runtime.Controller, raw map[string]any) (any, error) {
		var args setFieldArgs
		if err := weakDecode(raw, &args); err != nil {
			return nil, err
		}
		if args.Field == "" {
			return nil, errors.New("field is required")
		}
		value := args.Value
		if text, ok := value.(string); ok {
			value = storewizard.ParseValue(text)
		}
		partial := storewizard.FieldUpdate(ctrl.Draft(), args.Field, value)
		if err := ctrl.UpdateDraft(partial); err != nil {
			return nil, err
		}
		return ctrl.Snapshot(), nil
	}))

	s.addTool(mcp.NewTool("go_next",
		mcp.WithDescription("Validate the current step and advance when it passes."),
		sessionKeyParam(),
	), s.sessionTool(func(ctx context.Context, ctrl *runtime.Controller, _ map[string]any) (any, error) {
		moved, err := ctrl.GoNext(ctx)
		if err != nil {
			return nil, err
		}
		return NavigationResult{Moved: moved, Snapshot: ctrl.Snapshot()}, nil
	}))

	s.addTool(mcp.NewTool("go_back",
		mcp.WithDescription("Return to the previous step without validating."),
		sessionKeyParam(),
	), s.sessionTool(func(ctx context.Context, ctrl *runtime.Controller, _ map[string]any) (any, error) {
		moved := ctrl.GoBack()
		return NavigationResult{Moved: moved, Snapshot: ctrl.Snapshot()}, nil
	}))

	s.addTool(mcp.NewTool("jump_to",
		mcp.WithDescription("Jump to a step. Forward jumps validate the current step only."),
		sessionKeyParam(),
		mcp.WithNumber("step", mcp.Required(), mcp.Description("1-based step order")),
	), s.sessionTool(func(ctx context.Context, ctrl *runtime.Controller, raw map[string]any) (any, error) {
		var args jumpArgs
		if err := weakDecode(raw, &args); err != nil {
			return nil, err
		}
		moved, err := ctrl.JumpTo(ctx, args.Step)
		if err != nil {
			return nil, err
		}
		return NavigationResult{Moved: moved, Snapshot: ctrl.Snapshot()}, nil
	}))

	s.addTool(mcp.NewTool("apply_template",
		mcp.WithDescription("Fill empty draft fields from a starter template."),
		sessionKeyParam(),
		mcp.WithString("template_id", mcp.Required(), mcp.Description("Template identifier")),
	), s.sessionTool(func(ctx context.Context, ctrl *runtime.Controller, raw map[string]any) (any, error) {
		var args templateArgs
		if err := weakDecode(raw, &args); err != nil {
			return nil, err
		}
		if err := ctrl.ApplyTemplate(ctx, args.TemplateID); err != nil {
			return nil, err
		}
		return ctrl.Snapshot(), nil
	}))

	s.addTool(mcp.NewTool("submit",
		mcp.WithDescription("Validate every step and create the records."),
		sessionKeyParam(),
	), s.sessionTool(func(ctx context.Context, ctrl *runtime.Controller, _ map[string]any) (any, error) {
		result, err := ctrl.Submit(ctx)
		out := SubmitResult{Snapshot: ctrl.Snapshot()}
		var invalid *domain.StepsInvalidError
		switch {
		case err == nil:
			out.Result = &result
		case errors.As(err, &invalid):
			out.Error = err.Error()
		case errors.Is(err, domain.ErrSubmissionInProgress), errors.Is(err, domain.ErrSessionCompleted):
			return nil, err
		default:
			out.Result = &result
			out.Error = err.Error()
		}
		return out, nil
	}))

	s.addTool(mcp.NewTool("discard_draft",
		mcp.WithDescription("Drop the draft and its autosaved copy and return to step 1."),
		sessionKeyParam(),
	), s.sessionTool(func(ctx context.Context, ctrl *runtime.Controller, _ map[string]any) (any, error) {
		if err := ctrl.Discard(ctx); err != nil {
			return nil, err
		}
		return ctrl.Snapshot(), nil
	}))
}

type sessionFunc func(ctx context.Context, ctrl *runtime.Controller, args map[string]any) (any, error)

// sessionTool runs fn under the session lock. Domain errors become tool
// errors so the agent can react to them.
func (s *Server) sessionTool(fn sessionFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args sessionArgs
		if err := decodeArgs(req, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		raw := req.GetArguments()

		var out any
		err := s.sessions.WithLock(ctx, args.SessionKey, func(ctx context.Context, ctrl *runtime.Controller) error {
			var err error
			out, err = fn(ctx, ctrl, raw)
			return err
		})
		if err != nil {
			s.logger.DebugContext(ctx, "MCP tool failed", "tool", req.Params.Name, "session_key", args.SessionKey, "err", err)
			return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", req.Params.Name, err)), nil
		}
		return jsonResult(out)
	}
}

func (s *Server) registerResources() {
	if s.blueprint == nil {
		return
	}
	bp := *s.blueprint
	s.mcpServer.AddResource(mcp.NewResource(BlueprintURI, "Wizard blueprint",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(bp)
		if err != nil {
			return nil, fmt.Errorf("failed to encode blueprint: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      BlueprintURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

func decodeArgs(req mcp.CallToolRequest, out *sessionArgs) error {
	if err := weakDecode(req.GetArguments(), out); err != nil {
		return err
	}
	if out.SessionKey == "" {
		return errors.New("session_key is required")
	}
	return nil
}

// weakDecode maps loosely typed tool arguments (numbers may arrive as
// float64 or strings) onto a typed struct.
func weakDecode(input map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
