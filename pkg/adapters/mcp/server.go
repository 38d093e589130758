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

	"github.com/aretw0/animgate"
	"github.com/aretw0/animgate/pkg/batch"
	"github.com/aretw0/animgate/pkg/domain"
	"github.com/aretw0/animgate/pkg/normalizer"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	controllersURI        = "animgate://controllers"
	controllerTemplateURI = "animgate://controllers/{id}"
)

// NormalizeResponse aligns with the HTTP API and provides a unified structure across adapters.
type NormalizeResponse struct {
	Controller *domain.Controller     `json:"controller" jsonschema_description:"The normalized controller"`
	Report     *normalizer.Report     `json:"report" jsonschema_description:"What was found and changed per layer"`
	Violations []normalizer.Violation `json:"violations" jsonschema_description:"Invariants still violated after normalization"`
}

// StoredResponse is the result of normalizing a stored controller.
type StoredResponse struct {
	Outcome domain.Outcome     `json:"outcome" jsonschema_description:"Status of the controller in this run"`
	Report  *normalizer.Report `json:"report,omitempty" jsonschema_description:"Normalization report, absent when loading failed"`
}

// Engine defines the interface required by the MCP server to interact with animgate.
type Engine interface {
	Normalize(ctx context.Context, c *domain.Controller, cfg *normalizer.Config) (*domain.Controller, *normalizer.Report)
	NormalizeStored(ctx context.Context, id string, dryRun bool) (domain.Outcome, *normalizer.Report, error)
	NormalizeAll(ctx context.Context, dryRun bool, ids ...string) (*batch.Result, error)
	Check(ctx context.Context, id string) ([]normalizer.Violation, error)
	List(ctx context.Context) ([]string, error)
	Load(ctx context.Context, id string) (*domain.Controller, error)
	Config() normalizer.Config
}

var _ Engine = (*animgate.Engine)(nil)

// Server wraps the animgate Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("animgate-mcp", strings.TrimSpace(animgate.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and blocks until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		slog.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("CORS Middleware", "method", r.Method, "path", r.URL.Path)
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: normalize_controller
	normalizeTool := mcp.NewTool("normalize_controller",
		mcp.WithDescription("Normalize the death/respawn transitions of a controller given as JSON. Nothing is stored."),
		mcp.WithString("controller", mcp.Required(), mcp.Description("JSON object of the controller (name, parameters, layers)")),
		mcp.WithString("config", mcp.Description("JSON object overriding normalizer settings (optional)")),
		mcp.WithOutputSchema[NormalizeResponse](),
	)
	s.mcpServer.AddTool(normalizeTool, mcp.NewStructuredToolHandler(s.handleNormalize))

	// TOOL: normalize_stored
	storedTool := mcp.NewTool("normalize_stored",
		mcp.WithDescription("Normalize a stored controller and save it unless dry_run is set."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Controller id")),
		mcp.WithBoolean("dry_run", mcp.Description("Report changes without saving")),
		mcp.WithOutputSchema[StoredResponse](),
	)
	s.mcpServer.AddTool(storedTool, mcp.NewStructuredToolHandler(s.handleNormalizeStored))

	// TOOL: run_batch
	s.mcpServer.AddTool(mcp.NewTool("run_batch",
		mcp.WithDescription("Normalize every stored controller, or the ids given as a JSON array."),
		mcp.WithString("ids", mcp.Description("JSON array of controller ids (optional)")),
		mcp.WithBoolean("dry_run", mcp.Description("Report changes without saving")),
	), s.handleRunBatch)

	// TOOL: check_controller
	s.mcpServer.AddTool(mcp.NewTool("check_controller",
		mcp.WithDescription("List the invariants a stored controller still violates."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Controller id")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		violations, err := s.engine.Check(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("check failed: %v", err)), nil
		}
		if violations == nil {
			violations = []normalizer.Violation{}
		}
		jsonBytes, _ := json.Marshal(violations)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	// TOOL: list_controllers
	s.mcpServer.AddTool(mcp.NewTool("list_controllers",
		mcp.WithDescription("List the ids of stored controllers."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := s.engine.List(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(ids)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

// Handler methods for structured tools

func (s *Server) handleNormalize(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (NormalizeResponse, error) {
	raw, _ := args["controller"].(string)
	var c domain.Controller
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return NormalizeResponse{}, fmt.Errorf("invalid controller: %w", err)
	}

	cfg := s.engine.Config()
	if cfgStr, ok := args["config"].(string); ok && cfgStr != "" {
		if err := json.Unmarshal([]byte(cfgStr), &cfg); err != nil {
			return NormalizeResponse{}, fmt.Errorf("invalid config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return NormalizeResponse{}, fmt.Errorf("invalid config: %w", err)
	}

	out, report := s.engine.Normalize(ctx, &c, &cfg)
	violations := normalizer.CheckInvariants(out, cfg)
	if violations == nil {
		violations = []normalizer.Violation{}
	}
	return NormalizeResponse{Controller: out, Report: report, Violations: violations}, nil
}

func (s *Server) handleNormalizeStored(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StoredResponse, error) {
	id, _ := args["id"].(string)
	dryRun, _ := args["dry_run"].(bool)

	outcome, report, err := s.engine.NormalizeStored(ctx, id, dryRun)
	if err != nil {
		if errors.Is(err, domain.ErrControllerNotFound) {
			return StoredResponse{}, fmt.Errorf("controller %q not found", id)
		}
		slog.Error("MCP NormalizeStored failed", "controller", id, "error", err)
		return StoredResponse{}, fmt.Errorf("normalize failed: %w", err)
	}
	return StoredResponse{Outcome: outcome, Report: report}, nil
}

func (s *Server) handleRunBatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	dryRun, _ := args["dry_run"].(bool)

	var ids []string
	if idsStr, ok := args["ids"].(string); ok && idsStr != "" {
		if err := json.Unmarshal([]byte(idsStr), &ids); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid ids: %v", err)), nil
		}
	}

	res, err := s.engine.NormalizeAll(ctx, dryRun, ids...)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run failed: %v", err)), nil
	}
	jsonBytes, _ := json.Marshal(res)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) registerResources() {
	// EXPOSE: animgate://controllers
	s.mcpServer.AddResource(mcp.NewResource(controllersURI, "Stored Controllers",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.engine.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list controllers: %w", err)
		}
		jsonBytes, _ := json.Marshal(ids)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      controllersURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})

	// EXPOSE: animgate://controllers/{id}
	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(controllerTemplateURI, "Stored Controller",
		mcp.WithTemplateMIMEType("application/json"),
	), s.readController)
}

func (s *Server) readController(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	id := strings.TrimPrefix(uri, controllersURI+"/")
	if id == "" || id == uri {
		return nil, fmt.Errorf("invalid controller uri %q", uri)
	}

	c, err := s.engine.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load controller: %w", err)
	}
	jsonBytes, _ := json.Marshal(c)

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
