package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aretw0/animgate"
	"github.com/aretw0/animgate/pkg/batch"
	"github.com/aretw0/animgate/pkg/domain"
	"github.com/aretw0/animgate/pkg/normalizer"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
)

// Engine defines the operations the HTTP API exposes.
// *animgate.Engine satisfies it.
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

// Server holds the handlers of the HTTP API.
type Server struct {
	Engine  Engine
	Streams *StreamManager
	spec    *openapi3.T
}

// Option configures the handler built by NewHandler.
type Option func(*options)

type options struct {
	metrics  http.Handler
	validate bool
}

// WithMetricsHandler serves h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(o *options) {
		o.metrics = h
	}
}

// WithoutValidation disables OpenAPI request validation.
func WithoutValidation() Option {
	return func(o *options) {
		o.validate = false
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) (http.Handler, error) {
	o := options{validate: true}
	for _, opt := range opts {
		opt(&o)
	}

	spec, err := GetSwagger()
	if err != nil {
		return nil, err
	}

	server := &Server{
		Engine:  engine,
		Streams: NewStreamManager(),
		spec:    spec,
	}

	r := chi.NewRouter()
	if o.validate {
		mw, err := requestValidator(spec)
		if err != nil {
			return nil, err
		}
		r.Use(mw)
	}

	// Swagger UI
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if o.metrics != nil {
		r.Method(http.MethodGet, "/metrics", o.metrics)
	}

	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Post("/normalize", server.Normalize)
	r.Get("/controllers", server.ListControllers)
	r.Get("/controllers/{id}", server.GetController)
	r.Get("/controllers/{id}/check", server.CheckController)
	r.Post("/controllers/{id}/normalize", server.NormalizeStored)
	r.Post("/runs", server.StartRun)
	r.Get("/events", server.SubscribeEvents)

	return enableCORS(r), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
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
    <title>animgate API Documentation</title>
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

// NormalizeRequest is the body of POST /normalize.
// Config fields that are omitted keep the server's values.
type NormalizeRequest struct {
	Controller *domain.Controller `json:"controller"`
	Config     json.RawMessage    `json:"config,omitempty"`
}

// NormalizeResponse is the body returned by POST /normalize.
type NormalizeResponse struct {
	Controller *domain.Controller     `json:"controller"`
	Report     *normalizer.Report     `json:"report"`
	Violations []normalizer.Violation `json:"violations"`
}

// NormalizeStoredResponse is the body returned by POST /controllers/{id}/normalize.
type NormalizeStoredResponse struct {
	Outcome domain.Outcome     `json:"outcome"`
	Report  *normalizer.Report `json:"report,omitempty"`
}

// RunRequest is the optional body of POST /runs.
type RunRequest struct {
	IDs []string `json:"ids,omitempty"`
}

// Normalize handles the POST /normalize request.
func (s *Server) Normalize(w http.ResponseWriter, r *http.Request) {
	var body NormalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		slog.Warn("Normalize: Invalid request body", "error", err)
		return
	}
	if body.Controller == nil {
		http.Error(w, "Invalid request body: controller is required", http.StatusBadRequest)
		return
	}

	cfg := s.Engine.Config()
	if len(body.Config) > 0 {
		if err := json.Unmarshal(body.Config, &cfg); err != nil {
			http.Error(w, "Invalid config", http.StatusBadRequest)
			slog.Warn("Normalize: Invalid config", "error", err)
			return
		}
	}
	if err := cfg.Validate(); err != nil {
		http.Error(w, fmt.Sprintf("Invalid config: %v", err), http.StatusBadRequest)
		return
	}

	out, report := s.Engine.Normalize(r.Context(), body.Controller, &cfg)
	resp := NormalizeResponse{
		Controller: out,
		Report:     report,
		Violations: normalizer.CheckInvariants(out, cfg),
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListControllers handles the GET /controllers request.
func (s *Server) ListControllers(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.List(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("List error: %v", err), http.StatusInternalServerError)
		slog.Error("List failed", "error", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"controllers": ids})
}

// GetController handles the GET /controllers/{id} request.
func (s *Server) GetController(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := s.Engine.Load(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Load", id, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CheckController handles the GET /controllers/{id}/check request.
func (s *Server) CheckController(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	violations, err := s.Engine.Check(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Check", id, err)
		return
	}
	if violations == nil {
		violations = []normalizer.Violation{}
	}
	writeJSON(w, http.StatusOK, map[string][]normalizer.Violation{"violations": violations})
}

// NormalizeStored handles the POST /controllers/{id}/normalize request.
func (s *Server) NormalizeStored(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	dryRun, err := parseDryRun(r)
	if err != nil {
		http.Error(w, "Invalid dry_run", http.StatusBadRequest)
		return
	}

	outcome, report, err := s.Engine.NormalizeStored(r.Context(), id, dryRun)
	s.Streams.Broadcast(outcome)
	if err != nil {
		writeStoreError(w, "NormalizeStored", id, err)
		return
	}
	writeJSON(w, http.StatusOK, NormalizeStoredResponse{Outcome: outcome, Report: report})
}

// StartRun handles the POST /runs request.
func (s *Server) StartRun(w http.ResponseWriter, r *http.Request) {
	dryRun, err := parseDryRun(r)
	if err != nil {
		http.Error(w, "Invalid dry_run", http.StatusBadRequest)
		return
	}

	var body RunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		slog.Warn("StartRun: Invalid request body", "error", err)
		return
	}

	res, err := s.Engine.NormalizeAll(r.Context(), dryRun, body.IDs...)
	if err != nil {
		http.Error(w, fmt.Sprintf("Run error: %v", err), http.StatusInternalServerError)
		slog.Error("Run failed", "error", err)
		return
	}
	for _, o := range res.Outcomes {
		s.Streams.Broadcast(o)
	}
	writeJSON(w, http.StatusOK, res)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.spec != nil && s.spec.Info != nil {
		apiVersion = s.spec.Info.Version
	}

	resp := map[string]string{
		"app":         "animgate-http",
		"version":     strings.TrimSpace(animgate.Version),
		"api_version": apiVersion,
	}
	writeJSON(w, http.StatusOK, resp)
}

// SubscribeEvents handles the GET /events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		slog.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	controller := r.URL.Query().Get("controller")
	slog.Info("SSE: Subscribing to outcomes", "controller", controller)

	ch, cancel := s.Streams.Subscribe(controller)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			slog.Info("SSE Client Disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: outcome\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// -- Helpers --

func parseDryRun(r *http.Request) (bool, error) {
	raw := r.URL.Query().Get("dry_run")
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

func writeStoreError(w http.ResponseWriter, op, id string, err error) {
	if errors.Is(err, domain.ErrControllerNotFound) {
		http.Error(w, fmt.Sprintf("Controller %q not found", id), http.StatusNotFound)
		return
	}
	http.Error(w, fmt.Sprintf("%s error: %v", op, err), http.StatusInternalServerError)
	slog.Error(op+" failed", "controller", id, "error", err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "error", err)
	}
}
