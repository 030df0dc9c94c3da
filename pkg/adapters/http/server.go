package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/ussdflow/internal/logging"
	"github.com/aretw0/ussdflow/pkg/compiler"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/flow"
	"github.com/aretw0/ussdflow/pkg/validator"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// Service is the builder surface the API exposes.
type Service interface {
	Validate(g *flow.Graph) validator.Result
	CreateProject(ctx context.Context, name, description string, g *flow.Graph) (*domain.Project, error)
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	ListProjects(ctx context.Context) ([]*domain.Project, error)
	UpdateProject(ctx context.Context, id string, patch domain.Patch) (*domain.Project, error)
	DeleteProject(ctx context.Context, id string) error
	GenerateProject(ctx context.Context, id string) (*domain.Project, *compiler.Program, error)
	ExportProject(ctx context.Context, id string, w io.Writer) (string, error)
}

// ServiceName is reported by the health endpoint.
const ServiceName = "ussdflow-builder"

// Server serves the builder API.
type Server struct {
	Service Service
	Streams *StreamManager

	logger          *slog.Logger
	metrics         http.Handler
	corsOrigins     []string
	rps             rate.Limit
	burst           int
	validateRequest bool
	now             func() time.Time
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler serves h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithStreams shares a StreamManager, typically one whose Hooks are
// registered on the Service.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithCORSOrigins restricts the allowed origins. "*" allows any.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithRateLimit limits each client address to rps requests per second.
// A zero rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.rps = rate.Limit(rps)
		s.burst = burst
	}
}

// WithRequestValidation checks requests against the OpenAPI document
// before they reach a handler.
func WithRequestValidation() Option {
	return func(s *Server) {
		s.validateRequest = true
	}
}

// NewHandler creates the HTTP handler for svc.
func NewHandler(svc Service, opts ...Option) (http.Handler, error) {
	s := &Server{
		Service:     svc,
		logger:      logging.NewNop(),
		corsOrigins: []string{"*"},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}

	spec, err := loadSpec()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.recoverer)
	r.Use(s.cors)
	if s.rps > 0 {
		limiter := newRateLimiter(s.rps, s.burst)
		r.Use(limiter.Middleware)
	}

	r.Get("/health", s.GetHealth)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		if s.validateRequest {
			v, err := newRequestValidator(spec)
			if err != nil {
				s.logger.Error("request validation disabled", "err", err)
			} else {
				r.Use(v.Middleware)
			}
		}
		r.Get("/node-types", s.ListNodeTypes)
		r.Post("/validate-flow", s.ValidateFlow)
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", s.ListProjects)
			r.Post("/", s.CreateProject)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.GetProject)
				r.Put("/", s.UpdateProject)
				r.Delete("/", s.DeleteProject)
				r.Post("/generate-code", s.GenerateCode)
				r.Get("/export", s.ExportProject)
				r.Get("/events", s.SubscribeEvents)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	return r, nil
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"service":   ServiceName,
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

// ListNodeTypes handles the GET /api/node-types request.
func (s *Server) ListNodeTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, flow.Catalog())
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, details ...string) {
	writeJSON(w, status, errorResponse{Error: msg, Details: details})
}
