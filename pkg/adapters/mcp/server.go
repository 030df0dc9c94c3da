// Package mcp exposes the flow compiler as Model Context Protocol tools so
// assistants can validate, compile and draw USSD flows.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/ussdflow"
	"github.com/aretw0/ussdflow/internal/logging"
	"github.com/aretw0/ussdflow/internal/presentation/graph"
	"github.com/aretw0/ussdflow/pkg/compiler"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/flow"
	"github.com/aretw0/ussdflow/pkg/validator"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NodeTypesURI is the resource listing the supported node types.
const NodeTypesURI = "ussdflow://node-types"

// Builder is the part of the builder the MCP server needs.
type Builder interface {
	Validate(g *flow.Graph) validator.Result
	Generate(g *flow.Graph, projectName string) (*compiler.Program, error)
	ListProjects(ctx context.Context) ([]*domain.Project, error)
	GenerateProject(ctx context.Context, id string) (*domain.Project, *compiler.Program, error)
}

// ValidateResponse is the structured result of validate_flow.
type ValidateResponse struct {
	Valid     bool     `json:"valid" jsonschema_description:"True when the flow can be compiled"`
	Errors    []string `json:"errors" jsonschema_description:"Findings that block compilation"`
	Warnings  []string `json:"warnings" jsonschema_description:"Findings that do not block compilation"`
	NodeCount int      `json:"nodeCount"`
	EdgeCount int      `json:"edgeCount"`
}

// GenerateResponse is the structured result of the generation tools.
type GenerateResponse struct {
	Module string            `json:"module" jsonschema_description:"Go module path of the program"`
	Files  map[string]string `json:"files" jsonschema_description:"Source files keyed by path"`
}

// ProjectSummary is one entry of list_projects.
type ProjectSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Nodes     int       `json:"nodes"`
	Generated bool      `json:"generated"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListResponse is the structured result of list_projects.
type ListResponse struct {
	Projects []ProjectSummary `json:"projects"`
}

// Server wraps a Builder and exposes it as an MCP Server.
type Server struct {
	builder   Builder
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(builder Builder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		builder:   builder,
		logger:    logger,
		mcpServer: server.NewMCPServer("ussdflow-mcp", ussdflow.Version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on port until ctx is canceled.
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
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
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
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("validate_flow",
		mcp.WithDescription("Check a USSD flow graph for structural problems before compiling it."),
		mcp.WithString("flow", mcp.Required(), mcp.Description("Flow graph as JSON: {nodes, edges}")),
		mcp.WithOutputSchema[ValidateResponse](),
	), mcp.NewStructuredToolHandler(s.handleValidate))

	s.mcpServer.AddTool(mcp.NewTool("generate_code",
		mcp.WithDescription("Compile a USSD flow graph into the source files of a Go program."),
		mcp.WithString("flow", mcp.Required(), mcp.Description("Flow graph as JSON: {nodes, edges}")),
		mcp.WithString("project_name", mcp.Description("Project name; the module path is derived from it")),
		mcp.WithOutputSchema[GenerateResponse](),
	), mcp.NewStructuredToolHandler(s.handleGenerate))

	s.mcpServer.AddTool(mcp.NewTool("render_graph",
		mcp.WithDescription("Draw a USSD flow graph as a Mermaid flowchart."),
		mcp.WithString("flow", mcp.Required(), mcp.Description("Flow graph as JSON: {nodes, edges}")),
		mcp.WithString("current", mcp.Description("Node id to highlight as the current step")),
	), s.handleRenderGraph)

	s.mcpServer.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List the stored builder projects."),
		mcp.WithOutputSchema[ListResponse](),
	), mcp.NewStructuredToolHandler(s.handleListProjects))

	s.mcpServer.AddTool(mcp.NewTool("generate_project",
		mcp.WithDescription("Compile a stored project and save the generated files with it."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id")),
		mcp.WithOutputSchema[GenerateResponse](),
	), mcp.NewStructuredToolHandler(s.handleGenerateProject))
}

func parseFlowArg(args map[string]any) (*flow.Graph, error) {
	raw, _ := args["flow"].(string)
	if raw == "" {
		return nil, errors.New("flow is required")
	}
	return flow.ParseJSON([]byte(raw))
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (ValidateResponse, error) {
	g, err := parseFlowArg(args)
	if err != nil {
		var se *flow.SchemaError
		if errors.As(err, &se) {
			return ValidateResponse{Errors: se.Problems, Warnings: []string{}}, nil
		}
		return ValidateResponse{}, err
	}
	res := s.builder.Validate(g)
	return ValidateResponse{
		Valid:     res.Valid,
		Errors:    res.Errors,
		Warnings:  res.Warnings,
		NodeCount: res.NodeCount,
		EdgeCount: res.EdgeCount,
	}, nil
}

func (s *Server) handleGenerate(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (GenerateResponse, error) {
	g, err := parseFlowArg(args)
	if err != nil {
		return GenerateResponse{}, fmt.Errorf("parse flow: %w", err)
	}
	name, _ := args["project_name"].(string)
	prog, err := s.builder.Generate(g, name)
	if err != nil {
		s.logger.Warn("MCP generate_code failed", "err", err)
		return GenerateResponse{}, err
	}
	return GenerateResponse{Module: prog.Module(), Files: prog.Files()}, nil
}

func (s *Server) handleRenderGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, err := parseFlowArg(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("parse flow: %v", err)), nil
	}
	var overlay *graph.Overlay
	if current := request.GetString("current", ""); current != "" {
		overlay = &graph.Overlay{Current: current}
	}
	return mcp.NewToolResultText(graph.Mermaid(g, overlay)), nil
}

func (s *Server) handleListProjects(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (ListResponse, error) {
	projects, err := s.builder.ListProjects(ctx)
	if err != nil {
		return ListResponse{}, fmt.Errorf("list projects: %w", err)
	}
	out := ListResponse{Projects: make([]ProjectSummary, 0, len(projects))}
	for _, p := range projects {
		sum := ProjectSummary{
			ID:        p.ID,
			Name:      p.Name,
			Generated: len(p.Generated) > 0,
			UpdatedAt: p.UpdatedAt,
		}
		if p.Flow != nil {
			sum.Nodes = len(p.Flow.Nodes)
		}
		out.Projects = append(out.Projects, sum)
	}
	return out, nil
}

func (s *Server) handleGenerateProject(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (GenerateResponse, error) {
	id, _ := args["project_id"].(string)
	_, prog, err := s.builder.GenerateProject(ctx, id)
	if err != nil {
		return GenerateResponse{}, err
	}
	return GenerateResponse{Module: prog.Module(), Files: prog.Files()}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(NodeTypesURI, "Supported Node Types",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(flow.Catalog())
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      NodeTypesURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
