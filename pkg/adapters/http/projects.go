package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/aretw0/ussdflow"
	"github.com/aretw0/ussdflow/pkg/compiler"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/flow"
	"github.com/go-chi/chi/v5"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 8 << 20

type projectInput struct {
	Name        *string           `json:"name"`
	Description *string           `json:"description"`
	FlowData    json.RawMessage   `json:"flowData"`
	Generated   map[string]string `json:"generatedCode"`
}

// decodeProjectInput reads the body and parses flowData through the flow
// schema. Schema problems are returned as details.
func decodeProjectInput(r *http.Request) (projectInput, *flow.Graph, []string, error) {
	var in projectInput
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(&in); err != nil {
		return in, nil, nil, err
	}
	raw := bytes.TrimSpace(in.FlowData)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return in, nil, nil, nil
	}
	g, err := flow.ParseJSON(raw)
	if err != nil {
		var se *flow.SchemaError
		if errors.As(err, &se) {
			return in, nil, se.Problems, err
		}
		return in, nil, nil, err
	}
	return in, g, nil, nil
}

// ListProjects handles the GET /api/projects request.
func (s *Server) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.Service.ListProjects(r.Context())
	if err != nil {
		s.internalError(w, "Failed to fetch projects", err)
		return
	}
	if projects == nil {
		projects = []*domain.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

// GetProject handles the GET /api/projects/{id} request.
func (s *Server) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.Service.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.projectError(w, "Failed to fetch project", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreateProject handles the POST /api/projects request.
func (s *Server) CreateProject(w http.ResponseWriter, r *http.Request) {
	in, g, details, err := decodeProjectInput(r)
	if err != nil {
		if details == nil {
			details = []string{err.Error()}
		}
		writeError(w, http.StatusBadRequest, "Validation error", details...)
		return
	}
	if in.Name == nil {
		writeError(w, http.StatusBadRequest, "Validation error", "name: Required")
		return
	}
	desc := ""
	if in.Description != nil {
		desc = *in.Description
	}

	p, err := s.Service.CreateProject(r.Context(), *in.Name, desc, g)
	if err != nil {
		s.projectError(w, "Failed to create project", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdateProject handles the PUT /api/projects/{id} request.
func (s *Server) UpdateProject(w http.ResponseWriter, r *http.Request) {
	in, g, details, err := decodeProjectInput(r)
	if err != nil {
		if details == nil {
			details = []string{err.Error()}
		}
		writeError(w, http.StatusBadRequest, "Validation error", details...)
		return
	}

	patch := domain.Patch{
		Name:        in.Name,
		Description: in.Description,
		Flow:        g,
		Generated:   in.Generated,
	}
	p, err := s.Service.UpdateProject(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.projectError(w, "Failed to update project", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProject handles the DELETE /api/projects/{id} request.
func (s *Server) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.Service.DeleteProject(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.projectError(w, "Failed to delete project", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GenerateCode handles the POST /api/projects/{id}/generate-code request.
func (s *Server) GenerateCode(w http.ResponseWriter, r *http.Request) {
	_, prog, err := s.Service.GenerateProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.projectError(w, "Failed to generate code", err)
		return
	}
	writeJSON(w, http.StatusOK, prog.Files())
}

// ExportProject handles the GET /api/projects/{id}/export request. The
// archive is buffered so a failure can still be reported as JSON.
func (s *Server) ExportProject(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	name, err := s.Service.ExportProject(r.Context(), chi.URLParam(r, "id"), &buf)
	if err != nil {
		s.projectError(w, "Failed to export project", err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, &buf); err != nil {
		s.logger.Warn("export write failed", "err", err)
	}
}

type validationResponse struct {
	Valid     bool     `json:"valid"`
	Errors    []string `json:"errors"`
	Warnings  []string `json:"warnings,omitempty"`
	NodeCount int      `json:"nodeCount"`
	EdgeCount int      `json:"edgeCount"`
}

// ValidateFlow handles the POST /api/validate-flow request.
func (s *Server) ValidateFlow(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, validationResponse{Errors: []string{err.Error()}})
		return
	}
	g, err := flow.ParseJSON(raw)
	if err != nil {
		var se *flow.SchemaError
		problems := []string{err.Error()}
		if errors.As(err, &se) {
			problems = se.Problems
		}
		writeJSON(w, http.StatusBadRequest, validationResponse{Errors: problems})
		return
	}

	res := s.Service.Validate(g)
	writeJSON(w, http.StatusOK, validationResponse{
		Valid:     res.Valid,
		Errors:    res.Errors,
		Warnings:  res.Warnings,
		NodeCount: res.NodeCount,
		EdgeCount: res.EdgeCount,
	})
}

// projectError maps service errors to status codes.
func (s *Server) projectError(w http.ResponseWriter, msg string, err error) {
	var (
		invalid  *ussdflow.InvalidFlowError
		lowering *compiler.LoweringError
	)
	switch {
	case errors.Is(err, domain.ErrProjectNotFound):
		writeError(w, http.StatusNotFound, "Project not found")
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, "Invalid flow data", invalid.Result.Errors...)
	case errors.As(err, &lowering):
		writeError(w, http.StatusBadRequest, "Invalid flow data", lowering.Error())
	case errors.Is(err, ussdflow.ErrNameRequired):
		writeError(w, http.StatusBadRequest, "Validation error", "name: Required")
	case errors.Is(err, ussdflow.ErrNoFlow), errors.Is(err, compiler.ErrEmptyGraph):
		writeError(w, http.StatusBadRequest, "Invalid flow data", err.Error())
	default:
		s.internalError(w, msg, err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, "err", err)
	writeError(w, http.StatusInternalServerError, msg)
}
