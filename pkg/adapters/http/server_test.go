package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/ussdflow"
	"github.com/aretw0/ussdflow/pkg/adapters/memory"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/dsl"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flowJSON(t *testing.T, valid bool) json.RawMessage {
	t.Helper()
	b := dsl.New()
	b.Menu("main", "Main Menu").Title("Welcome").Option("Leave", "bye").Go("bye")
	if valid {
		b.End("bye", "Goodbye").Message("Bye")
	}
	data, err := json.Marshal(b.Graph())
	require.NoError(t, err)
	return data
}

func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, *StreamManager) {
	t.Helper()
	streams := NewStreamManager(nil)
	builder := ussdflow.New(memory.NewStore(), ussdflow.WithLifecycleHooks(streams.Hooks()))
	handler, err := NewHandler(builder, append([]Option{WithStreams(streams)}, opts...)...)
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, streams
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createProject(t *testing.T, srv *httptest.Server, name string, valid bool) domain.Project {
	t.Helper()
	resp := do(t, srv, http.MethodPost, "/api/projects", map[string]any{
		"name":        name,
		"description": "test project",
		"flowData":    flowJSON(t, valid),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[domain.Project](t, resp)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := do(t, srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]string](t, resp)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, ServiceName, body["service"])
	_, err := time.Parse(time.RFC3339, body["timestamp"])
	assert.NoError(t, err)
}

func TestProjectsCRUD(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, srv, http.MethodGet, "/api/projects", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]domain.Project](t, resp))

	created := createProject(t, srv, "Pesa", true)
	assert.NotEmpty(t, created.ID)
	require.NotNil(t, created.Flow)
	assert.Len(t, created.Flow.Nodes, 2)

	resp = do(t, srv, http.MethodGet, "/api/projects/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Pesa", decode[domain.Project](t, resp).Name)

	resp = do(t, srv, http.MethodPut, "/api/projects/"+created.ID, map[string]any{"name": "Pesa Express"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[domain.Project](t, resp)
	assert.Equal(t, "Pesa Express", updated.Name)
	assert.Equal(t, "test project", updated.Description)

	resp = do(t, srv, http.MethodGet, "/api/projects", nil)
	assert.Len(t, decode[[]domain.Project](t, resp), 1)

	resp = do(t, srv, http.MethodDelete, "/api/projects/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]bool{"success": true}, decode[map[string]bool](t, resp))

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		resp = do(t, srv, method, "/api/projects/"+created.ID, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, method)
		assert.Equal(t, "Project not found", decode[errorResponse](t, resp).Error)
	}
	resp = do(t, srv, http.MethodPut, "/api/projects/"+created.ID, map[string]any{"name": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateProject_BadInput(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, srv, http.MethodPost, "/api/projects", map[string]any{"description": "no name"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, []string{"name: Required"}, decode[errorResponse](t, resp).Details)

	resp = do(t, srv, http.MethodPost, "/api/projects", map[string]any{
		"name":     "Broken",
		"flowData": map[string]any{"nodes": []any{}},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[errorResponse](t, resp)
	assert.Equal(t, "Validation error", body.Error)
	require.NotEmpty(t, body.Details)
	assert.Contains(t, body.Details[0], "edges")

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/projects", strings.NewReader("{nope"))
	require.NoError(t, err)
	raw, err := srv.Client().Do(req)
	require.NoError(t, err)
	raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestGenerateCode(t *testing.T) {
	srv, _ := newTestServer(t)

	good := createProject(t, srv, "Pesa Express", true)
	resp := do(t, srv, http.MethodPost, "/api/projects/"+good.ID+"/generate-code", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	files := decode[map[string]string](t, resp)
	assert.Contains(t, files, "main.go")
	assert.Contains(t, files["go.mod"], "module pesa-express")

	bad := createProject(t, srv, "Broken", false)
	resp = do(t, srv, http.MethodPost, "/api/projects/"+bad.ID+"/generate-code", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[errorResponse](t, resp)
	assert.Equal(t, "Invalid flow data", body.Error)
	assert.Contains(t, body.Details, "Flow must have at least one end screen")

	resp = do(t, srv, http.MethodPost, "/api/projects/missing/generate-code", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExportProject(t *testing.T) {
	srv, _ := newTestServer(t)
	p := createProject(t, srv, "Pesa Express", true)

	resp := do(t, srv, http.MethodGet, "/api/projects/"+p.ID+"/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="pesa-express.zip"`, resp.Header.Get("Content-Disposition"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "main.go")
	assert.Contains(t, names, "flow-data.json")
	assert.Contains(t, names, "Dockerfile")

	bad := createProject(t, srv, "Broken", false)
	resp = do(t, srv, http.MethodGet, "/api/projects/"+bad.ID+"/export", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestValidateFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, srv, http.MethodPost, "/api/validate-flow", flowJSON(t, true))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ok := decode[validationResponse](t, resp)
	assert.True(t, ok.Valid)
	assert.Empty(t, ok.Errors)
	assert.Equal(t, 2, ok.NodeCount)
	assert.Equal(t, 1, ok.EdgeCount)

	resp = do(t, srv, http.MethodPost, "/api/validate-flow", flowJSON(t, false))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	bad := decode[validationResponse](t, resp)
	assert.False(t, bad.Valid)
	assert.Contains(t, bad.Errors, "Flow must have at least one end screen")

	resp = do(t, srv, http.MethodPost, "/api/validate-flow", map[string]any{"nodes": []any{}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	schema := decode[validationResponse](t, resp)
	assert.False(t, schema.Valid)
	require.Len(t, schema.Errors, 1)
	assert.Contains(t, schema.Errors[0], "edges")

	resp = do(t, srv, http.MethodPost, "/api/validate-flow", map[string]any{"nodes": []any{}, "edges": []any{}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	empty := decode[map[string]any](t, resp)
	assert.Equal(t, false, empty["valid"])
	assert.Contains(t, empty, "nodeCount")
	assert.Contains(t, empty, "edgeCount")
	assert.EqualValues(t, 0, empty["nodeCount"])
}

func TestNodeTypesAndSpec(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, srv, http.MethodGet, "/api/node-types", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	types := decode[[]map[string]any](t, resp)
	assert.Len(t, types, 7)

	resp = do(t, srv, http.MethodGet, "/openapi.yaml", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("openapi: 3.0.3")))

	doc, err := Spec()
	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/api/projects/{id}/generate-code"))
}

func TestRequestValidation(t *testing.T) {
	srv, _ := newTestServer(t, WithRequestValidation())

	resp := do(t, srv, http.MethodPost, "/api/projects", map[string]any{"name": 42})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Validation error", decode[errorResponse](t, resp).Error)

	created := createProject(t, srv, "Valid", true)
	assert.NotEmpty(t, created.ID)
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(t, WithCORSOrigins("https://studio.example"))

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/projects", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://studio.example")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://studio.example", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example")
	resp, err = srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, WithRateLimit(0.001, 2))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp := do(t, srv, http.MethodGet, "/health", nil)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestMetricsHandler(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ussdflow_generations_total 0\n")
	})
	srv, _ := newTestServer(t, WithMetricsHandler(metrics))

	resp := do(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ussdflow_generations_total")
}

func TestSubscribeEvents(t *testing.T) {
	srv, streams := newTestServer(t)
	p := createProject(t, srv, "Live", true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/projects/"+p.ID+"/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())
	require.Eventually(t, func() bool { return streams.Subscribers(p.ID) == 1 }, time.Second, 10*time.Millisecond)

	upd := do(t, srv, http.MethodPut, "/api/projects/"+p.ID, map[string]any{"description": "changed"})
	require.Equal(t, http.StatusOK, upd.StatusCode)

	var event domain.ProjectEvent
	for lines.Scan() {
		if data, ok := strings.CutPrefix(lines.Text(), "data: {"); ok {
			require.NoError(t, json.Unmarshal([]byte("{"+data), &event))
			break
		}
	}
	assert.Equal(t, domain.EventProjectUpdated, event.Type)
	assert.Equal(t, p.ID, event.ProjectID)

	resp404 := do(t, srv, http.MethodGet, "/api/projects/missing/events", nil)
	assert.Equal(t, http.StatusNotFound, resp404.StatusCode)
}

func TestStreamManager_DropsForSlowClients(t *testing.T) {
	sm := NewStreamManager(nil)
	ch, cancel := sm.Subscribe("p")
	for i := 0; i < 20; i++ {
		sm.Broadcast("p", "msg")
	}
	assert.Len(t, ch, 10)

	cancel()
	cancel()
	assert.Zero(t, sm.Subscribers("p"))
}
