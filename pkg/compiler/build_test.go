package compiler

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// serveTest drives the generated dispatch table through App.Router inside
// the generated module itself.
const serveTest = `package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func post(t *testing.T, h http.Handler, text string) string {
	t.Helper()
	form := url.Values{
		"sessionId":   {"s1"},
		"phoneNumber": {"+254700000000"},
		"serviceCode": {"*384#"},
		"text":        {text},
	}
	req := httptest.NewRequest(http.MethodPost, "/ussd", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST %q: status %d", text, rec.Code)
	}
	return rec.Body.String()
}

func TestGeneratedService(t *testing.T) {
	app := &App{
		Service:   serviceName,
		StartStep: startStep,
		Runtime:   NewRuntime(nil),
		Sessions:  NewMemoryStore(time.Minute),
		Dispatch:  dispatch,
	}
	h := app.Router()

	turns := []struct{ text, want string }{
		{"", "CON Welcome to Pesa\n1. Send money\n2. Balance"},
		{"1", "CON Enter amount"},
		{"1*5", "CON Minimum value is 10. Please try again."},
		{"1*5*5000", "CON Input received. Processing..."},
	}
	for _, turn := range turns {
		if got := post(t, h, turn.text); got != turn.want {
			t.Fatalf("POST %q = %q, want %q", turn.text, got, turn.want)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var health map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("health body: %v", err)
	}
	if health["status"] != "ok" || health["service"] != serviceName {
		t.Fatalf("health = %v", health)
	}
}
`

func goTool(t *testing.T, dir string, args ...string) ([]byte, error) {
	t.Helper()
	cmd := exec.Command("go", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GOWORK=off", "GOFLAGS=-mod=mod", "GOSUMDB=off")
	return cmd.CombinedOutput()
}

func TestGenerate_ProgramBuildsAndServes(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the generated module with the go tool")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go tool not on PATH")
	}

	p := generate(t, sendMoney().Graph(), "Pesa Express")
	dir := t.TempDir()
	for name, content := range p.Files() {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "service_test.go"), []byte(serveTest), 0o644))

	if out, err := goTool(t, dir, "mod", "download"); err != nil {
		t.Skipf("runtime dependencies unavailable: %v\n%s", err, out)
	}

	out, err := goTool(t, dir, "vet", "./...")
	require.NoError(t, err, "go vet:\n%s", out)

	out, err = goTool(t, dir, "test", "-count=1", "./...")
	require.NoError(t, err, "go test:\n%s", out)
}
