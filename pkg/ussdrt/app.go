package ussdrt

import (
	"context"
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

const failureText = "Service temporarily unavailable. Please try again later."

// MaxTextLength bounds the accumulated input history accepted per turn.
const MaxTextLength = 1024

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

// DispatchFunc routes a turn to the handler of the session's current step.
type DispatchFunc func(ctx context.Context, rt *Runtime, sess *Session, req Request) Reply

// App wires the runtime, the session store and the step dispatch table into
// an HTTP service.
type App struct {
	Service   string
	StartStep string
	Runtime   *Runtime
	Sessions  SessionStore
	Dispatch  DispatchFunc
	Logger    *slog.Logger
	Now       func() time.Time
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// Router exposes POST /ussd and GET /health.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(a.Recoverer, SecurityHeaders, CORS)

	r.Get("/health", a.health)
	r.With(a.RequestMiddleware, a.SessionMiddleware).Post("/ussd", a.serveUSSD)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusNotFound, End("Service not found.").String())
	})
	return r
}

func (a *App) serveUSSD(w http.ResponseWriter, r *http.Request) {
	req, _ := RequestFrom(r.Context())
	sess, ok := SessionFrom(r.Context())
	if !ok {
		writeText(w, http.StatusOK, End(failureText).String())
		return
	}

	reply := a.Dispatch(r.Context(), a.Runtime, sess, req)
	if reply.End {
		sess.Terminate()
	}
	if err := a.commitSession(r.Context(), sess); err != nil {
		a.logger().Error("session commit failed", "key", sess.Key, "err", err)
		writeText(w, http.StatusOK, End(failureText).String())
		return
	}
	writeText(w, http.StatusOK, reply.String())
}

func (a *App) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":    "ok",
		"service":   a.Service,
		"timestamp": a.now().UTC().Format(time.RFC3339),
	})
}

type requestKey struct{}

// RequestFrom returns the request parsed by RequestMiddleware.
func RequestFrom(ctx context.Context) (Request, bool) {
	req, ok := ctx.Value(requestKey{}).(Request)
	return req, ok
}

// RequestMiddleware parses the USSD fields from a form or JSON body and
// rejects incomplete requests with 400.
func (a *App) RequestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := parseRequest(r)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		var missing []string
		if req.SessionID == "" {
			missing = append(missing, "sessionId")
		}
		if req.PhoneNumber == "" {
			missing = append(missing, "phoneNumber")
		}
		if req.ServiceCode == "" {
			missing = append(missing, "serviceCode")
		}
		if len(missing) > 0 {
			writeJSONError(w, http.StatusBadRequest, "Missing required fields: "+strings.Join(missing, ", "))
			return
		}
		if !phonePattern.MatchString(req.PhoneNumber) {
			writeJSONError(w, http.StatusBadRequest, "Invalid phone number format")
			return
		}
		if len(req.Text) > MaxTextLength {
			writeJSONError(w, http.StatusBadRequest, "Input too long")
			return
		}

		ctx := context.WithValue(r.Context(), requestKey{}, req)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func parseRequest(r *http.Request) (Request, error) {
	var req Request
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		r.Body = http.MaxBytesReader(nil, r.Body, 64<<10)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return Request{}, err
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return Request{}, err
		}
		req = Request{
			SessionID:   r.PostForm.Get("sessionId"),
			PhoneNumber: r.PostForm.Get("phoneNumber"),
			ServiceCode: r.PostForm.Get("serviceCode"),
			Text:        r.PostForm.Get("text"),
		}
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.ServiceCode = strings.TrimSpace(req.ServiceCode)
	req.Text = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, req.Text)
	return req, nil
}

// Recoverer turns a panic into a USSD termination line.
func (a *App) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				a.logger().Error("panic while serving request", "path", r.URL.Path, "panic", rec)
				writeText(w, http.StatusOK, End(failureText).String())
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders sets conservative response headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'")
		h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// CORS allows cross-origin calls from any origin.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
