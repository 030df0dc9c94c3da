package ussdrt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultSessionTTL bounds how long an idle session survives.
const DefaultSessionTTL = 5 * time.Minute

// ErrSessionNotFound is returned when a key has no live session.
var ErrSessionNotFound = errors.New("session not found")

// Session is the per-caller state threaded through every step.
type Session struct {
	Key              string            `json:"key"`
	PhoneNumber      string            `json:"phoneNumber"`
	SessionID        string            `json:"sessionId"`
	CurrentStep      string            `json:"currentStep"`
	InputValues      map[string]string `json:"inputValues"`
	APIResponses     map[string]any    `json:"apiResponses"`
	PaymentReference string            `json:"paymentReference,omitempty"`
	Terminated       bool              `json:"terminated,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// SessionKey joins the composite session identity.
func SessionKey(phoneNumber, sessionID string) string {
	return phoneNumber + ":" + sessionID
}

// NewSession starts a session positioned at step.
func NewSession(phoneNumber, sessionID, step string, now time.Time) *Session {
	return &Session{
		Key:          SessionKey(phoneNumber, sessionID),
		PhoneNumber:  phoneNumber,
		SessionID:    sessionID,
		CurrentStep:  step,
		InputValues:  map[string]string{},
		APIResponses: map[string]any{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Terminate marks the session for deletion once the reply is sent.
func (s *Session) Terminate() { s.Terminated = true }

// Value resolves a variable: captured input first, then a dotted path into a
// stored API response ("balance.amount").
func (s *Session) Value(name string) string {
	if v, ok := s.InputValues[name]; ok {
		return v
	}
	root, rest, _ := strings.Cut(name, ".")
	cur, ok := s.APIResponses[root]
	if !ok {
		return ""
	}
	for rest != "" {
		var key string
		key, rest, _ = strings.Cut(rest, ".")
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		if cur, ok = m[key]; !ok {
			return ""
		}
	}
	switch v := cur.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return formatNumber(v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Summary renders captured values as "key: value" lines in key order.
func (s *Session) Summary() string {
	keys := make([]string, 0, len(s.InputValues))
	for k := range s.InputValues {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString("\n" + k + ": " + s.InputValues[k])
	}
	return sb.String()
}

// SessionStore persists sessions between turns. Implementations evict
// sessions idle for longer than their TTL.
type SessionStore interface {
	Load(ctx context.Context, key string) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, key string) error
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryStore keeps sessions in process memory. Expired entries are dropped
// lazily on access and in bulk by Sweep.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryEntry
	ttl   time.Duration
	now   func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) { m.now = now }
}

// NewMemoryStore creates an in-memory store with the given TTL.
func NewMemoryStore(ttl time.Duration, opts ...MemoryOption) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	m := &MemoryStore{items: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryStore) Load(_ context.Context, key string) (*Session, error) {
	m.mu.Lock()
	entry, ok := m.items[key]
	if ok && !m.now().Before(entry.expires) {
		delete(m.items, key)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	var sess Session
	if err := json.Unmarshal(entry.data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (m *MemoryStore) Save(_ context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[sess.Key] = memoryEntry{data: data, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Sweep removes every expired session and reports how many were dropped.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for k, e := range m.items {
		if !now.Before(e.expires) {
			delete(m.items, k)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is cancelled.
func (m *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// RedisStore keeps sessions in Redis, relying on key expiry for eviction.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore creates a Redis-backed store with the given TTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisStore{client: client, ttl: ttl, prefix: "ussd:session:"}
}

func (r *RedisStore) Load(ctx context.Context, key string) (*Session, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (r *RedisStore) Save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+sess.Key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

type sessionKey struct{}

// SessionFrom returns the session attached by SessionMiddleware.
func SessionFrom(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(*Session)
	return sess, ok
}

// SessionMiddleware loads the caller's session, or starts a fresh one at the
// entry step when none is live, and attaches it to the request context. A
// fresh session never interprets the carried-over text, so the entry step
// renders instead of reading a stale choice. It must run after
// RequestMiddleware.
func (a *App) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, ok := RequestFrom(r.Context())
		if !ok {
			writeText(w, http.StatusOK, End(failureText).String())
			return
		}
		key := SessionKey(req.PhoneNumber, req.SessionID)
		ctx := r.Context()
		sess, err := a.Sessions.Load(ctx, key)
		switch {
		case errors.Is(err, ErrSessionNotFound):
			sess = NewSession(req.PhoneNumber, req.SessionID, a.StartStep, a.now())
			req.Text = ""
			ctx = context.WithValue(ctx, requestKey{}, req)
		case err != nil:
			a.logger().Error("session load failed", "key", key, "err", err)
			writeText(w, http.StatusOK, End(failureText).String())
			return
		}
		ctx = context.WithValue(ctx, sessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// commitSession persists the session after a turn, or deletes it once
// terminated.
func (a *App) commitSession(ctx context.Context, sess *Session) error {
	if sess.Terminated {
		return a.Sessions.Delete(ctx, sess.Key)
	}
	sess.UpdatedAt = a.now()
	return a.Sessions.Save(ctx, sess)
}

func (a *App) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
