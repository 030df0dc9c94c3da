package ussdrt

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultCallTimeout bounds outbound calls that configure no timeout.
const DefaultCallTimeout = 10 * time.Second

// PaymentRequest is what a provider needs to start a payment.
type PaymentRequest struct {
	Provider          string
	PhoneNumber       string
	Amount            float64
	AccountReference  string
	BusinessShortCode string
	CallbackURL       string
	Passkey           string
}

// secretEnv names the variable holding each provider's signing secret.
var secretEnv = map[string]string{
	"mpesa":  "MPESA_PASSKEY",
	"airtel": "AIRTEL_CLIENT_SECRET",
	"mtn":    "MTN_API_KEY",
}

// SecretsFromEnv reads provider secrets from the environment, skipping
// unset ones.
func SecretsFromEnv() map[string]string {
	secrets := map[string]string{}
	for provider, key := range secretEnv {
		if v := os.Getenv(key); v != "" {
			secrets[provider] = v
		}
	}
	return secrets
}

// PaymentInitiator starts an asynchronous payment and returns its reference.
type PaymentInitiator interface {
	Initiate(ctx context.Context, req PaymentRequest) (string, error)
}

// PaymentInitiatorFunc adapts a function to PaymentInitiator.
type PaymentInitiatorFunc func(ctx context.Context, req PaymentRequest) (string, error)

func (f PaymentInitiatorFunc) Initiate(ctx context.Context, req PaymentRequest) (string, error) {
	return f(ctx, req)
}

// StubPayment returns an initiator that accepts every request and answers
// with prefix followed by the current Unix time in milliseconds.
func StubPayment(prefix string, now func() time.Time) PaymentInitiator {
	return PaymentInitiatorFunc(func(ctx context.Context, _ PaymentRequest) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s%d", prefix, now().UnixMilli()), nil
	})
}

// Runtime carries the collaborators every lowered step may use.
type Runtime struct {
	HTTPClient     *http.Client
	Payments       map[string]PaymentInitiator
	Secrets        map[string]string
	DataGatewayURL string
	Logger         *slog.Logger
	Now            func() time.Time
}

// NewRuntime returns a runtime with stubbed mpesa, airtel and mtn providers.
func NewRuntime(logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Runtime{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     logger,
		Now:        time.Now,
	}
	rt.Payments = map[string]PaymentInitiator{
		"mpesa":  StubPayment("MP", rt.now),
		"airtel": StubPayment("AM", rt.now),
		"mtn":    StubPayment("MT", rt.now),
	}
	return rt
}

func (rt *Runtime) now() time.Time {
	if rt.Now != nil {
		return rt.Now()
	}
	return time.Now()
}

func (rt *Runtime) log() *slog.Logger {
	if rt.Logger != nil {
		return rt.Logger
	}
	return slog.Default()
}

func (rt *Runtime) client() *http.Client {
	if rt.HTTPClient != nil {
		return rt.HTTPClient
	}
	return http.DefaultClient
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
