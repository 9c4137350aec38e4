package goPassport

import (
	"context"
	"log/slog"
	"net/http"

	internalaudit "github.com/MrEthical07/goPassport/internal/audit"
)

// Engine owns the two authentication strategies and their shared metrics and
// audit pipeline. It is immutable after [Builder.Build] and safe for
// concurrent use.
type Engine struct {
	config      Config
	credentials *CredentialVerifier
	tokens      *TokenValidator
	metrics     *Metrics
	audit       *internalaudit.Dispatcher
	logger      *slog.Logger
}

// CredentialVerifier returns the account/password strategy.
func (e *Engine) CredentialVerifier() *CredentialVerifier {
	if e == nil {
		return nil
	}
	return e.credentials
}

// TokenValidator returns the bearer-token strategy.
func (e *Engine) TokenValidator() *TokenValidator {
	if e == nil {
		return nil
	}
	return e.tokens
}

// VerifyCredentials is shorthand for CredentialVerifier().Verify.
func (e *Engine) VerifyCredentials(ctx context.Context, account, password string) Outcome {
	return e.CredentialVerifier().Verify(ctx, account, password)
}

// Authenticate is shorthand for TokenValidator().Authenticate.
func (e *Engine) Authenticate(ctx context.Context, r *http.Request) Outcome {
	return e.TokenValidator().Authenticate(ctx, r)
}

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return defaultConfig()
	}
	return cloneConfig(e.config)
}

// Logger returns the engine's logger, for routers that want to log alongside it.
func (e *Engine) Logger() *slog.Logger {
	if e == nil || e.logger == nil {
		return slog.Default()
	}
	return e.logger
}

// Close drains and stops the audit dispatcher. It is safe to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped reports how many audit events were dropped because the buffer
// was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return (*Metrics)(nil).Snapshot()
	}
	return e.metrics.Snapshot()
}
