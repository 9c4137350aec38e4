package goPassport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/goPassport/internal/flows"
)

// DefaultGraceExemptPaths are the logical paths reachable with an expired
// token: renewing the token and logging out.
var DefaultGraceExemptPaths = []string{"/user/extend", "/user/logout"}

// TokenValidator validates the bearer token attached to a request. Expiry is
// checked against the claims first; the directory's active-token collection is
// then consulted on every call and is authoritative. TokenValidator is
// immutable after [Builder.Build] and safe for concurrent use.
type TokenValidator struct {
	dir      UserDirectory
	decoder  ClaimsDecoder
	extract  TokenExtractor
	path     PathResolver
	graceSet map[string]struct{}
	metrics  *Metrics
	audit    auditEmitter
	logger   *slog.Logger
	now      func() time.Time
}

func newTokenValidator(
	dir UserDirectory,
	decoder ClaimsDecoder,
	extract TokenExtractor,
	path PathResolver,
	gracePaths []string,
	obs observer,
) *TokenValidator {
	graceSet := make(map[string]struct{}, len(gracePaths))
	for _, p := range gracePaths {
		graceSet[p] = struct{}{}
	}

	return &TokenValidator{
		dir:      dir,
		decoder:  decoder,
		extract:  extract,
		path:     path,
		graceSet: graceSet,
		metrics:  obs.metrics,
		audit:    obs.audit,
		logger:   obs.logger,
		now:      obs.now,
	}
}

// IsGraceExempt reports whether path may be reached with an expired token.
func (v *TokenValidator) IsGraceExempt(path string) bool {
	if v == nil {
		return false
	}
	_, ok := v.graceSet[path]
	return ok
}

// Authenticate runs the full request pipeline: extract the bearer token,
// decode and signature-verify its claims, then [TokenValidator.Validate].
// A missing token or a token that fails decoding is [KindInvalidToken].
func (v *TokenValidator) Authenticate(ctx context.Context, r *http.Request) Outcome {
	if v == nil || v.decoder == nil {
		return rejected(KindUnknown, ErrEngineNotReady)
	}

	raw, ok := v.extract(r)
	if !ok {
		out := rejected(KindInvalidToken, flows.ErrTokenMissing)
		v.observe(ctx, v.path(r), out, false)
		return out
	}

	claims, err := v.decoder.DecodeClaims(raw)
	if err != nil {
		out := rejected(KindInvalidToken, err)
		v.observe(ctx, v.path(r), out, false)
		return out
	}

	return v.Validate(ctx, r, claims)
}

// Validate decides a request given its already-decoded claims.
//
// Expired claims are rejected with [KindExpired] unless the request path is
// grace-exempt. The raw token is then re-extracted from r and the principal
// named by claims.Subject must currently hold that exact token, otherwise the
// outcome is [KindInvalidToken]. Directory faults map to [KindUnknown]. On
// success the outcome carries both the principal and the token string.
func (v *TokenValidator) Validate(ctx context.Context, r *http.Request, claims Claims) Outcome {
	if v == nil {
		return rejected(KindUnknown, ErrEngineNotReady)
	}
	if v.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { v.metrics.Observe(MetricValidateLatency, time.Since(start)) }()
	}

	path := v.path(r)
	res := flows.RunValidateToken(ctx, flows.TokenInput{
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt,
		Path:      path,
	}, flows.TokenDeps[*Principal]{
		Now:           v.now,
		IsGraceExempt: v.IsGraceExempt,
		ExtractToken: func() (string, bool) {
			return v.extract(r)
		},
		FindByIDAndActiveToken: func(ctx context.Context, id, token string) (*Principal, bool, error) {
			return found(v.dir.FindByIDAndActiveToken(ctx, id, token))
		},
	})

	var out Outcome
	switch res.Failure {
	case flows.TokenFailureNone:
		out = authenticated(res.Principal, res.Token)
	case flows.TokenFailureExpired:
		out = rejected(KindExpired, res.Err)
	case flows.TokenFailureInvalidToken:
		out = rejected(KindInvalidToken, res.Err)
	default:
		out = rejected(KindUnknown, res.Err)
	}

	v.observe(ctx, path, out, res.GraceAccepted)
	return out
}

func (v *TokenValidator) observe(ctx context.Context, path string, out Outcome, grace bool) {
	v.metrics.Inc(tokenMetric(out.Kind))

	if out.Authenticated() {
		event := auditEventTokenAuthenticated
		if grace {
			v.metrics.Inc(MetricTokenGraceAccepted)
			event = auditEventTokenGraceAccepted
		}
		v.logger.DebugContext(ctx, "token accepted", "path", path, "user_id", out.Principal.ID, "grace", grace)
		v.audit.emit(ctx, event, true, out.Principal.ID, out.Kind, map[string]string{
			"path": path,
		})
		return
	}

	if out.Kind == KindUnknown {
		v.logger.ErrorContext(ctx, "token validation failed", "path", path, "error", out.Err)
	} else {
		v.logger.DebugContext(ctx, "token rejected", "path", path, "kind", out.Kind.String())
	}
	v.audit.emit(ctx, auditEventTokenRejected, false, "", out.Kind, map[string]string{
		"path": path,
	})
}
