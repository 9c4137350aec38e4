package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	goPassport "github.com/MrEthical07/goPassport"
	"github.com/google/uuid"
)

// RequestIDHeader is read for an inbound request ID and echoed on responses.
const RequestIDHeader = "X-Request-ID"

// Authenticator is the token strategy surface the guard needs.
// *goPassport.Engine and *goPassport.TokenValidator satisfy it.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) goPassport.Outcome
}

type outcomeContextKey struct{}

// PrincipalFromContext returns the principal and token authenticated by
// [RequireToken].
func PrincipalFromContext(ctx context.Context) (*goPassport.Principal, string, bool) {
	out, ok := ctx.Value(outcomeContextKey{}).(goPassport.Outcome)
	if !ok || !out.Authenticated() {
		return nil, "", false
	}
	return out.Principal, out.Token, true
}

// RequireToken rejects requests whose bearer token does not authenticate and
// stores the outcome in the request context otherwise.
func RequireToken(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := withRequestMetadata(w, r)
			if auth == nil {
				WriteRejection(w, r, goPassport.Outcome{Kind: goPassport.KindUnknown, Err: goPassport.ErrEngineNotReady})
				return
			}

			out := auth.Authenticate(ctx, r)
			if !out.Authenticated() {
				WriteRejection(w, r, out)
				return
			}

			ctx = context.WithValue(ctx, outcomeContextKey{}, out)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// withRequestMetadata attaches the client IP and a request ID for audit events.
func withRequestMetadata(w http.ResponseWriter, r *http.Request) context.Context {
	ctx := r.Context()

	requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, requestID)
	ctx = goPassport.WithRequestID(ctx, requestID)

	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	return goPassport.WithClientIP(ctx, ip)
}
