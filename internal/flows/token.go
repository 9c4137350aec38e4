package flows

import (
	"context"
	"errors"
	"time"
)

// TokenFailureKind classifies token validation failures for root-level mapping.
type TokenFailureKind int

const (
	// TokenFailureNone means the token was accepted.
	TokenFailureNone TokenFailureKind = iota
	// TokenFailureExpired means the token expired on a path without grace.
	TokenFailureExpired
	// TokenFailureInvalidToken means no principal holds the token.
	TokenFailureInvalidToken
	// TokenFailureUnknown covers lookup faults.
	TokenFailureUnknown
)

// ErrTokenMissing is reported when the request carries no bearer token.
var ErrTokenMissing = errors.New("bearer token missing")

// TokenInput is the per-request input of the token flow: the decoded claims
// and the logical path of the request.
type TokenInput struct {
	Subject   string
	ExpiresAt time.Time
	Path      string
}

// TokenResult returns either the principal and exact token or a classified failure.
type TokenResult[P any] struct {
	Failure   TokenFailureKind
	Err       error
	Principal P
	Token     string
	// GraceAccepted is true when an expired token was accepted because the
	// path is grace-exempt.
	GraceAccepted bool
}

// TokenDeps captures token validation dependencies.
type TokenDeps[P any] struct {
	Now           func() time.Time
	IsGraceExempt func(path string) bool
	// ExtractToken re-reads the raw bearer token from the request. It must be
	// the same extraction routine the claims were decoded from.
	ExtractToken func() (string, bool)
	// FindByIDAndActiveToken returns found=false (with a nil error) when no
	// principal with this id currently holds token.
	FindByIDAndActiveToken func(ctx context.Context, id, token string) (P, bool, error)
}

// RunValidateToken checks claim expiry first (no I/O), then re-extracts the
// token and confirms it is still in the subject's active-token collection.
func RunValidateToken[P any](ctx context.Context, in TokenInput, deps TokenDeps[P]) (res TokenResult[P]) {
	defer func() {
		if r := recover(); r != nil {
			res = TokenResult[P]{
				Failure: TokenFailureUnknown,
				Err:     recoveredError("validate token", r),
			}
		}
	}()

	if deps.Now == nil || deps.IsGraceExempt == nil || deps.ExtractToken == nil || deps.FindByIDAndActiveToken == nil {
		return TokenResult[P]{Failure: TokenFailureUnknown, Err: errors.New("token flow dependencies missing")}
	}

	// A zero ExpiresAt is before any real clock reading, so it counts as expired.
	expired := in.ExpiresAt.Before(deps.Now())
	if expired && !deps.IsGraceExempt(in.Path) {
		return TokenResult[P]{Failure: TokenFailureExpired}
	}

	token, ok := deps.ExtractToken()
	if !ok || token == "" {
		return TokenResult[P]{Failure: TokenFailureInvalidToken, Err: ErrTokenMissing}
	}
	if in.Subject == "" {
		return TokenResult[P]{Failure: TokenFailureInvalidToken}
	}

	principal, found, err := deps.FindByIDAndActiveToken(ctx, in.Subject, token)
	if err != nil {
		return TokenResult[P]{Failure: TokenFailureUnknown, Err: err}
	}
	if !found {
		return TokenResult[P]{Failure: TokenFailureInvalidToken}
	}

	return TokenResult[P]{
		Principal:     principal,
		Token:         token,
		GraceAccepted: expired,
	}
}
