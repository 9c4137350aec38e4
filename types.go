package goPassport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	internalaudit "github.com/MrEthical07/goPassport/internal/audit"
)

// Principal is the identity record held by a [UserDirectory]. Tokens is the
// ordered active-token collection (oldest first), one entry per logged-in
// device. The core only reads it; directories and routers mutate it.
type Principal struct {
	ID           string
	Account      string
	PasswordHash string
	Tokens       []string
}

// HasToken reports whether token is currently in the principal's active set.
func (p *Principal) HasToken(token string) bool {
	if p == nil {
		return false
	}
	for _, t := range p.Tokens {
		if t == token {
			return true
		}
	}
	return false
}

// Claims are the decoded fields of a bearer token. They are untrusted until
// cross-checked against the directory's active-token collection.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
	IssuedAt  time.Time
	ID        string
}

// Outcome is the result of a single verification call: either authenticated
// (Kind == [KindNone], Principal set) or rejected (Principal nil, Kind set).
// Outcomes are only built by this package so a partial result cannot exist.
type Outcome struct {
	Principal *Principal
	// Token is the exact bearer token that authenticated the request. It is
	// empty for credential outcomes and for rejections.
	Token string
	Kind  RejectionKind
	// Err holds the underlying cause of a rejection, if any.
	Err error
}

func authenticated(p *Principal, token string) Outcome {
	return Outcome{Principal: p, Token: token, Kind: KindNone}
}

func rejected(kind RejectionKind, cause error) Outcome {
	if kind == KindNone {
		kind = KindUnknown
	}
	return Outcome{Kind: kind, Err: cause}
}

// Authenticated reports whether the outcome carries an authenticated principal.
func (o Outcome) Authenticated() bool {
	return o.Kind == KindNone && o.Principal != nil
}

// Error returns nil for authenticated outcomes and a [*RejectionError] otherwise.
func (o Outcome) Error() error {
	if o.Authenticated() {
		return nil
	}
	kind := o.Kind
	if kind == KindNone {
		kind = KindUnknown
	}
	return &RejectionError{Kind: kind, Cause: o.Err}
}

// UserDirectory is the persistence abstraction both strategies read from.
// Implementations return [ErrPrincipalNotFound] when nothing matches; any other
// error is treated as a fault. Both methods are read-only from the core's view.
type UserDirectory interface {
	FindByAccount(ctx context.Context, account string) (*Principal, error)
	FindByIDAndActiveToken(ctx context.Context, id, token string) (*Principal, error)
}

// PasswordHasher is a one-way hash comparison primitive. Compare returns an
// error only when the stored hash cannot be interpreted.
type PasswordHasher interface {
	Compare(plaintext, hash string) (bool, error)
}

// ClaimsDecoder verifies a raw bearer token and returns its claims. Decoders
// must verify the signature but must not reject expired tokens; expiry is
// decided by [TokenValidator] so grace-exempt paths keep working.
type ClaimsDecoder interface {
	DecodeClaims(token string) (Claims, error)
}

// TokenExtractor pulls the raw bearer token out of a request. The same
// extractor is used for decoding and for the active-token lookup.
type TokenExtractor func(r *http.Request) (string, bool)

// PathResolver returns the logical path of a request, matched against the
// grace-exempt allow-list.
type PathResolver func(r *http.Request) string

// AuditEvent is a structured audit record emitted by the strategies.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink is an [AuditSink] that logs events through a [log/slog.Logger].
type SlogSink = internalaudit.SlogSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewSlogSink creates a [SlogSink] that logs through logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}
