package goPassport

import "errors"

var (
	// ErrUnknownAccount is returned when no principal matches the supplied account.
	ErrUnknownAccount = errors.New("account does not exist")
	// ErrInvalidPassword is returned when the password does not match the stored hash.
	ErrInvalidPassword = errors.New("incorrect password")
	// ErrExpired is returned when the token is expired on a path that is not grace-exempt.
	ErrExpired = errors.New("session expired")
	// ErrInvalidToken is returned when no principal currently holds the presented token.
	ErrInvalidToken = errors.New("session invalid")
	// ErrUnknown is returned for any unanticipated fault during verification.
	ErrUnknown = errors.New("unknown error")

	// ErrPrincipalNotFound is returned by [UserDirectory] implementations when a lookup
	// matches no principal.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrAccountExists is returned by directory implementations when an account
	// identifier is already taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrTokenNotActive is returned by directory token mutations when the token
	// being replaced is not in the principal's active set.
	ErrTokenNotActive = errors.New("token not active")
	// ErrEngineNotReady is returned when a strategy is used before [Builder.Build].
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RejectionKind is the closed set of reasons an authentication attempt can be
// rejected for. The zero value, [KindNone], marks an authenticated outcome.
type RejectionKind uint8

const (
	// KindNone marks an authenticated outcome.
	KindNone RejectionKind = iota
	// KindUnknownAccount means no principal matches the supplied account.
	KindUnknownAccount
	// KindInvalidPassword means the password comparison failed.
	KindInvalidPassword
	// KindExpired means the token is expired and the path is not grace-exempt.
	KindExpired
	// KindInvalidToken means no principal holds this exact token.
	KindInvalidToken
	// KindUnknown means an unanticipated fault occurred during verification.
	KindUnknown
)

var rejectionSentinels = [...]error{
	KindNone:            nil,
	KindUnknownAccount:  ErrUnknownAccount,
	KindInvalidPassword: ErrInvalidPassword,
	KindExpired:         ErrExpired,
	KindInvalidToken:    ErrInvalidToken,
	KindUnknown:         ErrUnknown,
}

var rejectionNames = [...]string{
	KindNone:            "none",
	KindUnknownAccount:  "unknown_account",
	KindInvalidPassword: "invalid_password",
	KindExpired:         "expired",
	KindInvalidToken:    "invalid_token",
	KindUnknown:         "unknown",
}

// String returns the stable snake_case name of k, used in logs, audit events and
// API responses.
func (k RejectionKind) String() string {
	if int(k) < len(rejectionNames) {
		return rejectionNames[k]
	}
	return rejectionNames[KindUnknown]
}

// Sentinel returns the sentinel error for k, or nil for [KindNone].
// Out-of-range kinds map to [ErrUnknown].
func (k RejectionKind) Sentinel() error {
	if int(k) < len(rejectionSentinels) {
		return rejectionSentinels[k]
	}
	return ErrUnknown
}

// Kinds lists every rejection kind, excluding [KindNone].
func Kinds() []RejectionKind {
	return []RejectionKind{
		KindUnknownAccount,
		KindInvalidPassword,
		KindExpired,
		KindInvalidToken,
		KindUnknown,
	}
}

// RejectionError is the error form of a rejected [Outcome]. It matches both the
// kind's sentinel error and the underlying cause with [errors.Is].
type RejectionError struct {
	Kind  RejectionKind
	Cause error
}

func (e *RejectionError) Error() string {
	msg := e.Kind.Sentinel().Error()
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *RejectionError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind.Sentinel()}
	}
	return []error{e.Kind.Sentinel(), e.Cause}
}

// KindOf reports the rejection kind carried by err. Errors that are not
// rejections map to [KindUnknown]; a nil error maps to [KindNone].
func KindOf(err error) RejectionKind {
	if err == nil {
		return KindNone
	}
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Kind
	}
	for _, kind := range Kinds() {
		if errors.Is(err, kind.Sentinel()) {
			return kind
		}
	}
	return KindUnknown
}
