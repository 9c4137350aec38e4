package goPassport

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/goPassport/internal/flows"
)

// CredentialVerifier validates an account/password pair against the
// [UserDirectory]. It is immutable after [Builder.Build] and safe for
// concurrent use.
type CredentialVerifier struct {
	deps    flows.CredentialDeps[*Principal]
	metrics *Metrics
	audit   auditEmitter
	logger  *slog.Logger
	now     func() time.Time
}

func newCredentialVerifier(dir UserDirectory, hasher PasswordHasher, obs observer) *CredentialVerifier {
	return &CredentialVerifier{
		deps: flows.CredentialDeps[*Principal]{
			FindByAccount: func(ctx context.Context, account string) (*Principal, bool, error) {
				return found(dir.FindByAccount(ctx, account))
			},
			PasswordHash: func(p *Principal) string {
				return p.PasswordHash
			},
			ComparePassword: hasher.Compare,
		},
		metrics: obs.metrics,
		audit:   obs.audit,
		logger:  obs.logger,
		now:     obs.now,
	}
}

// Verify looks up account and compares password against the stored hash.
//
// The outcome is [KindUnknownAccount] when the account does not exist,
// [KindInvalidPassword] when the hash comparison fails, [KindUnknown] for any
// directory or hasher fault, and authenticated (without a token) otherwise.
// Verify never panics and performs exactly one directory read.
func (v *CredentialVerifier) Verify(ctx context.Context, account, password string) Outcome {
	if v == nil {
		return rejected(KindUnknown, ErrEngineNotReady)
	}

	res := flows.RunVerifyCredentials(ctx, account, password, v.deps)

	var out Outcome
	switch res.Failure {
	case flows.CredentialFailureNone:
		out = authenticated(res.Principal, "")
	case flows.CredentialFailureUnknownAccount:
		out = rejected(KindUnknownAccount, res.Err)
	case flows.CredentialFailureInvalidPassword:
		out = rejected(KindInvalidPassword, res.Err)
	default:
		out = rejected(KindUnknown, res.Err)
	}

	v.observe(ctx, account, out)
	return out
}

func (v *CredentialVerifier) observe(ctx context.Context, account string, out Outcome) {
	v.metrics.Inc(credentialMetric(out.Kind))

	if out.Authenticated() {
		v.logger.DebugContext(ctx, "credentials verified", "account", account, "user_id", out.Principal.ID)
		v.audit.emit(ctx, auditEventCredentialAuthenticated, true, out.Principal.ID, out.Kind, map[string]string{
			"account": account,
		})
		return
	}

	if out.Kind == KindUnknown {
		v.logger.ErrorContext(ctx, "credential verification failed", "account", account, "error", out.Err)
	} else {
		v.logger.DebugContext(ctx, "credentials rejected", "account", account, "kind", out.Kind.String())
	}
	v.audit.emit(ctx, auditEventCredentialRejected, false, "", out.Kind, map[string]string{
		"account": account,
	})
}

// found adapts the directory contract (ErrPrincipalNotFound or a nil principal
// means "none") to the flow contract (found=false, nil error).
func found(p *Principal, err error) (*Principal, bool, error) {
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if p == nil {
		return nil, false, nil
	}
	return p, true, nil
}
