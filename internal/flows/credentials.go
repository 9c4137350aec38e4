package flows

import (
	"context"
	"errors"
)

// CredentialFailureKind classifies credential verification failures for
// root-level mapping.
type CredentialFailureKind int

const (
	// CredentialFailureNone means the credentials matched.
	CredentialFailureNone CredentialFailureKind = iota
	// CredentialFailureUnknownAccount means no principal has the account.
	CredentialFailureUnknownAccount
	// CredentialFailureInvalidPassword means the password did not match.
	CredentialFailureInvalidPassword
	// CredentialFailureUnknown covers lookup and hashing faults.
	CredentialFailureUnknown
)

// CredentialResult returns either the matched principal or a classified failure.
type CredentialResult[P any] struct {
	Failure   CredentialFailureKind
	Err       error
	Principal P
}

// CredentialDeps captures credential verification dependencies.
type CredentialDeps[P any] struct {
	// FindByAccount returns found=false (with a nil error) when the account
	// does not exist.
	FindByAccount   func(ctx context.Context, account string) (P, bool, error)
	PasswordHash    func(P) string
	ComparePassword func(plaintext, hash string) (bool, error)
}

// RunVerifyCredentials looks the account up, then compares the password. The
// existence check always precedes the password check.
func RunVerifyCredentials[P any](ctx context.Context, account, password string, deps CredentialDeps[P]) (res CredentialResult[P]) {
	defer func() {
		if r := recover(); r != nil {
			res = CredentialResult[P]{
				Failure: CredentialFailureUnknown,
				Err:     recoveredError("verify credentials", r),
			}
		}
	}()

	if deps.FindByAccount == nil || deps.PasswordHash == nil || deps.ComparePassword == nil {
		return CredentialResult[P]{Failure: CredentialFailureUnknown, Err: errors.New("credential flow dependencies missing")}
	}

	principal, found, err := deps.FindByAccount(ctx, account)
	if err != nil {
		return CredentialResult[P]{Failure: CredentialFailureUnknown, Err: err}
	}
	if !found {
		return CredentialResult[P]{Failure: CredentialFailureUnknownAccount}
	}

	ok, err := deps.ComparePassword(password, deps.PasswordHash(principal))
	if err != nil {
		return CredentialResult[P]{Failure: CredentialFailureUnknown, Err: err}
	}
	if !ok {
		return CredentialResult[P]{Failure: CredentialFailureInvalidPassword}
	}

	return CredentialResult[P]{Principal: principal}
}
