package directory

import (
	"context"

	goPassport "github.com/MrEthical07/goPassport"
)

// Store is the full directory surface: the engine's read contract plus the
// account and token mutations routers perform.
type Store interface {
	goPassport.UserDirectory

	FindByID(ctx context.Context, id string) (*goPassport.Principal, error)
	Create(ctx context.Context, account, passwordHash string) (*goPassport.Principal, error)
	Delete(ctx context.Context, id string) error
	// UpdatePasswordHash replaces the stored hash, for example after a
	// successful login with a hash in an outdated scheme.
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error

	// AddToken appends token as the newest entry, evicting the oldest ones
	// when a per-principal cap is configured.
	AddToken(ctx context.Context, id, token string) error
	// ReplaceToken swaps oldToken for newToken in one step. It returns
	// [goPassport.ErrTokenNotActive] if oldToken is not held.
	ReplaceToken(ctx context.Context, id, oldToken, newToken string) error
	RemoveToken(ctx context.Context, id, token string) error
	RemoveAllTokens(ctx context.Context, id string) error
}
