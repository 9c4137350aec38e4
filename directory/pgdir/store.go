// Package pgdir implements [goPassport.UserDirectory] on PostgreSQL using
// pgx/v5. Principals live in the users table; active tokens live in
// user_tokens, ordered by an insertion sequence.
package pgdir

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	goPassport "github.com/MrEthical07/goPassport"
	"github.com/MrEthical07/goPassport/directory"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Querier is the subset of [pgxpool.Pool] the store uses. A [pgx.Tx] or
// [*pgx.Conn] also satisfies it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store is a PostgreSQL-backed [goPassport.UserDirectory].
type Store struct {
	db        Querier
	pool      *pgxpool.Pool
	maxTokens int
	logger    *slog.Logger
}

var _ directory.Store = (*Store)(nil)

// New opens a connection pool for cfg.DSN. If MigrateOnStart is true, schema
// migrations are applied before returning.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := NewWithQuerier(pool, cfg.MaxTokensPerUser, logger)
	s.pool = pool

	if cfg.MigrateOnStart {
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// NewWithQuerier wraps an existing pool, connection or transaction.
func NewWithQuerier(db Querier, maxTokens int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{db: db, maxTokens: maxTokens, logger: logger}
}

const selectPrincipal = `
	SELECT u.id, u.account, u.password_hash,
	       COALESCE(array_agg(t.token ORDER BY t.seq) FILTER (WHERE t.token IS NOT NULL), '{}')
	FROM users u
	LEFT JOIN user_tokens t ON t.user_id = u.id
`

// FindByAccount loads the principal registered under account.
func (s *Store) FindByAccount(ctx context.Context, account string) (*goPassport.Principal, error) {
	return s.scanPrincipal(s.db.QueryRow(ctx,
		selectPrincipal+` WHERE u.account = $1 GROUP BY u.id`,
		account,
	))
}

// FindByID loads a principal and its active tokens, oldest first.
func (s *Store) FindByID(ctx context.Context, id string) (*goPassport.Principal, error) {
	return s.scanPrincipal(s.db.QueryRow(ctx,
		selectPrincipal+` WHERE u.id = $1 GROUP BY u.id`,
		id,
	))
}

// FindByIDAndActiveToken returns the principal only if token is currently one
// of its active tokens. Membership and the record are read in one statement.
func (s *Store) FindByIDAndActiveToken(ctx context.Context, id, token string) (*goPassport.Principal, error) {
	return s.scanPrincipal(s.db.QueryRow(ctx,
		selectPrincipal+`
		WHERE u.id = $1
		  AND EXISTS (SELECT 1 FROM user_tokens a WHERE a.user_id = $1 AND a.token = $2)
		GROUP BY u.id`,
		id, token,
	))
}

func (s *Store) scanPrincipal(row pgx.Row) (*goPassport.Principal, error) {
	var p goPassport.Principal
	err := row.Scan(&p.ID, &p.Account, &p.PasswordHash, &p.Tokens)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, goPassport.ErrPrincipalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying principal: %w", err)
	}
	if p.Tokens == nil {
		p.Tokens = []string{}
	}
	return &p, nil
}

// Create registers a new principal with a random ID. It returns
// [goPassport.ErrAccountExists] if the account is taken.
func (s *Store) Create(ctx context.Context, account, passwordHash string) (*goPassport.Principal, error) {
	if account == "" {
		return nil, errors.New("account must not be empty")
	}
	id := uuid.NewString()
	_, err := s.db.Exec(ctx,
		`INSERT INTO users (id, account, password_hash) VALUES ($1, $2, $3)`,
		id, account, passwordHash,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, goPassport.ErrAccountExists
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return &goPassport.Principal{ID: id, Account: account, PasswordHash: passwordHash, Tokens: []string{}}, nil
}

// AddToken appends token to the principal's active set, evicting the oldest
// tokens beyond MaxTokensPerUser in the same transaction.
func (s *Store) AddToken(ctx context.Context, id, token string) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_tokens (user_id, token) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			id, token,
		); err != nil {
			return fmt.Errorf("inserting token: %w", err)
		}
		if s.maxTokens <= 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, `
			DELETE FROM user_tokens
			WHERE user_id = $1
			  AND seq NOT IN (
			      SELECT seq FROM user_tokens WHERE user_id = $1 ORDER BY seq DESC LIMIT $2
			  )`,
			id, s.maxTokens,
		); err != nil {
			return fmt.Errorf("evicting tokens: %w", err)
		}
		return nil
	})
}

// ReplaceToken atomically swaps oldToken for newToken. It returns
// [goPassport.ErrTokenNotActive] if oldToken was already revoked.
func (s *Store) ReplaceToken(ctx context.Context, id, oldToken, newToken string) error {
	tag, err := s.db.Exec(ctx, `
		WITH removed AS (
		    DELETE FROM user_tokens WHERE user_id = $1 AND token = $2 RETURNING user_id
		)
		INSERT INTO user_tokens (user_id, token) SELECT user_id, $3 FROM removed`,
		id, oldToken, newToken,
	)
	if err != nil {
		return fmt.Errorf("replacing token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return goPassport.ErrTokenNotActive
	}
	return nil
}

// UpdatePasswordHash replaces the stored hash. It returns
// [goPassport.ErrPrincipalNotFound] if id does not exist.
func (s *Store) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`,
		id, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("updating password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return goPassport.ErrPrincipalNotFound
	}
	return nil
}

// RemoveToken revokes a single token. Removing an absent token is not an error.
func (s *Store) RemoveToken(ctx context.Context, id, token string) error {
	if _, err := s.db.Exec(ctx,
		`DELETE FROM user_tokens WHERE user_id = $1 AND token = $2`,
		id, token,
	); err != nil {
		return fmt.Errorf("deleting token: %w", err)
	}
	return nil
}

// RemoveAllTokens revokes every token of the principal.
func (s *Store) RemoveAllTokens(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM user_tokens WHERE user_id = $1`, id); err != nil {
		return fmt.Errorf("deleting tokens: %w", err)
	}
	return nil
}

// Delete removes the principal; its tokens cascade.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}

// HealthCheck verifies the database is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	var one int
	return s.db.QueryRow(ctx, "SELECT 1").Scan(&one)
}

// Close closes the pool opened by [New]. It is a no-op for stores built with
// [NewWithQuerier].
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
