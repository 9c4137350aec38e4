package redisdir

import (
	"context"
	"errors"
	"fmt"
	"time"

	goPassport "github.com/MrEthical07/goPassport"
	"github.com/MrEthical07/goPassport/directory"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every Redis transport or protocol failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

const (
	fieldAccount      = "account"
	fieldPasswordHash = "password_hash"
)

const createUserScript = `
if redis.call("SETNX", KEYS[1], ARGV[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[2], "account", ARGV[2], "password_hash", ARGV[3])
return 1
`

var createUserLua = redis.NewScript(createUserScript)

// findActiveScript reads the principal only if ARGV[1] is in its token set,
// so membership and the returned record come from the same instant.
const findActiveScript = `
if redis.call("ZSCORE", KEYS[2], ARGV[1]) == false then
  return false
end
local fields = redis.call("HMGET", KEYS[1], "account", "password_hash")
if fields[1] == false then
  return false
end
local hash = fields[2]
if hash == false then
  hash = ""
end
return {fields[1], hash, redis.call("ZRANGE", KEYS[2], 0, -1)}
`

var findActiveLua = redis.NewScript(findActiveScript)

const replaceTokenScript = `
if redis.call("ZREM", KEYS[1], ARGV[1]) == 0 then
  return 0
end
redis.call("ZADD", KEYS[1], ARGV[3], ARGV[2])
return 1
`

var replaceTokenLua = redis.NewScript(replaceTokenScript)

const updateHashScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "password_hash", ARGV[1])
return 1
`

var updateHashLua = redis.NewScript(updateHashScript)

// Config configures a [Store].
type Config struct {
	// Prefix namespaces every key. Defaults to "passport".
	Prefix string
	// MaxTokensPerUser caps the active-token set; the oldest tokens are evicted
	// on AddToken. Zero means unlimited.
	MaxTokensPerUser int
}

// Store is a Redis-backed [goPassport.UserDirectory].
//
// Layout:
//
//	<prefix>:acct:<account>  STRING  principal id
//	<prefix>:user:<id>       HASH    account, password_hash
//	<prefix>:tok:<id>        ZSET    active tokens scored by insertion time (µs)
type Store struct {
	redis     redis.UniversalClient
	prefix    string
	maxTokens int
	now       func() time.Time
}

var _ directory.Store = (*Store)(nil)

// NewStore creates a [Store] backed by the given Redis client.
func NewStore(client redis.UniversalClient, cfg Config) *Store {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "passport"
	}
	return &Store{
		redis:     client,
		prefix:    prefix,
		maxTokens: cfg.MaxTokensPerUser,
		now:       time.Now,
	}
}

func (s *Store) accountKey(account string) string {
	return s.prefix + ":acct:" + account
}

func (s *Store) userKey(id string) string {
	return s.prefix + ":user:" + id
}

func (s *Store) tokensKey(id string) string {
	return s.prefix + ":tok:" + id
}

func (s *Store) score() float64 {
	return float64(s.now().UnixMicro())
}

// FindByAccount resolves the account index and loads the principal.
//
//	Performance: 1 GET + 1 pipelined HGETALL/ZRANGE.
func (s *Store) FindByAccount(ctx context.Context, account string) (*goPassport.Principal, error) {
	id, err := s.redis.Get(ctx, s.accountKey(account)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, goPassport.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return s.FindByID(ctx, id)
}

// FindByID loads a principal and its active tokens, oldest first.
func (s *Store) FindByID(ctx context.Context, id string) (*goPassport.Principal, error) {
	var (
		fieldsCmd *redis.MapStringStringCmd
		tokensCmd *redis.StringSliceCmd
	)
	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		fieldsCmd = pipe.HGetAll(ctx, s.userKey(id))
		tokensCmd = pipe.ZRange(ctx, s.tokensKey(id), 0, -1)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	fields := fieldsCmd.Val()
	account, ok := fields[fieldAccount]
	if !ok {
		return nil, goPassport.ErrPrincipalNotFound
	}

	return &goPassport.Principal{
		ID:           id,
		Account:      account,
		PasswordHash: fields[fieldPasswordHash],
		Tokens:       tokensCmd.Val(),
	}, nil
}

// FindByIDAndActiveToken returns the principal only if token is currently in
// its active set.
//
//	Performance: 1 EVALSHA.
func (s *Store) FindByIDAndActiveToken(ctx context.Context, id, token string) (*goPassport.Principal, error) {
	raw, err := findActiveLua.Run(ctx, s.redis, []string{s.userKey(id), s.tokensKey(id)}, token).Slice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, goPassport.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(raw) != 3 {
		return nil, fmt.Errorf("%w: unexpected script reply", ErrRedisUnavailable)
	}

	account, _ := raw[0].(string)
	hash, _ := raw[1].(string)
	list, _ := raw[2].([]interface{})
	tokens := make([]string, 0, len(list))
	for _, v := range list {
		if t, ok := v.(string); ok {
			tokens = append(tokens, t)
		}
	}

	return &goPassport.Principal{
		ID:           id,
		Account:      account,
		PasswordHash: hash,
		Tokens:       tokens,
	}, nil
}

// Create registers a new principal with a random ID. It returns
// [goPassport.ErrAccountExists] if the account is taken.
func (s *Store) Create(ctx context.Context, account, passwordHash string) (*goPassport.Principal, error) {
	if account == "" {
		return nil, errors.New("account must not be empty")
	}
	id := uuid.NewString()
	created, err := createUserLua.Run(ctx, s.redis,
		[]string{s.accountKey(account), s.userKey(id)},
		id, account, passwordHash,
	).Int()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if created == 0 {
		return nil, goPassport.ErrAccountExists
	}
	return &goPassport.Principal{ID: id, Account: account, PasswordHash: passwordHash, Tokens: []string{}}, nil
}

// UpdatePasswordHash replaces the stored hash. It returns
// [goPassport.ErrPrincipalNotFound] if id does not exist.
func (s *Store) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	updated, err := updateHashLua.Run(ctx, s.redis, []string{s.userKey(id)}, passwordHash).Int()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if updated == 0 {
		return goPassport.ErrPrincipalNotFound
	}
	return nil
}

// AddToken appends token to the principal's active set. When MaxTokensPerUser
// is set, the oldest tokens beyond the cap are evicted in the same transaction.
func (s *Store) AddToken(ctx context.Context, id, token string) error {
	key := s.tokensKey(id)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{Score: s.score(), Member: token})
		if s.maxTokens > 0 {
			pipe.ZRemRangeByRank(ctx, key, 0, int64(-s.maxTokens-1))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// ReplaceToken atomically swaps oldToken for newToken. It returns
// [goPassport.ErrTokenNotActive] if oldToken was already revoked.
func (s *Store) ReplaceToken(ctx context.Context, id, oldToken, newToken string) error {
	replaced, err := replaceTokenLua.Run(ctx, s.redis, []string{s.tokensKey(id)}, oldToken, newToken, s.score()).Int()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if replaced == 0 {
		return goPassport.ErrTokenNotActive
	}
	return nil
}

// RemoveToken revokes a single token. Removing an absent token is not an error.
func (s *Store) RemoveToken(ctx context.Context, id, token string) error {
	if err := s.redis.ZRem(ctx, s.tokensKey(id), token).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// RemoveAllTokens revokes every token of the principal.
func (s *Store) RemoveAllTokens(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.tokensKey(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Delete removes the principal, its account index and its tokens.
func (s *Store) Delete(ctx context.Context, id string) error {
	account, err := s.redis.HGet(ctx, s.userKey(id), fieldAccount).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.accountKey(account), s.userKey(id), s.tokensKey(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping measures a Redis round-trip.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
