package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	goPassport "github.com/MrEthical07/goPassport"
	"github.com/MrEthical07/goPassport/directory/redisdir"
	"github.com/MrEthical07/goPassport/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	http  *httptest.Server
	skew  *atomic.Int64
	store *redisdir.Store
}

func newTestServer(t *testing.T, opts ...func(*goPassport.Config)) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := redisdir.NewStore(rdb, redisdir.Config{Prefix: "test"})

	cfg := goPassport.DefaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.JWT.AccessTTL = time.Hour
	cfg.Password.BcryptCost = 4
	cfg.Metrics.Enabled = true
	for _, opt := range opts {
		opt(&cfg)
	}

	// The engine clock can be pushed forward to age tokens without waiting.
	skew := new(atomic.Int64)
	engine, err := goPassport.New().
		WithConfig(cfg).
		WithDirectory(store).
		WithClock(func() time.Time { return time.Now().Add(time.Duration(skew.Load())) }).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	issuer, err := goPassport.NewJWTManager(cfg.JWT)
	require.NoError(t, err)
	hasher, err := goPassport.NewPasswordHasher(cfg.Password)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(newServer(engine, store, issuer, hasher, logger).routes())
	t.Cleanup(srv.Close)

	return &testServer{http: srv, skew: skew, store: store}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.http.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.http.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func (ts *testServer) login(t *testing.T, account, password string) string {
	t.Helper()
	status, body := ts.do(t, http.MethodPost, "/user/login", "", map[string]string{"account": account, "password": password})
	require.Equal(t, http.StatusOK, status, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func creds(account, password string) map[string]string {
	return map[string]string{"account": account, "password": password}
}

func TestRegister(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodPost, "/user/register", "", creds("alice", "correct-horse"))
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "alice", body["account"])
	assert.NotEmpty(t, body["id"])

	status, body = ts.do(t, http.MethodPost, "/user/register", "", creds("alice", "other"))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "account_exists", body["kind"])

	status, _ = ts.do(t, http.MethodPost, "/user/register", "", creds("  ", "pw"))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestLoginRejections(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/user/register", "", creds("alice", "correct-horse"))

	status, body := ts.do(t, http.MethodPost, "/user/login", "", creds("bob", "correct-horse"))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unknown_account", body["kind"])

	status, body = ts.do(t, http.MethodPost, "/user/login", "", creds("alice", "wrong"))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid_password", body["kind"])
}

func TestTokenLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/user/register", "", creds("alice", "correct-horse"))
	token := ts.login(t, "alice", "correct-horse")

	status, body := ts.do(t, http.MethodGet, "/user/profile", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", body["account"])
	assert.EqualValues(t, 1, body["devices"])

	// Age the token past its expiry.
	ts.skew.Store(int64(2 * time.Hour))

	status, body = ts.do(t, http.MethodGet, "/user/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "expired", body["kind"])

	status, body = ts.do(t, http.MethodPost, "/user/extend", token, nil)
	require.Equal(t, http.StatusOK, status, body)
	fresh, _ := body["token"].(string)
	require.NotEmpty(t, fresh)
	assert.NotEqual(t, token, fresh)

	ts.skew.Store(0)

	status, body = ts.do(t, http.MethodGet, "/user/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid_token", body["kind"], "extended token must be revoked")

	status, _ = ts.do(t, http.MethodGet, "/user/profile", fresh, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = ts.do(t, http.MethodPost, "/user/logout", fresh, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = ts.do(t, http.MethodGet, "/user/profile", fresh, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid_token", body["kind"])
}

func TestLogoutWithExpiredToken(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/user/register", "", creds("alice", "correct-horse"))
	token := ts.login(t, "alice", "correct-horse")

	ts.skew.Store(int64(2 * time.Hour))
	status, _ := ts.do(t, http.MethodPost, "/user/logout", token, nil)
	assert.Equal(t, http.StatusOK, status)

	ts.skew.Store(0)
	status, body := ts.do(t, http.MethodGet, "/user/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid_token", body["kind"])
}

func TestLogoutAllRevokesEveryDevice(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/user/register", "", creds("alice", "correct-horse"))
	phone := ts.login(t, "alice", "correct-horse")
	laptop := ts.login(t, "alice", "correct-horse")

	status, body := ts.do(t, http.MethodGet, "/user/profile", laptop, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["devices"])

	status, _ = ts.do(t, http.MethodPost, "/user/logout/all", phone, nil)
	require.Equal(t, http.StatusOK, status)

	for _, token := range []string{phone, laptop} {
		status, _ = ts.do(t, http.MethodGet, "/user/profile", token, nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	}
}

func TestMissingTokenIsInvalid(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodGet, "/user/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid_token", body["kind"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/user/login", "", creds("nobody", "pw"))

	resp, err := ts.http.Client().Get(ts.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "gopassport_credential_unknown_account_total 1")
}

func TestLoginUpgradesOutdatedHash(t *testing.T) {
	ts := newTestServer(t, func(cfg *goPassport.Config) {
		cfg.Password.Algorithm = "auto"
		cfg.Password.Memory = 8 * 1024
		cfg.Password.Time = 1
		cfg.Password.Parallelism = 1
	})

	legacy, err := password.NewBcrypt(4)
	require.NoError(t, err)
	oldHash, err := legacy.Hash("correct-horse")
	require.NoError(t, err)
	created, err := ts.store.Create(context.Background(), "alice", oldHash)
	require.NoError(t, err)

	ts.login(t, "alice", "correct-horse")

	stored, err := ts.store.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$argon2id$"), "hash not upgraded: %s", stored.PasswordHash)
	assert.Len(t, stored.Tokens, 1)

	// The upgraded hash verifies and is left alone on the next login.
	ts.login(t, "alice", "correct-horse")
	again, err := ts.store.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.PasswordHash, again.PasswordHash)

	status, body := ts.do(t, http.MethodPost, "/user/login", "", creds("alice", "wrong"))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid_password", body["kind"])
}

func TestLoginKeepsCurrentHash(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/user/register", "", creds("alice", "correct-horse"))
	before, err := ts.store.FindByAccount(context.Background(), "alice")
	require.NoError(t, err)

	ts.login(t, "alice", "correct-horse")

	after, err := ts.store.FindByAccount(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, before.PasswordHash, after.PasswordHash)
}
