package goPassport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const testSecret = "0123456789abcdef0123456789abcdef"

// memDirectory is an in-memory UserDirectory that counts lookups and can be
// told to fail or panic.
type memDirectory struct {
	mu         sync.Mutex
	principals map[string]*Principal // by id

	accountCalls atomic.Int64
	tokenCalls   atomic.Int64

	err        error
	panicValue any
}

func newMemDirectory(ps ...*Principal) *memDirectory {
	d := &memDirectory{principals: make(map[string]*Principal, len(ps))}
	for _, p := range ps {
		d.principals[p.ID] = p
	}
	return d
}

func (d *memDirectory) FindByAccount(_ context.Context, account string) (*Principal, error) {
	d.accountCalls.Add(1)
	if d.panicValue != nil {
		panic(d.panicValue)
	}
	if d.err != nil {
		return nil, d.err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.principals {
		if p.Account == account {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPrincipalNotFound
}

func (d *memDirectory) FindByIDAndActiveToken(_ context.Context, id, token string) (*Principal, error) {
	d.tokenCalls.Add(1)
	if d.panicValue != nil {
		panic(d.panicValue)
	}
	if d.err != nil {
		return nil, d.err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.principals[id]
	if !ok || !p.HasToken(token) {
		return nil, ErrPrincipalNotFound
	}
	cp := *p
	cp.Tokens = append([]string(nil), p.Tokens...)
	return &cp, nil
}

func (d *memDirectory) setTokens(id string, tokens ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.principals[id].Tokens = tokens
}

// plainHasher treats "plain:<pw>" as the hash of pw.
type plainHasher struct {
	err error
}

func (h plainHasher) Compare(plaintext, hash string) (bool, error) {
	if h.err != nil {
		return false, h.err
	}
	if !strings.HasPrefix(hash, "plain:") {
		return false, errors.New("malformed hash")
	}
	return hash == "plain:"+plaintext, nil
}

// mapDecoder resolves tokens from a fixed table.
type mapDecoder map[string]Claims

func (d mapDecoder) DecodeClaims(token string) (Claims, error) {
	c, ok := d[token]
	if !ok {
		return Claims{}, errors.New("bad signature")
	}
	return c, nil
}

func alice() *Principal {
	return &Principal{
		ID:           "u-alice",
		Account:      "alice",
		PasswordHash: "plain:secret123",
		Tokens:       []string{"T1"},
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte(testSecret)
	return cfg
}

type engineOpts struct {
	cfg     Config
	dir     UserDirectory
	hasher  PasswordHasher
	decoder ClaimsDecoder
	sink    AuditSink
}

func buildTestEngine(t *testing.T, o engineOpts) *Engine {
	t.Helper()

	if o.cfg.JWT.SigningMethod == "" {
		o.cfg = testConfig()
	}
	if o.hasher == nil {
		o.hasher = plainHasher{}
	}
	b := New().
		WithConfig(o.cfg).
		WithDirectory(o.dir).
		WithHasher(o.hasher).
		WithClock(func() time.Time { return testNow })
	if o.decoder != nil {
		b = b.WithClaimsDecoder(o.decoder)
	}
	if o.sink != nil {
		b = b.WithAuditSink(o.sink)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func bearerRequest(path, token string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, path, nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}
