package flows

import (
	"context"
	"errors"
	"testing"
	"time"
)

var flowNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type tokenFixture struct {
	token    string
	hasToken bool
	active   map[string]map[string]bool
	lookups  int
	err      error
}

func (f *tokenFixture) deps() TokenDeps[string] {
	return TokenDeps[string]{
		Now: func() time.Time { return flowNow },
		IsGraceExempt: func(path string) bool {
			return path == "/user/extend" || path == "/user/logout"
		},
		ExtractToken: func() (string, bool) { return f.token, f.hasToken },
		FindByIDAndActiveToken: func(_ context.Context, id, token string) (string, bool, error) {
			f.lookups++
			if f.err != nil {
				return "", false, f.err
			}
			if f.active[id][token] {
				return id, true, nil
			}
			return "", false, nil
		},
	}
}

func newTokenFixture() *tokenFixture {
	return &tokenFixture{
		token:    "t1",
		hasToken: true,
		active:   map[string]map[string]bool{"u1": {"t1": true}},
	}
}

func TestRunValidateTokenActive(t *testing.T) {
	f := newTokenFixture()
	res := RunValidateToken(context.Background(), TokenInput{
		Subject:   "u1",
		ExpiresAt: flowNow.Add(time.Hour),
		Path:      "/user/profile",
	}, f.deps())

	if res.Failure != TokenFailureNone || res.Principal != "u1" || res.Token != "t1" || res.GraceAccepted {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRunValidateTokenExpiredShortCircuits(t *testing.T) {
	f := newTokenFixture()
	res := RunValidateToken(context.Background(), TokenInput{
		Subject:   "u1",
		ExpiresAt: flowNow.Add(-time.Second),
		Path:      "/user/profile",
	}, f.deps())

	if res.Failure != TokenFailureExpired {
		t.Fatalf("expected expired, got %v", res.Failure)
	}
	if f.lookups != 0 {
		t.Fatalf("expired token on a non-exempt path must not reach the directory, got %d lookups", f.lookups)
	}
}

func TestRunValidateTokenGraceExempt(t *testing.T) {
	for _, path := range []string{"/user/extend", "/user/logout"} {
		f := newTokenFixture()
		res := RunValidateToken(context.Background(), TokenInput{
			Subject:   "u1",
			ExpiresAt: flowNow.Add(-24 * time.Hour),
			Path:      path,
		}, f.deps())
		if res.Failure != TokenFailureNone || !res.GraceAccepted {
			t.Fatalf("%s: expected grace acceptance, got %+v", path, res)
		}
		if f.lookups != 1 {
			t.Fatalf("%s: expected exactly one lookup, got %d", path, f.lookups)
		}
	}
}

func TestRunValidateTokenGraceStillChecksStorage(t *testing.T) {
	f := newTokenFixture()
	f.active = map[string]map[string]bool{"u1": {}}
	res := RunValidateToken(context.Background(), TokenInput{
		Subject:   "u1",
		ExpiresAt: flowNow.Add(-time.Hour),
		Path:      "/user/logout",
	}, f.deps())
	if res.Failure != TokenFailureInvalidToken {
		t.Fatalf("expected invalid token, got %v", res.Failure)
	}
}

func TestRunValidateTokenExpiryBoundary(t *testing.T) {
	f := newTokenFixture()
	res := RunValidateToken(context.Background(), TokenInput{
		Subject:   "u1",
		ExpiresAt: flowNow,
		Path:      "/user/profile",
	}, f.deps())
	if res.Failure != TokenFailureNone {
		t.Fatalf("exp == now is not yet expired, got %v", res.Failure)
	}

	res = RunValidateToken(context.Background(), TokenInput{Subject: "u1", Path: "/user/profile"}, f.deps())
	if res.Failure != TokenFailureExpired {
		t.Fatalf("zero expiry must count as expired, got %v", res.Failure)
	}
}

func TestRunValidateTokenInvalid(t *testing.T) {
	missing := newTokenFixture()
	missing.hasToken = false
	res := RunValidateToken(context.Background(), TokenInput{Subject: "u1", ExpiresAt: flowNow.Add(time.Hour)}, missing.deps())
	if res.Failure != TokenFailureInvalidToken || !errors.Is(res.Err, ErrTokenMissing) {
		t.Fatalf("missing token: got %v %v", res.Failure, res.Err)
	}

	noSubject := newTokenFixture()
	res = RunValidateToken(context.Background(), TokenInput{ExpiresAt: flowNow.Add(time.Hour)}, noSubject.deps())
	if res.Failure != TokenFailureInvalidToken || noSubject.lookups != 0 {
		t.Fatalf("empty subject: got %v after %d lookups", res.Failure, noSubject.lookups)
	}

	revoked := newTokenFixture()
	revoked.token = "t0"
	res = RunValidateToken(context.Background(), TokenInput{Subject: "u1", ExpiresAt: flowNow.Add(time.Hour)}, revoked.deps())
	if res.Failure != TokenFailureInvalidToken {
		t.Fatalf("revoked token: got %v", res.Failure)
	}

	wrongSubject := newTokenFixture()
	res = RunValidateToken(context.Background(), TokenInput{Subject: "u2", ExpiresAt: flowNow.Add(time.Hour)}, wrongSubject.deps())
	if res.Failure != TokenFailureInvalidToken {
		t.Fatalf("token of another principal: got %v", res.Failure)
	}
}

func TestRunValidateTokenFaults(t *testing.T) {
	boom := errors.New("connection reset")
	f := newTokenFixture()
	f.err = boom
	res := RunValidateToken(context.Background(), TokenInput{Subject: "u1", ExpiresAt: flowNow.Add(time.Hour)}, f.deps())
	if res.Failure != TokenFailureUnknown || !errors.Is(res.Err, boom) {
		t.Fatalf("lookup error: got %v %v", res.Failure, res.Err)
	}

	p := newTokenFixture()
	deps := p.deps()
	deps.ExtractToken = func() (string, bool) { panic("extractor exploded") }
	res = RunValidateToken(context.Background(), TokenInput{Subject: "u1", ExpiresAt: flowNow.Add(time.Hour)}, deps)
	if res.Failure != TokenFailureUnknown || res.Err == nil {
		t.Fatalf("panic: got %v %v", res.Failure, res.Err)
	}

	res = RunValidateToken(context.Background(), TokenInput{}, TokenDeps[string]{})
	if res.Failure != TokenFailureUnknown {
		t.Fatalf("missing deps: got %v", res.Failure)
	}
}
