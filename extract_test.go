package goPassport

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/goPassport/jwt"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{header: "Bearer abc.def.ghi", want: "abc.def.ghi", ok: true},
		{header: "bearer abc", want: "abc", ok: true},
		{header: "BEARER   abc  ", want: "abc", ok: true},
		{header: "Bearer ", ok: false},
		{header: "Bearer", ok: false},
		{header: "Basic abc", ok: false},
		{header: "", ok: false},
	}
	for _, tc := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		got, ok := BearerToken(r)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%q: expected (%q, %v), got (%q, %v)", tc.header, tc.want, tc.ok, got, ok)
		}
	}

	if _, ok := BearerToken(nil); ok {
		t.Fatal("nil request must not yield a token")
	}
}

func TestRequestPathIgnoresQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/user/extend?next=/home", nil)
	if got := RequestPath(r); got != "/user/extend" {
		t.Fatalf("expected /user/extend, got %q", got)
	}
	if RequestPath(nil) != "" {
		t.Fatal("nil request must resolve to an empty path")
	}
}

func TestJWTDecoderMapsClaims(t *testing.T) {
	cfg := testConfig().JWT
	cfg.AccessTTL = time.Hour

	m, err := NewJWTManager(cfg)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	token, err := m.Issue("u-alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := NewJWTDecoder(m).DecodeClaims(token)
	if err != nil {
		t.Fatalf("DecodeClaims: %v", err)
	}
	if claims.Subject != "u-alice" || claims.ID == "" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if d := claims.ExpiresAt.Sub(claims.IssuedAt); d != time.Hour {
		t.Fatalf("expected one hour lifetime, got %v", d)
	}

	if _, err := NewJWTDecoder(m).DecodeClaims("not-a-jwt"); err == nil {
		t.Fatal("expected malformed token to fail")
	}
}

func TestNewJWTManagerUsesSecretForHS256(t *testing.T) {
	cfg := testConfig().JWT
	cfg.AccessTTL = time.Minute
	cfg.PrivateKey = []byte("ignored for hs256")

	a, err := NewJWTManager(cfg)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	token, err := a.Issue("u1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	b, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte(testSecret),
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := b.ParseAccess(token); err != nil {
		t.Fatalf("expected token signed with the secret, got %v", err)
	}
}
