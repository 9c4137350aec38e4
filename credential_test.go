package goPassport

import (
	"context"
	"errors"
	"testing"
)

func TestCredentialVerifierOutcomes(t *testing.T) {
	dir := newMemDirectory(alice())
	engine := buildTestEngine(t, engineOpts{dir: dir})

	tests := []struct {
		name     string
		account  string
		password string
		want     RejectionKind
	}{
		{name: "correct password", account: "alice", password: "secret123", want: KindNone},
		{name: "wrong password", account: "alice", password: "wrong", want: KindInvalidPassword},
		{name: "unknown account", account: "bob", password: "x", want: KindUnknownAccount},
		{name: "unknown account with alice's password", account: "bob", password: "secret123", want: KindUnknownAccount},
		{name: "empty password", account: "alice", password: "", want: KindInvalidPassword},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := engine.VerifyCredentials(context.Background(), tc.account, tc.password)
			if out.Kind != tc.want {
				t.Fatalf("expected kind %s, got %s (err=%v)", tc.want, out.Kind, out.Err)
			}
			if tc.want == KindNone {
				if !out.Authenticated() || out.Principal.ID != "u-alice" {
					t.Fatalf("expected alice to authenticate, got %+v", out)
				}
				if out.Token != "" {
					t.Fatalf("credential outcome must not carry a token, got %q", out.Token)
				}
				if out.Error() != nil {
					t.Fatalf("authenticated outcome returned error %v", out.Error())
				}
				return
			}
			if out.Principal != nil {
				t.Fatal("rejected outcome must not carry a principal")
			}
			if !errors.Is(out.Error(), tc.want.Sentinel()) {
				t.Fatalf("expected error to match %v, got %v", tc.want.Sentinel(), out.Error())
			}
		})
	}
}

func TestCredentialVerifierSingleDirectoryRead(t *testing.T) {
	dir := newMemDirectory(alice())
	engine := buildTestEngine(t, engineOpts{dir: dir})

	engine.VerifyCredentials(context.Background(), "alice", "wrong")
	engine.VerifyCredentials(context.Background(), "bob", "x")

	if got := dir.accountCalls.Load(); got != 2 {
		t.Fatalf("expected one directory read per call, got %d", got)
	}
	if got := dir.tokenCalls.Load(); got != 0 {
		t.Fatalf("credential verification must not read tokens, got %d", got)
	}
}

func TestCredentialVerifierFaultsMapToUnknown(t *testing.T) {
	storeErr := errors.New("connection reset")

	t.Run("directory error", func(t *testing.T) {
		dir := newMemDirectory(alice())
		dir.err = storeErr
		engine := buildTestEngine(t, engineOpts{dir: dir})

		out := engine.VerifyCredentials(context.Background(), "alice", "secret123")
		if out.Kind != KindUnknown {
			t.Fatalf("expected unknown, got %s", out.Kind)
		}
		if !errors.Is(out.Error(), storeErr) || !errors.Is(out.Error(), ErrUnknown) {
			t.Fatalf("expected error chain to carry cause and ErrUnknown, got %v", out.Error())
		}
	})

	t.Run("directory panic", func(t *testing.T) {
		dir := newMemDirectory(alice())
		dir.panicValue = "boom"
		engine := buildTestEngine(t, engineOpts{dir: dir})

		out := engine.VerifyCredentials(context.Background(), "alice", "secret123")
		if out.Kind != KindUnknown {
			t.Fatalf("expected unknown, got %s", out.Kind)
		}
	})

	t.Run("malformed stored hash", func(t *testing.T) {
		p := alice()
		p.PasswordHash = "$garbage"
		engine := buildTestEngine(t, engineOpts{dir: newMemDirectory(p)})

		out := engine.VerifyCredentials(context.Background(), "alice", "secret123")
		if out.Kind != KindUnknown {
			t.Fatalf("expected unknown, got %s", out.Kind)
		}
	})

	t.Run("hasher error", func(t *testing.T) {
		engine := buildTestEngine(t, engineOpts{
			dir:    newMemDirectory(alice()),
			hasher: plainHasher{err: errors.New("hasher down")},
		})

		out := engine.VerifyCredentials(context.Background(), "alice", "secret123")
		if out.Kind != KindUnknown {
			t.Fatalf("expected unknown, got %s", out.Kind)
		}
	})
}

func TestCredentialVerifierNilSafe(t *testing.T) {
	var v *CredentialVerifier
	out := v.Verify(context.Background(), "alice", "secret123")
	if out.Kind != KindUnknown || !errors.Is(out.Err, ErrEngineNotReady) {
		t.Fatalf("expected engine-not-ready rejection, got %+v", out)
	}

	var e *Engine
	if out := e.VerifyCredentials(context.Background(), "alice", "x"); out.Kind != KindUnknown {
		t.Fatalf("expected unknown from nil engine, got %s", out.Kind)
	}
}

func TestCredentialVerifierWithRealHasher(t *testing.T) {
	cfg := testConfig()
	cfg.Password.BcryptCost = 4
	hasher, err := NewPasswordHasher(cfg.Password)
	if err != nil {
		t.Fatalf("NewPasswordHasher: %v", err)
	}
	hash, err := hasher.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	p := alice()
	p.PasswordHash = hash
	engine, err := New().WithConfig(cfg).WithDirectory(newMemDirectory(p)).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if out := engine.VerifyCredentials(context.Background(), "alice", "secret123"); !out.Authenticated() {
		t.Fatalf("expected authenticated, got %s", out.Kind)
	}
	if out := engine.VerifyCredentials(context.Background(), "alice", "Secret123"); out.Kind != KindInvalidPassword {
		t.Fatalf("expected invalid password, got %s", out.Kind)
	}
}
