package goPassport

import (
	"errors"
	"fmt"
	"testing"
)

func TestRejectionKindNamesAndSentinels(t *testing.T) {
	want := map[RejectionKind]struct {
		name string
		msg  string
	}{
		KindUnknownAccount:  {"unknown_account", "account does not exist"},
		KindInvalidPassword: {"invalid_password", "incorrect password"},
		KindExpired:         {"expired", "session expired"},
		KindInvalidToken:    {"invalid_token", "session invalid"},
		KindUnknown:         {"unknown", "unknown error"},
	}

	kinds := Kinds()
	if len(kinds) != len(want) {
		t.Fatalf("expected %d kinds, got %d", len(want), len(kinds))
	}
	seen := map[error]bool{}
	for _, k := range kinds {
		w, ok := want[k]
		if !ok {
			t.Fatalf("unexpected kind %d", k)
		}
		if k.String() != w.name {
			t.Fatalf("kind %d: expected name %q, got %q", k, w.name, k.String())
		}
		if k.Sentinel().Error() != w.msg {
			t.Fatalf("kind %s: expected message %q, got %q", k, w.msg, k.Sentinel().Error())
		}
		if seen[k.Sentinel()] {
			t.Fatalf("kind %s shares a sentinel with another kind", k)
		}
		seen[k.Sentinel()] = true
	}

	if KindNone.Sentinel() != nil {
		t.Fatal("KindNone must have no sentinel")
	}
	if RejectionKind(200).String() != "unknown" || RejectionKind(200).Sentinel() != ErrUnknown {
		t.Fatal("out-of-range kinds must read as unknown")
	}
}

func TestRejectionErrorMatching(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("login: %w", &RejectionError{Kind: KindUnknown, Cause: cause})

	if !errors.Is(err, ErrUnknown) || !errors.Is(err, cause) {
		t.Fatalf("expected error to match both sentinel and cause: %v", err)
	}
	if errors.Is(err, ErrInvalidToken) {
		t.Fatal("error must not match a different kind")
	}
	if KindOf(err) != KindUnknown {
		t.Fatalf("expected KindOf unknown, got %s", KindOf(err))
	}
	if got := (&RejectionError{Kind: KindExpired}).Error(); got != "session expired" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(nil) != KindNone {
		t.Fatal("nil error must be KindNone")
	}
	if KindOf(fmt.Errorf("wrapped: %w", ErrInvalidPassword)) != KindInvalidPassword {
		t.Fatal("expected wrapped sentinel to resolve to its kind")
	}
	if KindOf(errors.New("anything")) != KindUnknown {
		t.Fatal("foreign errors must map to unknown")
	}
}

func TestOutcomeInvariants(t *testing.T) {
	ok := authenticated(&Principal{ID: "u1"}, "T1")
	if !ok.Authenticated() || ok.Error() != nil {
		t.Fatalf("expected authenticated outcome, got %+v", ok)
	}

	rej := rejected(KindNone, nil)
	if rej.Kind != KindUnknown || rej.Authenticated() {
		t.Fatalf("rejected with KindNone must become unknown, got %+v", rej)
	}

	// A hand-built outcome with no principal is never authenticated.
	var zero Outcome
	if zero.Authenticated() {
		t.Fatal("zero outcome must not be authenticated")
	}
	if KindOf(zero.Error()) != KindUnknown {
		t.Fatalf("zero outcome must report unknown, got %v", zero.Error())
	}
}
