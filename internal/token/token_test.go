package token

import (
	"errors"
	"testing"
	"time"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	issuer, err := NewIssuer("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer error: %v", err)
	}
	return issuer
}

func testIdentity() Identity {
	return Identity{ID: 42, Name: "Alice", Email: "a@x.com", Role: "user"}
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t)
	identity := testIdentity()

	tok, err := issuer.IssueAccessToken(identity)
	if err != nil {
		t.Fatalf("IssueAccessToken error: %v", err)
	}

	got, err := issuer.VerifyAccessToken(tok)
	if err != nil {
		t.Fatalf("VerifyAccessToken error: %v", err)
	}
	if got != identity {
		t.Fatalf("identity mismatch: got %+v want %+v", got, identity)
	}
}

func TestIssueAndVerifyRefreshToken(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t)
	identity := testIdentity()

	tok, err := issuer.IssueRefreshToken(identity)
	if err != nil {
		t.Fatalf("IssueRefreshToken error: %v", err)
	}

	got, err := issuer.VerifyRefreshToken(tok)
	if err != nil {
		t.Fatalf("VerifyRefreshToken error: %v", err)
	}
	if got != identity {
		t.Fatalf("identity mismatch: got %+v want %+v", got, identity)
	}
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t)

	access, err := issuer.IssueAccessToken(testIdentity())
	if err != nil {
		t.Fatalf("IssueAccessToken error: %v", err)
	}
	if _, err := issuer.VerifyRefreshToken(access); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for access token on refresh verify, got %v", err)
	}

	refresh, err := issuer.IssueRefreshToken(testIdentity())
	if err != nil {
		t.Fatalf("IssueRefreshToken error: %v", err)
	}
	if _, err := issuer.VerifyAccessToken(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for refresh token on access verify, got %v", err)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	t.Parallel()

	issuer, err := NewIssuer("access-secret", "refresh-secret", -time.Second, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer error: %v", err)
	}

	tok, err := issuer.IssueAccessToken(testIdentity())
	if err != nil {
		t.Fatalf("IssueAccessToken error: %v", err)
	}
	if _, err := issuer.VerifyAccessToken(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyMalformedToken(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t)
	if _, err := issuer.VerifyAccessToken("not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for malformed token, got %v", err)
	}
}

func TestVerifyTamperedToken(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t)
	other, err := NewIssuer("different-secret", "refresh-secret", time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer error: %v", err)
	}

	tok, err := other.IssueAccessToken(testIdentity())
	if err != nil {
		t.Fatalf("IssueAccessToken error: %v", err)
	}
	if _, err := issuer.VerifyAccessToken(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestNewIssuerRequiresSecrets(t *testing.T) {
	t.Parallel()

	if _, err := NewIssuer("", "refresh", time.Minute, time.Hour); err == nil {
		t.Fatalf("expected error for missing access secret")
	}
	if _, err := NewIssuer("access", "", time.Minute, time.Hour); err == nil {
		t.Fatalf("expected error for missing refresh secret")
	}
}
