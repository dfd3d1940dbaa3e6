package auth

import (
	"errors"
	"testing"
	"time"
)

func TestCleanupAuthorizerAcceptsSharedSecret(t *testing.T) {
	authorizer := NewCleanupAuthorizer(CleanupAuthorizerConfig{Secret: "cron-secret", Production: true})

	if err := authorizer.Authorize("Bearer cron-secret"); err != nil {
		t.Fatalf("expected secret to authorize: %v", err)
	}
	if err := authorizer.Authorize("bearer   cron-secret "); err != nil {
		t.Fatalf("expected scheme to be case-insensitive: %v", err)
	}
}

func TestCleanupAuthorizerRejectsBadHeaders(t *testing.T) {
	authorizer := NewCleanupAuthorizer(CleanupAuthorizerConfig{Secret: "cron-secret"})

	testCases := []struct {
		header string
		want   error
	}{
		{header: "", want: ErrMissingCleanupToken},
		{header: "Bearer", want: ErrMissingCleanupToken},
		{header: "Bearer   ", want: ErrMissingCleanupToken},
		{header: "Basic cron-secret", want: ErrMissingCleanupToken},
		{header: "cron-secret", want: ErrMissingCleanupToken},
		{header: "Bearer wrong-secret", want: ErrInvalidCleanupToken},
		{header: "Bearer cron-secret-but-longer", want: ErrInvalidCleanupToken},
	}
	for _, testCase := range testCases {
		if err := authorizer.Authorize(testCase.header); !errors.Is(err, testCase.want) {
			t.Fatalf("header %q: got %v want %v", testCase.header, err, testCase.want)
		}
	}
}

func TestCleanupAuthorizerAcceptsIssuedTokens(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	clock := func() time.Time { return now }

	issuer, err := NewTokenIssuer(TokenIssuerConfig{SigningSecret: []byte("cron-secret"), TokenTTL: 10 * time.Minute, Clock: clock})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	token, _, err := issuer.IssueCleanupToken("scheduler")
	if err != nil {
		t.Fatalf("unexpected issue error: %v", err)
	}

	authorizer := NewCleanupAuthorizer(CleanupAuthorizerConfig{Secret: "cron-secret", Production: true, Clock: clock})
	if err := authorizer.Authorize("Bearer " + token); err != nil {
		t.Fatalf("expected issued token to authorize: %v", err)
	}

	now = now.Add(11 * time.Minute)
	if err := authorizer.Authorize("Bearer " + token); !errors.Is(err, ErrInvalidCleanupToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestCleanupAuthorizerWithoutSecret(t *testing.T) {
	development := NewCleanupAuthorizer(CleanupAuthorizerConfig{})
	if development.Enabled() {
		t.Fatalf("expected authorizer without secret to be disabled")
	}
	if err := development.Authorize(""); err != nil {
		t.Fatalf("expected development to allow cleanup without secret: %v", err)
	}

	production := NewCleanupAuthorizer(CleanupAuthorizerConfig{Secret: "   ", Production: true})
	if err := production.Authorize("Bearer anything"); !errors.Is(err, ErrCleanupSecretNotConfigured) {
		t.Fatalf("expected production without secret to fail closed, got %v", err)
	}
}
