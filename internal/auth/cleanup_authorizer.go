package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"
)

const bearerScheme = "bearer"

var (
	ErrMissingCleanupToken        = errors.New("cleanup authorizer: bearer token required")
	ErrInvalidCleanupToken        = errors.New("cleanup authorizer: invalid token")
	ErrCleanupSecretNotConfigured = errors.New("cleanup authorizer: cleanup secret not configured")
)

// CleanupAuthorizerConfig describes how cleanup callers are authenticated.
type CleanupAuthorizerConfig struct {
	Secret     string
	Production bool
	Clock      func() time.Time
}

// CleanupAuthorizer guards the maintenance endpoints. A caller presents either
// the shared secret itself or a token minted by TokenIssuer with that secret.
type CleanupAuthorizer struct {
	secret     []byte
	production bool
	tokens     *TokenIssuer
}

// NewCleanupAuthorizer constructs an authorizer for the configured secret.
func NewCleanupAuthorizer(cfg CleanupAuthorizerConfig) *CleanupAuthorizer {
	authorizer := &CleanupAuthorizer{
		secret:     []byte(strings.TrimSpace(cfg.Secret)),
		production: cfg.Production,
	}
	if len(authorizer.secret) > 0 {
		// TTL only matters for issuing; validation reads exp from the token.
		authorizer.tokens, _ = NewTokenIssuer(TokenIssuerConfig{
			SigningSecret: authorizer.secret,
			TokenTTL:      time.Hour,
			Clock:         cfg.Clock,
		})
	}
	return authorizer
}

// Enabled reports whether a secret is configured.
func (a *CleanupAuthorizer) Enabled() bool {
	return len(a.secret) > 0
}

// Authorize checks an Authorization header value.
// Without a secret, development deployments stay open and production ones fail closed.
func (a *CleanupAuthorizer) Authorize(header string) error {
	if !a.Enabled() {
		if a.production {
			return ErrCleanupSecretNotConfigured
		}
		return nil
	}

	token, ok := bearerToken(header)
	if !ok {
		return ErrMissingCleanupToken
	}
	if subtle.ConstantTimeCompare([]byte(token), a.secret) == 1 {
		return nil
	}
	if _, err := a.tokens.ValidateToken(token); err != nil {
		return ErrInvalidCleanupToken
	}
	return nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
