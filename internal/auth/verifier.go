// Package auth verifies identity-provider ID tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"

	"rentou/server/config"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are the ID-token claims the server reads.
type Claims struct {
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Name          string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// UID is the identity provider's user id.
func (c *Claims) UID() string {
	return c.Subject
}

type Verifier interface {
	Verify(ctx context.Context, raw string) (*Claims, error)
}

// FirebaseVerifier checks RS256 ID tokens against the project's issuer and audience.
type FirebaseVerifier struct {
	keys      *KeySet
	projectID string
	issuer    string
	logger    *logrus.Logger
}

func NewFirebaseVerifier(cfg *config.Config, logger *logrus.Logger) *FirebaseVerifier {
	return &FirebaseVerifier{
		keys:      NewKeySet(cfg.Firebase.JWKSURL, cfg.Firebase.KeysTTL, logger),
		projectID: cfg.Firebase.ProjectID,
		issuer:    cfg.Issuer(),
		logger:    logger,
	}
}

// Verify checks the token and its claims. Keys are fetched by the key set's
// own refresh, so ctx does not bound them.
func (v *FirebaseVerifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, v.keys.Keyfunc, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	switch {
	case claims.ExpiresAt == nil:
		return nil, fmt.Errorf("%w: missing exp", ErrInvalidToken)
	case !claims.VerifyIssuer(v.issuer, true):
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	case !claims.VerifyAudience(v.projectID, true):
		return nil, fmt.Errorf("%w: unexpected audience", ErrInvalidToken)
	case claims.Subject == "":
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claims, nil
}

// Close stops the key set's background refresh.
func (v *FirebaseVerifier) Close() {
	v.keys.Close()
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
