// Package authtest provides a fake identity provider for tests: an RSA key,
// a JWKS endpoint serving it and helpers to mint ID tokens.
package authtest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const KeyID = "test-key"

type Provider struct {
	ProjectID string
	Key       *rsa.PrivateKey
	Server    *httptest.Server

	fetches atomic.Int32
}

func NewProvider(t *testing.T, projectID string) *Provider {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	p := &Provider{ProjectID: projectID, Key: key}
	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.fetches.Add(1)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"keys": []map[string]string{{
				"kty": "RSA",
				"alg": "RS256",
				"use": "sig",
				"kid": KeyID,
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	}))
	t.Cleanup(p.Server.Close)
	return p
}

// Fetches is the number of times the key set was downloaded.
func (p *Provider) Fetches() int {
	return int(p.fetches.Load())
}

// Claims returns valid claims for uid.
func (p *Provider) Claims(uid string) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":   "https://securetoken.google.com/" + p.ProjectID,
		"aud":   p.ProjectID,
		"sub":   uid,
		"email": uid + "@rentou.test",
		"iat":   now.Add(-time.Minute).Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
}

// Token signs claims with the provider key.
func (p *Provider) Token(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	return sign(t, p.Key, KeyID, claims)
}

// ValidToken is a signed token for uid with valid claims.
func (p *Provider) ValidToken(t *testing.T, uid string) string {
	t.Helper()
	return p.Token(t, p.Claims(uid))
}

// ForeignToken is well formed and names the provider's key id, but is signed
// with a different key.
func (p *Provider) ForeignToken(t *testing.T, uid string) string {
	t.Helper()
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return sign(t, other, KeyID, p.Claims(uid))
}

func sign(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
