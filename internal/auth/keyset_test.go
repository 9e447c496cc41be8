package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentou/server/config"
	"rentou/server/internal/auth/authtest"
)

// flakyKeys proxies the provider's key set and can be switched to failing.
type flakyKeys struct {
	server  *httptest.Server
	failing atomic.Bool
	calls   atomic.Int32
}

func newFlakyKeys(t *testing.T, upstream string) *flakyKeys {
	t.Helper()
	f := &flakyKeys{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		if f.failing.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		resp, err := http.Get(upstream)
		if err != nil {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.Copy(w, resp.Body)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func newVerifierFor(t *testing.T, jwksURL string) *FirebaseVerifier {
	t.Helper()
	cfg := &config.Config{}
	cfg.Firebase.ProjectID = "rentou-test"
	cfg.Firebase.JWKSURL = jwksURL
	cfg.Firebase.KeysTTL = time.Hour

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	verifier := NewFirebaseVerifier(cfg, logger)
	t.Cleanup(verifier.Close)
	return verifier
}

func TestKeySetServesStaleKeyWhenRefreshFails(t *testing.T) {
	provider := authtest.NewProvider(t, "rentou-test")
	keys := newFlakyKeys(t, provider.Server.URL)
	verifier := newVerifierFor(t, keys.server.URL)

	_, err := verifier.Verify(context.Background(), provider.ValidToken(t, "owner-1"))
	require.NoError(t, err)

	keys.failing.Store(true)
	jwks, err := verifier.keys.load()
	require.NoError(t, err)
	require.NoError(t, jwks.Refresh(context.Background(), keyfunc.RefreshOptions{IgnoreRateLimit: true}))
	assert.Equal(t, int32(2), keys.calls.Load())

	claims, err := verifier.Verify(context.Background(), provider.ValidToken(t, "owner-1"))
	require.NoError(t, err)
	assert.Equal(t, "owner-1", claims.UID())
}

func TestKeySetRetriesFailedLoad(t *testing.T) {
	provider := authtest.NewProvider(t, "rentou-test")
	keys := newFlakyKeys(t, provider.Server.URL)
	keys.failing.Store(true)
	verifier := newVerifierFor(t, keys.server.URL)

	_, err := verifier.Verify(context.Background(), provider.ValidToken(t, "owner-1"))
	assert.ErrorIs(t, err, ErrInvalidToken)

	keys.failing.Store(false)
	claims, err := verifier.Verify(context.Background(), provider.ValidToken(t, "owner-1"))
	require.NoError(t, err)
	assert.Equal(t, "owner-1", claims.UID())
	assert.Equal(t, int32(2), keys.calls.Load())
}

func TestKeySetUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	keys := NewKeySet(server.URL, time.Hour, logger)
	t.Cleanup(keys.Close)

	_, err := keys.load()
	assert.Error(t, err)
}
