package auth

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"

	"rentou/server/internal/metrics"
)

const (
	// Unknown key ids trigger at most one refetch per interval.
	minRefreshInterval = 30 * time.Second

	fetchTimeout = 10 * time.Second
)

// KeySet holds the identity provider's remote signing keys. The set is
// loaded on first use and then refreshed in the background; a failed first
// load is retried on the next token. When a refresh fails the keys already
// loaded keep being served.
type KeySet struct {
	url     string
	options keyfunc.Options
	logger  *logrus.Logger

	mu   sync.Mutex
	jwks *keyfunc.JWKS
}

func NewKeySet(url string, refreshInterval time.Duration, logger *logrus.Logger) *KeySet {
	return &KeySet{
		url:    url,
		logger: logger,
		options: keyfunc.Options{
			Client: &http.Client{
				Timeout:   fetchTimeout,
				Transport: observedTransport{next: http.DefaultTransport},
			},
			RefreshInterval:   refreshInterval,
			RefreshRateLimit:  minRefreshInterval,
			RefreshTimeout:    fetchTimeout,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				logger.WithError(err).Warn("Failed to refresh signing keys, keeping cached keys")
			},
		},
	}
}

// Keyfunc resolves the verification key named by the token's kid.
func (k *KeySet) Keyfunc(token *jwt.Token) (interface{}, error) {
	jwks, err := k.load()
	if err != nil {
		return nil, err
	}
	return jwks.Keyfunc(token)
}

func (k *KeySet) load() (*keyfunc.JWKS, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.jwks != nil {
		return k.jwks, nil
	}

	jwks, err := keyfunc.Get(k.url, k.options)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing keys: %w", err)
	}
	k.logger.WithField("keys", jwks.Len()).Info("Loaded signing keys")

	k.jwks = jwks
	return jwks, nil
}

// Close stops the background refresh.
func (k *KeySet) Close() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.jwks != nil {
		k.jwks.EndBackground()
	}
}

type observedTransport struct {
	next http.RoundTripper
}

func (t observedTransport) RoundTrip(req *http.Request) (resp *http.Response, err error) {
	start := time.Now()
	defer func() {
		observed := err
		if observed == nil && resp.StatusCode != http.StatusOK {
			observed = fmt.Errorf("signing keys endpoint returned status %d", resp.StatusCode)
		}
		metrics.ObserveUpstream("jwks", start, observed)
	}()
	return t.next.RoundTrip(req)
}
