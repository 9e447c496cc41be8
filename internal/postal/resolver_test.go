package postal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentou/server/config"
	"rentou/server/internal/apperrors"
)

const viaCEPBody = `{
	"cep": "01153-000",
	"logradouro": "Rua Vitorino Carmilo",
	"complemento": "",
	"bairro": "Barra Funda",
	"localidade": "São Paulo",
	"uf": "SP",
	"ibge": "3550308"
}`

const brasilAPIBody = `{
	"cep": "01153000",
	"state": "SP",
	"city": "São Paulo",
	"neighborhood": "Barra Funda",
	"street": "Rua Vitorino Carmilo",
	"service": "open-cep"
}`

type fakeProvider struct {
	server *httptest.Server
	calls  atomic.Int32
	path   atomic.Value
}

func newFakeProvider(t *testing.T, status int, body string) *fakeProvider {
	t.Helper()
	p := &fakeProvider{}
	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.calls.Add(1)
		p.path.Store(r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(p.server.Close)
	return p
}

func newTestResolver(primaryURL, fallbackURL string) *Resolver {
	cfg := &config.Config{}
	cfg.Postal.PrimaryURL = primaryURL
	cfg.Postal.FallbackURL = fallbackURL
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewResolver(cfg, logger)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"01153000", "01153000"},
		{"011 53-000", "01153000"},
		{"01153-000", "01153000"},
		{"abc", ""},
		{"1234", "1234"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestResolveRejectsInvalidLength(t *testing.T) {
	primary := newFakeProvider(t, http.StatusOK, viaCEPBody)
	fallback := newFakeProvider(t, http.StatusOK, brasilAPIBody)
	resolver := newTestResolver(primary.server.URL, fallback.server.URL)

	for _, input := range []string{"", "1234567", "123456789", "01-153"} {
		_, err := resolver.Resolve(context.Background(), input)
		require.Error(t, err, input)
		assert.Equal(t, http.StatusBadRequest, apperrors.From(err).StatusCode(), input)
	}
	assert.Zero(t, primary.calls.Load())
	assert.Zero(t, fallback.calls.Load())
}

func TestResolveUsesPrimary(t *testing.T) {
	primary := newFakeProvider(t, http.StatusOK, viaCEPBody)
	fallback := newFakeProvider(t, http.StatusOK, brasilAPIBody)
	resolver := newTestResolver(primary.server.URL, fallback.server.URL)

	addr, err := resolver.Resolve(context.Background(), "011 53-000")
	require.NoError(t, err)

	assert.Equal(t, "/01153000/json/", primary.path.Load())
	assert.Equal(t, ProviderViaCEP, addr.Provider)
	assert.True(t, addr.Found)
	assert.Equal(t, "01153-000", addr.CEP)
	assert.Equal(t, "Rua Vitorino Carmilo", addr.Logradouro)
	assert.Equal(t, "Barra Funda", addr.Bairro)
	assert.Equal(t, "São Paulo", addr.Localidade)
	assert.Equal(t, "SP", addr.UF)
	assert.Zero(t, fallback.calls.Load())
}

func TestResolveReturnsSparsePrimaryAnswer(t *testing.T) {
	primary := newFakeProvider(t, http.StatusOK, `{"cep":"01153-000","logradouro":"","bairro":"","localidade":"","uf":""}`)
	fallback := newFakeProvider(t, http.StatusOK, brasilAPIBody)
	resolver := newTestResolver(primary.server.URL, fallback.server.URL)

	addr, err := resolver.Resolve(context.Background(), "01153000")
	require.NoError(t, err)

	assert.Equal(t, ProviderViaCEP, addr.Provider)
	assert.Equal(t, "01153-000", addr.CEP)
	assert.Empty(t, addr.Localidade)
	assert.Empty(t, addr.UF)
	assert.Zero(t, fallback.calls.Load())
}

func TestResolveFallsBackWhenPrimaryUnreachable(t *testing.T) {
	primary := newFakeProvider(t, http.StatusOK, viaCEPBody)
	primary.server.Close()
	fallback := newFakeProvider(t, http.StatusOK, brasilAPIBody)
	resolver := newTestResolver(primary.server.URL, fallback.server.URL)

	addr, err := resolver.Resolve(context.Background(), "01153000")
	require.NoError(t, err)

	assert.Equal(t, "/01153000", fallback.path.Load())
	assert.Equal(t, ProviderBrasilAPI, addr.Provider)
	assert.Equal(t, "01153-000", addr.CEP)
	assert.Equal(t, "Rua Vitorino Carmilo", addr.Logradouro)
	assert.Equal(t, "Barra Funda", addr.Bairro)
	assert.Equal(t, "São Paulo", addr.Localidade)
	assert.Equal(t, "SP", addr.UF)
}

func TestResolveFallsBack(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"primary flags not found", http.StatusOK, `{"erro": true}`},
		{"primary flags not found as string", http.StatusOK, `{"erro": "true"}`},
		{"primary non-OK status", http.StatusBadGateway, `bad gateway`},
		{"primary malformed payload", http.StatusOK, `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := newFakeProvider(t, tt.status, tt.body)
			fallback := newFakeProvider(t, http.StatusOK, brasilAPIBody)
			resolver := newTestResolver(primary.server.URL, fallback.server.URL)

			addr, err := resolver.Resolve(context.Background(), "01153000")
			require.NoError(t, err)
			assert.Equal(t, ProviderBrasilAPI, addr.Provider)
			assert.Equal(t, int32(1), primary.calls.Load())
			assert.Equal(t, int32(1), fallback.calls.Load())
		})
	}
}

func TestResolveNotFoundWhenBothFail(t *testing.T) {
	primary := newFakeProvider(t, http.StatusOK, `{"erro": true}`)
	fallback := newFakeProvider(t, http.StatusNotFound, `{"message": "CEP não encontrado"}`)
	resolver := newTestResolver(primary.server.URL, fallback.server.URL)

	_, err := resolver.Resolve(context.Background(), "99999999")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperrors.From(err).StatusCode())
}

func TestResolveInternalErrorOnMalformedFallback(t *testing.T) {
	primary := newFakeProvider(t, http.StatusInternalServerError, ``)
	fallback := newFakeProvider(t, http.StatusOK, `not json`)
	resolver := newTestResolver(primary.server.URL, fallback.server.URL)

	_, err := resolver.Resolve(context.Background(), "01153000")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperrors.From(err).StatusCode())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "01153-000", Format("01153000"))
	assert.Equal(t, "01153-000", Format("01153-000"))
	assert.Equal(t, "123", Format("123"))
}
