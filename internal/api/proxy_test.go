package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentou/server/internal/apperrors"
	"rentou/server/internal/geometry"
	"rentou/server/internal/health"
	"rentou/server/internal/places"
	"rentou/server/internal/postal"
)

func assertCacheHeaders(t *testing.T, w interface{ Header() http.Header }, expected string) {
	t.Helper()
	for _, header := range []string{"Cache-Control", "CDN-Cache-Control", "Cloudflare-CDN-Cache-Control"} {
		assert.Equal(t, expected, w.Header().Get(header), header)
	}
}

func TestCachePolicyDirectives(t *testing.T) {
	assert.Equal(t, "public, max-age=0, s-maxage=1728000, stale-while-revalidate=86400", BoundaryCachePolicy.Directive())
	assert.Equal(t, "public, max-age=0, s-maxage=2592000, stale-while-revalidate=86400", PlacesCachePolicy.Directive())
	assert.Equal(t, "public, max-age=0, s-maxage=86400, stale-while-revalidate=43200", GeneratedTextCachePolicy.Directive())
	assert.Equal(t, "public, max-age=60, s-maxage=0, stale-while-revalidate=0", CachePolicy{Browser: time.Minute}.Directive())
}

func TestGetCEP(t *testing.T) {
	ts := newTestServer(t)
	ts.postal.address = &postal.Address{
		CEP:        "01153-000",
		Logradouro: "Rua Vitorino Carmilo",
		Bairro:     "Barra Funda",
		Localidade: "São Paulo",
		UF:         "SP",
		Found:      true,
		Provider:   postal.ProviderBrasilAPI,
	}

	w := ts.do(t, request{path: "/api/cep?cep=011%2053-000"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, postal.ProviderBrasilAPI, w.Header().Get(health.ProviderHeader))
	assert.JSONEq(t, `{
		"cep": "01153-000",
		"logradouro": "Rua Vitorino Carmilo",
		"complemento": "",
		"bairro": "Barra Funda",
		"localidade": "São Paulo",
		"uf": "SP"
	}`, w.Body.String())
}

func TestGetCEPErrors(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, request{path: "/api/cep?cep=123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "CEP inválido", errorMessage(t, w))

	ts.postal.err = apperrors.NotFound("CEP não encontrado")
	w = ts.do(t, request{path: "/api/cep?cep=99999999"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "CEP não encontrado", errorMessage(t, w))

	ts.postal.err = errUpstream
	w = ts.do(t, request{path: "/api/cep?cep=99999999"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", errorMessage(t, w))
	assert.NotContains(t, w.Body.String(), errUpstream.Error())
}

func TestGetBairro(t *testing.T) {
	ts := newTestServer(t)
	ts.geocoder.On("Boundary", "Barra Funda", "São Paulo", "SP").Return(&geometry.Boundary{
		Neighborhood: "Barra Funda",
		City:         "São Paulo",
		State:        "SP",
		Geometry:     testPolygon,
	}, nil)

	w := ts.do(t, request{path: "/api/bairro?bairro=Barra+Funda&cidade=S%C3%A3o+Paulo&estado=SP"})
	require.Equal(t, http.StatusOK, w.Code)
	assertCacheHeaders(t, w, "public, max-age=0, s-maxage=1728000, stale-while-revalidate=86400")

	var geometryBody map[string]interface{}
	decode(t, w, &geometryBody)
	assert.Equal(t, "Polygon", geometryBody["type"])
}

func TestGetBairroErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.geocoder.On("Boundary", "", "São Paulo", "SP").Return(nil, apperrors.Validation("Parâmetros bairro, cidade e estado são obrigatórios"))
	ts.geocoder.On("Boundary", "Atlântida", "São Paulo", "SP").Return(nil, apperrors.NotFound("Limite do bairro não encontrado"))

	w := ts.do(t, request{path: "/api/bairro?cidade=S%C3%A3o+Paulo&estado=SP"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, w.Header().Get("CDN-Cache-Control"))

	w = ts.do(t, request{path: "/api/bairro?bairro=Atl%C3%A2ntida&cidade=S%C3%A3o+Paulo&estado=SP"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Limite do bairro não encontrado", errorMessage(t, w))
}

func TestGetPontosDeInteresse(t *testing.T) {
	ts := newTestServer(t)
	ts.places.pois = []places.PointOfInterest{
		{Name: "EE Barra Funda", Tag: "school", DistanceMeters: 300, DistanceKm: "0.3"},
		{Name: "Estação Barra Funda", Tag: "station", DistanceMeters: 1500, DistanceKm: "1.5"},
	}

	w := ts.do(t, request{path: "/api/pontos-de-interesse?lat=-23.5261&lon=-46.6675"})
	require.Equal(t, http.StatusOK, w.Code)
	assertCacheHeaders(t, w, "public, max-age=0, s-maxage=2592000, stale-while-revalidate=86400")

	var pois []places.PointOfInterest
	decode(t, w, &pois)
	require.Len(t, pois, 2)
	assert.Equal(t, "EE Barra Funda", pois[0].Name)
	assert.Equal(t, int32(1), ts.places.calls.Load())
}

func TestGetPontosDeInteresseEmpty(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, request{path: "/api/pontos-de-interesse?lat=-10&lon=-50"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestGetPontosDeInteresseValidation(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{
		"/api/pontos-de-interesse",
		"/api/pontos-de-interesse?lat=-23.5",
		"/api/pontos-de-interesse?lat=abc&lon=-46.6",
	} {
		w := ts.do(t, request{path: path})
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
	assert.Equal(t, int32(0), ts.places.calls.Load())
}

func TestGetPontosDeInteresseAuditMode(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, request{
		path:    "/api/pontos-de-interesse?lat=-23.5261&lon=-46.6675",
		headers: map[string]string{AuditModeHeader: "1"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assertCacheHeaders(t, w, "no-store, no-cache, must-revalidate, max-age=0")

	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, true, body["audit"])
	assert.Equal(t, "MISS", body["cache"])
	assert.Equal(t, int32(0), ts.places.calls.Load())
}

func TestGetPontosDeInteresseAuditModeOtherValues(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, request{
		path:    "/api/pontos-de-interesse?lat=-23.5261&lon=-46.6675",
		headers: map[string]string{AuditModeHeader: "0"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(1), ts.places.calls.Load())
}

func TestGerarTextoWithoutAuthorization(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, request{method: http.MethodPost, path: "/api/gerar-texto", body: map[string]string{"prompt": "Descreva o imóvel"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, request{
		method:  http.MethodPost,
		path:    "/api/gerar-texto",
		body:    map[string]string{"prompt": "Descreva o imóvel"},
		headers: map[string]string{"Authorization": "Basic dXNlcjpwYXNz"},
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// The session cookie is not accepted here.
	w = ts.do(t, request{
		method: http.MethodPost,
		path:   "/api/gerar-texto",
		body:   map[string]string{"prompt": "Descreva o imóvel"},
		cookie: ts.identity.ValidToken(t, "owner-1"),
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	ts.generator.AssertNotCalled(t, "Generate", mock.Anything)
}

func TestGerarTextoWithWronglySignedToken(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, request{
		method: http.MethodPost,
		path:   "/api/gerar-texto",
		body:   map[string]string{"prompt": "Descreva o imóvel"},
		token:  ts.identity.ForeignToken(t, "owner-1"),
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	ts.generator.AssertNotCalled(t, "Generate", mock.Anything)
}

func TestGerarTextoRequiresPrompt(t *testing.T) {
	ts := newTestServer(t)
	token := ts.identity.ValidToken(t, "owner-1")

	for _, body := range []interface{}{
		map[string]string{"prompt": "   "},
		map[string]string{},
		"not json",
	} {
		w := ts.do(t, request{method: http.MethodPost, path: "/api/gerar-texto", body: body, token: token})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
	ts.generator.AssertNotCalled(t, "Generate", mock.Anything)
}

func TestGerarTexto(t *testing.T) {
	ts := newTestServer(t)
	ts.generator.On("Generate", "Descreva o imóvel").Return("Apartamento iluminado.", nil)

	w := ts.do(t, request{
		method: http.MethodPost,
		path:   "/api/gerar-texto",
		body:   map[string]string{"prompt": "Descreva o imóvel"},
		token:  ts.identity.ValidToken(t, "owner-1"),
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"text":"Apartamento iluminado."}`, w.Body.String())
	assertCacheHeaders(t, w, "public, max-age=0, s-maxage=86400, stale-while-revalidate=43200")
	ts.generator.AssertExpectations(t)
}

func TestGerarTextoProviderFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.generator.On("Generate", mock.Anything).Return("", errUpstream)

	w := ts.do(t, request{
		method: http.MethodPost,
		path:   "/api/gerar-texto",
		body:   map[string]string{"prompt": "Descreva o imóvel"},
		token:  ts.identity.ValidToken(t, "owner-1"),
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Erro ao gerar texto", errorMessage(t, w))
	assert.Empty(t, w.Header().Get("CDN-Cache-Control"))
}

func TestGetStatusAlwaysOK(t *testing.T) {
	ts := newTestServer(t)
	ts.status.report = health.Report{
		Timestamp: time.Now(),
		Status:    health.StatusDegraded,
		Services: map[string]health.ServiceStatus{
			"database": {Status: health.StatusError, Message: "database is closed"},
		},
	}

	w := ts.do(t, request{path: "/api/status"})
	require.Equal(t, http.StatusOK, w.Code)

	var report health.Report
	decode(t, w, &report)
	assert.Equal(t, health.StatusDegraded, report.Status)
	assert.Equal(t, health.StatusError, report.Services["database"].Status)
	assert.Equal(t, "no-store, no-cache, must-revalidate, max-age=0", w.Header().Get("Cache-Control"))
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, request{path: "/api/status"})
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = ts.do(t, request{path: "/api/status", headers: map[string]string{RequestIDHeader: "abc-123"}})
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
