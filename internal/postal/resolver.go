// Package postal resolves Brazilian postal codes (CEP) through a primary
// provider with a single fallback, normalizing both answers to one shape.
package postal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"rentou/server/config"
	"rentou/server/internal/apperrors"
	"rentou/server/internal/metrics"
)

const (
	ProviderViaCEP    = "viacep"
	ProviderBrasilAPI = "brasilapi"
)

var (
	errNotFound    = errors.New("cep not found")
	errUnavailable = errors.New("provider unavailable")
)

// Address is the normalized postal address, named after the primary provider's fields.
type Address struct {
	CEP         string `json:"cep"`
	Logradouro  string `json:"logradouro"`
	Complemento string `json:"complemento"`
	Bairro      string `json:"bairro"`
	Localidade  string `json:"localidade"`
	UF          string `json:"uf"`

	Found    bool   `json:"-"`
	Provider string `json:"-"`
}

type Resolver struct {
	logger      *logrus.Logger
	client      *http.Client
	primaryURL  string
	fallbackURL string
}

func NewResolver(cfg *config.Config, logger *logrus.Logger) *Resolver {
	return &Resolver{
		logger:      logger,
		client:      &http.Client{Timeout: cfg.Postal.Timeout},
		primaryURL:  strings.TrimSuffix(cfg.Postal.PrimaryURL, "/"),
		fallbackURL: strings.TrimSuffix(cfg.Postal.FallbackURL, "/"),
	}
}

// Normalize strips every non-digit character from a postal code.
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Resolve looks the code up on the primary provider and falls back to the
// secondary one on any failure or explicit not-found answer.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*Address, error) {
	cep := Normalize(raw)
	if len(cep) != 8 {
		return nil, apperrors.Validation("CEP inválido. Informe 8 dígitos.")
	}

	addr, err := r.fetchPrimary(ctx, cep)
	if err == nil {
		return addr, nil
	}

	r.logger.WithError(err).WithFields(logrus.Fields{
		"cep":      cep,
		"provider": ProviderViaCEP,
	}).Warn("Primary CEP provider failed, trying fallback")

	addr, err = r.fetchFallback(ctx, cep)
	if err != nil {
		if errors.Is(err, errUnavailable) || errors.Is(err, errNotFound) {
			r.logger.WithError(err).WithFields(logrus.Fields{
				"cep":      cep,
				"provider": ProviderBrasilAPI,
			}).Warn("Fallback CEP provider failed")
			return nil, apperrors.NotFound("CEP não encontrado")
		}
		return nil, apperrors.Internal("Erro ao consultar CEP", err)
	}
	return addr, nil
}

func (r *Resolver) fetchPrimary(ctx context.Context, cep string) (*Address, error) {
	body, err := r.get(ctx, ProviderViaCEP, fmt.Sprintf("%s/%s/json/", r.primaryURL, cep))
	if err != nil {
		return nil, err
	}
	return parseViaCEP(body)
}

func (r *Resolver) fetchFallback(ctx context.Context, cep string) (*Address, error) {
	body, err := r.get(ctx, ProviderBrasilAPI, fmt.Sprintf("%s/%s", r.fallbackURL, cep))
	if err != nil {
		return nil, err
	}
	return parseBrasilAPI(body)
}

func (r *Resolver) get(ctx context.Context, provider, url string) (body []byte, err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstream(provider, start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errUnavailable, provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", errUnavailable, provider, resp.StatusCode)
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s response: %v", errUnavailable, provider, err)
	}
	return body, nil
}

// viaCEPFlag accepts both `true` and `"true"`; the provider has sent either.
type viaCEPFlag bool

func (f *viaCEPFlag) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "true":
		*f = true
	default:
		*f = false
	}
	return nil
}

type viaCEPResponse struct {
	CEP         string     `json:"cep"`
	Logradouro  string     `json:"logradouro"`
	Complemento string     `json:"complemento"`
	Bairro      string     `json:"bairro"`
	Localidade  string     `json:"localidade"`
	UF          string     `json:"uf"`
	Erro        viaCEPFlag `json:"erro"`
}

func parseViaCEP(body []byte) (*Address, error) {
	var resp viaCEPResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", ProviderViaCEP, err)
	}
	// Anything but the erro flag is passed through, empty fields included.
	if resp.Erro {
		return nil, errNotFound
	}

	return &Address{
		CEP:         resp.CEP,
		Logradouro:  resp.Logradouro,
		Complemento: resp.Complemento,
		Bairro:      resp.Bairro,
		Localidade:  resp.Localidade,
		UF:          resp.UF,
		Found:       true,
		Provider:    ProviderViaCEP,
	}, nil
}

type brasilAPIResponse struct {
	CEP          string `json:"cep"`
	State        string `json:"state"`
	City         string `json:"city"`
	Neighborhood string `json:"neighborhood"`
	Street       string `json:"street"`
}

func parseBrasilAPI(body []byte) (*Address, error) {
	var resp brasilAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", ProviderBrasilAPI, err)
	}
	if resp.City == "" || resp.State == "" {
		return nil, fmt.Errorf("%w: %s response missing city or state", errNotFound, ProviderBrasilAPI)
	}

	return &Address{
		CEP:        Format(resp.CEP),
		Logradouro: resp.Street,
		Bairro:     resp.Neighborhood,
		Localidade: resp.City,
		UF:         resp.State,
		Found:      true,
		Provider:   ProviderBrasilAPI,
	}, nil
}

// Format renders a code as NNNNN-NNN; anything that is not 8 digits is returned as-is.
func Format(raw string) string {
	digits := Normalize(raw)
	if len(digits) != 8 {
		return raw
	}
	return digits[:5] + "-" + digits[5:]
}
