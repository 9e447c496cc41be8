package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"rentou/server/config"
	"rentou/server/internal/apperrors"
	"rentou/server/internal/geometry"
	"rentou/server/internal/metrics"
)

const providerName = "nominatim"

// Record types that describe an area rather than a single place.
var boundaryTypes = map[string]bool{
	"administrative": true,
	"suburb":         true,
	"neighbourhood":  true,
	"village":        true,
}

type Geocoder struct {
	logger      *logrus.Logger
	client      *http.Client
	baseURL     string
	userAgent   string
	country     string
	minInterval time.Duration

	throttleLock sync.Mutex
	lastCall     time.Time
}

func NewGeocoder(cfg *config.Config, logger *logrus.Logger) *Geocoder {
	return &Geocoder{
		logger:      logger,
		client:      &http.Client{Timeout: cfg.Geocoding.Timeout},
		baseURL:     strings.TrimSuffix(cfg.Geocoding.BaseURL, "/"),
		userAgent:   cfg.Geocoding.UserAgent,
		country:     cfg.Geocoding.Country,
		minInterval: cfg.Geocoding.MinInterval,
	}
}

type nominatimResult struct {
	Lat         string          `json:"lat"`
	Lon         string          `json:"lon"`
	Category    string          `json:"category"`
	Type        string          `json:"type"`
	AddressType string          `json:"addresstype"`
	DisplayName string          `json:"display_name"`
	GeoJSON     json.RawMessage `json:"geojson"`
}

func (r nominatimResult) isBoundary() bool {
	return boundaryTypes[r.Type] || boundaryTypes[r.AddressType]
}

// Boundary looks up the outline of a neighborhood. Results without a polygon
// or of a non-area type are skipped even when returned first.
func (g *Geocoder) Boundary(ctx context.Context, neighborhood, city, state string) (*geometry.Boundary, error) {
	neighborhood = strings.TrimSpace(neighborhood)
	city = strings.TrimSpace(city)
	state = strings.TrimSpace(state)
	if neighborhood == "" || city == "" || state == "" {
		return nil, apperrors.Validation("Parâmetros bairro, cidade e estado são obrigatórios")
	}

	query := fmt.Sprintf("%s, %s, %s, %s", neighborhood, city, state, g.country)
	params := url.Values{
		"q":               []string{query},
		"format":          []string{"jsonv2"},
		"polygon_geojson": []string{"1"},
		"limit":           []string{"1"},
	}

	results, err := g.search(ctx, params)
	if err != nil {
		return nil, apperrors.Internal("Erro ao buscar limites do bairro", err)
	}

	for _, result := range results {
		if !result.isBoundary() {
			continue
		}
		geom, err := geometry.ParseGeometry(result.GeoJSON)
		if err != nil {
			g.logger.WithError(err).WithFields(logrus.Fields{
				"query": query,
				"type":  result.Type,
			}).Debug("Skipping result without usable geometry")
			continue
		}

		g.logger.WithFields(logrus.Fields{
			"query":        query,
			"type":         result.Type,
			"display_name": result.DisplayName,
			"bound":        geom.Bound(),
		}).Info("Resolved neighborhood boundary")

		return &geometry.Boundary{
			Neighborhood: neighborhood,
			City:         city,
			State:        state,
			Geometry:     geom,
		}, nil
	}

	g.logger.WithField("query", query).Warn("No boundary found")
	return nil, apperrors.NotFound("Limite do bairro não encontrado")
}

// GeocodeAddress resolves a street address to coordinates. Calls are spaced
// by the configured minimum interval.
func (g *Geocoder) GeocodeAddress(ctx context.Context, street, postalCode, city string) (float64, float64, error) {
	fullAddress := fmt.Sprintf("%s, %s, %s, %s", street, postalCode, city, g.country)

	if err := g.throttle(ctx); err != nil {
		return 0, 0, err
	}

	g.logger.WithField("address", fullAddress).Info("Geocoding address with Nominatim")

	params := url.Values{
		"q":            []string{fullAddress},
		"format":       []string{"json"},
		"limit":        []string{"1"},
		"countrycodes": []string{"br"},
	}

	results, err := g.search(ctx, params)
	if err != nil {
		return 0, 0, err
	}
	if len(results) == 0 {
		g.logger.WithField("address", fullAddress).Warn("No results found")
		return 0, 0, fmt.Errorf("no results found for address: %s", fullAddress)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q: %w", results[0].Lon, err)
	}

	g.logger.WithFields(logrus.Fields{
		"address":   fullAddress,
		"latitude":  lat,
		"longitude": lon,
		"source":    providerName,
	}).Info("Successfully geocoded address")

	return lat, lon, nil
}

func (g *Geocoder) throttle(ctx context.Context) error {
	g.throttleLock.Lock()
	defer g.throttleLock.Unlock()

	if wait := g.minInterval - time.Since(g.lastCall); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	g.lastCall = time.Now()
	return nil
}

func (g *Geocoder) search(ctx context.Context, params url.Values) (results []nominatimResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstream(providerName, start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.7")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.WithError(err).WithField("query", params.Get("q")).Error("Geocoding request failed")
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		g.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(body),
		}).Error("Nominatim returned an error")
		return nil, fmt.Errorf("nominatim returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return results, nil
}
