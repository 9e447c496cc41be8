// Package places aggregates nearby points of interest from a places-search
// provider, one query per category, issued in parallel.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
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

const providerName = "foursquare"

// Category is one interest group queried per request.
type Category struct {
	Tag   string
	Label string
	IDs   string // provider category ids, comma separated
}

var DefaultCategories = []Category{
	{Tag: "school", Label: "Escola", IDs: "12057"},
	{Tag: "bus", Label: "Ponto de ônibus", IDs: "19042,19043"},
	{Tag: "station", Label: "Estação de metrô/trem", IDs: "19046,19047"},
	{Tag: "grocery", Label: "Mercado", IDs: "17069"},
	{Tag: "hospital", Label: "Hospital", IDs: "15014"},
}

// PointOfInterest is one nearby place. Places returned by more than one
// category appear once per category.
type PointOfInterest struct {
	Name           string  `json:"name"`
	Type           string  `json:"type"`
	Tag            string  `json:"tag"`
	Address        string  `json:"address"`
	DistanceKm     string  `json:"distanceKm"`
	DistanceMeters float64 `json:"distanceMeters"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
}

type Aggregator struct {
	logger       *logrus.Logger
	client       *http.Client
	baseURL      string
	apiKey       string
	limit        int
	radiusMeters float64
	categories   []Category
}

func NewAggregator(cfg *config.Config, logger *logrus.Logger) *Aggregator {
	return &Aggregator{
		logger:       logger,
		client:       &http.Client{Timeout: cfg.Places.Timeout},
		baseURL:      cfg.Places.BaseURL,
		apiKey:       cfg.Places.APIKey,
		limit:        cfg.Places.Limit,
		radiusMeters: float64(cfg.Places.RadiusMeters),
		categories:   DefaultCategories,
	}
}

// ParseCoordinates validates the lat/lon query parameters.
func ParseCoordinates(latRaw, lonRaw string) (float64, float64, error) {
	if strings.TrimSpace(latRaw) == "" || strings.TrimSpace(lonRaw) == "" {
		return 0, 0, apperrors.Validation("Parâmetros lat e lon são obrigatórios")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latRaw), 64)
	if err != nil {
		return 0, 0, apperrors.Validation("Parâmetro lat inválido")
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonRaw), 64)
	if err != nil {
		return 0, 0, apperrors.Validation("Parâmetro lon inválido")
	}
	if !geometry.ValidCoordinate(lat, lon) {
		return 0, 0, apperrors.Validation("Coordenadas fora do intervalo válido")
	}
	return lat, lon, nil
}

// Nearby queries every category concurrently and waits for all of them.
// A failing category contributes nothing; the result is never nil.
func (a *Aggregator) Nearby(ctx context.Context, lat, lon float64) []PointOfInterest {
	results := make([][]PointOfInterest, len(a.categories))

	var wg sync.WaitGroup
	for i, category := range a.categories {
		wg.Add(1)
		go func(i int, category Category) {
			defer wg.Done()

			pois, err := a.searchCategory(ctx, lat, lon, category)
			if err != nil {
				a.logger.WithError(err).WithFields(logrus.Fields{
					"category":  category.Tag,
					"latitude":  lat,
					"longitude": lon,
				}).Warn("Places search failed for category")
				return
			}
			results[i] = pois
		}(i, category)
	}
	wg.Wait()

	merged := make([]PointOfInterest, 0)
	for _, pois := range results {
		for _, poi := range pois {
			if poi.DistanceMeters <= a.radiusMeters {
				merged = append(merged, poi)
			}
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].DistanceMeters < merged[j].DistanceMeters
	})

	a.logger.WithFields(logrus.Fields{
		"latitude":  lat,
		"longitude": lon,
		"count":     len(merged),
	}).Info("Aggregated points of interest")

	return merged
}

type searchResponse struct {
	Results []struct {
		Name     string   `json:"name"`
		Distance *float64 `json:"distance"`
		Location struct {
			FormattedAddress string `json:"formatted_address"`
			Address          string `json:"address"`
		} `json:"location"`
		Geocodes struct {
			Main struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"main"`
		} `json:"geocodes"`
	} `json:"results"`
}

func (a *Aggregator) searchCategory(ctx context.Context, lat, lon float64, category Category) (pois []PointOfInterest, err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstream(providerName, start, err) }()

	params := url.Values{}
	params.Set("ll", fmt.Sprintf("%f,%f", lat, lon))
	params.Set("categories", category.IDs)
	params.Set("limit", strconv.Itoa(a.limit))
	params.Set("radius", strconv.Itoa(int(a.radiusMeters)))
	params.Set("sort", "DISTANCE")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("places request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		a.logger.WithFields(logrus.Fields{
			"category": category.Tag,
			"status":   resp.StatusCode,
			"body":     string(body),
		}).Debug("Places provider error body")
		return nil, fmt.Errorf("places provider returned status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	pois = make([]PointOfInterest, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		plat, plon := r.Geocodes.Main.Latitude, r.Geocodes.Main.Longitude

		var meters float64
		if r.Distance != nil {
			meters = *r.Distance
		} else {
			meters = geometry.DistanceMeters(lat, lon, plat, plon)
		}

		address := r.Location.FormattedAddress
		if address == "" {
			address = r.Location.Address
		}

		pois = append(pois, PointOfInterest{
			Name:           r.Name,
			Type:           category.Label,
			Tag:            category.Tag,
			Address:        address,
			DistanceKm:     fmt.Sprintf("%.1f", meters/1000),
			DistanceMeters: meters,
			Latitude:       plat,
			Longitude:      plon,
		})
	}
	return pois, nil
}
