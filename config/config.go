package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	Server struct {
		Port string `env:"PORT" envDefault:"5250"`

		// Gin mode, also reported as the runtime mode by the status endpoint
		Mode string `env:"GIN_MODE" envDefault:"release"`

		// Deployment region reported by the status endpoint
		Region string `env:"REGION" envDefault:"local"`

		AllowedOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

		// Base URL the server can reach itself on, used by the status self-check
		PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:5250"`

		// Directory with the built owner panel; the panel is not served when empty
		StaticDir string `env:"STATIC_DIR"`

		ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	}

	Database struct {
		Path string `env:"DATABASE_PATH" envDefault:"database/rentou.db"`
	}

	Postal struct {
		PrimaryURL  string        `env:"CEP_PRIMARY_URL" envDefault:"https://viacep.com.br/ws"`
		FallbackURL string        `env:"CEP_FALLBACK_URL" envDefault:"https://brasilapi.com.br/api/cep/v1"`
		Timeout     time.Duration `env:"CEP_TIMEOUT" envDefault:"10s"`
	}

	Geocoding struct {
		BaseURL   string `env:"NOMINATIM_URL" envDefault:"https://nominatim.openstreetmap.org"`
		UserAgent string `env:"NOMINATIM_USER_AGENT" envDefault:"Rentou/1.0"`
		Country   string `env:"GEOCODING_COUNTRY" envDefault:"Brasil"`

		// Minimum spacing between address geocoding calls (Nominatim usage policy)
		MinInterval time.Duration `env:"NOMINATIM_MIN_INTERVAL" envDefault:"1s"`
		Timeout     time.Duration `env:"NOMINATIM_TIMEOUT" envDefault:"10s"`

		// Interval of the background pass over listings saved without coordinates; 0 disables it
		SweepInterval time.Duration `env:"GEOCODING_SWEEP_INTERVAL" envDefault:"6h"`
	}

	Places struct {
		BaseURL string        `env:"PLACES_URL" envDefault:"https://api.foursquare.com/v3/places/search"`
		APIKey  string        `env:"PLACES_API_KEY"`
		Timeout time.Duration `env:"PLACES_TIMEOUT" envDefault:"10s"`

		// Results requested per category
		Limit int `env:"PLACES_LIMIT" envDefault:"5"`

		// Entries farther than this are dropped
		RadiusMeters int `env:"PLACES_RADIUS_METERS" envDefault:"2000"`
	}

	GenAI struct {
		BaseURL string        `env:"GEMINI_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
		Model   string        `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
		APIKey  string        `env:"GEMINI_API_KEY"`
		Timeout time.Duration `env:"GEMINI_TIMEOUT" envDefault:"30s"`
	}

	Firebase struct {
		ProjectID     string        `env:"FIREBASE_PROJECT_ID"`
		JWKSURL       string        `env:"FIREBASE_JWKS_URL" envDefault:"https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"`
		SessionCookie string        `env:"SESSION_COOKIE" envDefault:"__session"`
		KeysTTL       time.Duration `env:"FIREBASE_KEYS_TTL" envDefault:"1h"`
	}

	Health struct {
		// Known-good postal code used by the status self-check
		ProbeCEP string `env:"HEALTH_PROBE_CEP" envDefault:"01001000"`
	}
}

// Load reads an optional .env file and then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// Issuer is the token issuer expected for the configured Firebase project.
func (c *Config) Issuer() string {
	return "https://securetoken.google.com/" + c.Firebase.ProjectID
}
