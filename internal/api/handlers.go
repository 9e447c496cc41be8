package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rentou/server/internal/apperrors"
	"rentou/server/internal/database"
	"rentou/server/internal/geometry"
	"rentou/server/internal/health"
	"rentou/server/internal/places"
	"rentou/server/internal/postal"
)

type PostalResolver interface {
	Resolve(ctx context.Context, raw string) (*postal.Address, error)
}

type Geocoder interface {
	Boundary(ctx context.Context, neighborhood, city, state string) (*geometry.Boundary, error)
	GeocodeAddress(ctx context.Context, street, postalCode, city string) (float64, float64, error)
}

type PlacesFinder interface {
	Nearby(ctx context.Context, lat, lon float64) []places.PointOfInterest
}

type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type StatusReporter interface {
	Report(ctx context.Context) health.Report
}

// Services are the collaborators a Handler is built from.
type Services struct {
	Store     database.Store
	Postal    PostalResolver
	Geocoder  Geocoder
	Places    PlacesFinder
	Generator TextGenerator
	Status    StatusReporter
}

type Handler struct {
	db        database.Store
	postal    PostalResolver
	geocoder  Geocoder
	places    PlacesFinder
	generator TextGenerator
	status    StatusReporter
	logger    *logrus.Logger
}

func NewHandler(services Services, logger *logrus.Logger) *Handler {
	return &Handler{
		db:        services.Store,
		postal:    services.Postal,
		geocoder:  services.Geocoder,
		places:    services.Places,
		generator: services.Generator,
		status:    services.Status,
		logger:    logger,
	}
}

func (h *Handler) respondError(c *gin.Context, err error) {
	abortWithError(c, h.logger, err)
}

// abortWithError writes {"error": message} and stops the chain. Details of
// unexpected errors are only logged.
func abortWithError(c *gin.Context, logger *logrus.Logger, err error) {
	if errors.Is(err, database.ErrNotFound) {
		err = apperrors.NotFound("Registro não encontrado")
	}
	appErr := apperrors.From(err)

	entry := logger.WithFields(logrus.Fields{
		"path":       c.Request.URL.Path,
		"kind":       appErr.Kind.String(),
		"request_id": c.GetString(requestIDKey),
	})
	if appErr.Err != nil {
		entry = entry.WithError(appErr.Err)
	}
	if appErr.StatusCode() >= http.StatusInternalServerError {
		entry.Error(appErr.Message)
	} else {
		entry.Info(appErr.Message)
	}

	c.AbortWithStatusJSON(appErr.StatusCode(), gin.H{"error": appErr.Message})
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Validation("ID inválido")
	}
	return id, nil
}
