package database

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"rentou/server/internal/models"
)

type AddressGeocoder interface {
	GeocodeAddress(ctx context.Context, street, postalCode, city string) (float64, float64, error)
}

// UpdateMissingCoordinates geocodes the owner's listings that lack
// coordinates. A listing that fails to geocode is marked as attempted and
// skipped; only store errors abort the pass.
func UpdateMissingCoordinates(ctx context.Context, store Store, geocoder AddressGeocoder, ownerID string, logger *logrus.Logger) (models.CoordinatesReport, error) {
	var report models.CoordinatesReport

	imoveis, err := store.ListImoveisSemCoordenadas(ctx, ownerID)
	if err != nil {
		return report, err
	}
	report.Total = len(imoveis)
	if report.Total == 0 {
		logger.WithField("owner", ownerID).Info("No listings need geocoding")
		return report, nil
	}

	logger.WithFields(logrus.Fields{
		"owner": ownerID,
		"total": report.Total,
	}).Info("Geocoding listings without coordinates")

	for _, imovel := range imoveis {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		lat, lon, err := geocoder.GeocodeAddress(ctx, imovel.Endereco(), imovel.CEP, imovel.Cidade)
		if err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"id":      imovel.ID,
				"address": imovel.Endereco(),
			}).Warn("Failed to geocode listing")

			if err := store.UpdateCoordenadas(ctx, imovel.ID, nil, nil); err != nil {
				return report, fmt.Errorf("failed to mark geocoding attempt: %w", err)
			}
			report.Failed++
			continue
		}

		if err := store.UpdateCoordenadas(ctx, imovel.ID, &lat, &lon); err != nil {
			return report, err
		}
		report.Updated++
	}

	logger.WithFields(logrus.Fields{
		"owner":   ownerID,
		"updated": report.Updated,
		"failed":  report.Failed,
	}).Info("Geocoding completed")

	return report, nil
}
