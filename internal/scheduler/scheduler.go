package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"rentou/server/internal/database"
)

// Scheduler periodically geocodes listings that were saved without
// coordinates, so a geocoder outage at save time heals on its own.
type Scheduler struct {
	store    database.Store
	geocoder database.AddressGeocoder
	interval time.Duration
	logger   *logrus.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	stopChan chan struct{}
	wg       sync.WaitGroup
	jobMutex sync.Mutex // one sweep at a time
}

func NewScheduler(store database.Store, geocoder database.AddressGeocoder, interval time.Duration, logger *logrus.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:    store,
		geocoder: geocoder,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		stopChan: make(chan struct{}),
	}
}

// Start runs a sweep right away and then once per interval.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	s.logger.WithField("interval", s.interval.String()).Info("Running startup geocoding sweep")
	s.RunOnce(s.ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.RunOnce(s.ctx)
		}
	}
}

// RunOnce geocodes pending listings owner by owner and returns the combined
// number of listings updated. An owner whose pass fails is logged and skipped.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	owners, err := s.store.ListOwnersSemCoordenadas(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list owners pending geocoding")
		return 0
	}

	updated := 0
	for _, owner := range owners {
		if ctx.Err() != nil {
			return updated
		}

		report, err := database.UpdateMissingCoordinates(ctx, s.store, s.geocoder, owner, s.logger)
		updated += report.Updated
		if err != nil {
			s.logger.WithError(err).WithField("owner", owner).Error("Geocoding sweep failed for owner")
		}
	}

	if len(owners) > 0 {
		s.logger.WithFields(logrus.Fields{
			"owners":  len(owners),
			"updated": updated,
		}).Info("Geocoding sweep completed")
	}
	return updated
}

// Stop aborts an in-flight sweep and waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.cancel()
	close(s.stopChan)
	s.wg.Wait()
}
