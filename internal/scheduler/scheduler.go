package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/kidsweather/kidsweather/internal/weather"
)

// Fetcher is the slice of the weather client the warm job needs.
type Fetcher interface {
	FetchCurrent(ctx context.Context, lat, lon float64) (*weather.Snapshot, error)
}

// Scheduler periodically refreshes the weather cache for the default
// location so front-end requests stay inside the cache window.
type Scheduler struct {
	scheduler *gocron.Scheduler
	fetcher   Fetcher
	lat, lon  float64
	interval  time.Duration
	log       *zap.Logger
}

// New creates a cache-warm scheduler for one location.
func New(fetcher Fetcher, lat, lon float64, interval time.Duration, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		fetcher:   fetcher,
		lat:       lat,
		lon:       lon,
		interval:  interval,
		log:       log,
	}
}

// Start schedules the periodic warm job and starts the underlying scheduler.
// The first run fires immediately so the cache is warm before the first
// request arrives.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.log.Info("cache warming disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).StartImmediately().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if _, err := s.fetcher.FetchCurrent(ctx, s.lat, s.lon); err != nil {
			s.log.Warn("cache warm fetch failed",
				zap.Float64("lat", s.lat),
				zap.Float64("lon", s.lon),
				zap.Error(err),
			)
			return
		}
		s.log.Debug("weather cache warmed",
			zap.Float64("lat", s.lat),
			zap.Float64("lon", s.lon),
		)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
