// Package scheduler runs background jobs on cron schedules
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/dropsource/storefront/app/dto"
	"github.com/dropsource/storefront/config"
)

const refreshTimeout = 2 * time.Minute

// CatalogRefreshFunc reloads the panel catalog into the cache
type CatalogRefreshFunc func(ctx context.Context) (*dto.CatalogRefreshResponse, error)

// CatalogRefresher keeps the catalog cache warm so storefront reads rarely reach the panel
type CatalogRefresher struct {
	cron    *cron.Cron
	spec    string
	refresh CatalogRefreshFunc

	mu      sync.Mutex
	running bool
}

func NewCatalogRefresher(cfg config.SchedulerConfig, refresh CatalogRefreshFunc) (*CatalogRefresher, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.WithError(err).Warnf("scheduler: unknown timezone %q, using UTC", cfg.Timezone)
		} else {
			loc = l
		}
	}

	spec := cfg.CatalogRefreshSpec
	if spec == "" {
		spec = "@every 10m"
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid catalog refresh spec %q: %w", spec, err)
	}

	return &CatalogRefresher{
		cron:    cron.New(cron.WithLocation(loc)),
		spec:    spec,
		refresh: refresh,
	}, nil
}

// Start schedules the refresh job, warms the cache once, and returns a stop function
func (s *CatalogRefresher) Start(parent context.Context) (func(), error) {
	ctx, cancel := context.WithCancel(parent)

	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to schedule catalog refresh: %w", err)
	}
	s.cron.Start()
	go s.RunOnce(ctx)

	log.WithField("spec", s.spec).Info("scheduler: catalog refresher started")

	return func() {
		cancel()
		<-s.cron.Stop().Done()
		log.Info("scheduler: catalog refresher stopped")
	}, nil
}

// RunOnce refreshes the catalog unless a previous run is still in flight
func (s *CatalogRefresher) RunOnce(ctx context.Context) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Debug("scheduler: catalog refresh already running, skipping")
		return false
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if ctx.Err() != nil {
		return false
	}

	runCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	started := time.Now()
	result, err := s.refresh(runCtx)
	if err != nil {
		log.WithError(err).Error("scheduler: catalog refresh failed")
		return false
	}

	log.WithFields(log.Fields{
		"services": result.Count,
		"took":     time.Since(started).String(),
	}).Info("scheduler: catalog refreshed")
	return true
}
