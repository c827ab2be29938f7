package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropsource/storefront/app/dto"
	"github.com/dropsource/storefront/config"
)

func TestNewCatalogRefresher(t *testing.T) {
	noop := func(ctx context.Context) (*dto.CatalogRefreshResponse, error) {
		return &dto.CatalogRefreshResponse{}, nil
	}

	tests := []struct {
		name        string
		cfg         config.SchedulerConfig
		expectError bool
		expectSpec  string
	}{
		{name: "default spec", cfg: config.SchedulerConfig{}, expectSpec: "@every 10m"},
		{name: "cron expression", cfg: config.SchedulerConfig{CatalogRefreshSpec: "*/5 * * * *"}, expectSpec: "*/5 * * * *"},
		{name: "unknown timezone falls back", cfg: config.SchedulerConfig{CatalogRefreshSpec: "@hourly", Timezone: "Mars/Olympus"}, expectSpec: "@hourly"},
		{name: "invalid spec", cfg: config.SchedulerConfig{CatalogRefreshSpec: "every now and then"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewCatalogRefresher(tt.cfg, noop)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectSpec, s.spec)
		})
	}
}

func TestCatalogRefresherRunOnce(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var calls int32
		s, err := NewCatalogRefresher(config.SchedulerConfig{}, func(ctx context.Context) (*dto.CatalogRefreshResponse, error) {
			atomic.AddInt32(&calls, 1)
			return &dto.CatalogRefreshResponse{Count: 3}, nil
		})
		require.NoError(t, err)

		assert.True(t, s.RunOnce(context.Background()))
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("failure is reported", func(t *testing.T) {
		s, err := NewCatalogRefresher(config.SchedulerConfig{}, func(ctx context.Context) (*dto.CatalogRefreshResponse, error) {
			return nil, errors.New("panel down")
		})
		require.NoError(t, err)

		assert.False(t, s.RunOnce(context.Background()))
	})

	t.Run("canceled context skips", func(t *testing.T) {
		var calls int32
		s, err := NewCatalogRefresher(config.SchedulerConfig{}, func(ctx context.Context) (*dto.CatalogRefreshResponse, error) {
			atomic.AddInt32(&calls, 1)
			return &dto.CatalogRefreshResponse{}, nil
		})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.False(t, s.RunOnce(ctx))
		assert.Zero(t, atomic.LoadInt32(&calls))
	})

	t.Run("overlapping run is skipped", func(t *testing.T) {
		release := make(chan struct{})
		entered := make(chan struct{})
		s, err := NewCatalogRefresher(config.SchedulerConfig{}, func(ctx context.Context) (*dto.CatalogRefreshResponse, error) {
			close(entered)
			<-release
			return &dto.CatalogRefreshResponse{}, nil
		})
		require.NoError(t, err)

		done := make(chan bool)
		go func() { done <- s.RunOnce(context.Background()) }()
		<-entered

		assert.False(t, s.RunOnce(context.Background()))
		close(release)
		assert.True(t, <-done)
	})
}

func TestCatalogRefresherStartStop(t *testing.T) {
	warmed := make(chan struct{}, 1)
	s, err := NewCatalogRefresher(config.SchedulerConfig{CatalogRefreshSpec: "@every 1h"}, func(ctx context.Context) (*dto.CatalogRefreshResponse, error) {
		select {
		case warmed <- struct{}{}:
		default:
		}
		return &dto.CatalogRefreshResponse{Count: 1}, nil
	})
	require.NoError(t, err)

	stop, err := s.Start(context.Background())
	require.NoError(t, err)

	select {
	case <-warmed:
	case <-time.After(2 * time.Second):
		t.Fatal("expected an initial refresh")
	}
	stop()
}
