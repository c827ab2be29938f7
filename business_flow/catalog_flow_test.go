package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropsource/storefront/app/dto"
	"github.com/dropsource/storefront/models"
)

func TestFilterServices(t *testing.T) {
	all := []models.Service{
		{ID: "1", Name: "Instagram Followers", Category: "Instagram", CategorySlug: "instagram", Tags: []string{"USA"}},
		{ID: "2", Name: "TikTok Views", Category: "TikTok", CategorySlug: "tiktok"},
		{ID: "3", Name: "Instagram Likes", Category: "Instagram", CategorySlug: "instagram", Tags: []string{"Real"}},
	}

	tests := []struct {
		name     string
		q        string
		category string
		expected []string
	}{
		{name: "no filters", expected: []string{"1", "2", "3"}},
		{name: "query on name", q: "likes", expected: []string{"3"}},
		{name: "query on category", q: "TIKTOK", expected: []string{"2"}},
		{name: "query on tag", q: "usa", expected: []string{"1"}},
		{name: "category slug", category: "instagram", expected: []string{"1", "3"}},
		{name: "category and query", category: "Instagram", q: "real", expected: []string{"3"}},
		{name: "no match", q: "youtube", expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterServices(all, tt.q, tt.category)
			ids := make([]string, 0, len(got))
			for _, s := range got {
				ids = append(ids, s.ID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestCatalogFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("list reads through the cache", func(t *testing.T) {
		panel := &fakePanel{servicesRaw: json.RawMessage(testCatalog)}
		flow := NewCatalogFlow(panel, &memCatalogCache{})

		resp, err := flow.List(ctx, &dto.ListServicesRequest{})
		require.NoError(t, err)
		assert.Equal(t, 2, resp.Count)
		assert.Equal(t, "instagram-followers", resp.Services[0].CategorySlug)
		assert.Equal(t, 1.35, resp.Services[0].PricePer1K)

		filtered, err := flow.List(ctx, &dto.ListServicesRequest{Category: "tiktok views"})
		require.NoError(t, err)
		require.Equal(t, 1, filtered.Count)
		assert.Equal(t, "2", filtered.Services[0].ID)

		assert.Equal(t, 1, panel.callCount("services"))
	})

	t.Run("cache errors fall back to the panel", func(t *testing.T) {
		panel := &fakePanel{servicesRaw: json.RawMessage(testCatalog)}
		flow := NewCatalogFlow(panel, &memCatalogCache{getErr: errors.New("redis down")})

		resp, err := flow.List(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, resp.Count)
	})

	t.Run("refresh bypasses the cache", func(t *testing.T) {
		panel := &fakePanel{servicesRaw: json.RawMessage(testCatalog)}
		cache := &memCatalogCache{}
		flow := NewCatalogFlow(panel, cache)

		for i := 0; i < 2; i++ {
			resp, err := flow.Refresh(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, resp.Count)
			assert.NotEmpty(t, resp.RefreshedAt)
		}
		assert.Equal(t, 2, panel.callCount("services"))
		assert.Len(t, cache.services, 2)
	})

	t.Run("get", func(t *testing.T) {
		flow := NewCatalogFlow(&fakePanel{servicesRaw: json.RawMessage(testCatalog)}, nil)

		svc, err := flow.Get(ctx, " 1 ")
		require.NoError(t, err)
		assert.Equal(t, "Instagram Followers [Real]", svc.Name)
		assert.True(t, svc.AllowsQuantity(100))
		assert.False(t, svc.AllowsQuantity(99))

		_, err = flow.Get(ctx, "404")
		assert.True(t, IsServiceNotFound(err))
		_, err = flow.Get(ctx, "")
		assert.True(t, IsServiceNotFound(err))
	})

	t.Run("unexpected upstream shape", func(t *testing.T) {
		flow := NewCatalogFlow(&fakePanel{servicesRaw: json.RawMessage(`{"services":"maintenance"}`)}, &memCatalogCache{})

		_, err := flow.List(ctx, nil)
		require.Error(t, err)
		assert.True(t, IsUnexpectedUpstream(err))

		var bizErr *BusinessError
		require.True(t, errors.As(err, &bizErr))
		assert.Equal(t, "UNEXPECTED_UPSTREAM", bizErr.Code)
	})

	t.Run("panel not configured", func(t *testing.T) {
		flow := NewCatalogFlow(nil, nil)
		_, err := flow.List(ctx, nil)
		assert.True(t, IsCatalogNotAvailable(err))
	})
}
