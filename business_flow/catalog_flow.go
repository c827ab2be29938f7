package businessflow

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/dropsource/storefront/app/dto"
	"github.com/dropsource/storefront/app/services"
	"github.com/dropsource/storefront/models"
	"github.com/dropsource/storefront/utils"
)

// CatalogFlow serves the normalized panel catalog
type CatalogFlow interface {
	List(ctx context.Context, req *dto.ListServicesRequest) (*dto.ListServicesResponse, error)
	Get(ctx context.Context, id string) (*models.Service, error)
	Refresh(ctx context.Context) (*dto.CatalogRefreshResponse, error)
}

// CatalogFlowImpl implements CatalogFlow
type CatalogFlowImpl struct {
	panel services.PanelClient
	cache services.CatalogCache
}

func NewCatalogFlow(panel services.PanelClient, cache services.CatalogCache) CatalogFlow {
	return &CatalogFlowImpl{panel: panel, cache: cache}
}

func (f *CatalogFlowImpl) List(ctx context.Context, req *dto.ListServicesRequest) (*dto.ListServicesResponse, error) {
	all, err := f.load(ctx)
	if err != nil {
		return nil, err
	}
	var q, category string
	if req != nil {
		q, category = req.Query, req.Category
	}
	filtered := FilterServices(all, q, category)
	return &dto.ListServicesResponse{Services: filtered, Count: len(filtered)}, nil
}

func (f *CatalogFlowImpl) Get(ctx context.Context, id string) (*models.Service, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrServiceNotFound
	}
	all, err := f.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			svc := all[i]
			return &svc, nil
		}
	}
	return nil, ErrServiceNotFound
}

// Refresh bypasses the cache and replaces it with a fresh pull
func (f *CatalogFlowImpl) Refresh(ctx context.Context) (*dto.CatalogRefreshResponse, error) {
	all, err := f.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.CatalogRefreshResponse{Count: len(all), RefreshedAt: utils.UTCNowRFC3339()}, nil
}

func (f *CatalogFlowImpl) load(ctx context.Context) ([]models.Service, error) {
	if f.cache != nil {
		cached, hit, err := f.cache.Get(ctx)
		if err != nil {
			log.WithError(err).Warn("catalog cache read failed, falling back to panel")
		} else if hit {
			return cached, nil
		}
	}
	return f.fetch(ctx)
}

func (f *CatalogFlowImpl) fetch(ctx context.Context) ([]models.Service, error) {
	if f.panel == nil {
		return nil, ErrCatalogNotAvailable
	}
	raw, err := f.panel.Services(ctx)
	if err != nil {
		return nil, NewBusinessError("PANEL_ERROR", panelMessage(err), errors.Join(ErrPanelFailed, err))
	}
	all, err := services.NormalizeCatalog(raw)
	if err != nil {
		return nil, NewBusinessError("UNEXPECTED_UPSTREAM", "Unexpected services response", errors.Join(ErrUnexpectedUpstream, err))
	}
	if f.cache != nil {
		if err := f.cache.Set(ctx, all); err != nil {
			log.WithError(err).Warn("catalog cache write failed")
		}
	}
	return all, nil
}

// FilterServices keeps services whose name, category or tags contain q, and whose
// category slug or name equals category. Both filters are case-insensitive.
func FilterServices(all []models.Service, q, category string) []models.Service {
	q = strings.ToLower(strings.TrimSpace(q))
	category = strings.ToLower(strings.TrimSpace(category))
	out := make([]models.Service, 0, len(all))
	for _, svc := range all {
		if category != "" && strings.ToLower(svc.CategorySlug) != category && strings.ToLower(svc.Category) != category {
			continue
		}
		if q != "" && !serviceMatches(svc, q) {
			continue
		}
		out = append(out, svc)
	}
	return out
}

func serviceMatches(svc models.Service, q string) bool {
	if strings.Contains(strings.ToLower(svc.Name), q) || strings.Contains(strings.ToLower(svc.Category), q) {
		return true
	}
	for _, t := range svc.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

func panelMessage(err error) string {
	var perr *services.PanelError
	if errors.As(err, &perr) {
		return "Panel error: " + perr.Message
	}
	return "Panel request failed"
}
