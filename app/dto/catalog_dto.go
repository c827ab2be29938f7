package dto

import "github.com/dropsource/storefront/models"

// ListServicesRequest holds the catalog query filters
type ListServicesRequest struct {
	Query    string `query:"q"`
	Category string `query:"category"`
}

// ListServicesResponse is the filtered, normalized catalog
type ListServicesResponse struct {
	Services []models.Service `json:"services"`
	Count    int              `json:"count"`
}

// CatalogRefreshResponse reports a forced catalog reload
type CatalogRefreshResponse struct {
	Count       int    `json:"count"`
	RefreshedAt string `json:"refreshed_at"`
}
