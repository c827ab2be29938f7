package handlers

import (
	"github.com/gofiber/fiber/v3"

	"github.com/dropsource/storefront/app/dto"
	businessflow "github.com/dropsource/storefront/business_flow"
)

// CatalogHandlerInterface defines the contract for catalog handlers
type CatalogHandlerInterface interface {
	ListServices(c fiber.Ctx) error
	GetService(c fiber.Ctx) error
}

// CatalogHandler serves the public service catalog
type CatalogHandler struct {
	baseHandler
	catalogFlow businessflow.CatalogFlow
}

func NewCatalogHandler(catalogFlow businessflow.CatalogFlow) *CatalogHandler {
	return &CatalogHandler{
		baseHandler: newBaseHandler(),
		catalogFlow: catalogFlow,
	}
}

// ListServices
// @Summary List Services
// @Description Normalized panel catalog with resale prices
// @Tags Catalog
// @Produce json
// @Param q query string false "Substring of name, category or tags"
// @Param category query string false "Category slug or name"
// @Success 200 {object} dto.APIResponse{data=dto.ListServicesResponse} "Services"
// @Failure 502 {object} dto.APIResponse "Panel error"
// @Router /api/v1/services [get]
func (h *CatalogHandler) ListServices(c fiber.Ctx) error {
	var req dto.ListServicesRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query", "INVALID_REQUEST", err.Error())
	}

	ctx, cancel := requestContext(0)
	defer cancel()

	result, err := h.catalogFlow.List(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "CATALOG_FAILED", "Failed to load services")
	}
	c.Set("Cache-Control", "public, max-age=60")
	return h.SuccessResponse(c, fiber.StatusOK, "Services retrieved successfully", result)
}

// GetService
// @Summary Get Service
// @Tags Catalog
// @Produce json
// @Param id path string true "Service ID"
// @Success 200 {object} dto.APIResponse{data=models.Service} "Service"
// @Failure 404 {object} dto.APIResponse "Service not found"
// @Router /api/v1/services/{id} [get]
func (h *CatalogHandler) GetService(c fiber.Ctx) error {
	ctx, cancel := requestContext(0)
	defer cancel()

	svc, err := h.catalogFlow.Get(ctx, c.Params("id"))
	if err != nil {
		return h.flowError(c, err, "CATALOG_FAILED", "Failed to load service")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Service retrieved successfully", svc)
}
