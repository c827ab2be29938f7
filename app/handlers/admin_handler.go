package handlers

import (
	"github.com/gofiber/fiber/v3"

	"github.com/dropsource/storefront/app/dto"
	businessflow "github.com/dropsource/storefront/business_flow"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AdminHandlerInterface defines the contract for operator endpoints
type AdminHandlerInterface interface {
	ListDeposits(c fiber.Ctx) error
	ExportDeposits(c fiber.Ctx) error
	ListWebhookLogs(c fiber.Ctx) error
	PanelBalance(c fiber.Ctx) error
	RefreshCatalog(c fiber.Ctx) error
	DBPing(c fiber.Ctx) error
	EnvReport(c fiber.Ctx) error
}

// AdminHandler serves the operator endpoints behind the admin key
type AdminHandler struct {
	baseHandler
	adminFlow businessflow.AdminFlow
}

func NewAdminHandler(adminFlow businessflow.AdminFlow) *AdminHandler {
	return &AdminHandler{
		baseHandler: newBaseHandler(),
		adminFlow:   adminFlow,
	}
}

func (h *AdminHandler) bindDepositQuery(c fiber.Ctx) (*dto.AdminListDepositsRequest, error) {
	var req dto.AdminListDepositsRequest
	if err := c.Bind().Query(&req); err != nil {
		return nil, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query", "INVALID_REQUEST", err.Error())
	}
	if handled, err := h.validate(c, &req); handled {
		return nil, err
	}
	return &req, nil
}

// ListDeposits
// @Summary List Deposits
// @Tags Admin
// @Produce json
// @Security ApiKeyAuth
// @Param user_id query string false "User ID"
// @Param status query string false "Deposit status"
// @Param method query string false "coinbase or square"
// @Param limit query int false "Page size (default 50, max 500)"
// @Param offset query int false "Offset"
// @Success 200 {object} dto.APIResponse{data=dto.AdminListDepositsResponse} "Deposits"
// @Failure 401 {object} dto.APIResponse "Invalid admin key"
// @Router /api/v1/admin/deposits [get]
func (h *AdminHandler) ListDeposits(c fiber.Ctx) error {
	req, err := h.bindDepositQuery(c)
	if req == nil {
		return err
	}

	ctx, cancel := requestContext(0)
	defer cancel()

	result, err := h.adminFlow.ListDeposits(ctx, req)
	if err != nil {
		return h.flowError(c, err, "DEPOSIT_LIST_FAILED", "Failed to list deposits")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Deposits retrieved successfully", result)
}

// ExportDeposits
// @Summary Export Deposits
// @Description Download matching deposits as an XLSX sheet
// @Tags Admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security ApiKeyAuth
// @Success 200 {file} file "deposits.xlsx"
// @Router /api/v1/admin/deposits/export [get]
func (h *AdminHandler) ExportDeposits(c fiber.Ctx) error {
	req, err := h.bindDepositQuery(c)
	if req == nil {
		return err
	}

	ctx, cancel := requestContext(0)
	defer cancel()

	filename, data, err := h.adminFlow.ExportDeposits(ctx, req)
	if err != nil {
		return h.flowError(c, err, "EXPORT_FAILED", "Failed to export deposits")
	}
	c.Set("Content-Type", xlsxContentType)
	c.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	return c.Status(fiber.StatusOK).Send(data)
}

// ListWebhookLogs
// @Summary List Webhook Logs
// @Tags Admin
// @Produce json
// @Security ApiKeyAuth
// @Param source query string false "coinbase, square or debug"
// @Param event query string false "Outcome event"
// @Success 200 {object} dto.APIResponse{data=dto.AdminListWebhookLogsResponse} "Logs"
// @Router /api/v1/admin/webhook-logs [get]
func (h *AdminHandler) ListWebhookLogs(c fiber.Ctx) error {
	var req dto.AdminListWebhookLogsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query", "INVALID_REQUEST", err.Error())
	}
	if handled, err := h.validate(c, &req); handled {
		return err
	}

	ctx, cancel := requestContext(0)
	defer cancel()

	result, err := h.adminFlow.ListWebhookLogs(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "WEBHOOK_LOG_LIST_FAILED", "Failed to list webhook logs")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Webhook logs retrieved successfully", result)
}

// PanelBalance
// @Summary Panel Balance
// @Description Reseller balance at the upstream panel
// @Tags Admin
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} dto.APIResponse "Balance"
// @Failure 502 {object} dto.APIResponse "Panel error"
// @Router /api/v1/admin/panel/balance [get]
func (h *AdminHandler) PanelBalance(c fiber.Ctx) error {
	ctx, cancel := requestContext(0)
	defer cancel()

	raw, err := h.adminFlow.PanelBalance(ctx)
	if err != nil {
		return h.flowError(c, err, "PANEL_ERROR", "Panel request failed")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Panel balance retrieved successfully", raw)
}

// RefreshCatalog
// @Summary Refresh Catalog
// @Tags Admin
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} dto.APIResponse{data=dto.CatalogRefreshResponse} "Refreshed"
// @Router /api/v1/admin/catalog/refresh [post]
func (h *AdminHandler) RefreshCatalog(c fiber.Ctx) error {
	ctx, cancel := requestContext(0)
	defer cancel()

	result, err := h.adminFlow.RefreshCatalog(ctx)
	if err != nil {
		return h.flowError(c, err, "CATALOG_REFRESH_FAILED", "Failed to refresh catalog")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Catalog refreshed", result)
}

// DBPing
// @Summary Database Ping
// @Tags Admin
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} dto.APIResponse{data=dto.DBPingResponse} "Reachable"
// @Failure 500 {object} dto.APIResponse{data=dto.DBPingResponse} "Unreachable"
// @Router /api/v1/admin/debug/db-ping [get]
func (h *AdminHandler) DBPing(c fiber.Ctx) error {
	noStore(c)
	ctx, cancel := requestContext(0)
	defer cancel()

	result := h.adminFlow.DBPing(ctx)
	if !result.OK {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
			Success: false,
			Message: "Database check failed",
			Data:    result,
			Error:   dto.ErrorDetail{Code: "DB_PING_FAILED"},
		})
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Database reachable", result)
}

// EnvReport
// @Summary Environment Report
// @Description Which settings are present; values are never returned
// @Tags Admin
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} dto.APIResponse{data=dto.EnvReportResponse} "Report"
// @Router /api/v1/admin/debug/env [get]
func (h *AdminHandler) EnvReport(c fiber.Ctx) error {
	noStore(c)
	return h.SuccessResponse(c, fiber.StatusOK, "Environment report", h.adminFlow.EnvReport())
}
