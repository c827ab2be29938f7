package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/dropsource/storefront/app/dto"
	businessflow "github.com/dropsource/storefront/business_flow"
)

// OrderHandlerInterface defines the contract for order handlers
type OrderHandlerInterface interface {
	CreateOrder(c fiber.Ctx) error
	ListOrders(c fiber.Ctx) error
	OrderStatus(c fiber.Ctx) error
	CancelOrder(c fiber.Ctx) error
	RefillOrder(c fiber.Ctx) error
}

// OrderHandler places and tracks panel orders
type OrderHandler struct {
	baseHandler
	orderFlow businessflow.OrderFlow
}

func NewOrderHandler(orderFlow businessflow.OrderFlow) *OrderHandler {
	return &OrderHandler{
		baseHandler: newBaseHandler(),
		orderFlow:   orderFlow,
	}
}

// CreateOrder
// @Summary Place Order
// @Description Debit the wallet and forward the order to the panel. Nothing is charged if the panel rejects it.
// @Tags Orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateOrderRequest true "Order"
// @Success 201 {object} dto.APIResponse{data=dto.CreateOrderResponse} "Order placed"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 402 {object} dto.APIResponse "Insufficient funds"
// @Failure 404 {object} dto.APIResponse "Service not found"
// @Failure 502 {object} dto.APIResponse "Panel error"
// @Router /api/v1/orders [post]
func (h *OrderHandler) CreateOrder(c fiber.Ctx) error {
	identity, ok := identityOf(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User identity is required", "MISSING_IDENTITY", nil)
	}

	var req dto.CreateOrderRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if handled, err := h.validate(c, &req); handled {
		return err
	}

	ctx, cancel := requestContext(0)
	defer cancel()

	result, err := h.orderFlow.Create(ctx, identity, &req, clientMetadata(c))
	if err != nil {
		return h.flowError(c, err, "ORDER_CREATE_FAILED", "Failed to place order")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Order placed successfully", result)
}

// ListOrders
// @Summary List Orders
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size (default 20, max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} dto.APIResponse{data=dto.ListOrdersResponse} "Orders"
// @Router /api/v1/orders [get]
func (h *OrderHandler) ListOrders(c fiber.Ctx) error {
	identity, ok := identityOf(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User identity is required", "MISSING_IDENTITY", nil)
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	ctx, cancel := requestContext(0)
	defer cancel()

	result, err := h.orderFlow.List(ctx, identity, limit, offset)
	if err != nil {
		return h.flowError(c, err, "ORDER_LIST_FAILED", "Failed to list orders")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Orders retrieved successfully", result)
}

// OrderStatus
// @Summary Order Status
// @Description Fetch the upstream status of an order
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} dto.APIResponse{data=dto.OrderActionResponse} "Status"
// @Failure 404 {object} dto.APIResponse "Order not found"
// @Router /api/v1/orders/{id}/status [get]
func (h *OrderHandler) OrderStatus(c fiber.Ctx) error {
	return h.action(c, h.orderFlow.Status, "Order status retrieved successfully")
}

// CancelOrder
// @Summary Cancel Order
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} dto.APIResponse{data=dto.OrderActionResponse} "Cancel requested"
// @Failure 404 {object} dto.APIResponse "Order not found"
// @Router /api/v1/orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder(c fiber.Ctx) error {
	return h.action(c, h.orderFlow.Cancel, "Cancel requested")
}

// RefillOrder
// @Summary Refill Order
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} dto.APIResponse{data=dto.OrderActionResponse} "Refill requested"
// @Failure 404 {object} dto.APIResponse "Order not found"
// @Router /api/v1/orders/{id}/refill [post]
func (h *OrderHandler) RefillOrder(c fiber.Ctx) error {
	return h.action(c, h.orderFlow.Refill, "Refill requested")
}

type orderAction func(ctx context.Context, identity businessflow.Identity, orderID string) (*dto.OrderActionResponse, error)

func (h *OrderHandler) action(c fiber.Ctx, fn orderAction, message string) error {
	identity, ok := identityOf(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User identity is required", "MISSING_IDENTITY", nil)
	}

	ctx, cancel := requestContext(0)
	defer cancel()

	result, err := fn(ctx, identity, c.Params("id"))
	if err != nil {
		return h.flowError(c, err, "ORDER_ACTION_FAILED", "Order action failed")
	}
	return h.SuccessResponse(c, fiber.StatusOK, message, result)
}
