package handlers

import (
	"github.com/gofiber/fiber/v3"

	"github.com/dropsource/storefront/app/dto"
	businessflow "github.com/dropsource/storefront/business_flow"
	"github.com/dropsource/storefront/models"
)

// DepositHandlerInterface defines the contract for deposit handlers
type DepositHandlerInterface interface {
	CreateCoinbaseDeposit(c fiber.Ctx) error
	CreateSquareDeposit(c fiber.Ctx) error
}

// DepositHandler starts hosted checkouts
type DepositHandler struct {
	baseHandler
	depositFlow businessflow.DepositFlow
}

func NewDepositHandler(depositFlow businessflow.DepositFlow) *DepositHandler {
	return &DepositHandler{
		baseHandler: newBaseHandler(),
		depositFlow: depositFlow,
	}
}

// CreateCoinbaseDeposit
// @Summary Create Coinbase Deposit
// @Description Create a pending deposit and a Coinbase Commerce hosted charge. Minimum $1.00.
// @Tags Deposits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateDepositRequest true "amount_cents or amount"
// @Success 200 {object} dto.APIResponse{data=dto.CreateDepositResponse} "Checkout created"
// @Failure 400 {object} dto.APIResponse "Amount too low"
// @Failure 401 {object} dto.APIResponse "Missing identity"
// @Failure 502 {object} dto.APIResponse "Provider error"
// @Router /api/v1/deposits/coinbase [post]
func (h *DepositHandler) CreateCoinbaseDeposit(c fiber.Ctx) error {
	return h.create(c, models.DepositMethodCoinbase)
}

// CreateSquareDeposit
// @Summary Create Square Deposit
// @Description Create a pending deposit and a Square payment link. Minimum $1.00.
// @Tags Deposits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateDepositRequest true "amount_cents or amount"
// @Success 200 {object} dto.APIResponse{data=dto.CreateDepositResponse} "Checkout created"
// @Failure 400 {object} dto.APIResponse "Amount too low"
// @Failure 401 {object} dto.APIResponse "Missing identity"
// @Failure 502 {object} dto.APIResponse "Provider error"
// @Router /api/v1/deposits/square [post]
func (h *DepositHandler) CreateSquareDeposit(c fiber.Ctx) error {
	return h.create(c, models.DepositMethodSquare)
}

func (h *DepositHandler) create(c fiber.Ctx, method models.DepositMethod) error {
	noStore(c)

	identity, ok := identityOf(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User identity is required", "MISSING_IDENTITY", nil)
	}

	var req dto.CreateDepositRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}

	ctx, cancel := requestContext(0)
	defer cancel()

	result, err := h.depositFlow.Create(ctx, identity, method, &req, clientMetadata(c))
	if err != nil {
		return h.flowError(c, err, "DEPOSIT_CREATE_FAILED", "Failed to create deposit")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Checkout created successfully", result)
}
