package handlers

import (
	"github.com/gofiber/fiber/v3"

	businessflow "github.com/dropsource/storefront/business_flow"
)

// WalletHandlerInterface defines the contract for wallet handlers
type WalletHandlerInterface interface {
	GetWallet(c fiber.Ctx) error
}

// WalletHandler serves the caller's balance
type WalletHandler struct {
	baseHandler
	walletFlow businessflow.WalletFlow
}

func NewWalletHandler(walletFlow businessflow.WalletFlow) *WalletHandler {
	return &WalletHandler{
		baseHandler: newBaseHandler(),
		walletFlow:  walletFlow,
	}
}

// GetWallet returns the balance, creating the wallet on first use
// @Summary Get Wallet
// @Description Return the authenticated user's balance in cents. The wallet is created on first access.
// @Tags Wallet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.WalletResponse} "Wallet retrieved"
// @Failure 401 {object} dto.APIResponse "Missing identity"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/wallet [get]
func (h *WalletHandler) GetWallet(c fiber.Ctx) error {
	noStore(c)
	c.Set("Vary", "Authorization, x-user-id, x-user-email")

	identity, ok := identityOf(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User identity is required", "MISSING_IDENTITY", nil)
	}

	ctx, cancel := requestContext(0)
	defer cancel()

	wallet, err := h.walletFlow.GetWallet(ctx, identity)
	if err != nil {
		return h.flowError(c, err, "WALLET_FETCH_FAILED", "Failed to load wallet")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Wallet retrieved successfully", wallet)
}
