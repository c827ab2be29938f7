package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	businessflow "github.com/dropsource/storefront/business_flow"
	"github.com/dropsource/storefront/models"
	"github.com/dropsource/storefront/utils"
)

// WebhookHandlerInterface defines the contract for provider callbacks
type WebhookHandlerInterface interface {
	CoinbaseWebhook(c fiber.Ctx) error
	SquareWebhook(c fiber.Ctx) error
}

// WebhookHandler hands the raw body to the reconciler and answers the provider
type WebhookHandler struct {
	baseHandler
	webhookFlow businessflow.WebhookFlow
}

func NewWebhookHandler(webhookFlow businessflow.WebhookFlow) *WebhookHandler {
	return &WebhookHandler{
		baseHandler: newBaseHandler(),
		webhookFlow: webhookFlow,
	}
}

// CoinbaseWebhook
// @Summary Coinbase Commerce Webhook
// @Description Verifies X-CC-Webhook-Signature over the raw body and settles the matching deposit
// @Tags Webhooks
// @Accept json
// @Produce plain
// @Success 200 {string} string "ok"
// @Failure 400 {object} dto.APIResponse "Signature problem"
// @Router /api/v1/webhooks/coinbase [post]
func (h *WebhookHandler) CoinbaseWebhook(c fiber.Ctx) error {
	return h.handle(c, models.DepositMethodCoinbase, c.Get(utils.HeaderCoinbaseSignature))
}

// SquareWebhook
// @Summary Square Webhook
// @Description Verifies X-Square-HmacSha256-Signature over notification URL and raw body and settles the matching deposit
// @Tags Webhooks
// @Accept json
// @Produce plain
// @Success 200 {string} string "ok"
// @Failure 400 {object} dto.APIResponse "Signature problem"
// @Router /api/v1/webhooks/square [post]
func (h *WebhookHandler) SquareWebhook(c fiber.Ctx) error {
	return h.handle(c, models.DepositMethodSquare, c.Get(utils.HeaderSquareSignature))
}

func (h *WebhookHandler) handle(c fiber.Ctx, source models.DepositMethod, signature string) error {
	// fasthttp reuses the body buffer after the handler returns
	body := append([]byte(nil), c.Body()...)

	ctx, cancel := requestContext(0)
	defer cancel()

	out := h.webhookFlow.Handle(ctx, businessflow.WebhookDelivery{
		Source:      source,
		RawBody:     body,
		Signature:   signature,
		DebugBypass: debugFlag(c.Get(utils.HeaderDebugNoVerify)),
		ReceivedAt:  utils.UTCNow(),
	})

	if out.HTTPStatus == fiber.StatusBadRequest {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Webhook rejected", strings.ToUpper(out.Event), nil)
	}
	if out.Debug != "" {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"ok":    true,
			"event": out.Event,
			"error": out.Debug,
		})
	}
	return c.Status(fiber.StatusOK).SendString("ok")
}

func debugFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
