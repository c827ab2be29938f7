package handlers

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/dropsource/storefront/app/dto"
	"github.com/dropsource/storefront/config"
	"github.com/dropsource/storefront/utils"
)

const maxEchoLength = 200

// HealthHandlerInterface defines the contract for probe handlers
type HealthHandlerInterface interface {
	Health(c fiber.Ctx) error
	Ping(c fiber.Ctx) error
}

// HealthHandler serves liveness and uptime probes
type HealthHandler struct {
	baseHandler
	deployment config.DeploymentConfig
}

func NewHealthHandler(deployment config.DeploymentConfig) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(),
		deployment:  deployment,
	}
}

// Health
// @Summary Health Check
// @Tags Health
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.HealthResponse} "Healthy"
// @Router /api/v1/health [get]
func (h *HealthHandler) Health(c fiber.Ctx) error {
	version := h.deployment.Version
	if version == "" {
		version = "dev"
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Service is healthy", dto.HealthResponse{
		Status:    "ok",
		Timestamp: utils.UTCNowRFC3339(),
		Version:   version,
	})
}

// Ping
// @Summary Ping
// @Description Uncached uptime probe that echoes the echo query parameter
// @Tags Health
// @Produce json
// @Param echo query string false "Echoed back, truncated"
// @Success 200 {object} dto.PingResponse "Pong"
// @Router /api/v1/ping [get]
func (h *HealthHandler) Ping(c fiber.Ctx) error {
	noStore(c)
	now := utils.UTCNow()
	echo := c.Query("echo")
	if len(echo) > maxEchoLength {
		echo = echo[:maxEchoLength]
	}
	return c.Status(fiber.StatusOK).JSON(dto.PingResponse{
		OK:     true,
		TS:     now.UnixMilli(),
		ISO:    now.Format(time.RFC3339Nano),
		Env:    h.deployment.Environment,
		Region: h.deployment.Region,
		Commit: h.deployment.CommitHash,
		Echo:   echo,
	})
}
