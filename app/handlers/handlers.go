// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	log "github.com/sirupsen/logrus"

	"github.com/dropsource/storefront/app/dto"
	businessflow "github.com/dropsource/storefront/business_flow"
	"github.com/dropsource/storefront/utils"
)

const defaultRequestTimeout = 30 * time.Second

// baseHandler carries the response helpers shared by every handler
type baseHandler struct {
	validator *validator.Validate
}

func newBaseHandler() baseHandler {
	return baseHandler{validator: validator.New()}
}

func (h baseHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h baseHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// validate writes a 400 response when req fails its struct tags.
// handled is true once the response is written; the caller must return err.
func (h baseHandler) validate(c fiber.Ctx, req any) (handled bool, err error) {
	verr := h.validator.Struct(req)
	if verr == nil {
		return false, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(verr, &verrs) {
		return true, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", verr.Error())
	}
	var messages []string
	for _, fe := range verrs {
		messages = append(messages, getValidationErrorMessage(fe))
	}
	return true, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", messages)
}

// flowError maps business errors onto the HTTP taxonomy
func (h baseHandler) flowError(c fiber.Ctx, err error, fallbackCode, fallbackMessage string) error {
	status, code, message := mapFlowErr(err)
	if code == "" {
		code, message = fallbackCode, fallbackMessage
	}
	if status >= fiber.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"path":       c.Path(),
			"code":       code,
			"request_id": requestIDOf(c),
		}).Error("request failed")
	}
	return h.ErrorResponse(c, status, message, code, nil)
}

func mapFlowErr(err error) (int, string, string) {
	var bizErr *businessflow.BusinessError
	hasBiz := errors.As(err, &bizErr)
	messageOr := func(def string) string {
		if hasBiz && bizErr.Message != "" {
			return bizErr.Message
		}
		return def
	}

	switch {
	case businessflow.IsMissingIdentity(err):
		return fiber.StatusUnauthorized, "MISSING_IDENTITY", "User identity is required"
	case businessflow.IsAmountTooLow(err):
		return fiber.StatusBadRequest, "AMOUNT_TOO_LOW", messageOr("Minimum deposit is $1.00")
	case businessflow.IsInvalidMethod(err):
		return fiber.StatusBadRequest, "INVALID_METHOD", "Unsupported deposit method"
	case businessflow.IsOrderFieldsRequired(err):
		return fiber.StatusBadRequest, "MISSING_FIELDS", "service, link and quantity are required"
	case businessflow.IsInvalidQuantity(err):
		return fiber.StatusBadRequest, "INVALID_QUANTITY", messageOr("Quantity is outside the service limits")
	case businessflow.IsInsufficientFunds(err):
		return fiber.StatusPaymentRequired, "INSUFFICIENT_FUNDS", "Insufficient balance"
	case businessflow.IsServiceNotFound(err):
		return fiber.StatusNotFound, "SERVICE_NOT_FOUND", "Service not found"
	case businessflow.IsOrderNotFound(err):
		return fiber.StatusNotFound, "ORDER_NOT_FOUND", "Order not found"
	case businessflow.IsOrderNotPlaced(err):
		return fiber.StatusConflict, "ORDER_NOT_PLACED", "Order was not placed upstream"
	case businessflow.IsProviderFailed(err):
		return fiber.StatusBadGateway, "PROVIDER_ERROR", messageOr("Payment provider request failed")
	case businessflow.IsPanelFailed(err):
		return fiber.StatusBadGateway, "PANEL_ERROR", messageOr("Panel request failed")
	case businessflow.IsUnexpectedUpstream(err):
		return fiber.StatusBadGateway, "UNEXPECTED_UPSTREAM", messageOr("Unexpected upstream response")
	case businessflow.IsCatalogNotAvailable(err):
		return fiber.StatusServiceUnavailable, "CATALOG_UNAVAILABLE", "Catalog is not configured"
	case businessflow.IsBootstrapFailed(err):
		return fiber.StatusInternalServerError, "BOOTSTRAP_FAILED", "Failed to prepare wallet"
	case hasBiz:
		return fiber.StatusInternalServerError, bizErr.Code, bizErr.Message
	default:
		return fiber.StatusInternalServerError, "", ""
	}
}

// identityOf reads the caller placed in locals by the identity middleware
func identityOf(c fiber.Ctx) (businessflow.Identity, bool) {
	userID, _ := c.Locals(utils.LocalUserID).(string)
	email, _ := c.Locals(utils.LocalUserEmail).(string)
	identity := businessflow.NewIdentity(userID, email)
	return identity, identity.UserID != ""
}

func requestIDOf(c fiber.Ctx) string {
	if id := requestid.FromContext(c); id != "" {
		return id
	}
	return c.Get("X-Request-ID")
}

func clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(requestIDOf(c))
	return metadata
}

// requestContext detaches flow work from the connection and bounds it with a timeout
func requestContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}

func noStore(c fiber.Ctx) {
	c.Set("Cache-Control", "no-store")
	c.Set("Pragma", "no-cache")
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "min":
		return err.Field() + " must be at least " + err.Param()
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "url":
		return err.Field() + " must be a valid URL"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}
