// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/dropsource/storefront/app/dto"
	"github.com/dropsource/storefront/app/services"
	"github.com/dropsource/storefront/utils"
)

// IdentityMiddleware resolves the calling storefront user.
// A bearer token minted by the identity provider wins; otherwise the
// x-user-id and x-user-email headers are honored when the deployment trusts them.
type IdentityMiddleware struct {
	tokens       services.IdentityTokenService
	trustHeaders bool
}

// NewIdentityMiddleware creates the identity middleware; tokens may be nil when no JWT secret is configured
func NewIdentityMiddleware(tokens services.IdentityTokenService, trustHeaders bool) *IdentityMiddleware {
	return &IdentityMiddleware{
		tokens:       tokens,
		trustHeaders: trustHeaders,
	}
}

// Require rejects requests without a resolvable identity
func (m *IdentityMiddleware) Require() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if m.tokens != nil && strings.HasPrefix(authHeader, "Bearer ") {
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			claims, err := m.tokens.Verify(token)
			if err != nil {
				code, message := "TOKEN_INVALID", "Invalid access token"
				if errors.Is(err, services.ErrTokenExpired) {
					code, message = "TOKEN_EXPIRED", "Access token has expired"
				}
				return unauthorized(c, message, code)
			}

			c.Locals(utils.LocalUserID, claims.UserID)
			c.Locals(utils.LocalUserEmail, utils.DerefString(claims.Email))
			return c.Next()
		}

		if m.trustHeaders {
			if userID := strings.TrimSpace(c.Get(utils.HeaderUserID)); userID != "" {
				c.Locals(utils.LocalUserID, userID)
				c.Locals(utils.LocalUserEmail, strings.TrimSpace(c.Get(utils.HeaderUserEmail)))
				return c.Next()
			}
		}

		return unauthorized(c, "Missing user identity", "MISSING_IDENTITY")
	}
}

func unauthorized(c fiber.Ctx, message, code string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: code,
		},
	})
}
