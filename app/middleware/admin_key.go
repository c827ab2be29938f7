package middleware

import (
	"github.com/gofiber/fiber/v3"
	"golang.org/x/crypto/bcrypt"
)

const headerAPIKey = "X-API-Key"

// AdminKey guards operator routes with a key compared against a bcrypt hash.
// An empty hash disables the admin surface entirely.
func AdminKey(keyHash string) fiber.Handler {
	hash := []byte(keyHash)
	return func(c fiber.Ctx) error {
		if len(hash) == 0 {
			return unauthorized(c, "Admin access is not configured", "ADMIN_DISABLED")
		}

		key := c.Get(headerAPIKey)
		if key == "" {
			return unauthorized(c, "API key is required", "MISSING_API_KEY")
		}
		if err := bcrypt.CompareHashAndPassword(hash, []byte(key)); err != nil {
			return unauthorized(c, "Invalid API key", "INVALID_API_KEY")
		}
		return c.Next()
	}
}
