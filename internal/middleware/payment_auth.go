package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
)

// ValidateGatewaySignature validates that a payment webhook request really
// comes from the gateway: hex(HMAC-SHA256(secret, raw body)) must match the
// X-Gateway-Signature header. Validation is skipped when no secret is
// configured (local development).
func ValidateGatewaySignature() fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret := os.Getenv("PAYMENT_WEBHOOK_SECRET")
		if secret == "" {
			log.Println("⚠️  PAYMENT_WEBHOOK_SECRET not set - gateway webhook validation disabled")
			return c.Next()
		}

		signature := c.Get("X-Gateway-Signature")
		if signature == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing signature",
			})
		}

		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(c.Body())
		expected := hex.EncodeToString(mac.Sum(nil))

		if !hmac.Equal([]byte(expected), []byte(signature)) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid signature",
			})
		}

		return c.Next()
	}
}
