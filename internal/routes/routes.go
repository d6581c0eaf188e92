package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bhoomiseva/landrecords-backend/internal/handlers"
	"github.com/bhoomiseva/landrecords-backend/internal/middleware"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, webhook *handlers.WebhookHandler, payment *handlers.PaymentHandler, health *handlers.HealthHandler) {
	app.Get("/health", health.HandleHealth)

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")
	webhooks.Get("/whatsapp", webhook.HandleVerification)
	webhooks.Post("/whatsapp", webhook.HandleWebhook)
	webhooks.Post("/payment", middleware.ValidateGatewaySignature(), payment.HandleCallback)

	// ========== PAYMENT CALLBACK ROUTES ==========
	payments := app.Group("/payment")
	payments.Get("/success", payment.HandleSuccessRedirect)
	payments.Get("/failure", payment.HandleFailureRedirect)
}
