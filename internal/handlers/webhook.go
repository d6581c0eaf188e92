package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/bhoomiseva/landrecords-backend/internal/services"
)

// WebhookHandler receives WhatsApp platform webhooks.
type WebhookHandler struct {
	dispatcher  *services.Dispatcher
	verifyToken string
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(dispatcher *services.Dispatcher, verifyToken string) *WebhookHandler {
	return &WebhookHandler{
		dispatcher:  dispatcher,
		verifyToken: verifyToken,
	}
}

// HandleVerification answers the platform's GET subscription handshake.
func (h *WebhookHandler) HandleVerification(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		log.Println("✅ Webhook verified successfully")
		return c.SendString(challenge)
	}

	log.Println("❌ Webhook verification failed")
	return c.Status(fiber.StatusForbidden).SendString("Verification failed")
}

// HandleWebhook ingests inbound platform events. It always acknowledges:
// a non-200 makes the platform retry, and retries must not turn into
// duplicate side effects.
func (h *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload services.WebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("⚠️  unparseable webhook body: %v", err)
		return c.SendString("EVENT_RECEIVED")
	}

	for _, event := range services.ClassifyWebhook(&payload) {
		h.dispatcher.Dispatch(event)
	}
	return c.SendString("EVENT_RECEIVED")
}
