package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/bhoomiseva/landrecords-backend/internal/services"
	"github.com/bhoomiseva/landrecords-backend/internal/storage"
)

// PaymentHandler receives payment gateway callbacks and feeds them to the
// reconciliation engine.
type PaymentHandler struct {
	payments *services.PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// GatewayCallback is the gateway's asynchronous webhook body.
type GatewayCallback struct {
	GatewayOrderRef string `json:"gatewayOrderRef"`
	PaymentRef      string `json:"paymentRef"`
	Signature       string `json:"signature"`
	Outcome         string `json:"outcome"` // "success" or "failure"
}

// HandleCallback processes the gateway webhook. It acknowledges with 200
// even when the order cannot be located, so gateway retries do not storm.
func (h *PaymentHandler) HandleCallback(c *fiber.Ctx) error {
	var callback GatewayCallback
	if err := c.BodyParser(&callback); err != nil {
		log.Printf("⚠️  unparseable gateway callback: %v", err)
		return c.JSON(fiber.Map{"status": "ignored", "reason": "invalid body"})
	}

	switch callback.Outcome {
	case "failure":
		return h.respond(c, h.applyFailure(callback.GatewayOrderRef))
	default:
		_, err := h.payments.ApplySuccess(callback.GatewayOrderRef, callback.PaymentRef, callback.Signature)
		return h.respond(c, err)
	}
}

// HandleSuccessRedirect is the browser redirect after checkout; it carries
// the same reconciliation inputs as the webhook.
func (h *PaymentHandler) HandleSuccessRedirect(c *fiber.Ctx) error {
	_, err := h.payments.ApplySuccess(c.Query("order_id"), c.Query("payment_id"), c.Query("signature"))
	if err != nil {
		return h.respond(c, err)
	}
	return c.SendString("✅ Payment received! You can return to WhatsApp.")
}

// HandleFailureRedirect is the browser redirect after a failed checkout.
func (h *PaymentHandler) HandleFailureRedirect(c *fiber.Ctx) error {
	if err := h.applyFailure(c.Query("order_id")); err != nil {
		return h.respond(c, err)
	}
	return c.SendString("❌ Payment failed. Please try again from WhatsApp.")
}

func (h *PaymentHandler) applyFailure(gatewayOrderRef string) error {
	_, err := h.payments.ApplyFailure(gatewayOrderRef)
	return err
}

// respond maps reconciliation outcomes onto acknowledgments. Everything is a
// 200; the body says what happened.
func (h *PaymentHandler) respond(c *fiber.Ctx, err error) error {
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"status": "ok"})
	case errors.Is(err, storage.ErrNotFound):
		log.Printf("⚠️  gateway callback for unknown order acknowledged")
		return c.JSON(fiber.Map{"status": "ignored", "reason": "order not found"})
	case errors.Is(err, services.ErrVerificationFailed):
		return c.JSON(fiber.Map{"status": "rejected", "reason": "verification failed"})
	default:
		log.Printf("❌ payment callback processing error: %v", err)
		return c.JSON(fiber.Map{"status": "error"})
	}
}
