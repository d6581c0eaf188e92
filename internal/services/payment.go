package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bhoomiseva/landrecords-backend/internal/models"
	"github.com/bhoomiseva/landrecords-backend/internal/storage"
)

// ErrVerificationFailed is returned when a payment callback's signature does
// not match. It is the one reconciliation error that must reach an operator.
var ErrVerificationFailed = errors.New("payment signature verification failed")

// Verifier checks the authenticity of a payment callback before any order
// state is mutated.
type Verifier interface {
	Verify(gatewayOrderRef, paymentRef, signature string) error
}

// HMACVerifier implements the gateway's signature scheme:
// hex(HMAC-SHA256(secret, gatewayOrderRef + "|" + paymentRef)).
type HMACVerifier struct {
	Secret string
}

func (v HMACVerifier) Verify(gatewayOrderRef, paymentRef, signature string) error {
	mac := hmac.New(sha256.New, []byte(v.Secret))
	mac.Write([]byte(gatewayOrderRef + "|" + paymentRef))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrVerificationFailed
	}
	return nil
}

// PaymentService reconciles asynchronous gateway callbacks against orders.
// Both operations are idempotent against duplicate delivery and safe under
// arbitrary interleaving: the status transition is a conditional update, so
// only one of any set of racing callbacks mutates the order.
type PaymentService struct {
	store    storage.Store
	verifier Verifier
	notifier Notifier
}

// NewPaymentService creates a new payment reconciliation service
func NewPaymentService(store storage.Store, verifier Verifier, notifier Notifier) *PaymentService {
	return &PaymentService{
		store:    store,
		verifier: verifier,
		notifier: notifier,
	}
}

// ApplySuccess applies a successful payment callback to its order exactly
// once. A repeat delivery returns the already-completed order unchanged.
func (p *PaymentService) ApplySuccess(gatewayOrderRef, paymentRef, signature string) (*models.Order, error) {
	order, err := p.store.FindOrderByGatewayRef(gatewayOrderRef)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderStatusCompleted {
		return order, nil
	}

	if err := p.verifier.Verify(gatewayOrderRef, paymentRef, signature); err != nil {
		log.Printf("🚨 OPERATOR ALERT: payment verification failed for %s (order %s): %v", gatewayOrderRef, order.OrderID, err)
		return nil, err
	}

	now := time.Now()
	completed := models.OrderStatusCompleted
	captured := models.PaymentStatusCaptured
	updated, applied, err := p.store.UpdateOrderIfStatus(order.OrderID,
		[]string{models.OrderStatusPending, models.OrderStatusProcessing, models.OrderStatusFailed},
		models.OrderPatch{
			Status:        &completed,
			PaymentStatus: &captured,
			PaymentRef:    &paymentRef,
			CompletedAt:   &now,
		})
	if err != nil {
		return nil, fmt.Errorf("complete order %s: %w", order.OrderID, err)
	}
	if !applied {
		// A concurrent duplicate got there first.
		return updated, nil
	}

	p.completeSession(updated)
	p.deliver(NotifyPaymentResult{To: updated.ExternalID, OrderID: updated.OrderID, Success: true})

	log.Printf("✅ payment captured: order %s payment %s", updated.OrderID, paymentRef)
	return updated, nil
}

// ApplyFailure marks an order's payment as failed. Repeats are no-ops, and a
// failure callback never downgrades an already-completed order.
func (p *PaymentService) ApplyFailure(gatewayOrderRef string) (*models.Order, error) {
	order, err := p.store.FindOrderByGatewayRef(gatewayOrderRef)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderStatusFailed || order.Status == models.OrderStatusCompleted {
		return order, nil
	}

	now := time.Now()
	failed := models.OrderStatusFailed
	paymentFailed := models.PaymentStatusFailed
	updated, applied, err := p.store.UpdateOrderIfStatus(order.OrderID,
		[]string{models.OrderStatusPending, models.OrderStatusProcessing},
		models.OrderPatch{
			Status:        &failed,
			PaymentStatus: &paymentFailed,
			FailedAt:      &now,
		})
	if err != nil {
		return nil, fmt.Errorf("fail order %s: %w", order.OrderID, err)
	}
	if !applied {
		return updated, nil
	}

	p.deliver(NotifyPaymentResult{To: updated.ExternalID, OrderID: updated.OrderID, Success: false})

	log.Printf("❌ payment failed: order %s", updated.OrderID)
	return updated, nil
}

// completeSession advances the owning session once its order is paid.
func (p *PaymentService) completeSession(order *models.Order) {
	session, err := p.store.FindSession(order.ExternalID)
	if err != nil {
		log.Printf("⚠️  session for %s not found after payment: %v", order.ExternalID, err)
		return
	}
	if session.PendingOrderID != "" && session.PendingOrderID != order.OrderID {
		return
	}

	session.Step = models.StepCompleted
	session.PendingOrderID = ""
	if _, err := p.store.PutSession(session); err != nil {
		log.Printf("⚠️  advance session for %s: %v", order.ExternalID, err)
	}
}

func (p *PaymentService) deliver(instruction Instruction) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Deliver(instruction); err != nil {
		log.Printf("⚠️  deliver payment notification: %v", err)
	}
}
