package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bhoomiseva/landrecords-backend/internal/models"
	"github.com/bhoomiseva/landrecords-backend/internal/storage"
)

// Service price table in paise. Unknown services fall back to the default
// price; order creation never rejects a service type.
var servicePrices = map[string]int64{
	models.ServiceType8A:           10000,
	models.ServiceType712:          5000,
	models.ServiceTypeFerfar:       3000,
	models.ServiceTypePropertyCard: 2000,
}

const defaultServicePrice = 10000

// ServiceAmount returns the price for a service type in paise.
func ServiceAmount(serviceType string) int64 {
	if price, ok := servicePrices[serviceType]; ok {
		return price
	}
	return defaultServicePrice
}

// NewOrderID generates a human-traceable order id.
func NewOrderID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return strings.ToUpper(fmt.Sprintf("ORD_%d_%s", time.Now().UnixMilli(), suffix))
}

// OrderService creates orders from completed form submissions and hands them
// to the payment gateway.
type OrderService struct {
	store   storage.Store
	gateway Gateway
	baseURL string
}

// NewOrderService creates a new order service
func NewOrderService(store storage.Store, gateway Gateway, baseURL string) *OrderService {
	return &OrderService{
		store:   store,
		gateway: gateway,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// CreateOrder creates the order for a completed form, or returns the order
// already pending on the session when the same form token is redelivered.
// The bool result reports whether a new order was created. Creation claims
// the session's pending slot with a conditional store write, so concurrent
// deliveries of the same submission converge on a single order.
func (o *OrderService) CreateOrder(session *models.Session, serviceType string, formSnapshot map[string]string) (*models.Order, bool, error) {
	expectPending := session.PendingOrderID
	if expectPending != "" {
		existing, err := o.store.FindOrderByOrderID(expectPending)
		if err == nil && existing.IsOpen() {
			return existing, false, nil
		}
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, false, fmt.Errorf("look up pending order %s: %w", expectPending, err)
		}
	}

	amount := ServiceAmount(serviceType)
	orderID := NewOrderID()

	gatewayRef, err := o.gateway.CreateOrder(orderID, amount)
	if err != nil {
		return nil, false, fmt.Errorf("register order %s with gateway: %w", orderID, err)
	}

	snapshot := make(map[string]string, len(formSnapshot))
	for k, v := range formSnapshot {
		snapshot[k] = v
	}

	order := &models.Order{
		OrderID:         orderID,
		GatewayOrderRef: gatewayRef,
		ExternalID:      session.ExternalID,
		ServiceType:     serviceType,
		FormSnapshot:    snapshot,
		Amount:          amount,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
	}

	stored, created, err := o.store.CreateOrderForSession(order, expectPending)
	if err != nil {
		return nil, false, fmt.Errorf("persist order %s: %w", orderID, err)
	}
	if !created {
		log.Printf("🔁 concurrent submission from %s, reusing order %s (gateway ref %s abandoned)",
			session.ExternalID, stored.OrderID, gatewayRef)
	}
	session.PendingOrderID = stored.OrderID
	return stored, created, nil
}

// PaymentLink builds the checkout link for an order.
func (o *OrderService) PaymentLink(order *models.Order) string {
	return fmt.Sprintf("%s/payment/checkout?orderId=%s", o.baseURL, order.OrderID)
}
