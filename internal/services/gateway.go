package services

import (
	"log"
	"strings"

	"github.com/google/uuid"
)

// Gateway registers orders with the payment gateway. The real SDK
// integration lives behind this interface.
type Gateway interface {
	// CreateOrder registers the amount with the gateway and returns the
	// gateway's order reference.
	CreateOrder(orderID string, amount int64) (string, error)
}

// MockGateway stands in for the gateway SDK during development and tests. It
// issues references in the gateway's format without any network call.
type MockGateway struct{}

func (MockGateway) CreateOrder(orderID string, amount int64) (string, error) {
	ref := "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
	log.Printf("💰 TEST MODE payment order created: %s (ref %s, ₹%.2f)", orderID, ref, float64(amount)/100)
	return ref, nil
}
