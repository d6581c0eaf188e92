package storage

import (
	"errors"

	"github.com/bhoomiseva/landrecords-backend/internal/models"
)

// ErrNotFound is returned when a record does not exist. Callers must branch
// on it explicitly; missing records are never created as a side effect of a
// lookup or update.
var ErrNotFound = errors.New("record not found")

var storeInstance Store

// SetStore sets the global store instance (call from main.go)
func SetStore(s Store) {
	storeInstance = s
}

// GetStore returns the global store instance
func GetStore() Store {
	return storeInstance
}

// Store defines the interface for storage operations. All writes are upserts
// keyed by a natural key (external id, order id, gateway order ref).
type Store interface {
	// User operations
	UpsertUser(externalID string, patch models.UserPatch) (*models.User, error)

	// Session operations
	FindSession(externalID string) (*models.Session, error)
	PutSession(session *models.Session) (*models.Session, error)

	// Order operations
	CreateOrder(order *models.Order) (*models.Order, error)

	// CreateOrderForSession atomically persists the order and records it as
	// the owning session's pending order, provided the session's
	// PendingOrderID still equals expectPending. When the guard fails the
	// order is not created and the session's current pending order is
	// returned with created=false, so racing submissions converge on one
	// order.
	CreateOrderForSession(order *models.Order, expectPending string) (*models.Order, bool, error)

	FindOrderByOrderID(orderID string) (*models.Order, error)
	FindOrderByGatewayRef(gatewayOrderRef string) (*models.Order, error)
	UpdateOrder(orderID string, patch models.OrderPatch) (*models.Order, error)

	// UpdateOrderIfStatus applies the patch only while the order's status is
	// one of expect, and reports whether it was applied. The returned order
	// reflects the stored state either way.
	UpdateOrderIfStatus(orderID string, expect []string, patch models.OrderPatch) (*models.Order, bool, error)
}
