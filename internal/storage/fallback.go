package storage

import (
	"errors"
	"log"

	"github.com/bhoomiseva/landrecords-backend/internal/models"
)

// FallbackStore sends every operation to the durable backend first and
// retries on the in-process backend when the durable one fails. A NotFound
// from the durable backend is not a failure, but reads and updates still
// consult the standby so records written during an earlier outage stay
// reachable.
type FallbackStore struct {
	primary Store
	standby Store
}

// NewFallbackStore wraps a durable store with an in-process standby
func NewFallbackStore(primary, standby Store) *FallbackStore {
	return &FallbackStore{primary: primary, standby: standby}
}

func (f *FallbackStore) UpsertUser(externalID string, patch models.UserPatch) (*models.User, error) {
	user, err := f.primary.UpsertUser(externalID, patch)
	if err == nil {
		return user, nil
	}
	log.Printf("⚠️  durable UpsertUser failed, using in-memory fallback: %v", err)
	return f.standby.UpsertUser(externalID, patch)
}

func (f *FallbackStore) FindSession(externalID string) (*models.Session, error) {
	session, err := f.primary.FindSession(externalID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, ErrNotFound) {
		log.Printf("⚠️  durable FindSession failed, using in-memory fallback: %v", err)
	}
	return f.standby.FindSession(externalID)
}

func (f *FallbackStore) PutSession(session *models.Session) (*models.Session, error) {
	stored, err := f.primary.PutSession(session)
	if err == nil {
		return stored, nil
	}
	log.Printf("⚠️  durable PutSession failed, using in-memory fallback: %v", err)
	return f.standby.PutSession(session)
}

func (f *FallbackStore) CreateOrder(order *models.Order) (*models.Order, error) {
	created, err := f.primary.CreateOrder(order)
	if err == nil {
		return created, nil
	}
	log.Printf("⚠️  durable CreateOrder failed, using in-memory fallback: %v", err)
	return f.standby.CreateOrder(order)
}

func (f *FallbackStore) CreateOrderForSession(order *models.Order, expectPending string) (*models.Order, bool, error) {
	created, applied, err := f.primary.CreateOrderForSession(order, expectPending)
	if err == nil {
		return created, applied, nil
	}
	if !errors.Is(err, ErrNotFound) {
		log.Printf("⚠️  durable CreateOrderForSession failed, using in-memory fallback: %v", err)
	}
	return f.standby.CreateOrderForSession(order, expectPending)
}

func (f *FallbackStore) FindOrderByOrderID(orderID string) (*models.Order, error) {
	order, err := f.primary.FindOrderByOrderID(orderID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, ErrNotFound) {
		log.Printf("⚠️  durable FindOrderByOrderID failed, using in-memory fallback: %v", err)
	}
	return f.standby.FindOrderByOrderID(orderID)
}

func (f *FallbackStore) FindOrderByGatewayRef(gatewayOrderRef string) (*models.Order, error) {
	order, err := f.primary.FindOrderByGatewayRef(gatewayOrderRef)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, ErrNotFound) {
		log.Printf("⚠️  durable FindOrderByGatewayRef failed, using in-memory fallback: %v", err)
	}
	return f.standby.FindOrderByGatewayRef(gatewayOrderRef)
}

func (f *FallbackStore) UpdateOrder(orderID string, patch models.OrderPatch) (*models.Order, error) {
	order, err := f.primary.UpdateOrder(orderID, patch)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, ErrNotFound) {
		log.Printf("⚠️  durable UpdateOrder failed, using in-memory fallback: %v", err)
	}
	return f.standby.UpdateOrder(orderID, patch)
}

func (f *FallbackStore) UpdateOrderIfStatus(orderID string, expect []string, patch models.OrderPatch) (*models.Order, bool, error) {
	order, applied, err := f.primary.UpdateOrderIfStatus(orderID, expect, patch)
	if err == nil {
		return order, applied, nil
	}
	if !errors.Is(err, ErrNotFound) {
		log.Printf("⚠️  durable UpdateOrderIfStatus failed, using in-memory fallback: %v", err)
	}
	return f.standby.UpdateOrderIfStatus(orderID, expect, patch)
}
