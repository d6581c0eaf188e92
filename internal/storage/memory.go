package storage

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/bhoomiseva/landrecords-backend/internal/models"
)

// MemoryStore holds all data in memory. It backs local development and acts
// as the fallback when the database is unreachable.
type MemoryStore struct {
	users    map[string]*models.User    // keyed by external id
	sessions map[string]*models.Session // keyed by external id
	orders   map[string]*models.Order   // keyed by order id
	byRef    map[string]string          // gateway order ref -> order id

	// Lock order where both are needed: sessionMu before orderMu.
	userMu    sync.RWMutex
	sessionMu sync.RWMutex
	orderMu   sync.RWMutex

	idCounter atomic.Uint64
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*models.User),
		sessions: make(map[string]*models.Session),
		orders:   make(map[string]*models.Order),
		byRef:    make(map[string]string),
	}
}

// User operations

func (m *MemoryStore) UpsertUser(externalID string, patch models.UserPatch) (*models.User, error) {
	m.userMu.Lock()
	defer m.userMu.Unlock()

	user, exists := m.users[externalID]
	if !exists {
		user = &models.User{
			ID:          uint(m.idCounter.Add(1)),
			ExternalID:  externalID,
			PhoneNumber: externalID,
			Profile:     make(map[string]string),
			CreatedAt:   time.Now(),
		}
		m.users[externalID] = user
	}

	if patch.Name != "" {
		user.Name = patch.Name
	}
	if patch.LastSeen != nil {
		user.LastSeen = *patch.LastSeen
	}
	for k, v := range patch.Profile {
		user.Profile[k] = v
	}
	user.UpdatedAt = time.Now()

	return copyUser(user), nil
}

// Session operations

func (m *MemoryStore) FindSession(externalID string) (*models.Session, error) {
	m.sessionMu.RLock()
	defer m.sessionMu.RUnlock()

	session, exists := m.sessions[externalID]
	if !exists {
		return nil, ErrNotFound
	}
	return copySession(session), nil
}

func (m *MemoryStore) PutSession(session *models.Session) (*models.Session, error) {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	stored, exists := m.sessions[session.ExternalID]
	if !exists {
		stored = &models.Session{ID: uint(m.idCounter.Add(1)), ExternalID: session.ExternalID, CreatedAt: time.Now()}
		m.sessions[session.ExternalID] = stored
	}

	stored.Step = session.Step
	stored.SelectedService = session.SelectedService
	stored.PendingOrderID = session.PendingOrderID
	stored.FormData = cloneMap(session.FormData)
	stored.UpdatedAt = time.Now()

	return copySession(stored), nil
}

// Order operations

func (m *MemoryStore) CreateOrder(order *models.Order) (*models.Order, error) {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	return m.storeOrderLocked(order), nil
}

func (m *MemoryStore) CreateOrderForSession(order *models.Order, expectPending string) (*models.Order, bool, error) {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	session, exists := m.sessions[order.ExternalID]
	if !exists {
		return nil, false, ErrNotFound
	}

	if session.PendingOrderID != expectPending {
		// Another submission claimed the session first; hand back its order.
		m.orderMu.RLock()
		winner, ok := m.orders[session.PendingOrderID]
		m.orderMu.RUnlock()
		if !ok {
			return nil, false, ErrNotFound
		}
		return copyOrder(winner), false, nil
	}

	m.orderMu.Lock()
	stored := m.storeOrderLocked(order)
	m.orderMu.Unlock()

	session.PendingOrderID = stored.OrderID
	session.UpdatedAt = time.Now()
	return stored, true, nil
}

// storeOrderLocked inserts the order; the caller holds orderMu.
func (m *MemoryStore) storeOrderLocked(order *models.Order) *models.Order {
	stored := copyOrder(order)
	stored.ID = uint(m.idCounter.Add(1))
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt

	m.orders[stored.OrderID] = stored
	if stored.GatewayOrderRef != "" {
		m.byRef[stored.GatewayOrderRef] = stored.OrderID
	}
	return copyOrder(stored)
}

func (m *MemoryStore) FindOrderByOrderID(orderID string) (*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	order, exists := m.orders[orderID]
	if !exists {
		return nil, ErrNotFound
	}
	return copyOrder(order), nil
}

func (m *MemoryStore) FindOrderByGatewayRef(gatewayOrderRef string) (*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	orderID, exists := m.byRef[gatewayOrderRef]
	if !exists {
		return nil, ErrNotFound
	}
	return copyOrder(m.orders[orderID]), nil
}

func (m *MemoryStore) UpdateOrder(orderID string, patch models.OrderPatch) (*models.Order, error) {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	order, exists := m.orders[orderID]
	if !exists {
		return nil, ErrNotFound
	}
	order.Apply(patch)
	order.UpdatedAt = time.Now()
	return copyOrder(order), nil
}

func (m *MemoryStore) UpdateOrderIfStatus(orderID string, expect []string, patch models.OrderPatch) (*models.Order, bool, error) {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	order, exists := m.orders[orderID]
	if !exists {
		return nil, false, ErrNotFound
	}

	matched := false
	for _, status := range expect {
		if order.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return copyOrder(order), false, nil
	}

	order.Apply(patch)
	order.UpdatedAt = time.Now()
	return copyOrder(order), true, nil
}

// Copies keep callers from mutating stored state outside the locks.

func copyUser(u *models.User) *models.User {
	c := *u
	c.Profile = cloneMap(u.Profile)
	return &c
}

func copySession(s *models.Session) *models.Session {
	c := *s
	c.FormData = cloneMap(s.FormData)
	return &c
}

func copyOrder(o *models.Order) *models.Order {
	c := *o
	c.FormSnapshot = cloneMap(o.FormSnapshot)
	return &c
}

func cloneMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
