package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bhoomiseva/landrecords-backend/internal/models"
)

var errDown = errors.New("database down")

// brokenStore fails every operation, standing in for an unreachable database.
type brokenStore struct{}

func (brokenStore) UpsertUser(string, models.UserPatch) (*models.User, error) {
	return nil, errDown
}
func (brokenStore) FindSession(string) (*models.Session, error)         { return nil, errDown }
func (brokenStore) PutSession(*models.Session) (*models.Session, error) { return nil, errDown }
func (brokenStore) CreateOrder(*models.Order) (*models.Order, error)    { return nil, errDown }
func (brokenStore) FindOrderByOrderID(string) (*models.Order, error)    { return nil, errDown }
func (brokenStore) FindOrderByGatewayRef(string) (*models.Order, error) {
	return nil, errDown
}
func (brokenStore) UpdateOrder(string, models.OrderPatch) (*models.Order, error) {
	return nil, errDown
}
func (brokenStore) CreateOrderForSession(*models.Order, string) (*models.Order, bool, error) {
	return nil, false, errDown
}
func (brokenStore) UpdateOrderIfStatus(string, []string, models.OrderPatch) (*models.Order, bool, error) {
	return nil, false, errDown
}

func TestFallbackUsesStandbyWhenPrimaryFails(t *testing.T) {
	standby := NewMemoryStore()
	store := NewFallbackStore(brokenStore{}, standby)

	session, err := store.PutSession(&models.Session{
		ExternalID: "E1",
		Step:       models.StepStart,
		FormData:   map[string]string{},
	})
	require.NoError(t, err)
	require.Equal(t, models.StepStart, session.Step)

	// The record written during the outage stays reachable.
	found, err := store.FindSession("E1")
	require.NoError(t, err)
	require.Equal(t, "E1", found.ExternalID)
}

func TestFallbackPassesNotFoundThrough(t *testing.T) {
	store := NewFallbackStore(NewMemoryStore(), NewMemoryStore())

	_, err := store.FindOrderByGatewayRef("G_UNKNOWN")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFallbackReadsStandbyAfterPrimaryNotFound(t *testing.T) {
	primary := NewMemoryStore()
	standby := NewMemoryStore()
	store := NewFallbackStore(primary, standby)

	_, err := standby.CreateOrder(&models.Order{
		OrderID:         "ORD_1",
		GatewayOrderRef: "G1",
		Status:          models.OrderStatusPending,
	})
	require.NoError(t, err)

	order, err := store.FindOrderByGatewayRef("G1")
	require.NoError(t, err)
	require.Equal(t, "ORD_1", order.OrderID)
}
