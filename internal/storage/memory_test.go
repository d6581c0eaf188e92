package storage

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bhoomiseva/landrecords-backend/internal/models"
)

func TestUpsertUser(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()

	user, err := store.UpsertUser("911234567890", models.UserPatch{LastSeen: &now})
	require.NoError(t, err)
	require.Equal(t, "911234567890", user.ExternalID)
	require.Equal(t, "911234567890", user.PhoneNumber)

	user, err = store.UpsertUser("911234567890", models.UserPatch{
		Name:    "Asha",
		Profile: map[string]string{"district": "Pune"},
	})
	require.NoError(t, err)
	require.Equal(t, "Asha", user.Name)
	require.Equal(t, "Pune", user.Profile["district"])

	// Later patches merge into the profile, they do not replace it.
	user, err = store.UpsertUser("911234567890", models.UserPatch{
		Profile: map[string]string{"village": "Wagholi"},
	})
	require.NoError(t, err)
	require.Equal(t, "Pune", user.Profile["district"])
	require.Equal(t, "Wagholi", user.Profile["village"])
	require.Equal(t, "Asha", user.Name)
}

func TestSessionRoundTrip(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.FindSession("911234567890")
	require.ErrorIs(t, err, ErrNotFound)

	stored, err := store.PutSession(&models.Session{
		ExternalID: "911234567890",
		Step:       models.StepStart,
		FormData:   map[string]string{},
	})
	require.NoError(t, err)
	require.Equal(t, models.StepStart, stored.Step)

	stored.Step = models.StepAwaitingPayment
	stored.PendingOrderID = "ORD_1"
	_, err = store.PutSession(stored)
	require.NoError(t, err)

	found, err := store.FindSession("911234567890")
	require.NoError(t, err)
	require.Equal(t, models.StepAwaitingPayment, found.Step)
	require.Equal(t, "ORD_1", found.PendingOrderID)

	// Mutating the returned copy must not touch stored state.
	found.Step = models.StepCompleted
	again, err := store.FindSession("911234567890")
	require.NoError(t, err)
	require.Equal(t, models.StepAwaitingPayment, again.Step)
}

func TestOrderLookups(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.CreateOrder(&models.Order{
		OrderID:         "ORD_1",
		GatewayOrderRef: "G1",
		ExternalID:      "911234567890",
		ServiceType:     models.ServiceType8A,
		Amount:          10000,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
	})
	require.NoError(t, err)

	byID, err := store.FindOrderByOrderID("ORD_1")
	require.NoError(t, err)
	require.Equal(t, "G1", byID.GatewayOrderRef)

	byRef, err := store.FindOrderByGatewayRef("G1")
	require.NoError(t, err)
	require.Equal(t, "ORD_1", byRef.OrderID)

	_, err = store.FindOrderByGatewayRef("G2")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateOrderMissingIsNotFound(t *testing.T) {
	store := NewMemoryStore()

	status := models.OrderStatusCompleted
	_, err := store.UpdateOrder("ORD_MISSING", models.OrderPatch{Status: &status})
	require.ErrorIs(t, err, ErrNotFound)

	// A missing order must never be created as a side effect.
	_, err = store.FindOrderByOrderID("ORD_MISSING")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentWritesAssignUniqueIDs(t *testing.T) {
	store := NewMemoryStore()

	var mu sync.Mutex
	ids := make(map[uint]int)
	record := func(id uint) {
		mu.Lock()
		ids[id]++
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			user, err := store.UpsertUser(fmt.Sprintf("U%d", i), models.UserPatch{})
			require.NoError(t, err)
			record(user.ID)
		}(i)
		go func(i int) {
			defer wg.Done()
			session, err := store.PutSession(&models.Session{
				ExternalID: fmt.Sprintf("S%d", i),
				Step:       models.StepStart,
				FormData:   map[string]string{},
			})
			require.NoError(t, err)
			record(session.ID)
		}(i)
		go func(i int) {
			defer wg.Done()
			order, err := store.CreateOrder(&models.Order{
				OrderID:         fmt.Sprintf("ORD_%d", i),
				GatewayOrderRef: fmt.Sprintf("G%d", i),
				Status:          models.OrderStatusPending,
			})
			require.NoError(t, err)
			record(order.ID)
		}(i)
	}
	wg.Wait()

	require.Len(t, ids, 150)
	for id, count := range ids {
		require.Equal(t, 1, count, "surrogate id %d assigned more than once", id)
	}
}

func TestCreateOrderForSession(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.PutSession(&models.Session{
		ExternalID: "E1",
		Step:       models.StepAwaitingFormData,
		FormData:   map[string]string{},
	})
	require.NoError(t, err)

	_, created, err := store.CreateOrderForSession(&models.Order{
		OrderID:         "ORD_1",
		GatewayOrderRef: "G1",
		ExternalID:      "E1",
		Status:          models.OrderStatusPending,
	}, "")
	require.NoError(t, err)
	require.True(t, created)

	session, err := store.FindSession("E1")
	require.NoError(t, err)
	require.Equal(t, "ORD_1", session.PendingOrderID)

	// A stale guard does not create; the claimed order comes back instead.
	loser, created, err := store.CreateOrderForSession(&models.Order{
		OrderID:         "ORD_2",
		GatewayOrderRef: "G2",
		ExternalID:      "E1",
		Status:          models.OrderStatusPending,
	}, "")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "ORD_1", loser.OrderID)

	_, err = store.FindOrderByOrderID("ORD_2")
	require.ErrorIs(t, err, ErrNotFound)

	// No session, no claim.
	_, _, err = store.CreateOrderForSession(&models.Order{
		OrderID:    "ORD_3",
		ExternalID: "E_MISSING",
	}, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateOrderIfStatus(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.CreateOrder(&models.Order{
		OrderID:         "ORD_1",
		GatewayOrderRef: "G1",
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
	})
	require.NoError(t, err)

	completed := models.OrderStatusCompleted
	captured := models.PaymentStatusCaptured

	order, applied, err := store.UpdateOrderIfStatus("ORD_1",
		[]string{models.OrderStatusPending}, models.OrderPatch{Status: &completed, PaymentStatus: &captured})
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, models.OrderStatusCompleted, order.Status)

	// The guard fails on the second attempt and leaves state alone.
	failed := models.OrderStatusFailed
	order, applied, err = store.UpdateOrderIfStatus("ORD_1",
		[]string{models.OrderStatusPending}, models.OrderPatch{Status: &failed})
	require.NoError(t, err)
	require.False(t, applied)
	require.Equal(t, models.OrderStatusCompleted, order.Status)
}
