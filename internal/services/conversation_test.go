package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bhoomiseva/landrecords-backend/internal/models"
	"github.com/bhoomiseva/landrecords-backend/internal/storage"
)

// countingGateway counts gateway order registrations.
type countingGateway struct {
	calls int
}

func (g *countingGateway) CreateOrder(orderID string, amount int64) (string, error) {
	g.calls++
	return "gw_" + orderID, nil
}

func newTestConversation(t *testing.T, captureMode string) (*ConversationService, *storage.MemoryStore, *countingGateway) {
	t.Helper()
	store := storage.NewMemoryStore()
	gateway := &countingGateway{}
	orders := NewOrderService(store, gateway, "http://localhost:8080")
	return NewConversationService(store, orders, captureMode), store, gateway
}

func textEvent(from, text string) Event {
	return Event{Kind: EventMessage, ExternalID: from, MessageID: "wamid." + text, Text: text}
}

func buttonEvent(from, buttonID string) Event {
	return Event{Kind: EventMessage, ExternalID: from, MessageID: "wamid.btn." + buttonID, ButtonID: buttonID}
}

func flowEvent(from, token string, data map[string]string) Event {
	return Event{Kind: EventFlowCompletion, ExternalID: from, MessageID: "wamid.flow." + token, FlowToken: token, FormData: data}
}

func TestGreetingFromAnyState(t *testing.T) {
	steps := []string{
		models.StepStart,
		models.StepAwaitingServiceSelection,
		models.StepAwaitingFormData,
		models.StepFormConfirmed,
		models.StepAwaitingPayment,
		models.StepCompleted,
	}

	for _, step := range steps {
		t.Run(step, func(t *testing.T) {
			conversation, store, _ := newTestConversation(t, CaptureModeMenu)
			_, err := store.PutSession(&models.Session{ExternalID: "E1", Step: step, FormData: map[string]string{}})
			require.NoError(t, err)

			instructions, err := conversation.HandleEvent(textEvent("E1", "hi"))
			require.NoError(t, err)
			require.Len(t, instructions, 1)
			require.IsType(t, SendServiceMenu{}, instructions[0])

			session, err := store.FindSession("E1")
			require.NoError(t, err)
			require.Equal(t, models.StepAwaitingServiceSelection, session.Step)
		})
	}
}

func TestGreetingInFlowModeTriggersForm(t *testing.T) {
	conversation, store, _ := newTestConversation(t, CaptureModeFlow)

	instructions, err := conversation.HandleEvent(textEvent("E1", "hello"))
	require.NoError(t, err)
	require.Len(t, instructions, 1)
	form, ok := instructions[0].(TriggerForm)
	require.True(t, ok)
	require.Equal(t, models.ServiceType8A, form.ServiceType)

	session, err := store.FindSession("E1")
	require.NoError(t, err)
	require.Equal(t, models.StepAwaitingFormData, session.Step)
}

func TestGreetingDoesNotCancelPendingOrder(t *testing.T) {
	conversation, store, _ := newTestConversation(t, CaptureModeMenu)
	_, err := store.PutSession(&models.Session{
		ExternalID:     "E1",
		Step:           models.StepAwaitingPayment,
		PendingOrderID: "ORD_1",
		FormData:       map[string]string{},
	})
	require.NoError(t, err)

	_, err = conversation.HandleEvent(textEvent("E1", "hi"))
	require.NoError(t, err)

	session, err := store.FindSession("E1")
	require.NoError(t, err)
	require.Equal(t, models.StepAwaitingServiceSelection, session.Step)
	require.Equal(t, "ORD_1", session.PendingOrderID)
}

func TestUnrecognizedInputStaysInStart(t *testing.T) {
	conversation, store, _ := newTestConversation(t, CaptureModeMenu)

	instructions, err := conversation.HandleEvent(textEvent("E1", "what is this"))
	require.NoError(t, err)
	require.Len(t, instructions, 1)
	require.IsType(t, SendText{}, instructions[0])

	session, err := store.FindSession("E1")
	require.NoError(t, err)
	require.Equal(t, models.StepStart, session.Step)
}

func TestTextDuringFormCaptureIsRejected(t *testing.T) {
	conversation, store, _ := newTestConversation(t, CaptureModeMenu)
	_, err := store.PutSession(&models.Session{
		ExternalID:      "E1",
		Step:            models.StepAwaitingFormData,
		SelectedService: models.ServiceType8A,
		FormData:        map[string]string{},
	})
	require.NoError(t, err)

	instructions, err := conversation.HandleEvent(textEvent("E1", "some random text"))
	require.NoError(t, err)
	require.Len(t, instructions, 1)
	require.Equal(t, SendText{To: "E1", Body: completeFormText}, instructions[0])

	session, err := store.FindSession("E1")
	require.NoError(t, err)
	require.Equal(t, models.StepAwaitingFormData, session.Step)
}

func TestUntrackedFlowTokenExpiresSession(t *testing.T) {
	conversation, store, _ := newTestConversation(t, CaptureModeMenu)
	_, err := store.PutSession(&models.Session{
		ExternalID:      "E1",
		Step:            models.StepAwaitingFormData,
		SelectedService: models.ServiceType8A,
		FormData:        map[string]string{},
	})
	require.NoError(t, err)

	instructions, err := conversation.HandleEvent(flowEvent("E1", "bogus_token", nil))
	require.NoError(t, err)
	require.Len(t, instructions, 1)
	require.Equal(t, SendText{To: "E1", Body: sessionExpiredText}, instructions[0])

	session, err := store.FindSession("E1")
	require.NoError(t, err)
	require.Equal(t, models.StepStart, session.Step)
	require.Empty(t, session.PendingOrderID)
}

// The full happy path: hi -> service selection -> form completion -> order,
// with the form token redelivered afterwards.
func TestConversationScenario(t *testing.T) {
	conversation, store, gateway := newTestConversation(t, CaptureModeMenu)

	instructions, err := conversation.HandleEvent(textEvent("E1", "hi"))
	require.NoError(t, err)
	require.IsType(t, SendServiceMenu{}, instructions[0])

	instructions, err = conversation.HandleEvent(buttonEvent("E1", "8a_service"))
	require.NoError(t, err)
	require.Len(t, instructions, 1)
	form, ok := instructions[0].(TriggerForm)
	require.True(t, ok)
	require.Equal(t, models.ServiceType8A, form.ServiceType)

	session, err := store.FindSession("E1")
	require.NoError(t, err)
	require.Equal(t, models.StepAwaitingFormData, session.Step)

	instructions, err = conversation.HandleEvent(flowEvent("E1", "8a_flow_token", map[string]string{"name": "A"}))
	require.NoError(t, err)
	require.Len(t, instructions, 1)
	link, ok := instructions[0].(SendPaymentLink)
	require.True(t, ok)
	require.Equal(t, int64(10000), link.Amount)

	order, err := store.FindOrderByOrderID(link.OrderID)
	require.NoError(t, err)
	require.Equal(t, models.ServiceType8A, order.ServiceType)
	require.Equal(t, models.OrderStatusPending, order.Status)
	require.Equal(t, "A", order.FormSnapshot["name"])

	session, err = store.FindSession("E1")
	require.NoError(t, err)
	require.Equal(t, models.StepAwaitingPayment, session.Step)
	require.Equal(t, order.OrderID, session.PendingOrderID)

	// Redelivered token: no second order, the same one comes back.
	instructions, err = conversation.HandleEvent(flowEvent("E1", "8a_flow_token", map[string]string{"name": "A"}))
	require.NoError(t, err)
	again, ok := instructions[0].(SendPaymentLink)
	require.True(t, ok)
	require.Equal(t, order.OrderID, again.OrderID)
	require.Equal(t, 1, gateway.calls)
}

// Orders must not be affected by later session mutation.
func TestOrderSnapshotIsIsolated(t *testing.T) {
	conversation, store, _ := newTestConversation(t, CaptureModeMenu)

	_, err := conversation.HandleEvent(textEvent("E1", "hi"))
	require.NoError(t, err)
	_, err = conversation.HandleEvent(buttonEvent("E1", "8a_service"))
	require.NoError(t, err)
	instructions, err := conversation.HandleEvent(flowEvent("E1", "8a_flow_token", map[string]string{"name": "A"}))
	require.NoError(t, err)
	link := instructions[0].(SendPaymentLink)

	session, err := store.FindSession("E1")
	require.NoError(t, err)
	session.FormData["name"] = "B"
	_, err = store.PutSession(session)
	require.NoError(t, err)

	order, err := store.FindOrderByOrderID(link.OrderID)
	require.NoError(t, err)
	require.Equal(t, "A", order.FormSnapshot["name"])
}
