package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bhoomiseva/landrecords-backend/internal/models"
	"github.com/bhoomiseva/landrecords-backend/internal/storage"
)

// Capture modes. Menu capture asks the user to pick a service from the
// interactive menu first; flow capture opens the form directly.
const (
	CaptureModeMenu = "menu"
	CaptureModeFlow = "flow"
)

// Fixed user-facing fallback texts.
const (
	helpText           = "Welcome to Land Record Services! Send 'hi' to see the available services: 8A Form, 7/12 Form, Ferfar, Property Card."
	unsupportedText    = "I can only process text messages right now. Please send 'hi' to start."
	completeFormText   = "Please complete the form to continue, or send 'hi' to restart."
	sessionExpiredText = "Your session has expired. Please send 'hi' to restart."
)

// flowMeta carries the platform flow id and the flow token issued for a
// service's form.
type flowMeta struct {
	FlowID string
	Token  string
}

var serviceFlows = map[string]flowMeta{
	models.ServiceType8A:           {FlowID: "1234567890", Token: "8a_flow_token"},
	models.ServiceType712:          {FlowID: "1234567891", Token: "712_flow_token"},
	models.ServiceTypeFerfar:       {FlowID: "1234567892", Token: "ferfar_flow_token"},
	models.ServiceTypePropertyCard: {FlowID: "1234567893", Token: "property_card_flow_token"},
}

// ServiceFromToken resolves a flow completion token back to its service.
func ServiceFromToken(token string) (string, bool) {
	for service, meta := range serviceFlows {
		if meta.Token == token {
			return service, true
		}
	}
	return "", false
}

// ConversationService owns the per-user conversation state machine. Each
// inbound event is run through a transition table keyed by (step, event
// kind); the cells mutate the session and return the outbound instructions.
type ConversationService struct {
	store       storage.Store
	orders      *OrderService
	captureMode string
}

// NewConversationService creates the conversation state machine
func NewConversationService(store storage.Store, orders *OrderService, captureMode string) *ConversationService {
	if captureMode != CaptureModeFlow {
		captureMode = CaptureModeMenu
	}
	return &ConversationService{
		store:       store,
		orders:      orders,
		captureMode: captureMode,
	}
}

// Event kinds as the transition table sees them.
const (
	cellText   = "text"
	cellButton = "button"
	cellFlow   = "flow_completion"
)

type transitionFn func(c *ConversationService, session *models.Session, event Event) []Instruction

// transitions is the single source of truth for the conversation. It is
// exhaustive over the declared steps; the greeting escape is checked before
// the table is consulted.
var transitions = map[string]map[string]transitionFn{
	models.StepStart: {
		cellText:   (*ConversationService).fromStart,
		cellButton: (*ConversationService).fromStart,
		cellFlow:   (*ConversationService).expiredFlow,
	},
	models.StepAwaitingServiceSelection: {
		cellText:   (*ConversationService).selectService,
		cellButton: (*ConversationService).selectService,
		cellFlow:   (*ConversationService).expiredFlow,
	},
	models.StepAwaitingFormData: {
		cellText:   (*ConversationService).remindForm,
		cellButton: (*ConversationService).remindForm,
		cellFlow:   (*ConversationService).completeForm,
	},
	models.StepFormConfirmed: {
		cellText:   (*ConversationService).remindForm,
		cellButton: (*ConversationService).remindForm,
		cellFlow:   (*ConversationService).completeForm,
	},
	models.StepAwaitingPayment: {
		cellText:   (*ConversationService).awaitPayment,
		cellButton: (*ConversationService).awaitPayment,
		cellFlow:   (*ConversationService).completeForm,
	},
	models.StepCompleted: {
		cellText:   (*ConversationService).fromStart,
		cellButton: (*ConversationService).fromStart,
		cellFlow:   (*ConversationService).expiredFlow,
	},
}

// HandleEvent drives one inbound event through the state machine and
// persists the resulting session.
func (c *ConversationService) HandleEvent(event Event) ([]Instruction, error) {
	now := time.Now()
	if _, err := c.store.UpsertUser(event.ExternalID, models.UserPatch{LastSeen: &now}); err != nil {
		log.Printf("⚠️  upsert user %s: %v", event.ExternalID, err)
	}

	session, err := c.store.FindSession(event.ExternalID)
	if errors.Is(err, storage.ErrNotFound) {
		session = &models.Session{
			ExternalID: event.ExternalID,
			Step:       models.StepStart,
			FormData:   make(map[string]string),
		}
		session, err = c.store.PutSession(session)
	}
	if err != nil {
		return []Instruction{SendText{To: event.ExternalID, Body: sessionExpiredText}}, fmt.Errorf("load session for %s: %w", event.ExternalID, err)
	}
	if session.FormData == nil {
		session.FormData = make(map[string]string)
	}

	var instructions []Instruction
	if event.Kind == EventMessage && IsGreeting(event.Text) {
		instructions = c.greet(session)
	} else {
		cells, ok := transitions[session.Step]
		if !ok {
			// Session persisted with a step this build no longer declares.
			session.Step = models.StepStart
			cells = transitions[models.StepStart]
		}
		instructions = cells[cellKind(event)](c, session, event)
	}

	if _, err := c.store.PutSession(session); err != nil {
		return instructions, fmt.Errorf("persist session for %s: %w", event.ExternalID, err)
	}
	return instructions, nil
}

func cellKind(event Event) string {
	switch {
	case event.Kind == EventFlowCompletion:
		return cellFlow
	case event.ButtonID != "":
		return cellButton
	default:
		return cellText
	}
}

// greet restarts the conversation from any step. It resets the conversational
// step only; an unresolved order stays pending.
func (c *ConversationService) greet(session *models.Session) []Instruction {
	session.FormData = make(map[string]string)

	if c.captureMode == CaptureModeFlow {
		session.Step = models.StepAwaitingFormData
		session.SelectedService = models.ServiceType8A
		meta := serviceFlows[session.SelectedService]
		return []Instruction{TriggerForm{
			To:          session.ExternalID,
			ServiceType: session.SelectedService,
			FormRef:     meta.FlowID,
			FlowToken:   meta.Token,
		}}
	}

	session.Step = models.StepAwaitingServiceSelection
	session.SelectedService = ""
	return []Instruction{SendServiceMenu{To: session.ExternalID}}
}

// fromStart handles text/button input in the start (or completed) step.
func (c *ConversationService) fromStart(session *models.Session, event Event) []Instruction {
	service, ok := recognizedService(event)
	if !ok {
		return []Instruction{SendText{To: session.ExternalID, Body: helpText}}
	}

	session.SelectedService = service
	if c.captureMode == CaptureModeMenu {
		session.Step = models.StepAwaitingServiceSelection
		return []Instruction{SendServiceMenu{To: session.ExternalID}}
	}
	return c.triggerForm(session, service)
}

// selectService handles the service menu reply.
func (c *ConversationService) selectService(session *models.Session, event Event) []Instruction {
	service, ok := recognizedService(event)
	if !ok {
		return []Instruction{SendText{To: session.ExternalID, Body: helpText}}
	}
	return c.triggerForm(session, service)
}

func (c *ConversationService) triggerForm(session *models.Session, service string) []Instruction {
	session.SelectedService = service
	session.Step = models.StepAwaitingFormData
	meta := serviceFlows[service]
	return []Instruction{TriggerForm{
		To:          session.ExternalID,
		ServiceType: service,
		FormRef:     meta.FlowID,
		FlowToken:   meta.Token,
	}}
}

// remindForm rejects everything but a form submission while one is open.
func (c *ConversationService) remindForm(session *models.Session, event Event) []Instruction {
	return []Instruction{SendText{To: session.ExternalID, Body: completeFormText}}
}

// awaitPayment keeps the step frozen until reconciliation moves it.
func (c *ConversationService) awaitPayment(session *models.Session, event Event) []Instruction {
	body := "Your payment is still pending. Please use the payment link you received."
	if session.PendingOrderID != "" {
		body = fmt.Sprintf("Your payment for order %s is still pending. Please use the payment link you received.", session.PendingOrderID)
	}
	return []Instruction{SendText{To: session.ExternalID, Body: body}}
}

// expiredFlow handles a form submission arriving in a step that has no open
// form.
func (c *ConversationService) expiredFlow(session *models.Session, event Event) []Instruction {
	return []Instruction{SendText{To: session.ExternalID, Body: sessionExpiredText}}
}

// completeForm consumes a form submission, creating the order (or returning
// the one already created when the token is redelivered).
func (c *ConversationService) completeForm(session *models.Session, event Event) []Instruction {
	service, ok := ServiceFromToken(event.FlowToken)
	if !ok || (session.SelectedService != "" && session.SelectedService != service) {
		log.Printf("⚠️  untracked flow token %q from %s", event.FlowToken, session.ExternalID)
		session.Step = models.StepStart
		return []Instruction{SendText{To: session.ExternalID, Body: sessionExpiredText}}
	}

	for key, value := range event.FormData {
		session.FormData[key] = value
	}

	order, created, err := c.orders.CreateOrder(session, service, session.FormData)
	if err != nil {
		log.Printf("❌ create order for %s: %v", session.ExternalID, err)
		return []Instruction{SendText{To: session.ExternalID, Body: "❌ Failed to create your order. Please try again or contact support."}}
	}

	if created {
		now := time.Now()
		if _, err := c.store.UpsertUser(session.ExternalID, models.UserPatch{
			Name:     event.FormData["name"],
			LastSeen: &now,
			Profile:  event.FormData,
		}); err != nil {
			log.Printf("⚠️  save profile for %s: %v", session.ExternalID, err)
		}
	}

	session.Step = models.StepAwaitingPayment
	session.PendingOrderID = order.OrderID

	return []Instruction{SendPaymentLink{
		To:      session.ExternalID,
		OrderID: order.OrderID,
		Amount:  order.Amount,
		Link:    c.orders.PaymentLink(order),
	}}
}

func recognizedService(event Event) (string, bool) {
	if event.ButtonID != "" {
		return CanonicalService(event.ButtonID)
	}
	return CanonicalService(event.Text)
}
