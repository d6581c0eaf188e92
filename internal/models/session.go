package models

import "time"

// Conversation steps. A session always sits in exactly one of these.
const (
	StepStart                    = "start"
	StepAwaitingServiceSelection = "awaiting_service_selection"
	StepAwaitingFormData         = "awaiting_form_data"
	StepFormConfirmed            = "form_confirmed"
	StepAwaitingPayment          = "awaiting_payment"
	StepCompleted                = "completed"
)

// Session stores the conversational state for one WhatsApp user. There is at
// most one session per external id; it is never deleted, only moved back to
// the start step when a new conversation begins.
type Session struct {
	ID              uint              `json:"-" gorm:"primaryKey"`
	ExternalID      string            `json:"external_id" gorm:"uniqueIndex"`
	Step            string            `json:"step"`
	SelectedService string            `json:"selected_service"`
	PendingOrderID  string            `json:"pending_order_id"`
	FormData        map[string]string `json:"form_data" gorm:"serializer:json"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}
