package services

// Instruction is an outbound side effect produced by the conversation engine.
// Instructions are handed to the Notifier collaborator, which owns the actual
// WhatsApp send API calls.
type Instruction interface {
	instruction()
}

// SendText delivers a plain text message.
type SendText struct {
	To   string
	Body string
}

// SendServiceMenu shows the interactive service selection buttons.
type SendServiceMenu struct {
	To string
}

// TriggerForm opens the WhatsApp Flow form for a service.
type TriggerForm struct {
	To          string
	ServiceType string
	FormRef     string // platform flow id
	FlowToken   string
}

// SendPaymentLink asks the user to pay for a created order.
type SendPaymentLink struct {
	To      string
	OrderID string
	Amount  int64 // paise
	Link    string
}

// NotifyPaymentResult reports the outcome of payment reconciliation.
type NotifyPaymentResult struct {
	To      string
	OrderID string
	Success bool
}

func (SendText) instruction()            {}
func (SendServiceMenu) instruction()     {}
func (TriggerForm) instruction()         {}
func (SendPaymentLink) instruction()     {}
func (NotifyPaymentResult) instruction() {}
