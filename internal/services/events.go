package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bhoomiseva/landrecords-backend/internal/models"
)

// Event kinds produced by classification.
const (
	EventMessage        = "message"
	EventStatus         = "status"
	EventFlowCompletion = "flow_completion"
	EventError          = "error"
	EventUnsupported    = "unsupported"
	EventUnknown        = "unknown"
)

// Event is the canonical form of one inbound platform notification. Every
// webhook payload variant is flattened into this shape before any business
// logic sees it.
type Event struct {
	Kind       string
	ExternalID string
	MessageID  string
	Text       string            // body of a plain text message
	ButtonID   string            // id of an interactive reply, matched by id not display text
	FlowToken  string            // form-flow completion token
	FormData   map[string]string // submitted form fields
	Detail     string            // status value or error description
}

// WebhookPayload is the WhatsApp Cloud API webhook envelope.
type WebhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string       `json:"field"`
			Value WebhookValue `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// WebhookValue carries the actual notification inside an envelope change.
type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Messages         []InboundMessage `json:"messages"`
	Statuses         []InboundStatus  `json:"statuses"`
	Errors           []InboundError   `json:"errors"`
}

// InboundMessage is one user message as delivered by the platform.
type InboundMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Button *struct {
		Text    string `json:"text"`
		Payload string `json:"payload"`
	} `json:"button,omitempty"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply,omitempty"`
		ListReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"list_reply,omitempty"`
		NFMReply *struct {
			Name         string `json:"name"`
			Body         string `json:"body"`
			ResponseJSON string `json:"response_json"`
		} `json:"nfm_reply,omitempty"`
	} `json:"interactive,omitempty"`
}

// InboundStatus is a delivery/read receipt for an outbound message.
type InboundStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
}

// InboundError is a platform error notification.
type InboundError struct {
	Code    int    `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// ClassifyWebhook flattens a Cloud API envelope into canonical events.
func ClassifyWebhook(payload *WebhookPayload) []Event {
	var events []Event
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			events = append(events, classifyValue(change.Value)...)
		}
	}
	return events
}

func classifyValue(value WebhookValue) []Event {
	var events []Event

	for _, msg := range value.Messages {
		events = append(events, classifyMessage(msg))
	}
	for _, status := range value.Statuses {
		events = append(events, Event{
			Kind:       EventStatus,
			ExternalID: status.RecipientID,
			MessageID:  status.ID,
			Detail:     status.Status,
		})
	}
	for _, platformErr := range value.Errors {
		events = append(events, Event{
			Kind:   EventError,
			Detail: fmt.Sprintf("%d %s: %s", platformErr.Code, platformErr.Title, platformErr.Message),
		})
	}

	if len(events) == 0 {
		events = append(events, Event{Kind: EventUnknown})
	}
	return events
}

func classifyMessage(msg InboundMessage) Event {
	event := Event{Kind: EventMessage, ExternalID: msg.From, MessageID: msg.ID}

	switch msg.Type {
	case "text":
		if msg.Text != nil {
			event.Text = msg.Text.Body
			return event
		}
	case "button":
		if msg.Button != nil {
			// Template quick-reply buttons carry display text, not an id.
			event.Text = msg.Button.Text
			return event
		}
	case "interactive":
		if msg.Interactive == nil {
			break
		}
		switch {
		case msg.Interactive.ButtonReply != nil:
			event.ButtonID = msg.Interactive.ButtonReply.ID
			return event
		case msg.Interactive.ListReply != nil:
			event.ButtonID = msg.Interactive.ListReply.ID
			return event
		case msg.Interactive.NFMReply != nil:
			event.Kind = EventFlowCompletion
			event.FlowToken, event.FormData = parseFlowResponse(msg.Interactive.NFMReply.ResponseJSON)
			return event
		}
	}

	event.Kind = EventUnsupported
	event.Detail = msg.Type
	return event
}

// parseFlowResponse extracts the flow token and the submitted form fields
// from an nfm_reply response_json blob.
func parseFlowResponse(responseJSON string) (string, map[string]string) {
	raw := make(map[string]interface{})
	if err := json.Unmarshal([]byte(responseJSON), &raw); err != nil {
		return "", nil
	}

	token := ""
	data := make(map[string]string)
	for key, value := range raw {
		text := fmt.Sprintf("%v", value)
		if key == "flow_token" {
			token = text
			continue
		}
		data[key] = text
	}
	return token, data
}

// CanonicalService maps the many observed service spellings (button ids,
// flow ids, free text) onto a single service type.
func CanonicalService(input string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "8a_service", "service_8a", "8a", "8a form":
		return models.ServiceType8A, true
	case "712_service", "service_712", "712", "7/12", "7/12 form":
		return models.ServiceType712, true
	case "ferfar_service", "service_ferfar", "ferfar":
		return models.ServiceTypeFerfar, true
	case "property_card_service", "service_property", "property card", "property_card":
		return models.ServiceTypePropertyCard, true
	}
	return "", false
}

// IsGreeting reports whether the input restarts the conversation.
func IsGreeting(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "hi", "hello", "start", "help":
		return true
	}
	return false
}
