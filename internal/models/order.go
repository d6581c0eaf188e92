package models

import "time"

// Service types offered by the bot
const (
	ServiceType8A           = "8A"
	ServiceType712          = "7/12"
	ServiceTypeFerfar       = "Ferfar"
	ServiceTypePropertyCard = "Property Card"
)

// Order status constants
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusCompleted  = "completed"
	OrderStatusFailed     = "failed"
	OrderStatusCancelled  = "cancelled"

	PaymentStatusPending  = "pending"
	PaymentStatusCaptured = "captured"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// Order represents a payable application for a land-record service. The form
// snapshot is copied from the session at creation time so later conversation
// activity cannot change what the user is paying for.
type Order struct {
	ID              uint              `json:"-" gorm:"primaryKey"`
	OrderID         string            `json:"order_id" gorm:"uniqueIndex"`          // internal, human-traceable
	GatewayOrderRef string            `json:"gateway_order_ref" gorm:"uniqueIndex"` // assigned by the payment gateway
	ExternalID      string            `json:"external_id" gorm:"index"`             // owning WhatsApp user
	ServiceType     string            `json:"service_type"`
	FormSnapshot    map[string]string `json:"form_snapshot" gorm:"serializer:json"`
	Amount          int64             `json:"amount"` // paise
	Status          string            `json:"status"`
	PaymentStatus   string            `json:"payment_status"`
	PaymentRef      string            `json:"payment_ref"` // set by reconciliation
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	CompletedAt     *time.Time        `json:"completed_at"`
	FailedAt        *time.Time        `json:"failed_at"`
}

// IsOpen reports whether the order still awaits payment resolution.
func (o *Order) IsOpen() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusProcessing
}

// OrderPatch carries the mutable order fields. Nil fields are left untouched.
type OrderPatch struct {
	Status        *string
	PaymentStatus *string
	PaymentRef    *string
	CompletedAt   *time.Time
	FailedAt      *time.Time
}

// Apply copies the set fields of the patch onto the order.
func (o *Order) Apply(p OrderPatch) {
	if p.Status != nil {
		o.Status = *p.Status
	}
	if p.PaymentStatus != nil {
		o.PaymentStatus = *p.PaymentStatus
	}
	if p.PaymentRef != nil {
		o.PaymentRef = *p.PaymentRef
	}
	if p.CompletedAt != nil {
		o.CompletedAt = p.CompletedAt
	}
	if p.FailedAt != nil {
		o.FailedAt = p.FailedAt
	}
}

// Updates renders the patch as a GORM updates map.
func (p OrderPatch) Updates() map[string]interface{} {
	updates := make(map[string]interface{})
	if p.Status != nil {
		updates["status"] = *p.Status
	}
	if p.PaymentStatus != nil {
		updates["payment_status"] = *p.PaymentStatus
	}
	if p.PaymentRef != nil {
		updates["payment_ref"] = *p.PaymentRef
	}
	if p.CompletedAt != nil {
		updates["completed_at"] = *p.CompletedAt
	}
	if p.FailedAt != nil {
		updates["failed_at"] = *p.FailedAt
	}
	return updates
}
