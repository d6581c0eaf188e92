package models

import "time"

// User represents a WhatsApp user known to the bot. Users are created on
// their first inbound message and updated on every one after that; they are
// never deleted.
type User struct {
	ID          uint   `json:"-" gorm:"primaryKey"`
	ExternalID  string `json:"external_id" gorm:"uniqueIndex"` // platform-supplied WhatsApp id
	PhoneNumber string `json:"phone_number"`
	Name        string `json:"name"`

	// Profile fields collected during form capture (state, district, tahsil,
	// village, email and whatever else the forms ask for).
	Profile map[string]string `json:"profile" gorm:"serializer:json"`

	LastSeen  time.Time `json:"last_seen"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserPatch carries the fields an upsert may set. Zero values are skipped;
// Profile entries are merged into the existing profile, never removed.
type UserPatch struct {
	Name     string
	LastSeen *time.Time
	Profile  map[string]string
}
