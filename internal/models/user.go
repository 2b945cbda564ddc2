package models

import (
	"time"
)

// User represents a person known through the host client's identity payload.
type User struct {
	ID                 int64     `json:"id"`
	ExternalIdentityID string    `json:"external_identity_id"`
	DisplayName        string    `json:"display_name"`
	CreatedAt          time.Time `json:"created_at"`
}
