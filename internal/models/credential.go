package models

import "time"

// CredentialBundle holds per-organization marketplace secrets. One row per org.
// Secret fields are encrypted before they reach the store.
type CredentialBundle struct {
	OrgID             int64     `json:"org_id"`
	MarketplaceAPIKey string    `json:"marketplace_api_key,omitempty"`
	MarketplaceSecret string    `json:"marketplace_secret,omitempty"`
	PaymentsToken     string    `json:"payments_token,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}
