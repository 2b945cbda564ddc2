package models

import "time"

// CatalogItem is a product listed by an organization.
type CatalogItem struct {
	ID         int64     `json:"id"`
	OrgID      int64     `json:"org_id"`
	SKU        string    `json:"sku"`
	Title      string    `json:"title"`
	PriceCents int64     `json:"price_cents"`
	Stock      int       `json:"stock"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SalesEvent is a single sale of a catalog item.
type SalesEvent struct {
	ID          int64     `json:"id"`
	OrgID       int64     `json:"org_id"`
	SKU         string    `json:"sku"`
	Quantity    int       `json:"quantity"`
	AmountCents int64     `json:"amount_cents"`
	SoldAt      time.Time `json:"sold_at"`
}

// SalesSummary is the recomputed per-org aggregate of sales events.
type SalesSummary struct {
	OrgID        int64     `json:"org_id"`
	Events       int64     `json:"events"`
	Units        int64     `json:"units"`
	RevenueCents int64     `json:"revenue_cents"`
	ComputedAt   time.Time `json:"computed_at"`
}

// Review is a customer review of a catalog item.
type Review struct {
	ID        int64     `json:"id"`
	OrgID     int64     `json:"org_id"`
	SKU       string    `json:"sku"`
	Rating    int       `json:"rating"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// LedgerEntry is a financial ledger line.
type LedgerEntry struct {
	ID          int64     `json:"id"`
	OrgID       int64     `json:"org_id"`
	Account     string    `json:"account"`
	AmountCents int64     `json:"amount_cents"`
	Memo        string    `json:"memo"`
	PostedAt    time.Time `json:"posted_at"`
}
