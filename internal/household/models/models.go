// Package models defines the tenant-scoped entity types stored inside a
// household's isolated store.
package models

import (
	"encoding/json"
	"time"

	id "hearth/pkg/domain"
)

// Versioned carries the optimistic-concurrency and soft-delete columns
// shared by every mutable entity. Version starts at 1 and increments by
// exactly 1 on each successful update; DeletedAt is nil unless the row is
// soft-deleted. Mutations happen only through the repositories' conditional
// update path.
type Versioned struct {
	Version   int64      `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Member is a person in the household. Email and date of birth are
// encrypted at rest.
type Member struct {
	ID          id.EntityID `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	DateOfBirth string      `json:"date_of_birth"`
	Role        string      `json:"role"`
	Versioned
}

// Asset is a household possession. The serial number is encrypted at rest;
// Details is a free-form payload (insurance, warranty, purchase records)
// whose sensitive keys are encrypted wherever they appear.
type Asset struct {
	ID           id.EntityID     `json:"id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	SerialNumber string          `json:"serial_number"`
	PurchasedAt  *time.Time      `json:"purchased_at,omitempty"`
	Details      json.RawMessage `json:"details,omitempty"`
	Versioned
}

// FinanceAccount is a household financial account. The account number is
// encrypted at rest; Details follows the same rules as Asset.Details.
type FinanceAccount struct {
	ID            id.EntityID     `json:"id"`
	Institution   string          `json:"institution"`
	AccountNumber string          `json:"account_number"`
	Currency      string          `json:"currency"`
	Details       json.RawMessage `json:"details,omitempty"`
	Versioned
}
