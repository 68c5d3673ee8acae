// Package partners manages 協力会社 (subcontract partner) master records.
package partners

import "time"

// Partner model. CarryoverBalance is the running offset-ledger balance and
// is mutated only by the offsets confirm workflow, never through this
// package's update path.
type Partner struct {
	ID               int64     `json:"id"`
	Code             string    `json:"code"`
	Name             string    `json:"name"`
	NameNormalized   string    `json:"-"`
	ContactName      string    `json:"contact_name"`
	Phone            string    `json:"phone"`
	Email            string    `json:"email"`
	CarryoverBalance int64     `json:"carryover_balance"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CreatePartnerInput carries fields for creating a partner.
type CreatePartnerInput struct {
	Code        string `json:"code" validate:"required,max=32"`
	Name        string `json:"name" validate:"required,max=255"`
	ContactName string `json:"contact_name" validate:"max=255"`
	Phone       string `json:"phone" validate:"max=32"`
	Email       string `json:"email" validate:"omitempty,email"`
}

// UpdatePartnerInput carries mutable fields. Carryover balance is absent on
// purpose.
type UpdatePartnerInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	ContactName string `json:"contact_name" validate:"max=255"`
	Phone       string `json:"phone" validate:"max=32"`
	Email       string `json:"email" validate:"omitempty,email"`
	IsActive    *bool  `json:"is_active"`
}

// ListPartnersRequest filters partner listings.
type ListPartnersRequest struct {
	Query      string
	ActiveOnly bool
	Limit      int
	Offset     int
}
