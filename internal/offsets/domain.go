// Package offsets implements the per-partner monthly netting ledger (相殺):
// temporary-staff payroll and insurance cost charged to a partner is netted
// against revenue owed, producing a carry-over balance that chains across
// periods through partners.carryover_balance.
package offsets

import "time"

// Status enumerates the ledger row states. Confirmation is terminal.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusConfirmed Status = "CONFIRMED"
)

// Offset is one (partner, period) ledger row.
type Offset struct {
	ID            int64      `json:"id"`
	PartnerID     int64      `json:"partner_id"`
	YearMonth     string     `json:"year_month"`
	Carryover     int64      `json:"carryover"`
	OffsetAmount  int64      `json:"offset_amount"`
	RevenueAmount int64      `json:"revenue_amount"`
	Balance       int64      `json:"balance"`
	Status        Status     `json:"status"`
	ConfirmedBy   *int64     `json:"confirmed_by,omitempty"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ComputedBalance applies the netting rule.
func (o Offset) ComputedBalance() int64 {
	return o.Carryover + o.OffsetAmount - o.RevenueAmount
}

// Payable is the amount still owed to the partner after netting. Positive
// only when the confirmed balance is negative.
func (o Offset) Payable() int64 {
	return -o.Balance
}

// CreateOffsetInput opens a draft period. Carryover is initialized from the
// partner's current balance, never supplied by the caller.
type CreateOffsetInput struct {
	PartnerID     int64  `json:"partner_id" validate:"required,gt=0"`
	YearMonth     string `json:"year_month" validate:"required"`
	OffsetAmount  int64  `json:"offset_amount" validate:"gte=0"`
	RevenueAmount int64  `json:"revenue_amount" validate:"gte=0"`
}

// UpdateOffsetInput adjusts a draft's amounts.
type UpdateOffsetInput struct {
	OffsetAmount  int64 `json:"offset_amount" validate:"gte=0"`
	RevenueAmount int64 `json:"revenue_amount" validate:"gte=0"`
}

// ListOffsetsRequest filters ledger listings.
type ListOffsetsRequest struct {
	PartnerID int64
	Status    Status
	Limit     int
	Offset    int
}
