// Package cashflow keeps the ledger of expected versus actual money
// movement used for short-term cash forecasting. Entries originate from
// source documents (invoices, expenses, fixed-expense schedules) resolved
// through an explicit handler registry; the expected date is derived once at
// creation from the source's payment term and never re-forecast.
package cashflow

import (
	"time"

	"github.com/genba-erp/genba-erp/internal/masterdata/paymentterms"
)

// Direction of the money movement.
type Direction string

const (
	DirectionIncome  Direction = "INCOME"
	DirectionExpense Direction = "EXPENSE"
)

// Valid reports whether the direction is known.
func (d Direction) Valid() bool {
	return d == DirectionIncome || d == DirectionExpense
}

// SourceType discriminates the originating document kind.
type SourceType string

const (
	SourceInvoice      SourceType = "INVOICE"
	SourceExpense      SourceType = "EXPENSE"
	SourceFixedExpense SourceType = "FIXED_EXPENSE"
)

// Status enumerates the reconciliation lifecycle.
type Status string

const (
	StatusExpected  Status = "EXPECTED"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// CanTransitionTo enforces expected → confirmed → completed|cancelled.
// Cancellation is also allowed straight from expected.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusExpected:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusCompleted || next == StatusCancelled
	}
	return false
}

// Entry is one row in the cash-flow ledger.
type Entry struct {
	ID               int64      `json:"id"`
	SourceType       SourceType `json:"source_type"`
	SourceID         int64      `json:"source_id"`
	Direction        Direction  `json:"direction"`
	Description      string     `json:"description,omitempty"`
	ExpectedDate     time.Time  `json:"expected_date"`
	ExpectedAmount   int64      `json:"expected_amount"`
	ActualDate       *time.Time `json:"actual_date,omitempty"`
	ActualAmount     *int64     `json:"actual_amount,omitempty"`
	AdjustmentAmount int64      `json:"adjustment_amount"`
	ManualOverride   bool       `json:"manual_override"`
	OverrideReason   string     `json:"override_reason,omitempty"`
	Status           Status     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// SourceDocument is what a source handler resolves: the facts needed to
// derive an expected entry. TermableID of zero means no payment term applies
// and BaseDate is the expected date as-is.
type SourceDocument struct {
	Direction    Direction
	Amount       int64
	BaseDate     time.Time
	Description  string
	TermableType paymentterms.TermableType
	TermableID   int64
}

// CreateEntryInput creates an entry from a source document reference.
type CreateEntryInput struct {
	SourceType SourceType `json:"source_type" validate:"required"`
	SourceID   int64      `json:"source_id" validate:"required,gt=0"`
}

// OverrideInput hand-adjusts the computed expectation. Requires a reason.
type OverrideInput struct {
	ExpectedDate   time.Time `json:"expected_date" validate:"required"`
	ExpectedAmount int64     `json:"expected_amount" validate:"gte=0"`
	OverrideReason string    `json:"override_reason" validate:"required,max=500"`
}

// CompleteInput closes an entry against observed money movement.
type CompleteInput struct {
	ActualDate   time.Time `json:"actual_date" validate:"required"`
	ActualAmount int64     `json:"actual_amount" validate:"gte=0"`
}

// AdjustInput records offset netting effects against the entry.
type AdjustInput struct {
	AdjustmentAmount int64  `json:"adjustment_amount"`
	Note             string `json:"note" validate:"max=500"`
}

// ListEntriesRequest filters ledger listings.
type ListEntriesRequest struct {
	SourceType SourceType
	Direction  Direction
	Status     Status
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// ForecastBucket is the net expected position for one day.
type ForecastBucket struct {
	Date    time.Time `json:"date"`
	Income  int64     `json:"income"`
	Expense int64     `json:"expense"`
	Net     int64     `json:"net"`
	Running int64     `json:"running"`
}

// Forecast is the net position over a horizon, cancelled entries excluded.
type Forecast struct {
	From    time.Time        `json:"from"`
	To      time.Time        `json:"to"`
	Buckets []ForecastBucket `json:"buckets"`
	Closing int64            `json:"closing"`
}
