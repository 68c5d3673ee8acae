// Package paymentterms manages closing-day/payment-offset/payment-day
// triples attached to clients and partners, and derives expected payment
// dates from them.
package paymentterms

import (
	"time"

	"github.com/genba-erp/genba-erp/internal/shared"
)

// TermableType discriminates the owner of a payment term.
type TermableType string

const (
	TermableClient  TermableType = "CLIENT"
	TermablePartner TermableType = "PARTNER"
)

// Valid reports whether the discriminant is a known owner kind.
func (t TermableType) Valid() bool {
	return t == TermableClient || t == TermablePartner
}

// PaymentTerm models a billing cycle: invoices dated up to ClosingDay of a
// month are paid on PaymentDay, PaymentMonthOffset months later. A day value
// of 0 means "end of month".
type PaymentTerm struct {
	ID                 int64
	TermableType       TermableType
	TermableID         int64
	ClosingDay         int
	PaymentMonthOffset int
	PaymentDay         int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ExpectedPaymentDate derives the payment date for a document dated base.
// The computation is done once at document creation and never re-forecast.
func (t PaymentTerm) ExpectedPaymentDate(base time.Time) time.Time {
	ym := shared.YearMonthOf(base)
	closing := shared.ClampDayToMonth(ym, t.ClosingDay)
	if base.After(closing) {
		ym = ym.Next()
	}
	payMonth := ym
	for i := 0; i < t.PaymentMonthOffset; i++ {
		payMonth = payMonth.Next()
	}
	return shared.ClampDayToMonth(payMonth, t.PaymentDay)
}

// CreatePaymentTermInput carries fields for creating or replacing a term.
type CreatePaymentTermInput struct {
	TermableType       TermableType `json:"termable_type" validate:"required,oneof=CLIENT PARTNER"`
	TermableID         int64        `json:"termable_id" validate:"required,gt=0"`
	ClosingDay         int          `json:"closing_day" validate:"gte=0,lte=31"`
	PaymentMonthOffset int          `json:"payment_month_offset" validate:"gte=0,lte=6"`
	PaymentDay         int          `json:"payment_day" validate:"gte=0,lte=31"`
}
