// Package invoices manages billing documents for projects. Issuing an
// invoice derives the expected payment date from the client's payment term
// and feeds an income entry into the cash-flow ledger.
package invoices

import "time"

// Status enumerates the billing lifecycle.
type Status string

const (
	StatusDraft  Status = "DRAFT"
	StatusIssued Status = "ISSUED"
	StatusPaid   Status = "PAID"
)

// Invoice model. Total is derived from the lines server-side.
type Invoice struct {
	ID                  int64      `json:"id"`
	ProjectID           int64      `json:"project_id"`
	ClientID            int64      `json:"client_id"`
	Number              string     `json:"number"`
	IssueDate           time.Time  `json:"issue_date"`
	ExpectedPaymentDate *time.Time `json:"expected_payment_date,omitempty"`
	Total               int64      `json:"total"`
	Status              Status     `json:"status"`
	Notes               string     `json:"notes,omitempty"`
	IssuedAt            *time.Time `json:"issued_at,omitempty"`
	PaidAt              *time.Time `json:"paid_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	Lines               []Line     `json:"lines,omitempty"`
}

// Line is one billed item. Amount = Quantity * UnitPrice, truncated to yen.
type Line struct {
	ID          int64   `json:"id"`
	InvoiceID   int64   `json:"invoice_id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   int64   `json:"unit_price"`
	Amount      int64   `json:"amount"`
}

// LineInput is the caller-supplied shape of one line. Amounts are computed
// here, never accepted.
type LineInput struct {
	Description string  `json:"description" validate:"required,max=255"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	UnitPrice   int64   `json:"unit_price" validate:"gte=0"`
}

// CreateInvoiceInput carries fields for creating a draft.
type CreateInvoiceInput struct {
	ProjectID int64       `json:"project_id" validate:"required,gt=0"`
	IssueDate time.Time   `json:"issue_date" validate:"required"`
	Notes     string      `json:"notes" validate:"max=1000"`
	Lines     []LineInput `json:"lines" validate:"required,min=1,dive"`
}

// UpdateLinesInput replaces a draft's lines.
type UpdateLinesInput struct {
	Lines []LineInput `json:"lines" validate:"required,min=1,dive"`
}

// ListInvoicesRequest filters invoice listings.
type ListInvoicesRequest struct {
	ProjectID int64
	ClientID  int64
	Status    Status
	Limit     int
	Offset    int
}
