// Package dailyreports manages the daily site reports foremen submit:
// attendance, outsourcing, expense and fuel entries that roll up into
// project cost actuals. Costs are priced when a report is confirmed, using
// the owning project budget's labor day-rates.
package dailyreports

import (
	"math"
	"time"

	"github.com/genba-erp/genba-erp/internal/budgets"
)

// Status enumerates the report lifecycle. Transitions are forward-only:
// draft → confirmed → revised.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusConfirmed Status = "CONFIRMED"
	StatusRevised   Status = "REVISED"
)

// DailyReport is one site report for a (project, date) pair.
type DailyReport struct {
	ID           int64      `json:"id"`
	ProjectID    int64      `json:"project_id"`
	ReportDate   time.Time  `json:"report_date"`
	ExternalSite bool       `json:"external_site"`
	Status       Status     `json:"status"`
	Note         string     `json:"note,omitempty"`
	Entries      []Entry    `json:"entries,omitempty"`
	Totals       Totals     `json:"totals"`
	CreatedBy    int64      `json:"created_by"`
	ConfirmedBy  *int64     `json:"confirmed_by,omitempty"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
	RevisedBy    *int64     `json:"revised_by,omitempty"`
	RevisedAt    *time.Time `json:"revised_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Totals are the per-category cost sums stamped at confirm time.
type Totals struct {
	LaborCost          int64 `json:"labor_cost"`
	MaterialCost       int64 `json:"material_cost"`
	OutsourcingCost    int64 `json:"outsourcing_cost"`
	ExpenseCost        int64 `json:"expense_cost"`
	TransportationCost int64 `json:"transportation_cost"`
}

// Sum returns the grand total.
func (t Totals) Sum() int64 {
	return t.LaborCost + t.MaterialCost + t.OutsourcingCost + t.ExpenseCost + t.TransportationCost
}

// Entry is one cost line on a report. Attendance lines carry an employee and
// man-days; outsourcing lines carry a partner and either man-days (人工
// billing) or a fixed amount; the rest carry a fixed amount.
type Entry struct {
	ID             int64            `json:"id"`
	ReportID       int64            `json:"report_id"`
	Category       budgets.Category `json:"category"`
	EmployeeID     *int64           `json:"employee_id,omitempty"`
	EmploymentType string           `json:"employment_type,omitempty"`
	PartnerID      *int64           `json:"partner_id,omitempty"`
	ManDays        float64          `json:"man_days,omitempty"`
	UnitPrice      int64            `json:"unit_price,omitempty"`
	Amount         int64            `json:"amount"`
	Description    string           `json:"description,omitempty"`
}

// Cost prices the entry. Labor uses the budget day-rate for the worker's
// employment type snapshot; outsourcing uses man-days when present.
// Fractional man-days round half up to the nearest yen.
func (e Entry) Cost(rates budgets.LaborRates) int64 {
	switch e.Category {
	case budgets.CategoryLabor:
		return roundYen(e.ManDays * float64(rates.ForEmploymentType(e.EmploymentType)))
	case budgets.CategoryOutsourcing:
		if e.ManDays > 0 {
			return roundYen(e.ManDays * float64(e.UnitPrice))
		}
		return e.Amount
	default:
		return e.Amount
	}
}

func roundYen(v float64) int64 {
	return int64(math.Round(v))
}

// ComputeTotals prices every entry and sums by category.
func ComputeTotals(entries []Entry, rates budgets.LaborRates) Totals {
	var t Totals
	for _, e := range entries {
		cost := e.Cost(rates)
		switch e.Category {
		case budgets.CategoryLabor:
			t.LaborCost += cost
		case budgets.CategoryMaterial:
			t.MaterialCost += cost
		case budgets.CategoryOutsourcing:
			t.OutsourcingCost += cost
		case budgets.CategoryExpense:
			t.ExpenseCost += cost
		case budgets.CategoryFuel:
			t.TransportationCost += cost
		}
	}
	return t
}

// CreateReportInput carries fields for creating a draft report.
type CreateReportInput struct {
	ProjectID    int64        `json:"project_id" validate:"required,gt=0"`
	ReportDate   time.Time    `json:"report_date" validate:"required"`
	ExternalSite bool         `json:"external_site"`
	Note         string       `json:"note" validate:"max=1000"`
	Entries      []EntryInput `json:"entries" validate:"dive"`
	CreatedBy    int64        `json:"-"`
}

// UpdateReportInput replaces a report's entries and note.
type UpdateReportInput struct {
	Note    string       `json:"note" validate:"max=1000"`
	Entries []EntryInput `json:"entries" validate:"required,min=1,dive"`
}

// EntryInput is one cost line on a report write.
type EntryInput struct {
	Category       budgets.Category `json:"category" validate:"required"`
	EmployeeID     *int64           `json:"employee_id"`
	EmploymentType string           `json:"employment_type" validate:"omitempty,oneof=REGULAR TEMPORARY OUTSOURCED"`
	PartnerID      *int64           `json:"partner_id"`
	ManDays        float64          `json:"man_days" validate:"gte=0"`
	UnitPrice      int64            `json:"unit_price" validate:"gte=0"`
	Amount         int64            `json:"amount" validate:"gte=0"`
	Description    string           `json:"description" validate:"max=500"`
}

// ListReportsRequest filters report listings.
type ListReportsRequest struct {
	ProjectID int64
	Status    Status
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}
