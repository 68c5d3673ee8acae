// Package budgets manages per-project cost budgets: planned amounts by cost
// category plus the labor day-rates used to price daily report attendance.
// A confirmed budget is the immutable baseline actuals are compared against.
package budgets

import "time"

// Status enumerates budget document states.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusConfirmed Status = "CONFIRMED"
)

// Category enumerates the cost categories tracked on budgets, daily report
// entries and rollups.
type Category string

const (
	CategoryLabor       Category = "LABOR"
	CategoryOutsourcing Category = "OUTSOURCING"
	CategoryMaterial    Category = "MATERIAL"
	CategoryExpense     Category = "EXPENSE"
	CategoryFuel        Category = "FUEL"
)

// ValidCategory reports whether c is a known cost category.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryLabor, CategoryOutsourcing, CategoryMaterial, CategoryExpense, CategoryFuel:
		return true
	}
	return false
}

// Budget is the planned cost baseline for one project.
type Budget struct {
	ID          int64        `json:"id"`
	ProjectID   int64        `json:"project_id"`
	Status      Status       `json:"status"`
	Lines       []BudgetLine `json:"lines,omitempty"`
	Rates       LaborRates   `json:"rates"`
	ConfirmedBy *int64       `json:"confirmed_by,omitempty"`
	ConfirmedAt *time.Time   `json:"confirmed_at,omitempty"`
	CreatedBy   int64        `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// PlannedTotal sums all line amounts.
func (b Budget) PlannedTotal() int64 {
	var total int64
	for _, l := range b.Lines {
		total += l.PlannedAmount
	}
	return total
}

// BudgetLine is the planned amount for one category.
type BudgetLine struct {
	ID            int64    `json:"id"`
	BudgetID      int64    `json:"budget_id"`
	Category      Category `json:"category"`
	PlannedAmount int64    `json:"planned_amount"`
	Note          string   `json:"note,omitempty"`
}

// LaborRates carries the per-man-day unit price for each employment type, in
// yen. Daily report labor costs are priced from the project budget's rates.
type LaborRates struct {
	Regular    int64 `json:"regular" validate:"gte=0"`
	Temporary  int64 `json:"temporary" validate:"gte=0"`
	Outsourced int64 `json:"outsourced" validate:"gte=0"`
}

// ForEmploymentType returns the day-rate for an employment type string as
// stored on the employee record.
func (r LaborRates) ForEmploymentType(t string) int64 {
	switch t {
	case "REGULAR":
		return r.Regular
	case "TEMPORARY":
		return r.Temporary
	case "OUTSOURCED":
		return r.Outsourced
	}
	return 0
}

// CreateBudgetInput carries fields for creating a budget.
type CreateBudgetInput struct {
	ProjectID int64             `json:"project_id" validate:"required,gt=0"`
	Lines     []BudgetLineInput `json:"lines" validate:"required,min=1,dive"`
	Rates     LaborRates        `json:"rates"`
	CreatedBy int64             `json:"-"`
}

// BudgetLineInput is one planned category amount.
type BudgetLineInput struct {
	Category      Category `json:"category" validate:"required"`
	PlannedAmount int64    `json:"planned_amount" validate:"gte=0"`
	Note          string   `json:"note" validate:"max=500"`
}

// UpdateBudgetInput replaces the draft budget's lines and rates.
type UpdateBudgetInput struct {
	Lines []BudgetLineInput `json:"lines" validate:"required,min=1,dive"`
	Rates LaborRates        `json:"rates"`
}

// CategoryRollup compares one category's plan against recorded actuals.
type CategoryRollup struct {
	Category Category `json:"category"`
	Planned  int64    `json:"planned"`
	Actual   int64    `json:"actual"`
	Variance int64    `json:"variance"`
}

// Rollup is the planned-versus-actual view for one project.
type Rollup struct {
	ProjectID    int64            `json:"project_id"`
	BudgetStatus Status           `json:"budget_status"`
	Categories   []CategoryRollup `json:"categories"`
	PlannedTotal int64            `json:"planned_total"`
	ActualTotal  int64            `json:"actual_total"`
	Variance     int64            `json:"variance"`
}
