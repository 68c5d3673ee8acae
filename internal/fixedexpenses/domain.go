// Package fixedexpenses manages recurring monthly expense schedules (rent,
// lease payments, insurance premiums) and seeds the cash-flow ledger from
// them through an explicit generate operation. No hidden scheduler: a period
// is generated exactly when asked, at most once per schedule.
package fixedexpenses

import "time"

// Schedule is one recurring monthly expense.
type Schedule struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Amount      int64     `json:"amount"`
	PaymentDay  int       `json:"payment_day"`
	ActiveFrom  string    `json:"active_from"`
	ActiveUntil string    `json:"active_until,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateScheduleInput carries fields for creating a schedule. Periods are
// "YYYY-MM"; an empty active_until means open-ended. payment_day 0 means
// month end.
type CreateScheduleInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	PaymentDay  int    `json:"payment_day" validate:"gte=0,lte=31"`
	ActiveFrom  string `json:"active_from" validate:"required"`
	ActiveUntil string `json:"active_until"`
}

// UpdateScheduleInput mutates schedule fields. Amount changes only affect
// periods generated afterwards.
type UpdateScheduleInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	PaymentDay  int    `json:"payment_day" validate:"gte=0,lte=31"`
	ActiveUntil string `json:"active_until"`
}

// GenerateResult reports what a generate pass did for one period.
type GenerateResult struct {
	YearMonth string  `json:"year_month"`
	EntryIDs  []int64 `json:"entry_ids"`
	Created   int     `json:"created"`
	Skipped   int     `json:"skipped"`
}
