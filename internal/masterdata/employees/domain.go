// Package employees manages worker master records for both in-house staff
// and partner-supplied workers.
package employees

import "time"

// EmploymentType drives which labor unit price a budget applies and which
// paid-leave grant table row applies.
type EmploymentType string

const (
	EmploymentRegular    EmploymentType = "REGULAR"
	EmploymentTemporary  EmploymentType = "TEMPORARY"
	EmploymentOutsourced EmploymentType = "OUTSOURCED"
)

// Valid reports whether the employment type is known.
func (t EmploymentType) Valid() bool {
	switch t {
	case EmploymentRegular, EmploymentTemporary, EmploymentOutsourced:
		return true
	}
	return false
}

// Employee model. PartnerID is nil for in-house staff. WeeklyDays is the
// scheduled working days per week, used by the statutory paid-leave table.
type Employee struct {
	ID             int64          `json:"id"`
	PartnerID      *int64         `json:"partner_id,omitempty"`
	Name           string         `json:"name"`
	NameNormalized string         `json:"-"`
	EmploymentType EmploymentType `json:"employment_type"`
	HiredOn        time.Time      `json:"hired_on"`
	WeeklyDays     int            `json:"weekly_days"`
	IsActive       bool           `json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// YearsOfService returns completed years of service at the given date,
// measured in half-year precision (0.5, 1.5, ...) the way the statutory
// grant schedule buckets tenure.
func (e Employee) YearsOfService(at time.Time) float64 {
	if at.Before(e.HiredOn) {
		return 0
	}
	months := (at.Year()-e.HiredOn.Year())*12 + int(at.Month()-e.HiredOn.Month())
	if at.Day() < e.HiredOn.Day() {
		months--
	}
	return float64(months) / 12.0
}

// CreateEmployeeInput carries fields for creating an employee.
type CreateEmployeeInput struct {
	PartnerID      *int64         `json:"partner_id"`
	Name           string         `json:"name" validate:"required,max=255"`
	EmploymentType EmploymentType `json:"employment_type" validate:"required,oneof=REGULAR TEMPORARY OUTSOURCED"`
	HiredOn        time.Time      `json:"hired_on" validate:"required"`
	WeeklyDays     int            `json:"weekly_days" validate:"gte=1,lte=7"`
}

// UpdateEmployeeInput carries mutable fields.
type UpdateEmployeeInput struct {
	Name           string         `json:"name" validate:"required,max=255"`
	EmploymentType EmploymentType `json:"employment_type" validate:"required,oneof=REGULAR TEMPORARY OUTSOURCED"`
	WeeklyDays     int            `json:"weekly_days" validate:"gte=1,lte=7"`
	IsActive       *bool          `json:"is_active"`
}

// ListEmployeesRequest filters employee listings.
type ListEmployeesRequest struct {
	PartnerID  int64
	ActiveOnly bool
	Limit      int
	Offset     int
}
