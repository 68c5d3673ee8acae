// Package projects manages construction project records, their estimate
// documents and the administrative gate that must pass before site work.
package projects

import "time"

// Status enumerates the project lifecycle. Transitions are forward-only.
type Status string

const (
	StatusDraft      Status = "DRAFT"
	StatusEstimating Status = "ESTIMATING"
	StatusOrdered    Status = "ORDERED"
	StatusPreparing  Status = "PREPARING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusInvoiced   Status = "INVOICED"
	StatusPaid       Status = "PAID"
	StatusClosed     Status = "CLOSED"
)

var statusRank = map[Status]int{
	StatusDraft:      0,
	StatusEstimating: 1,
	StatusOrdered:    2,
	StatusPreparing:  3,
	StatusInProgress: 4,
	StatusCompleted:  5,
	StatusInvoiced:   6,
	StatusPaid:       7,
	StatusClosed:     8,
}

// Valid reports whether the status is known.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransitionTo allows only single forward steps.
func (s Status) CanTransitionTo(next Status) bool {
	from, ok1 := statusRank[s]
	to, ok2 := statusRank[next]
	return ok1 && ok2 && to == from+1
}

// Project model. The four gate flags form the 四点チェック: a project may
// not move past PREPARING until all are set.
type Project struct {
	ID                  int64      `json:"id"`
	Code                string     `json:"code"`
	Name                string     `json:"name"`
	ClientID            int64      `json:"client_id"`
	SiteAddress         string     `json:"site_address"`
	Status              Status     `json:"status"`
	HasContract         bool       `json:"has_contract"`
	HasOrder            bool       `json:"has_order"`
	HasPaymentTerms     bool       `json:"has_payment_terms"`
	HasCustomerApproval bool       `json:"has_customer_approval"`
	ContractAmount      int64      `json:"contract_amount"`
	StartsOn            *time.Time `json:"starts_on,omitempty"`
	EndsOn              *time.Time `json:"ends_on,omitempty"`
	CreatedBy           int64      `json:"created_by"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// FourPointComplete reports whether every administrative gate flag is set.
func (p Project) FourPointComplete() bool {
	return p.HasContract && p.HasOrder && p.HasPaymentTerms && p.HasCustomerApproval
}

// EstimateStatus enumerates estimate document states.
type EstimateStatus string

const (
	EstimateDraft     EstimateStatus = "DRAFT"
	EstimateSubmitted EstimateStatus = "SUBMITTED"
	EstimateAccepted  EstimateStatus = "ACCEPTED"
)

// Estimate is a sell-side pricing document for a project.
type Estimate struct {
	ID        int64          `json:"id"`
	ProjectID int64          `json:"project_id"`
	Number    string         `json:"number"`
	Status    EstimateStatus `json:"status"`
	Total     int64          `json:"total"`
	Lines     []EstimateLine `json:"lines,omitempty"`
	CreatedBy int64          `json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// EstimateLine is one priced row on an estimate.
type EstimateLine struct {
	ID          int64   `json:"id"`
	EstimateID  int64   `json:"estimate_id"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   int64   `json:"unit_price"`
	Amount      int64   `json:"amount"`
}

// CreateProjectInput carries fields for creating a project.
type CreateProjectInput struct {
	Code           string     `json:"code" validate:"required,max=32"`
	Name           string     `json:"name" validate:"required,max=255"`
	ClientID       int64      `json:"client_id" validate:"required,gt=0"`
	SiteAddress    string     `json:"site_address" validate:"max=500"`
	ContractAmount int64      `json:"contract_amount" validate:"gte=0"`
	StartsOn       *time.Time `json:"starts_on"`
	EndsOn         *time.Time `json:"ends_on"`
	CreatedBy      int64      `json:"-"`
}

// UpdateGatesInput sets the administrative gate flags.
type UpdateGatesInput struct {
	HasContract         *bool `json:"has_contract"`
	HasOrder            *bool `json:"has_order"`
	HasPaymentTerms     *bool `json:"has_payment_terms"`
	HasCustomerApproval *bool `json:"has_customer_approval"`
}

// CreateEstimateInput carries fields for creating an estimate.
type CreateEstimateInput struct {
	ProjectID int64               `json:"project_id" validate:"required,gt=0"`
	Number    string              `json:"number" validate:"max=32"`
	Lines     []EstimateLineInput `json:"lines" validate:"required,min=1,dive"`
	CreatedBy int64               `json:"-"`
}

// EstimateLineInput is one row on a new estimate.
type EstimateLineInput struct {
	Category    string  `json:"category" validate:"required,max=64"`
	Description string  `json:"description" validate:"max=500"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	UnitPrice   int64   `json:"unit_price" validate:"gte=0"`
}

// ListProjectsRequest filters project listings.
type ListProjectsRequest struct {
	Status   Status
	ClientID int64
	Limit    int
	Offset   int
}

// Summary aggregates project counts and contract value by status.
type Summary struct {
	TotalProjects  int              `json:"total_projects"`
	ByStatus       map[string]int   `json:"by_status"`
	ContractTotal  int64            `json:"contract_total"`
	FourPointReady int              `json:"four_point_ready"`
}
