package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/genba-erp/genba-erp/internal/api"
	"github.com/genba-erp/genba-erp/internal/auth"
	"github.com/genba-erp/genba-erp/internal/budgets"
	"github.com/genba-erp/genba-erp/internal/cashflow"
	"github.com/genba-erp/genba-erp/internal/dailyreports"
	"github.com/genba-erp/genba-erp/internal/fixedexpenses"
	"github.com/genba-erp/genba-erp/internal/invoices"
	"github.com/genba-erp/genba-erp/internal/masterdata/clients"
	"github.com/genba-erp/genba-erp/internal/masterdata/employees"
	"github.com/genba-erp/genba-erp/internal/masterdata/partners"
	"github.com/genba-erp/genba-erp/internal/masterdata/paymentterms"
	"github.com/genba-erp/genba-erp/internal/observability"
	"github.com/genba-erp/genba-erp/internal/offsets"
	"github.com/genba-erp/genba-erp/internal/paidleave"
	"github.com/genba-erp/genba-erp/internal/projects"
	"github.com/genba-erp/genba-erp/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	Metrics        *observability.Metrics

	AuthHandler         *auth.Handler
	ProjectsHandler     *projects.Handler
	BudgetsHandler      *budgets.Handler
	DailyReportsHandler *dailyreports.Handler
	OffsetsHandler      *offsets.Handler
	CashflowHandler     *cashflow.Handler
	FixedExpenseHandler *fixedexpenses.Handler
	PaidLeaveHandler    *paidleave.Handler
	InvoicesHandler     *invoices.Handler
	ClientsHandler      *clients.Handler
	PartnersHandler     *partners.Handler
	EmployeesHandler    *employees.Handler
	PaymentTermsHandler *paymentterms.Handler
	APIHandler          *api.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/projects", func(r chi.Router) {
		params.ProjectsHandler.MountRoutes(r)
		r.Route("/{projectID}/budget", params.BudgetsHandler.MountRoutes)
	})
	r.Route("/daily_reports", params.DailyReportsHandler.MountRoutes)
	r.Route("/offsets", params.OffsetsHandler.MountRoutes)
	r.Route("/cashflow", params.CashflowHandler.MountRoutes)
	r.Route("/fixed_expenses", params.FixedExpenseHandler.MountRoutes)
	r.Route("/leave", params.PaidLeaveHandler.MountRoutes)
	r.Route("/invoices", params.InvoicesHandler.MountRoutes)

	r.Route("/clients", params.ClientsHandler.MountRoutes)
	r.Route("/partners", params.PartnersHandler.MountRoutes)
	r.Route("/employees", params.EmployeesHandler.MountRoutes)
	r.Route("/payment_terms", params.PaymentTermsHandler.MountRoutes)

	r.Route("/api/v1", params.APIHandler.MountRoutes)

	return r
}
