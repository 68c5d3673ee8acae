package paidleave

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/genba-erp/genba-erp/internal/platform/httpx"
)

// Handler manages paid leave endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers paid leave routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/grants", h.createGrant)
	r.Post("/grants/statutory", h.grantStatutory)
	r.Get("/employees/{employeeID}/grants", h.listGrants)
	r.Get("/employees/{employeeID}/balance", h.balance)
	r.Get("/employees/{employeeID}/fiscal-years", h.fiscalYears)
	r.Get("/employees/{employeeID}/requests", h.listRequests)
	r.Post("/requests", h.createRequest)
	r.Post("/requests/{id}/approve", h.approve)
	r.Post("/requests/{id}/reject", h.reject)
	r.Post("/requests/{id}/cancel", h.cancel)
}

func (h *Handler) createGrant(w http.ResponseWriter, r *http.Request) {
	var input CreateGrantInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	grant, err := h.service.CreateGrant(r.Context(), input)
	if err != nil {
		h.respondError(w, "create leave grant", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, grant)
}

func (h *Handler) grantStatutory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EmployeeID int64  `json:"employee_id"`
		AsOf       string `json:"as_of"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.RespondError(w, err)
		return
	}
	asOf, err := time.Parse("2006-01-02", body.AsOf)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "as_of must be YYYY-MM-DD")
		return
	}
	grant, err := h.service.GrantStatutory(r.Context(), body.EmployeeID, asOf)
	if err != nil {
		h.respondError(w, "statutory leave grant", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, grant)
}

func (h *Handler) listGrants(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.pathID(w, r, "employeeID")
	if !ok {
		return
	}
	grants, err := h.service.ListGrants(r.Context(), employeeID)
	if err != nil {
		h.respondError(w, "list leave grants", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"grants": grants})
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.pathID(w, r, "employeeID")
	if !ok {
		return
	}
	balance, err := h.service.GetBalance(r.Context(), employeeID)
	if err != nil {
		h.respondError(w, "leave balance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, balance)
}

func (h *Handler) fiscalYears(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.pathID(w, r, "employeeID")
	if !ok {
		return
	}
	groups, err := h.service.GroupByFiscalYear(r.Context(), employeeID)
	if err != nil {
		h.respondError(w, "leave fiscal years", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"fiscal_years": groups})
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.pathID(w, r, "employeeID")
	if !ok {
		return
	}
	requests, err := h.service.ListRequests(r.Context(), employeeID, RequestStatus(r.URL.Query().Get("status")))
	if err != nil {
		h.respondError(w, "list leave requests", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"requests": requests})
}

func (h *Handler) createRequest(w http.ResponseWriter, r *http.Request) {
	var input CreateRequestInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	req, err := h.service.CreateRequest(r.Context(), input)
	if err != nil {
		h.respondError(w, "create leave request", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, req)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	req, err := h.service.ApproveRequest(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Insufficient Balance", "no grant can cover the requested days")
			return
		}
		h.respondError(w, "approve leave request", err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	req, err := h.service.RejectRequest(r.Context(), id)
	if err != nil {
		h.respondError(w, "reject leave request", err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	req, err := h.service.CancelRequest(r.Context(), id)
	if err != nil {
		h.respondError(w, "cancel leave request", err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid "+name)
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", vErrs.Error())
		return
	}
	if !errors.Is(err, httpx.ErrNotFound) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
