package budgets

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/genba-erp/genba-erp/internal/platform/httpx"
)

// Handler manages budget endpoints. Budgets are addressed by project.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers budget routes under /projects/{projectID}/budget.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.get)
	r.Put("/", h.update)
	r.Post("/confirm", h.confirm)
	r.Get("/rollup", h.rollup)
}

func (h *Handler) projectID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid project id")
		return 0, false
	}
	return id, true
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.projectID(w, r)
	if !ok {
		return
	}
	var input CreateBudgetInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input.ProjectID = projectID
	b, err := h.service.CreateBudget(r.Context(), input)
	if err != nil {
		h.respondError(w, "create budget", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, b)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.projectID(w, r)
	if !ok {
		return
	}
	b, err := h.service.GetBudget(r.Context(), projectID)
	if err != nil {
		h.respondError(w, "get budget", err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.projectID(w, r)
	if !ok {
		return
	}
	var input UpdateBudgetInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	b, err := h.service.UpdateBudget(r.Context(), projectID, input)
	if err != nil {
		h.respondError(w, "update budget", err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.projectID(w, r)
	if !ok {
		return
	}
	b, err := h.service.ConfirmBudget(r.Context(), projectID)
	if err != nil {
		h.respondError(w, "confirm budget", err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) rollup(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.projectID(w, r)
	if !ok {
		return
	}
	rollup, err := h.service.RollupProject(r.Context(), projectID)
	if err != nil {
		h.respondError(w, "budget rollup", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rollup)
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
