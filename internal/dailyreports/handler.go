package dailyreports

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/genba-erp/genba-erp/internal/platform/httpx"
	"github.com/genba-erp/genba-erp/internal/shared"
)

// Handler manages daily report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers daily report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Post("/{id}/confirm", h.confirm)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	projectID, _ := strconv.ParseInt(r.URL.Query().Get("project_id"), 10, 64)
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pag := shared.NewPagination(page, perPage, 0)
	req := ListReportsRequest{
		ProjectID: projectID,
		Status:    Status(r.URL.Query().Get("status")),
		Limit:     pag.PerPage,
		Offset:    pag.Offset(),
	}
	if from, err := time.Parse("2006-01-02", r.URL.Query().Get("from")); err == nil {
		req.From = &from
	}
	if to, err := time.Parse("2006-01-02", r.URL.Query().Get("to")); err == nil {
		req.To = &to
	}
	list, total, err := h.service.ListReports(r.Context(), req)
	if err != nil {
		h.respondError(w, "list daily reports", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"daily_reports": list,
		"pagination":    shared.NewPagination(pag.Page, pag.PerPage, total),
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateReportInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.CreateReport(r.Context(), input)
	if err != nil {
		h.respondError(w, "create daily report", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, report)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	report, err := h.service.GetReport(r.Context(), id)
	if err != nil {
		h.respondError(w, "get daily report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var input UpdateReportInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.UpdateReport(r.Context(), id, input)
	if err != nil {
		h.respondError(w, "update daily report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	report, err := h.service.ConfirmReport(r.Context(), id)
	if err != nil {
		h.respondError(w, "confirm daily report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid report id")
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
