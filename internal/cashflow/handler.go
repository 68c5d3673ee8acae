package cashflow

import (
	"context"
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

// Handler manages cash-flow endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers cash-flow routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/forecast", h.forecast)
	r.Get("/{id}", h.get)
	r.Post("/{id}/confirm", h.confirm)
	r.Post("/{id}/complete", h.complete)
	r.Post("/{id}/cancel", h.cancel)
	r.Post("/{id}/override", h.override)
	r.Post("/{id}/adjust", h.adjust)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pag := shared.NewPagination(page, perPage, 0)
	req := ListEntriesRequest{
		SourceType: SourceType(r.URL.Query().Get("source_type")),
		Direction:  Direction(r.URL.Query().Get("direction")),
		Status:     Status(r.URL.Query().Get("status")),
		Limit:      pag.PerPage,
		Offset:     pag.Offset(),
	}
	if from, err := time.Parse("2006-01-02", r.URL.Query().Get("from")); err == nil {
		req.From = &from
	}
	if to, err := time.Parse("2006-01-02", r.URL.Query().Get("to")); err == nil {
		req.To = &to
	}
	list, total, err := h.service.ListEntries(r.Context(), req)
	if err != nil {
		h.respondError(w, "list cashflow entries", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"entries":    list,
		"pagination": shared.NewPagination(pag.Page, pag.PerPage, total),
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateEntryInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.CreateEntry(r.Context(), input)
	if err != nil {
		h.respondError(w, "create cashflow entry", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	entry, err := h.service.GetEntry(r.Context(), id)
	if err != nil {
		h.respondError(w, "get cashflow entry", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.service.ConfirmEntry, "confirm cashflow entry")
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.service.CancelEntry, "cancel cashflow entry")
}

func (h *Handler) simpleTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64) (*Entry, error), op string) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	entry, err := fn(r.Context(), id)
	if err != nil {
		h.respondError(w, op, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var input CompleteInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.CompleteEntry(r.Context(), id, input)
	if err != nil {
		h.respondError(w, "complete cashflow entry", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) override(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var input OverrideInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.OverrideEntry(r.Context(), id, input)
	if err != nil {
		h.respondError(w, "override cashflow entry", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var input AdjustInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.AdjustEntry(r.Context(), id, input)
	if err != nil {
		h.respondError(w, "adjust cashflow entry", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) forecast(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		from = time.Now().UTC().Truncate(24 * time.Hour)
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		to = from.AddDate(0, 1, 0)
	}
	forecast, err := h.service.ForecastRange(r.Context(), from, to)
	if err != nil {
		h.respondError(w, "cashflow forecast", err)
		return
	}
	httpx.JSON(w, http.StatusOK, forecast)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
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
