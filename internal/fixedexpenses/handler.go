package fixedexpenses

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/genba-erp/genba-erp/internal/platform/httpx"
)

// Handler manages fixed expense schedule endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers schedule routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/generate", h.generate)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListSchedules(r.Context())
	if err != nil {
		h.respondError(w, "list fixed expenses", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"schedules": list})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateScheduleInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sched, err := h.service.CreateSchedule(r.Context(), input)
	if err != nil {
		h.respondError(w, "create fixed expense", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sched)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	sched, err := h.service.GetSchedule(r.Context(), id)
	if err != nil {
		h.respondError(w, "get fixed expense", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sched)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var input UpdateScheduleInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sched, err := h.service.UpdateSchedule(r.Context(), id, input)
	if err != nil {
		h.respondError(w, "update fixed expense", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sched)
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		YearMonth string `json:"year_month"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.GenerateMonth(r.Context(), body.YearMonth)
	if err != nil {
		h.respondError(w, "generate fixed expenses", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid schedule id")
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
