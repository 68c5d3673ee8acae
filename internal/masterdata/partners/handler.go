package partners

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/genba-erp/genba-erp/internal/platform/httpx"
)

// Handler manages partner endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers partner routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	partners, err := h.service.ListPartners(r.Context(), ListPartnersRequest{
		Query:      r.URL.Query().Get("q"),
		ActiveOnly: r.URL.Query().Get("active") == "1",
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		h.logger.Error("list partners", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"partners": partners})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreatePartnerInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	partner, err := h.service.CreatePartner(r.Context(), input)
	if err != nil {
		respondServiceError(h.logger, w, "create partner", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, partner)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid partner id")
		return
	}
	partner, err := h.service.GetPartner(r.Context(), id)
	if err != nil {
		respondServiceError(h.logger, w, "get partner", err)
		return
	}
	httpx.JSON(w, http.StatusOK, partner)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid partner id")
		return
	}
	var input UpdatePartnerInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	partner, err := h.service.UpdatePartner(r.Context(), id, input)
	if err != nil {
		respondServiceError(h.logger, w, "update partner", err)
		return
	}
	httpx.JSON(w, http.StatusOK, partner)
}

func respondServiceError(logger *slog.Logger, w http.ResponseWriter, op string, err error) {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", vErrs.Error())
		return
	}
	if !errors.Is(err, httpx.ErrNotFound) && !errors.Is(err, httpx.ErrDuplicate) {
		logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
