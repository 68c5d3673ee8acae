package paymentterms

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/genba-erp/genba-erp/internal/platform/httpx"
)

// Handler manages payment term endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers payment term routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Put("/", h.setTerm)
	r.Get("/{termableType}/{termableID}", h.getTerm)
	r.Delete("/{termableType}/{termableID}", h.deleteTerm)
}

func (h *Handler) setTerm(w http.ResponseWriter, r *http.Request) {
	var input CreatePaymentTermInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	term, err := h.service.SetTerm(r.Context(), input)
	if err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", vErrs.Error())
			return
		}
		h.logger.Error("set payment term", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, term)
}

func (h *Handler) getTerm(w http.ResponseWriter, r *http.Request) {
	termableType, termableID, ok := parseTermable(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid owner reference")
		return
	}
	term, err := h.service.GetTerm(r.Context(), termableType, termableID)
	if err != nil {
		if errors.Is(err, ErrNoTerm) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "payment term not configured")
			return
		}
		h.logger.Error("get payment term", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, term)
}

func (h *Handler) deleteTerm(w http.ResponseWriter, r *http.Request) {
	termableType, termableID, ok := parseTermable(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid owner reference")
		return
	}
	if err := h.service.RemoveTerm(r.Context(), termableType, termableID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "payment term not configured")
			return
		}
		h.logger.Error("delete payment term", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseTermable(r *http.Request) (TermableType, int64, bool) {
	termableType := TermableType(chi.URLParam(r, "termableType"))
	if !termableType.Valid() {
		return "", 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "termableID"), 10, 64)
	if err != nil || id <= 0 {
		return "", 0, false
	}
	return termableType, id, true
}
