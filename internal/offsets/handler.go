package offsets

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/genba-erp/genba-erp/internal/platform/httpx"
	"github.com/genba-erp/genba-erp/internal/shared"
)

// IdempotencyPort guards the confirm endpoint against retried requests.
// Implemented by shared.IdempotencyStore.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Handler manages offset ledger endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	idempotency IdempotencyPort
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, idempotency IdempotencyPort) *Handler {
	return &Handler{logger: logger, service: service, idempotency: idempotency}
}

// MountRoutes registers offset routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Post("/{id}/confirm", h.confirm)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	partnerID, _ := strconv.ParseInt(r.URL.Query().Get("partner_id"), 10, 64)
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pag := shared.NewPagination(page, perPage, 0)
	list, total, err := h.service.ListOffsets(r.Context(), ListOffsetsRequest{
		PartnerID: partnerID,
		Status:    Status(r.URL.Query().Get("status")),
		Limit:     pag.PerPage,
		Offset:    pag.Offset(),
	})
	if err != nil {
		h.respondError(w, "list offsets", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"offsets":    list,
		"pagination": shared.NewPagination(pag.Page, pag.PerPage, total),
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateOffsetInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	o, err := h.service.CreateOffset(r.Context(), input)
	if err != nil {
		h.respondError(w, "create offset", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, o)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	o, err := h.service.GetOffset(r.Context(), id)
	if err != nil {
		h.respondError(w, "get offset", err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var input UpdateOffsetInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	o, err := h.service.UpdateOffset(r.Context(), id, input)
	if err != nil {
		h.respondError(w, "update offset", err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	// Confirmation is terminal; a retried request must not re-run the
	// ledger write.
	key := r.Header.Get("Idempotency-Key")
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, "offsets"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				o, getErr := h.service.GetOffset(r.Context(), id)
				if getErr != nil {
					h.respondError(w, "confirm offset replay", getErr)
					return
				}
				httpx.JSON(w, http.StatusOK, o)
				return
			}
			h.respondError(w, "confirm offset idempotency", err)
			return
		}
	}
	o, err := h.service.ConfirmOffset(r.Context(), id)
	if err != nil {
		// Release the key so the client can retry a failed confirmation
		// instead of replaying the unconfirmed row as success.
		if key != "" && h.idempotency != nil {
			if delErr := h.idempotency.Delete(r.Context(), key); delErr != nil {
				h.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", delErr))
			}
		}
		h.respondError(w, "confirm offset", err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid offset id")
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
