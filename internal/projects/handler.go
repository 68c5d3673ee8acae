package projects

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/genba-erp/genba-erp/internal/platform/httpx"
	"github.com/genba-erp/genba-erp/internal/shared"
)

// Handler manages project endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers project routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{projectID}", h.get)
	r.Delete("/{projectID}", h.delete)
	r.Post("/{projectID}/status", h.advanceStatus)
	r.Patch("/{projectID}/gates", h.updateGates)
	r.Get("/{projectID}/estimates", h.listEstimates)
	r.Post("/{projectID}/estimates", h.createEstimate)
	r.Post("/estimates/{estimateID}/submit", h.submitEstimate)
	r.Post("/estimates/{estimateID}/accept", h.acceptEstimate)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	clientID, _ := strconv.ParseInt(q.Get("client_id"), 10, 64)
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	pag := shared.NewPagination(page, perPage, 0)
	list, total, err := h.service.ListProjects(r.Context(), ListProjectsRequest{
		Status:   Status(q.Get("status")),
		ClientID: clientID,
		Limit:    pag.PerPage,
		Offset:   pag.Offset(),
	})
	if err != nil {
		h.respondError(w, "list projects", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"projects":   list,
		"pagination": shared.NewPagination(pag.Page, pag.PerPage, total),
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateProjectInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	project, err := h.service.CreateProject(r.Context(), input)
	if err != nil {
		h.respondError(w, "create project", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, project)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "projectID")
	if !ok {
		return
	}
	project, err := h.service.GetProject(r.Context(), id)
	if err != nil {
		h.respondError(w, "get project", err)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "projectID")
	if !ok {
		return
	}
	if err := h.service.DeleteProject(r.Context(), id); err != nil {
		h.respondError(w, "delete project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) advanceStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "projectID")
	if !ok {
		return
	}
	var body struct {
		Status Status `json:"status"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.RespondError(w, err)
		return
	}
	project, err := h.service.AdvanceStatus(r.Context(), id, body.Status)
	if err != nil {
		h.respondError(w, "advance project status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

func (h *Handler) updateGates(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "projectID")
	if !ok {
		return
	}
	var input UpdateGatesInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	project, err := h.service.UpdateGates(r.Context(), id, input)
	if err != nil {
		h.respondError(w, "update project gates", err)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

func (h *Handler) listEstimates(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "projectID")
	if !ok {
		return
	}
	list, err := h.service.ListEstimates(r.Context(), id)
	if err != nil {
		h.respondError(w, "list estimates", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"estimates": list})
}

func (h *Handler) createEstimate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "projectID")
	if !ok {
		return
	}
	var input CreateEstimateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input.ProjectID = id
	est, err := h.service.CreateEstimate(r.Context(), input)
	if err != nil {
		h.respondError(w, "create estimate", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, est)
}

func (h *Handler) submitEstimate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "estimateID")
	if !ok {
		return
	}
	if err := h.service.SubmitEstimate(r.Context(), id); err != nil {
		h.respondError(w, "submit estimate", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(EstimateSubmitted)})
}

func (h *Handler) acceptEstimate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "estimateID")
	if !ok {
		return
	}
	if err := h.service.AcceptEstimate(r.Context(), id); err != nil {
		h.respondError(w, "accept estimate", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(EstimateAccepted)})
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
