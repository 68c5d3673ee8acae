package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/genba-erp/genba-erp/internal/dailyreports"
	"github.com/genba-erp/genba-erp/internal/platform/httpx"
	"github.com/genba-erp/genba-erp/internal/projects"
	"github.com/genba-erp/genba-erp/internal/shared"
)

// Handler serves the automation API. Read-only snapshots; mutations go
// through the regular application surface.
type Handler struct {
	logger   *slog.Logger
	projects *projects.Service
	reports  *dailyreports.Service
	key      string
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, projectsSvc *projects.Service, reportsSvc *dailyreports.Service, key string) *Handler {
	return &Handler{logger: logger, projects: projectsSvc, reports: reportsSvc, key: key}
}

// MountRoutes registers the /api/v1 surface. The key check wraps every
// route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(RequireKey(h.key))
	r.Get("/projects", h.listProjects)
	r.Get("/projects/summary", h.projectSummary)
	r.Get("/projects/{id}", h.getProject)
	r.Get("/daily_reports", h.listReports)
	r.Get("/daily_reports/unconfirmed", h.listUnconfirmed)
	r.Get("/daily_reports/{id}", h.getReport)
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	clientID, _ := strconv.ParseInt(q.Get("client_id"), 10, 64)
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	pag := shared.NewPagination(page, perPage, 0)

	list, total, err := h.projects.ListProjects(r.Context(), projects.ListProjectsRequest{
		Status:   projects.Status(q.Get("status")),
		ClientID: clientID,
		Limit:    pag.PerPage,
		Offset:   pag.Offset(),
	})
	if err != nil {
		h.respondError(w, "api list projects", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"projects":   list,
		"pagination": shared.NewPagination(pag.Page, pag.PerPage, total),
	})
}

func (h *Handler) projectSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.projects.Summarize(r.Context())
	if err != nil {
		h.respondError(w, "api project summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	project, err := h.projects.GetProject(r.Context(), id)
	if err != nil {
		h.respondError(w, "api get project", err)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	projectID, _ := strconv.ParseInt(q.Get("project_id"), 10, 64)
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	pag := shared.NewPagination(page, perPage, 0)

	req := dailyreports.ListReportsRequest{
		ProjectID: projectID,
		Status:    dailyreports.Status(q.Get("status")),
		Limit:     pag.PerPage,
		Offset:    pag.Offset(),
	}
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			req.From = &t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			req.To = &t
		}
	}

	list, total, err := h.reports.ListReports(r.Context(), req)
	if err != nil {
		h.respondError(w, "api list daily reports", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"daily_reports": list,
		"pagination":    shared.NewPagination(pag.Page, pag.PerPage, total),
	})
}

func (h *Handler) listUnconfirmed(w http.ResponseWriter, r *http.Request) {
	list, err := h.reports.ListUnconfirmed(r.Context())
	if err != nil {
		h.respondError(w, "api list unconfirmed reports", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"daily_reports": list})
}

func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	report, err := h.reports.GetReport(r.Context(), id)
	if err != nil {
		h.respondError(w, "api get daily report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if !errors.Is(err, httpx.ErrNotFound) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
