// Package api routes spec.md §4.8's HTTP surface onto the query
// translation engine: directory resolution, profile lookup, parsing,
// compilation, execution, and response encoding.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"gateway/internal/compiler"
	"gateway/internal/domain"
	"gateway/internal/encode"
	"gateway/internal/executor"
	"gateway/internal/linkbuilder"
	"gateway/internal/metrics"
	"gateway/internal/openapi"
	"gateway/internal/queryplan"
)

// aggregationExceptionsLister is the thin extra surface
// *directory.Directory offers beyond domain.ResourceDirectory, for the
// /api/aggregation-exceptions/ listing endpoint.
type aggregationExceptionsLister interface {
	ListAggregationExceptions(ctx context.Context) ([]string, error)
}

// Handler wires the query-translation engine onto HTTP handlers.
type Handler struct {
	directory  domain.ResourceDirectory
	exceptions aggregationExceptionsLister
	profiles   domain.ProfileStore
	downstream domain.Downstream
	exec       *executor.Controller
	links      *linkbuilder.Builder
	pageCfg    queryplan.PageConfig
	logger     *slog.Logger
}

// New builds a Handler.
func New(
	directory domain.ResourceDirectory,
	exceptions aggregationExceptionsLister,
	profiles domain.ProfileStore,
	downstream domain.Downstream,
	exec *executor.Controller,
	links *linkbuilder.Builder,
	pageCfg queryplan.PageConfig,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		directory:  directory,
		exceptions: exceptions,
		profiles:   profiles,
		downstream: downstream,
		exec:       exec,
		links:      links,
		pageCfg:    pageCfg,
		logger:     logger,
	}
}

// resolved bundles the per-request lookups every data-bearing route
// performs before it can parse a query, per spec.md §5's ordering rule:
// directory resolution strictly precedes the profile fetch.
type resolved struct {
	ref     domain.ResourceRef
	profile domain.Profile
}

func (h *Handler) resolve(ctx context.Context, resourceID string) (resolved, error) {
	ref, err := h.directory.Resolve(ctx, resourceID)
	if err != nil {
		return resolved{}, err
	}
	profile, err := h.profiles.Profile(ctx, ref.DatasetID)
	if err != nil {
		// The store reports the dataset it looked up; the client asked
		// about a resource, so name that in the profile_not_found body.
		var noProfile *domain.ProfileNotFoundError
		if errors.As(err, &noProfile) {
			return resolved{}, domain.ErrProfileNotFound(resourceID)
		}
		return resolved{}, err
	}
	return resolved{ref: ref, profile: profile}, nil
}

// planFor parses and gates a query plan for a resolved resource, per
// spec.md §4.3 and the aggregation_allowed invariant of §3.
func (h *Handler) planFor(res resolved, query url.Values) (domain.QueryPlan, error) {
	plan, err := queryplan.Parse(query, res.ref.ResourceID, res.profile, h.pageCfg)
	if err != nil {
		return domain.QueryPlan{}, err
	}
	if plan.IsAggregated() && !res.ref.AggregationAllowed {
		metrics.AggregationRejectedTotal.Inc()
		return domain.QueryPlan{}, domain.ErrAggregationNotAllowed(res.ref.ResourceID)
	}
	return plan, nil
}

// Resource serves GET /api/resources/{id}/: resource metadata plus
// HATEOAS links.
func (h *Handler) Resource(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "id")
	res, err := h.resolve(r.Context(), resourceID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"resource_id":         res.ref.ResourceID,
		"dataset_id":          res.ref.DatasetID,
		"status":              res.ref.Status,
		"aggregation_allowed": res.ref.AggregationAllowed,
		"created_at":          res.ref.CreatedAt,
		"url":                 res.ref.URL,
		"links": map[string]string{
			"self":    h.links.ResourcePath(resourceID, ""),
			"profile": h.links.ResourcePath(resourceID, "profile"),
			"data":    h.links.ResourcePath(resourceID, "data"),
			"swagger": h.links.ResourcePath(resourceID, "swagger"),
		},
	})
}

// Profile serves GET /api/resources/{id}/profile/.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "id")
	res, err := h.resolve(r.Context(), resourceID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"resource_id": resourceID,
		"columns":     res.profile.Columns,
	})
}

// Data serves GET /api/resources/{id}/data/: the paginated JSON envelope.
func (h *Handler) Data(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "id")
	res, err := h.resolve(r.Context(), resourceID)
	if err != nil {
		writeError(w, err)
		return
	}

	plan, err := h.planFor(res, r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}

	req, err := compiler.Compile(plan, res.ref)
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := h.exec.Execute(r.Context(), req, plan)
	if err != nil {
		writeError(w, err)
		return
	}

	links := domain.ResourceLinks{
		Profile: h.links.ResourcePath(resourceID, "profile"),
		Swagger: h.links.ResourcePath(resourceID, "swagger"),
	}
	links.Next, links.Prev = h.links.NextPrev(resourceID, r.URL.Query(), plan.Page, plan.PageSize, len(page.Rows), page.Total)

	w.Header().Set("Content-Type", "application/json")
	if err := encode.JSON(w, page, links, plan.Page, plan.PageSize); err != nil {
		h.logger.ErrorContext(r.Context(), "encode json page failed", "error", err)
	}
}

// DataJSON serves GET /api/resources/{id}/data/json/: a flat JSON array
// with no pagination envelope, for small consumers, per spec.md §4.8.
func (h *Handler) DataJSON(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "id")
	res, err := h.resolve(r.Context(), resourceID)
	if err != nil {
		writeError(w, err)
		return
	}

	plan, err := h.planFor(res, r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}

	req, err := compiler.Compile(plan, res.ref)
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := h.exec.Execute(r.Context(), req, plan)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := encode.FlatJSON(w, page.Rows); err != nil {
		h.logger.ErrorContext(r.Context(), "encode flat json failed", "error", err)
	}
}

// DataCSV serves GET /api/resources/{id}/data/csv/: a streaming CSV
// encoding that pages internally through the executor, honoring client
// disconnect per spec.md §4.6/§5.
func (h *Handler) DataCSV(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "id")
	res, err := h.resolve(r.Context(), resourceID)
	if err != nil {
		writeError(w, err)
		return
	}

	basePlan, err := h.planFor(res, r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}

	fetch := func(ctx context.Context, pageNum int) ([]map[string]any, bool, error) {
		plan := basePlan
		plan.Page = pageNum
		req, err := compiler.Compile(plan, res.ref)
		if err != nil {
			return nil, false, err
		}
		page, err := h.exec.Execute(ctx, req, plan)
		if err != nil {
			return nil, false, err
		}
		hasMore := len(page.Rows) >= plan.PageSize
		return page.Rows, hasMore, nil
	}

	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)
	if err := encode.CSV(r.Context(), w, basePlan.EffectiveProjection(), fetch); err != nil {
		h.logger.ErrorContext(r.Context(), "csv stream terminated early", "error", err)
	}
}

// Swagger serves GET /api/resources/{id}/swagger/: the per-resource
// OpenAPI document, per spec.md §4.7.
func (h *Handler) Swagger(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "id")
	res, err := h.resolve(r.Context(), resourceID)
	if err != nil {
		writeError(w, err)
		return
	}

	links := domain.ResourceLinks{
		Profile: h.links.ResourcePath(resourceID, "profile"),
		Swagger: h.links.ResourcePath(resourceID, "swagger"),
	}
	doc := openapi.Generate(resourceID, res.profile, links)
	writeJSON(w, http.StatusOK, doc)
}

// AggregationExceptions serves GET /api/aggregation-exceptions/.
func (h *Handler) AggregationExceptions(w http.ResponseWriter, r *http.Request) {
	ids, err := h.exceptions.ListAggregationExceptions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resource_ids": ids})
}

// Health serves GET /health: liveness including downstream reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.downstream.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":     "unhealthy",
			"downstream": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
