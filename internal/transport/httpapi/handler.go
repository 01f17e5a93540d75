// Package httpapi exposes the registry over HTTP. Handlers are thin glue:
// they decode the request, call the registry or search engine, and map
// errors to status codes via pkg/errors.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/veridex/claimsearch/internal/claim"
	"github.com/veridex/claimsearch/internal/registry"
	"github.com/veridex/claimsearch/internal/search"
	"github.com/veridex/claimsearch/internal/search/cache"
	"github.com/veridex/claimsearch/internal/storage"
	"github.com/veridex/claimsearch/pkg/config"
	apperrors "github.com/veridex/claimsearch/pkg/errors"
	"github.com/veridex/claimsearch/pkg/logger"
	"github.com/veridex/claimsearch/pkg/metrics"
)

// Handler serves the claim registry API.
type Handler struct {
	registry   *registry.Registry
	engine     *search.Engine
	cache      *cache.Cache
	controller *storage.Controller
	metrics    *metrics.Metrics
	cfg        config.SearchConfig
}

// New creates a Handler. cache may be nil when Redis is disabled.
func New(reg *registry.Registry, engine *search.Engine, c *cache.Cache, ctrl *storage.Controller, m *metrics.Metrics, cfg config.SearchConfig) *Handler {
	return &Handler{
		registry:   reg,
		engine:     engine,
		cache:      c,
		controller: ctrl,
		metrics:    m,
		cfg:        cfg,
	}
}

// Routes registers all API routes on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/claims", h.ingest)
	mux.HandleFunc("GET /api/v1/claims", h.list)
	mux.HandleFunc("GET /api/v1/claims/{id}", h.get)
	mux.HandleFunc("DELETE /api/v1/claims/{id}", h.delete)
	mux.HandleFunc("GET /api/v1/claims/{id}/content", h.content)
	mux.HandleFunc("POST /api/v1/search", h.search)
	mux.HandleFunc("GET /api/v1/stats", h.stats)
	mux.HandleFunc("GET /api/v1/fallback", h.fallbackState)
	mux.HandleFunc("GET /api/v1/cache/stats", h.cacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.cacheInvalidate)
	return mux
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	var req claim.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "malformed JSON body"))
		return
	}
	result, err := h.registry.Ingest(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"records": h.registry.List(),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.registry.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) content(w http.ResponseWriter, r *http.Request) {
	content, err := h.registry.Content(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	var req search.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "malformed JSON body"))
		return
	}

	start := time.Now()
	resp, cached, err := h.runSearch(r, req)
	if err != nil {
		h.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		writeError(w, r, err)
		return
	}

	cacheStatus := "miss"
	if cached {
		cacheStatus = "hit"
		h.metrics.CacheHitsTotal.Inc()
	} else if h.cache != nil {
		h.metrics.CacheMissesTotal.Inc()
	}
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())

	resultType := "hit"
	if resp.TotalCount == 0 {
		resultType = "zero_result"
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) runSearch(r *http.Request, req search.Request) (search.Response, bool, error) {
	if h.cache == nil {
		resp, err := h.engine.Search(r.Context(), req)
		return resp, false, err
	}
	return h.cache.GetOrCompute(r.Context(), req, func() (search.Response, error) {
		return h.engine.Search(r.Context(), req)
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.Stats(h.cfg.StatsTopN))
}

func (h *Handler) fallbackState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"state": h.controller.State().String(),
	})
}

func (h *Handler) cacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeError(w, r, apperrors.New(apperrors.ErrInvalidInput, http.StatusNotFound, "search cache is not enabled"))
		return
	}
	writeJSON(w, http.StatusOK, h.cache.CounterStats())
}

func (h *Handler) cacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeError(w, r, apperrors.New(apperrors.ErrInvalidInput, http.StatusNotFound, "search cache is not enabled"))
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}

	body := map[string]any{"error": err.Error()}
	var validationErr *claim.ValidationError
	if errors.As(err, &validationErr) {
		body["error"] = "validation failed"
		body["fields"] = validationErr.Fields
	}
	writeJSON(w, status, body)
}
