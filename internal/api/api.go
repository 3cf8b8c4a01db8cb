// Package api exposes the HTTP query interface over the monitoring pipeline:
// on-demand fetch, alert queries, and alert mutations.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AmirthaaSK/ecoverse-cyber-threat-monitoring/internal/alert"
	"github.com/AmirthaaSK/ecoverse-cyber-threat-monitoring/internal/archive"
	"github.com/AmirthaaSK/ecoverse-cyber-threat-monitoring/internal/classifier"
	"github.com/AmirthaaSK/ecoverse-cyber-threat-monitoring/internal/poller"
)

// Server holds dependencies for the HTTP handlers.
type Server struct {
	poller       *poller.Poller
	engine       *alert.Engine
	store        *alert.Store
	archive      *archive.DB // nil when the archive is disabled
	oneShotLimit int
	metrics      http.Handler // nil disables the /metrics route
}

// New creates a Server. archive and metrics may be nil.
func New(p *poller.Poller, engine *alert.Engine, store *alert.Store, arch *archive.DB, oneShotLimit int, metrics http.Handler) *Server {
	return &Server{
		poller:       p,
		engine:       engine,
		store:        store,
		archive:      arch,
		oneShotLimit: oneShotLimit,
		metrics:      metrics,
	}
}

// Routes builds the router. Paths mirror the dashboard front-end's contract.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealthz)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Get("/fetch_posts", s.handleFetchPosts)

	r.Route("/api", func(r chi.Router) {
		r.Get("/alerts", s.handleListAlerts)
		r.Get("/alerts/active", s.handleActiveAlerts)
		r.Get("/alerts/stats", s.handleStats)
		r.Post("/alerts/{id}/read", s.handleMarkRead)
		r.Post("/alerts/{id}/dismiss", s.handleDismiss)
		r.Get("/posts", s.handlePosts)
	})

	return r
}

// handleFetchPosts runs one on-demand fetch-classify pass and evaluates the
// result for alerts. Unlike the background poller there is no deduplication,
// so repeated calls re-report currently matching posts.
func (s *Server) handleFetchPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.poller.FetchOnce(r.Context(), s.oneShotLimit)
	if err != nil {
		slog.Error("on-demand fetch failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error": "feed fetch failed",
		})
		return
	}

	newAlerts, err := s.engine.Evaluate(posts)
	if err != nil {
		slog.Error("alert evaluation failed", "error", err)
		// The fetch succeeded; report the posts with no new alerts.
	}

	if posts == nil {
		posts = []classifier.ClassifiedPost{}
	}
	if newAlerts == nil {
		newAlerts = []*alert.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"posts":  posts,
		"alerts": newAlerts,
	})
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	alerts := s.store.Recent(limit)
	if alerts == nil {
		alerts = []*alert.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (s *Server) handleActiveAlerts(w http.ResponseWriter, r *http.Request) {
	active := s.store.Active()
	if active == nil {
		active = []*alert.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": active,
		"count":  len(active),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Stats())
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := alertID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": s.store.MarkRead(id)})
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	id, ok := alertID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": s.store.Dismiss(id)})
}

// handlePosts queries the archive for previously classified posts.
func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "archive disabled"})
		return
	}

	q := r.URL.Query()
	filter := archive.QueryFilter{
		Severity:     q.Get("severity"),
		IncidentType: q.Get("type"),
		Limit:        50,
	}
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	since := 24 * time.Hour
	if raw := q.Get("since"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid since duration"})
			return
		}
		since = d
	}
	filter.Since = time.Now().Add(-since)

	entries, err := s.archive.Query(filter)
	if err != nil {
		slog.Error("archive query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "archive query failed"})
		return
	}
	if entries == nil {
		entries = []*archive.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"posts": entries,
		"count": len(entries),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// alertID parses the {id} route parameter, writing a 400 on failure.
func alertID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid alert id"})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
