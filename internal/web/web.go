package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/time/rate"

	"github.com/Joseda-hg/lazygantt/internal/db"
	"github.com/Joseda-hg/lazygantt/internal/gantt"
	"github.com/Joseda-hg/lazygantt/internal/model"
	"github.com/Joseda-hg/lazygantt/internal/timeline"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.tmpl"))
	ganttTemplate = template.Must(template.New("gantt.tmpl").Funcs(template.FuncMap{
		"indent": func(level int) int { return level * 20 },
		"date":   func(t time.Time) string { return t.Format(time.DateOnly) },
	}).ParseFS(templateFS, "templates/gantt.tmpl"))
)

type Server struct {
	store   *db.Store
	charts  *gantt.Cache
	limiter *rate.Limiter
	log     lgr.L

	view           timeline.ViewType
	containerWidth float64
}

type Option func(*Server)

func WithLogger(l lgr.L) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRateLimit caps mutating requests at perSecond with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		if perSecond > 0 && burst > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

func WithCache(cache *gantt.Cache) Option {
	return func(s *Server) {
		if cache != nil {
			s.charts = cache
		}
	}
}

// WithDefaults sets the view and container width used when a chart request
// does not name them.
func WithDefaults(view timeline.ViewType, containerWidth float64) Option {
	return func(s *Server) {
		if view != "" {
			s.view = view
		}
		s.containerWidth = containerWidth
	}
}

func NewServer(store *db.Store, opts ...Option) (*Server, error) {
	s := &Server{
		store:   store,
		limiter: rate.NewLimiter(10, 20),
		log:     lgr.NoOp,
		view:    timeline.ViewMonth,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.charts == nil {
		charts, err := gantt.NewCache(gantt.DefaultCacheSize)
		if err != nil {
			return nil, err
		}
		s.charts = charts
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.indexHandler)
	mux.HandleFunc("GET /projects/{id}", s.projectPageHandler)

	mux.HandleFunc("GET /api/projects", s.listProjectsHandler)
	mux.HandleFunc("POST /api/projects", s.createProjectHandler)
	mux.HandleFunc("GET /api/projects/{id}/gantt", s.ganttHandler)
	mux.HandleFunc("GET /api/projects/{id}/critical-path", s.criticalPathHandler)
	mux.HandleFunc("GET /api/projects/{id}/history", s.projectHistoryHandler)
	mux.HandleFunc("GET /api/projects/{id}/tasks", s.listTasksHandler)
	mux.HandleFunc("POST /api/projects/{id}/tasks", s.createTaskHandler)
	mux.HandleFunc("GET /api/tasks/{id}", s.getTaskHandler)
	mux.HandleFunc("PATCH /api/tasks/{id}", s.updateTaskHandler)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.deleteTaskHandler)
	mux.HandleFunc("POST /api/tasks/{id}/parent", s.moveTaskHandler)
	mux.HandleFunc("GET /api/tasks/{id}/predecessors", s.predecessorsHandler)
	mux.HandleFunc("POST /api/dependencies", s.addDependencyHandler)
	mux.HandleFunc("DELETE /api/dependencies/{id}", s.removeDependencyHandler)

	return s.logRequests(s.limitWrites(mux))
}

// limitWrites rejects mutating requests beyond the configured rate.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
			if !s.limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, errors.New("too many requests"))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Logf("[DEBUG] %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// chart returns the chart of a project, served from the cache while the
// project revision is unchanged.
func (s *Server) chart(ctx context.Context, projectID int64, params gantt.Params) (*gantt.Chart, error) {
	snap, err := s.store.Snapshot(ctx, projectID)
	if err != nil {
		return nil, err
	}
	planner := s.store.Planner
	key := gantt.KeyFor(snap.Project, params, planner.Now())
	return s.charts.Chart(key, func() (*gantt.Chart, error) {
		s.log.Logf("[DEBUG] building chart of project %d at revision %s", projectID, snap.Project.Revision)
		return planner.BuildChart(snap.Project, snap.Tasks, snap.Dependencies, params)
	})
}

// chartParams reads view, width, expanded, expand_all and baseline from the
// query string. Without an expanded list every subtree is open.
func (s *Server) chartParams(r *http.Request) (gantt.Params, error) {
	query := r.URL.Query()
	params := gantt.Params{View: s.view, ContainerWidth: s.containerWidth, ExpandAll: true}

	if value := strings.TrimSpace(query.Get("view")); value != "" {
		view, err := timeline.ParseViewType(value)
		if err != nil {
			return gantt.Params{}, badRequest(err)
		}
		params.View = view
	}
	if value := strings.TrimSpace(query.Get("width")); value != "" {
		width, err := strconv.ParseFloat(value, 64)
		if err != nil || width < 0 {
			return gantt.Params{}, badRequest(fmt.Errorf("invalid width %q", value))
		}
		params.ContainerWidth = width
	}
	if query.Has("expanded") {
		params.ExpandAll = false
		params.Expanded = map[int64]bool{}
		for _, part := range strings.Split(query.Get("expanded"), ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return gantt.Params{}, badRequest(fmt.Errorf("invalid expanded id %q", part))
			}
			params.Expanded[id] = true
		}
	}
	if value := strings.TrimSpace(query.Get("baseline")); value != "" {
		baseline, err := time.Parse(time.DateOnly, value)
		if err != nil {
			return gantt.Params{}, badRequest(fmt.Errorf("invalid baseline %q", value))
		}
		params.Baseline = baseline
	}
	return params, nil
}

func pathID(r *http.Request) (int64, error) {
	value := r.PathValue("id")
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: %w", value, model.ErrNotFound)
	}
	return id, nil
}

type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &requestError{err: err}
}

type errorBody struct {
	Error string  `json:"error"`
	Kind  string  `json:"kind,omitempty"`
	IDs   []int64 `json:"ids,omitempty"`
}

// statusFor maps domain error kinds to HTTP status codes.
func statusFor(err error) int {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return http.StatusBadRequest
	}
	switch model.ErrorKind(err) {
	case "not_found":
		return http.StatusNotFound
	case "invalid_input":
		return http.StatusBadRequest
	case "cycle_detected", "duplicate_dependency", "task_in_use":
		return http.StatusConflict
	case "self_dependency", "invalid_hierarchy", "inconsistent_date", "dangling_reference", "scope_violation":
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Logf("[ERROR] %v", err)
	} else {
		s.log.Logf("[DEBUG] request rejected: %v", err)
	}
	writeError(w, status, err)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: model.ErrorKind(err), IDs: model.ErrorIDs(err)})
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return badRequest(fmt.Errorf("decode body: %w", err))
	}
	return nil
}
