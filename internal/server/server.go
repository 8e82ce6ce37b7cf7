package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ogulcanaydogan/aussiebb-go/internal/observability"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/account"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/history"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/model"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/tracker"
)

const requestTimeout = 30 * time.Second

// Server exposes account usage over HTTP.
type Server struct {
	account *account.Account
	tracker *tracker.UsageTracker
	metrics *observability.Metrics
	r       chi.Router
	logger  *slog.Logger
}

// NewServer creates an API server. The tracker and metrics are optional; when
// a tracker is set, history lookups are archived and the archive is served.
func NewServer(acct *account.Account, t *tracker.UsageTracker, metrics *observability.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		account: acct,
		tracker: t,
		metrics: metrics,
		r:       chi.NewRouter(),
		logger:  logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.Use(middleware.RequestID)
	s.r.Use(s.logRequests)
	s.r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	s.r.Route("/api/v1/services", func(r chi.Router) {
		r.Get("/", s.handleServices)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/usage", s.handleOverview)
			r.Get("/history/{key}", s.handleHistory)
			if s.tracker != nil {
				r.Get("/archive", s.handleArchive)
			}
		})
	})
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	services, err := s.account.Services(ctx)
	if err != nil {
		s.upstreamError(w, "list services", err)
		return
	}

	out := make([]model.Service, 0, len(services))
	for _, svc := range services {
		out = append(out, svc.Info())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	svc, ok := s.service(ctx, w, r)
	if !ok {
		return
	}

	ov, err := svc.Overview(ctx)
	if err != nil {
		s.upstreamError(w, "usage overview", err)
		return
	}
	if s.metrics != nil {
		s.metrics.SetOverview(svc.ID(), ov)
	}
	writeJSON(w, http.StatusOK, ov)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	key := chi.URLParam(r, "key")
	if _, err := history.ParseQuery(key); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	svc, ok := s.service(ctx, w, r)
	if !ok {
		return
	}

	days, err := svc.Usage(ctx, key)
	if err != nil {
		s.upstreamError(w, "usage history", err)
		return
	}

	if s.tracker != nil {
		if err := s.tracker.Archive(ctx, svc.ID(), days); err != nil {
			s.logger.Error("archive usage", "service_id", svc.ID(), "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	if days == nil {
		days = []model.UsageDay{}
	}
	writeJSON(w, http.StatusOK, days)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	filter := model.ArchiveFilter{ServiceID: model.ServiceID(chi.URLParam(r, "id"))}
	var err error
	if filter.From, err = parseDateParam(r, "from"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.To, err = parseDateParam(r, "to"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := s.tracker.Report(ctx, filter)
	if err != nil {
		s.logger.Error("aggregate usage", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	days, err := s.tracker.Query(ctx, filter)
	if err != nil {
		s.logger.Error("query usage", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if days == nil {
		days = []model.UsageDay{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"summary": summary,
		"days":    days,
	})
}

// service resolves the {id} path value, writing a 404 or 502 on failure.
func (s *Server) service(ctx context.Context, w http.ResponseWriter, r *http.Request) (*account.Service, bool) {
	svc, err := s.account.Service(ctx, model.ServiceID(chi.URLParam(r, "id")))
	if errors.Is(err, account.ErrServiceNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	if err != nil {
		s.upstreamError(w, "load customer", err)
		return nil, false
	}
	return svc, true
}

func (s *Server) upstreamError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op, "error", err)
	writeError(w, http.StatusBadGateway, fmt.Sprintf("%s: upstream request failed", op))
}

func parseDateParam(r *http.Request, name string) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(model.DateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: want YYYY-MM-DD", name, v)
	}
	return t, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
