package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimebot/internal/domain"
	apimw "github.com/hamed0406/uptimebot/internal/httpapi/middleware"
	"github.com/hamed0406/uptimebot/internal/readiness"
)

type StatusSource interface {
	Snapshot() domain.ResourceStatus
}

type SubscriberAdmin interface {
	List() []domain.Subscriber
	Remove(ctx context.Context, externalID int64) error
}

// Server is the ops surface of the bot. It only reads shared state, except
// DELETE /api/subscribers/{id} which goes through the registry.
type Server struct {
	Logger      *zap.Logger
	Status      StatusSource
	Gate        *readiness.Gate
	Subscribers SubscriberAdmin
}

func NewServer(l *zap.Logger, status StatusSource, gate *readiness.Gate, subs SubscriberAdmin) *Server {
	return &Server{Logger: l, Status: status, Gate: gate, Subscribers: subs}
}

// Router wires routes. An empty origins list allows any origin.
func (s *Server) Router(keys apimw.Keys, origins []string, pubRPM, pubBurst, admRPM, admBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if len(origins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodDelete},
			AllowedHeaders: []string{"Authorization", "X-API-Key"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", s.handleReady)

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(pubRPM, pubBurst))
		r.Use(apimw.RequireAny(keys))
		r.Get("/api/status", s.handleStatus)
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(admRPM, admBurst))
		r.Use(apimw.RequireAdmin(keys))
		r.Get("/api/subscribers", s.handleListSubscribers)
		r.Delete("/api/subscribers/{id}", s.handleDeleteSubscriber)
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	snap := s.Gate.Snapshot()
	code := http.StatusOK
	if !snap.Open {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, snap)
}

type statusView struct {
	domain.ResourceStatus
	Up     bool   `json:"up"`
	Report string `json:"report"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Status.Snapshot()
	writeJSON(w, http.StatusOK, statusView{ResourceStatus: st, Up: st.IsUp(), Report: st.Report()})
}

func (s *Server) handleListSubscribers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Subscribers.List())
}

func (s *Server) handleDeleteSubscriber(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad id"})
		return
	}
	switch err := s.Subscribers.Remove(r.Context(), id); {
	case errors.Is(err, domain.ErrSubscriberNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case err != nil:
		s.Logger.Error("subscriber_delete_error", zap.Int64("external_id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "delete failed"})
	default:
		s.Logger.Info("subscriber_deleted", zap.Int64("external_id", id))
		w.WriteHeader(http.StatusNoContent)
	}
}
