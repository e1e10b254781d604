package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/notifhub/notifhub/pkg/logger"
	"github.com/notifhub/notifhub/pkg/notification"
	"github.com/notifhub/notifhub/pkg/session"
)

// Config configures the UI-facing surface.
type Config struct {
	EnableDebug bool `env:"NOTIFICATIONS_DEBUG_API" envDefault:"false"` // EnableDebug mounts the synthetic-notification side channel.
}

// Handler exposes one session to the UI layer as JSON endpoints.
type Handler struct {
	session *session.Session
	logger  *slog.Logger
	debug   bool
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		if log != nil {
			h.logger = log
		}
	}
}

// WithDebug mounts the debug side channel for synthetic notifications.
func WithDebug(enabled bool) Option {
	return func(h *Handler) {
		h.debug = enabled
	}
}

// New creates a handler over a session.
func New(s *session.Session, opts ...Option) *Handler {
	h := &Handler{
		session: s,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router mounts all endpoints on a chi router.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/load-more", h.loadMore)
		r.Post("/refresh", h.refresh)
		r.Patch("/{id}/read", h.markRead)
		r.Patch("/read/all", h.markAllRead)
		r.Delete("/{id}", h.delete)
		r.Get("/unread-count", h.unreadCount)
		r.Get("/unread-by-route", h.unreadByRoute)
		r.Get("/unread-by-company", h.unreadByCompany)
	})
	r.Get("/connection", h.connection)

	if h.debug {
		r.Route("/debug/synthetic", func(r chi.Router) {
			r.Post("/", h.injectSynthetic)
			r.Delete("/", h.clearSynthetic)
		})
	}

	return r
}

type listResponse struct {
	Notifications []notification.Notification `json:"notifications"`
	UnreadCount   int                         `json:"unreadCount"`
	Connected     bool                        `json:"connected"`
	Error         string                      `json:"error,omitempty"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, listResponse{
		Notifications: h.session.Notifications(),
		UnreadCount:   h.session.UnreadCount(),
		Connected:     h.session.IsConnected(),
		Error:         h.session.Store().LastError(),
	})
}

func (h *Handler) loadMore(w http.ResponseWriter, r *http.Request) {
	if err := h.session.LoadMore(r.Context()); err != nil {
		h.writeOpFailure(w, r, "load more failed", err)
		return
	}
	h.list(w, r)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Refresh(r.Context()); err != nil {
		h.writeOpFailure(w, r, "refresh failed", err)
		return
	}
	h.list(w, r)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	// Soft failure: optimistic local state is already applied, so the UI
	// still gets the fresh snapshot alongside the error message.
	if err := h.session.MarkAsRead(r.Context(), id); err != nil {
		h.logger.LogAttrs(r.Context(), slog.LevelWarn, "mark-read via API failed",
			logger.NotificationID(id),
			logger.Error(err),
		)
	}
	h.list(w, r)
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.session.MarkAllAsRead(r.Context()); err != nil {
		h.logger.LogAttrs(r.Context(), slog.LevelWarn, "mark-all-read via API failed",
			logger.Error(err),
		)
	}
	h.list(w, r)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.session.DeleteNotification(r.Context(), id); err != nil {
		h.writeOpFailure(w, r, "delete failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]int{"count": h.session.UnreadCount()})
}

func (h *Handler) unreadByRoute(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"countByRoute": h.session.UnreadByRoute(),
	})
}

func (h *Handler) unreadByCompany(w http.ResponseWriter, r *http.Request) {
	counts, err := h.session.UnreadByCompany(r.Context())
	if err != nil {
		if errors.Is(err, session.ErrNoCompanyCounts) {
			h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "per-company counts not available"})
			return
		}
		h.logger.LogAttrs(r.Context(), slog.LevelError, "unread-by-company failed", logger.Error(err))
		h.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to fetch per-company counts"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"countByCompany": counts})
}

func (h *Handler) connection(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"connected": h.session.IsConnected(),
		"state":     h.session.Store().ConnectionState(),
	})
}

func (h *Handler) injectSynthetic(w http.ResponseWriter, r *http.Request) {
	var n notification.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid notification payload"})
		return
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	h.session.Aggregator().InjectSynthetic(n)
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"id":           n.ID,
		"countByRoute": h.session.UnreadByRoute(),
	})
}

func (h *Handler) clearSynthetic(w http.ResponseWriter, r *http.Request) {
	h.session.Aggregator().ClearSynthetic()
	w.WriteHeader(http.StatusNoContent)
}

// writeOpFailure keeps the UI usable: a failed operation yields the last
// known good state plus a transient message, never a bare failure page.
func (h *Handler) writeOpFailure(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.LogAttrs(r.Context(), slog.LevelError, msg, logger.Error(err))
	h.writeJSON(w, http.StatusOK, listResponse{
		Notifications: h.session.Notifications(),
		UnreadCount:   h.session.UnreadCount(),
		Connected:     h.session.IsConnected(),
		Error:         h.session.Store().LastError(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.LogAttrs(context.Background(), slog.LevelError, "encode response failed", logger.Error(err))
	}
}
