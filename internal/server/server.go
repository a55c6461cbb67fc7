// Package server exposes a studio.Backend over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"orion/internal/fault"
	"orion/internal/notify"
	"orion/internal/studio"
	"orion/internal/templates"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// NotificationLister lists received render notifications.
type NotificationLister interface {
	List() []notify.Notification
	Latest(id string) (notify.Notification, bool)
}

type Server struct {
	backend       studio.Backend
	notifications NotificationLister
	logger        *slog.Logger
	router        chi.Router
}

type Options struct {
	// Notifications, when set, is served at GET /api/notifications. An id
	// query parameter selects the latest notification for one render.
	Notifications NotificationLister
	Logger        *slog.Logger
}

func New(backend studio.Backend, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		backend:       backend,
		notifications: opts.Notifications,
		logger:        logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/compose", s.handleCompose)
		r.Post("/tts", s.handleSpeech)
		r.Post("/renderTemplate", s.handleRenderImage)
		r.Post("/renderVideo", s.handleRenderVideo)
		r.Get("/status", s.handleStatus)
		r.Post("/shotstackWebhook", s.handleWebhook)
		r.Get("/notifications", s.handleNotifications)
	})
	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	var req studio.ComposeRequest
	if !s.decode(w, r, &req) {
		return
	}
	content, err := s.backend.Compose(r.Context(), req)
	if err != nil {
		s.fail(w, r, "Failed to generate content", err)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	var req studio.SpeechRequest
	if !s.decode(w, r, &req) {
		return
	}
	speech, err := s.backend.Speak(r.Context(), req)
	if err != nil {
		s.fail(w, r, "Failed to generate audio", err)
		return
	}
	writeJSON(w, http.StatusOK, speech)
}

func (s *Server) handleRenderImage(w http.ResponseWriter, r *http.Request) {
	var req studio.RenderRequest
	if !s.decode(w, r, &req) {
		return
	}
	job, err := s.backend.RenderImage(r.Context(), req)
	if err != nil {
		s.fail(w, r, "Failed to render template", err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleRenderVideo(w http.ResponseWriter, r *http.Request) {
	var req studio.RenderRequest
	if !s.decode(w, r, &req) {
		return
	}
	job, err := s.backend.RenderVideo(r.Context(), req)
	if err != nil {
		s.fail(w, r, "Failed to render video", err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.backend.RenderStatus(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		s.fail(w, r, "Failed to check render status", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type webhookResponse struct {
	Received bool   `json:"received"`
	Message  string `json:"message"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var n notify.Notification
	if !s.decode(w, r, &n) {
		return
	}
	if err := s.backend.Notify(r.Context(), n); err != nil {
		s.fail(w, r, "Webhook processing failed", err)
		return
	}
	writeJSON(w, http.StatusOK, webhookResponse{Received: true, Message: "Webhook processed successfully"})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("id"); id != "" {
		s.handleNotification(w, id)
		return
	}

	list := []notify.Notification{}
	if s.notifications != nil {
		list = s.notifications.List()
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleNotification(w http.ResponseWriter, id string) {
	if s.notifications != nil {
		if n, ok := s.notifications.Latest(id); ok {
			writeJSON(w, http.StatusOK, n)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, errorBody{Error: "Notification not found"})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.logger.Debug("Invalid request body", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body", Message: err.Error()})
		return false
	}
	return true
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// fail maps err onto a status code. Rejected input is a 400 carrying the
// validation message; anything else is a 500 with summary as the error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, summary string, err error) {
	var validation *fault.ValidationError
	if errors.As(err, &validation) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: validation.Message})
		return
	}
	var notFound *templates.NotFoundError
	if errors.As(err, &notFound) {
		body := errorBody{Error: fmt.Sprintf("Template %s.json not found", notFound.Format)}
		if len(notFound.Available) > 0 {
			body.Message = "Available formats: " + strings.Join(notFound.Available, ", ")
		}
		writeJSON(w, http.StatusBadRequest, body)
		return
	}

	s.logger.Error(summary, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: summary, Message: upstreamMessage(err)})
}

// upstreamMessage prefers the provider's own message over the wrapped chain.
func upstreamMessage(err error) string {
	var upstream *fault.UpstreamError
	if errors.As(err, &upstream) && upstream.Message != "" {
		return upstream.Message
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
