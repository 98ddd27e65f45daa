package render

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// HeartbeatInterval is how often idle event streams receive a comment.
const HeartbeatInterval = 30 * time.Second

// Server is a render target served over HTTP. Pages link GET /themes.css and
// listen on GET /events for reload notifications.
type Server struct {
	*Buffer

	logger     *slog.Logger
	router     *chi.Mux
	httpServer *http.Server
	heartbeat  time.Duration

	mu          sync.Mutex
	generation  uint64
	subscribers map[chan uint64]struct{}
}

// NewServer creates a Server and its routes.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		Buffer:      NewBuffer(),
		logger:      logger,
		heartbeat:   HeartbeatInterval,
		subscribers: make(map[chan uint64]struct{}),
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Get("/themes.css", s.handleStylesheet)
	router.Get("/events", s.handleEvents)
	router.Post("/reload", s.handleReload)
	s.router = router

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Reload clears the stylesheets, runs the reload hook and tells every
// connected page to refetch.
func (s *Server) Reload(ctx context.Context) error {
	err := s.Buffer.Reload(ctx)

	s.mu.Lock()
	s.generation++
	gen := s.generation
	for ch := range s.subscribers {
		select {
		case ch <- gen:
		default:
			// Subscriber already has a pending reload
		}
	}
	s.mu.Unlock()

	return err
}

func (s *Server) subscribe() chan uint64 {
	ch := make(chan uint64, 1)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Server) unsubscribe(ch chan uint64) {
	s.mu.Lock()
	delete(s.subscribers, ch)
	s.mu.Unlock()
}

// Generation returns the number of reloads served so far.
func (s *Server) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *Server) handleStylesheet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Theme-Generation", strconv.FormatUint(s.Generation(), 10))
	if _, err := fmt.Fprint(w, s.String()); err != nil {
		s.logger.Debug("writing stylesheet failed", "error", err)
	}
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.Reload(r.Context()); err != nil {
		s.logger.Error("reload failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sub := s.subscribe()
	defer s.unsubscribe(sub)

	rc := http.NewResponseController(w)
	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	fmt.Fprintf(w, ":connected\n\n")
	if err := rc.Flush(); err != nil {
		s.logger.Error("failed to flush initial SSE connection", "error", err)
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ":heartbeat %d\n\n", time.Now().Unix())
			if err := rc.Flush(); err != nil {
				s.logger.Debug("heartbeat flush failed, client likely disconnected", "error", err)
				return
			}
		case gen := <-sub:
			fmt.Fprintf(w, "event: reload\nid: %d\ndata: %d\n\n", gen, gen)
			if err := rc.Flush(); err != nil {
				s.logger.Debug("event flush failed, client likely disconnected", "error", err)
				return
			}
		}
	}
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting theme server", "address", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("starting server: %w", err)
			return
		}
		errChan <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		s.logger.Info("theme server stopped")
		return nil
	case err := <-errChan:
		return err
	}
}
