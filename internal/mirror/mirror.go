// Package mirror serves a read-only HTTP view of persisted chat messages.
package mirror

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/atomicstack/wiggle-chat/internal/chat"
	"github.com/atomicstack/wiggle-chat/internal/logging"
	"github.com/atomicstack/wiggle-chat/internal/metrics"
	"github.com/atomicstack/wiggle-chat/internal/storage"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const shutdownGrace = 2 * time.Second

// Reader is the part of storage the mirror reads from.
type Reader interface {
	Get(ctx context.Context) ([]chat.Message, error)
}

type Server struct {
	store   Reader
	metrics *metrics.Metrics
	router  *mux.Router
}

func New(store Reader, m *metrics.Metrics) *Server {
	s := &Server{store: store, metrics: m, router: mux.NewRouter()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/messages", s.listMessages).Methods(http.MethodGet)
	s.router.HandleFunc("/messages/{author}", s.listAuthorMessages).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", healthz).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve answers requests on ln until ctx is cancelled, then shuts down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logging.Info("mirror listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.store.Get(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeMessages(w, msgs)
}

func (s *Server) listAuthorMessages(w http.ResponseWriter, r *http.Request) {
	author := mux.Vars(r)["author"]
	msgs, err := s.store.Get(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeMessages(w, storage.ByAuthor(msgs, author))
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	logging.Error(err, zap.String("component", "mirror"))
	http.Error(w, `{"error":"storage unavailable"}`, http.StatusServiceUnavailable)
}

func writeMessages(w http.ResponseWriter, msgs []chat.Message) {
	body, err := chat.EncodeList(msgs)
	if err != nil {
		logging.Error(err, zap.String("component", "mirror"))
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
