package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/myatdennis/coursesync/internal/shared"
)

// SyncServer ties the dataset, REST handler and websocket hub to an HTTP
// listener.
type SyncServer struct {
	logger *log.Logger
	hub    *Hub
	srv    *http.Server
}

// NewSyncServer builds the dev sync server for the configured address.
func NewSyncServer(cfg shared.ServerConfig, logger *log.Logger) *SyncServer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	logger = shared.WithLogger(logger, "component", "server")

	data := NewDataset()
	hub := NewHub(logger)

	router := NewBasicRouter()
	router.Use(RequestLogger(logger))
	router.Handler(NewSyncHandler(data, hub, logger))
	router.Handler(hub)
	router.Handle(http.MethodGet, "/healthz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	}))

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return &SyncServer{
		logger: logger,
		hub:    hub,
		srv: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Addr returns the configured listen address.
func (s *SyncServer) Addr() string { return s.srv.Addr }

// ListenAndServe blocks serving requests until Shutdown or a listener error.
func (s *SyncServer) ListenAndServe() error {
	s.logger.Info("sync server listening", "addr", s.srv.Addr)
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown disconnects all websocket sessions and stops the listener.
func (s *SyncServer) Shutdown(ctx context.Context) error {
	s.hub.CloseAll()
	return s.srv.Shutdown(ctx)
}
