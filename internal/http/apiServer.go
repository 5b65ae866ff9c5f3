package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"secureentry/internal/api"
	"secureentry/internal/display"
)

type APIServer struct {
	server *http.Server
	wg     sync.WaitGroup
}

// NewAPIServer serves the display API: state, barcode image, time and the
// websocket stream.
func NewAPIServer(state api.StateSource, clock display.TimeSource, hub *display.Hub, addr string) *APIServer {
	server := display.NewServer(hub)
	apiHandlers := api.New(state, clock)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/state", apiHandlers.StateHandler)
	mux.HandleFunc("GET /api/barcode.png", apiHandlers.BarcodeHandler)
	mux.HandleFunc("GET /api/time", apiHandlers.TimeHandler)

	// WebSocket endpoint
	mux.HandleFunc("GET /api/stream", server.HandleConnections)

	if addr == "" {
		addr = ":8080"
	}

	return &APIServer{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

func (s *APIServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *APIServer) Start() error {
	slog.Info("Server started", "addr", s.server.Addr)
	s.wg.Add(1)
	defer s.wg.Done()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *APIServer) Shutdown(ctx context.Context) error {
	defer s.wg.Wait()
	return s.server.Shutdown(ctx)
}
