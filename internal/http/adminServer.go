package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"secureentry/internal/api"
)

type AdminServer struct {
	server *http.Server
	wg     sync.WaitGroup
}

func NewAdminServer(presenter api.Controller, clock api.ClockSyncer, addr string) *AdminServer {
	adminHandler := api.NewAdminHandler(presenter, clock)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /admin/token", adminHandler.SetTokenHandler)
	mux.HandleFunc("DELETE /admin/token", adminHandler.ClearTokenHandler)
	mux.HandleFunc("POST /admin/error", adminHandler.ShowErrorHandler)
	mux.HandleFunc("POST /admin/error-message", adminHandler.SetErrorMessageHandler)
	mux.HandleFunc("POST /admin/subtitle", adminHandler.SetSubtitleHandler)
	mux.HandleFunc("POST /admin/sync", adminHandler.SyncHandler)

	if addr == "" {
		addr = "localhost:8081"
	}

	return &AdminServer{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

func (s *AdminServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *AdminServer) Start() error {
	slog.Info("Admin API started", "addr", s.server.Addr)
	s.wg.Add(1)
	defer s.wg.Done()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *AdminServer) Shutdown(ctx context.Context) error {
	defer s.wg.Wait()
	return s.server.Shutdown(ctx)
}
