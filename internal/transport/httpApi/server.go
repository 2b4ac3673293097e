package httpApi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/KotFed0t/fondos_backoffice/config"
)

type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
}

func NewServer(cfg *config.Config, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         cfg.HTTP.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		},
		shutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}
}

func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped unexpectedly", slog.String("err", err.Error()))
			panic(err)
		}
	}()
	slog.Info("http server started!", slog.String("addr", s.srv.Addr))
}

func (s *Server) Stop() {
	slog.Info("start stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown error", slog.String("err", err.Error()))
		return
	}
	slog.Info("http server stopped")
}
