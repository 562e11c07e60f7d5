package server

import (
	"context"
	"dealwire/internal/app/registry"
	"dealwire/internal/app/server/handlers"
	"dealwire/internal/config"
	"dealwire/internal/core/contracts"
	"dealwire/pkg/middleware"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

type Server struct {
	mux            *http.ServeMux
	http           *http.Server
	log            *slog.Logger
	cfg            *config.Config
	registry       *registry.Registry
	resolver       contracts.IdentityResolver
	dealHandler    *handlers.DealHandler
	wsHandler      *handlers.WSHandler
	sessionHandler *handlers.SessionHandler
}

func NewServer(
	log *slog.Logger,
	cfg *config.Config,
	hub *registry.Registry,
	resolver contracts.IdentityResolver,
	deals handlers.DealService,
	sessions handlers.SessionRevoker,
) *Server {
	s := &Server{
		mux:            http.NewServeMux(),
		log:            log,
		cfg:            cfg,
		registry:       hub,
		resolver:       resolver,
		dealHandler:    handlers.NewDealHandler(deals),
		wsHandler:      handlers.NewWSHandler(hub, *cfg.WebSocket),
		sessionHandler: handlers.NewSessionHandler(sessions),
	}
	s.routes()
	s.http = &http.Server{
		Addr:              cfg.Service.Add,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	auth := middleware.AuthMiddleware(s.resolver)

	s.mux.HandleFunc("GET /healthz", s.health)

	// Upgrades only happen behind auth, so a rejected handshake is never
	// registered.
	s.mux.Handle("GET "+s.cfg.WebSocket.Path, auth(http.HandlerFunc(s.wsHandler.Handler)))

	s.mux.Handle("GET /deals", auth(http.HandlerFunc(s.dealHandler.List)))
	s.mux.Handle("GET /deals/{id}", auth(http.HandlerFunc(s.dealHandler.Get)))
	s.mux.Handle("PATCH /deals/{id}", auth(http.HandlerFunc(s.dealHandler.Update)))
	s.mux.HandleFunc("DELETE /session", s.sessionHandler.Revoke)
}

// Handler is the full middleware chain around the router.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = middleware.RequestLogger(s.log)(h)
	h = middleware.TracerMiddleware(s.cfg.Service.Name)(h)
	return h
}

type healthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{Status: "ok", Connections: s.registry.Len()})
}

// Start blocks until the server stops. A clean Shutdown is not an error.
func (s *Server) Start() error {
	s.log.Info("server - start - listening", slog.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then closes every live socket.
// Hijacked websocket connections are not tracked by http.Server.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.registry.Close()
	return err
}
