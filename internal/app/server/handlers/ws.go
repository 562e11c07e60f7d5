package handlers

import (
	"context"
	"dealwire/internal/app/server/ws"
	"dealwire/internal/config"
	"dealwire/internal/core/contracts"
	"dealwire/pkg/logging"
	"dealwire/pkg/middleware"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type WSHandler struct {
	registry contracts.Registry
	cfg      config.WebSocketConfig
	upgrader websocket.Upgrader
}

func NewWSHandler(registry contracts.Registry, cfg config.WebSocketConfig) *WSHandler {
	h := &WSHandler{registry: registry, cfg: cfg}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Handler upgrades an already authenticated request and keeps the client
// registered until either side goes away.
func (s *WSHandler) Handler(w http.ResponseWriter, r *http.Request) {
	log := loggerFrom(r)
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		log.ErrorContext(r.Context(), "ws handler - unauthorised missing identity")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.Int64("user.id", identity.UserID),
		attribute.String("user.role", string(identity.Role)),
	)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		log.WarnContext(r.Context(), "ws handler - upgrade - ws upgrade failed", logging.Err(err))
		return
	}

	// The connection outlives the request context.
	sessionCtx := context.WithoutCancel(r.Context())
	sock := ws.NewWebSocket(sessionCtx, conn, s.cfg.WriteTimeout, log)
	client := ws.NewClient(sessionCtx, sock, identity, s.cfg.OutboxSize, log)
	log = log.With(logging.Connection(client.ID()), logging.User(identity.UserID))

	if err := s.registry.Register(sessionCtx, client); err != nil {
		log.ErrorContext(sessionCtx, "ws handler - register - failed", logging.Err(err))
		client.Close()
		return
	}
	defer client.Close()
	defer s.registry.Unregister(client)
	span.SetAttributes(attribute.String("ws.connection_id", client.ID()))
	log.InfoContext(sessionCtx, "ws handler - ws connection established")

	sock.ReadLoop(s.cfg.ReadLimit, func(data []byte) {
		log.DebugContext(sessionCtx, "ws handler - read loop - inbound frame ignored", slog.Int("bytes", len(data)))
	})
	log.InfoContext(sessionCtx, "ws handler - ws connection closed")
}

// checkOrigin allows every origin when no allow list is configured.
// Requests without an Origin header are not from a browser.
func (s *WSHandler) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}
