package handlers

import (
	"context"
	"dealwire/internal/core/services"
	"net/http"
)

type SessionRevoker interface {
	Revoke(ctx context.Context, r *http.Request) error
}

type SessionHandler struct {
	sessions SessionRevoker
}

func NewSessionHandler(sessions SessionRevoker) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Revoke handles DELETE /session. Sockets already open for the session stay
// open; new handshakes and API calls with it are rejected.
func (h *SessionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Revoke(r.Context(), r); err != nil {
		writeError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     services.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	loggerFrom(r).InfoContext(r.Context(), "session handler - revoke - session ended")
	w.WriteHeader(http.StatusNoContent)
}
