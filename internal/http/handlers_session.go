package httpx

import (
	"log/slog"
	"net/http"
	"strings"

	domainauth "github.com/target/demobank-api/internal/domain/auth"
)

const (
	msgSignedIn       = "Successfully signed in! Welcome back."
	msgSignInFallback = "Failed to sign in. Please try again."
)

// SessionHandlers exposes the per-client session manager.
type SessionHandlers struct {
	Logger *slog.Logger
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// State handles GET /api/session.
func (h *SessionHandlers) State(w http.ResponseWriter, r *http.Request) {
	c, ok := requireClient(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, c.Session.State())
}

// Login handles POST /api/session/login. Successful and rejected sign-ins
// also raise a notification for the client.
func (h *SessionHandlers) Login(w http.ResponseWriter, r *http.Request) {
	c, ok := requireClient(w, r)
	if !ok {
		return
	}
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	res := c.Session.SignIn(r.Context(), strings.TrimSpace(req.Username), req.Password)

	switch {
	case res.Success:
		c.Notifications.ShowSuccess(msgSignedIn)
	case res.Kind != domainauth.KindValidation:
		msg := res.Error
		if msg == "" {
			msg = msgSignInFallback
		}
		c.Notifications.ShowError(msg)
	}

	WriteJSON(w, signInStatus(res), res)
}

// Logout handles POST /api/session/logout.
func (h *SessionHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	c, ok := requireClient(w, r)
	if !ok {
		return
	}
	c.Session.SignOut(r.Context())
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Refresh handles POST /api/session/refresh by re-running session recovery.
func (h *SessionHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	c, ok := requireClient(w, r)
	if !ok {
		return
	}
	c.Session.RecoverSession(r.Context())
	WriteJSON(w, http.StatusOK, c.Session.State())
}

// ClearError handles DELETE /api/session/error.
func (h *SessionHandlers) ClearError(w http.ResponseWriter, r *http.Request) {
	c, ok := requireClient(w, r)
	if !ok {
		return
	}
	c.Session.ClearError()
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/me. RequireIdentity guards it.
func (h *SessionHandlers) Me(w http.ResponseWriter, r *http.Request) {
	c, ok := requireClient(w, r)
	if !ok {
		return
	}
	st := c.Session.State()
	if st.User == nil {
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, Message: "authentication required"})
		return
	}
	WriteJSON(w, http.StatusOK, st.User)
}

func signInStatus(res domainauth.Result) int {
	if res.Success {
		return http.StatusOK
	}
	switch res.Kind {
	case domainauth.KindValidation:
		return http.StatusBadRequest
	case domainauth.KindAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
