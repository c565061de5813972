package http

import (
	"errors"
	"log/slog"
	"net/http"

	"piggybank/internal/auth"
)

// handleLogin verifies credentials and issues a session cookie. Unknown
// username and wrong password produce the identical response.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	username := parser.Get("username")
	password := parser.Get("password")
	if username == "" || password == "" {
		BadRequestError("Username and password are required").Write(w)
		return
	}

	principal, err := s.authenticator.Authenticate(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			slog.InfoContext(r.Context(), "Login rejected", "username", username)
			FailureResponse(http.StatusUnauthorized, "Incorrect username or password").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Credential lookup failed", "error", err)
		InternalServerError().Write(w)
		return
	}

	token, err := s.sessions.Create(r.Context(), principal)
	if err != nil {
		slog.ErrorContext(r.Context(), "Session creation failed",
			"username", principal.Username, "error", err)
		InternalServerError().Write(w)
		return
	}

	s.setSessionCookie(w, token, s.sessions.TTL())
	slog.InfoContext(r.Context(), "Login succeeded", "username", principal.Username)
	SuccessResponse("").Write(w)
}

// handleLogout destroys the session if one is present. Logging out without a
// session is still an ack, not an error.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		s.sessions.Destroy(r.Context(), c.Value)
	}
	s.clearSessionCookie(w)
	SuccessResponse("Logged out").Write(w)
}

// userInfoResponse reports the session's username, or null for anonymous
// callers. The identity probe degrades instead of rejecting.
type userInfoResponse struct {
	Username *string `json:"username"`
}

func (s *Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	resp := userInfoResponse{}
	if p, ok := s.principalFromRequest(r); ok {
		resp.Username = &p.Username
	}
	NewJSONResponse().Body(resp).Write(w)
}
