package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"piggybank/internal/auth"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "piggybank_session"

type principalKey struct{}

// requireAuth gates a handler on a resolvable session. Anything short of a
// valid, live, user-backed token gets a uniform 401; the handler itself never
// sees an unauthenticated request.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := s.principalFromRequest(r)
		if !ok {
			UnauthorizedError().Write(w)
			return
		}
		ctx := context.WithValue(r.Context(), principalKey{}, p)
		next(w, r.WithContext(ctx))
	}
}

// principalFromRequest resolves the session token from the cookie or, as a
// fallback for non-browser clients, a bearer Authorization header.
func (s *Server) principalFromRequest(r *http.Request) (auth.Principal, bool) {
	token := ""
	if c, err := r.Cookie(SessionCookieName); err == nil {
		token = c.Value
	}
	if token == "" {
		header := r.Header.Get("Authorization")
		if after, found := strings.CutPrefix(header, "Bearer "); found {
			token = strings.TrimSpace(after)
		}
	}
	if token == "" {
		return auth.Principal{}, false
	}
	return s.sessions.Resolve(r.Context(), token)
}

// principalFrom returns the principal stamped on the context by requireAuth.
func principalFrom(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(auth.Principal)
	return p, ok
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
