// internal/httpserver/session.go
//
// Table session tokens.
// A browser is bound to its table by an HS256 JWT carrying the table id
// (sid). The token travels as an HttpOnly cookie and is also returned in
// the /game/start body for clients that prefer an Authorization header.

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/robalobadob/explosion-station/internal/game"
)

// ctxTableKey is the context key type for the resolved *game.Engine.
type ctxTableKey struct{}

func tableFrom(r *http.Request) *game.Engine {
	e, _ := r.Context().Value(ctxTableKey{}).(*game.Engine)
	return e
}

// signToken creates a token for table sid valid for the configured TTL.
func (s *Server) signToken(sid string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.cfg.TokenTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid": sid,
		"iat": now.Unix(),
		"exp": exp.Unix(),
	})
	ss, err := t.SignedString(s.cfg.Secret)
	return ss, exp, err
}

// parseToken verifies a token and returns its table id.
func (s *Server) parseToken(tok string) (string, error) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return s.cfg.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return "", errors.New("invalid token")
	}
	sid, _ := claims["sid"].(string)
	if sid == "" {
		return "", errors.New("token without sid")
	}
	return sid, nil
}

// setSessionCookie writes the token cookie with appropriate security attributes.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string, exp time.Time) {
	sameSite := http.SameSiteLaxMode
	if s.cfg.SecureCookies {
		sameSite = http.SameSiteNoneMode // required for cross-site clients when Secure
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: sameSite,
		Expires:  exp,
	})
}

// bearerOrCookie extracts a token from the Authorization header or cookie.
func (s *Server) bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.cfg.CookieName); err == nil {
		return c.Value
	}
	return ""
}

// withTable decorates requests with the caller's table when a valid token
// names a live one. It never rejects.
func (s *Server) withTable() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok := s.bearerOrCookie(r); tok != "" {
				if sid, err := s.parseToken(tok); err == nil {
					if e, err := s.store.Get(r.Context(), sid); err == nil {
						r = r.WithContext(context.WithValue(r.Context(), ctxTableKey{}, e))
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireTable rejects requests that did not resolve to a live table.
func (s *Server) requireTable() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tableFrom(r) == nil {
				http.Error(w, `{"error":"no_session"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
