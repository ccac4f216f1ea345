package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const sessionCookieName = "dh_session"

type sessionKey struct{}

// SessionMiddleware makes sure every request carries a session id, issuing
// a new cookie when the browser has none or an unusable one.
func SessionMiddleware(ttl time.Duration, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := ""
		if c, err := r.Cookie(sessionCookieName); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				sid = c.Value
			}
		}
		if sid == "" {
			sid = uuid.NewString()
		}

		// sliding expiry, same ttl as the session store
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    sid,
			Path:     "/",
			MaxAge:   int(ttl.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		ctx := context.WithValue(r.Context(), sessionKey{}, sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionID returns the id set by SessionMiddleware, or "" outside it.
func SessionID(r *http.Request) string {
	sid, _ := r.Context().Value(sessionKey{}).(string)
	return sid
}
