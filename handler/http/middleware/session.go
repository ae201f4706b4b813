package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ragbot/src/core/session"
	"ragbot/src/log"
)

const (
	SessionCookie     = "ragbot_session"
	contextSessionKey = "session"
)

// Sessions loads the caller's session from store, creating a fresh one when
// the cookie is missing or stale, and saves it after the handler ran.
func Sessions(store session.Store, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var s *session.Session
		if id, err := c.Cookie(SessionCookie); err == nil && id != "" {
			loaded, err := store.Get(c.Request.Context(), id)
			switch {
			case err == nil:
				s = loaded
			case errors.Is(err, session.ErrSessionNotFound):
			default:
				log.Error(err, "failed to load session")
			}
		}
		if s == nil {
			s = session.New()
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, s.ID, int(ttl.Seconds()), "/", "", false, true)
		c.Set(contextSessionKey, s)

		c.Next()

		if err := store.Save(c.Request.Context(), s); err != nil {
			log.Error(err, "failed to save session", "session", s.ID)
		}
	}
}

// CurrentSession returns the session loaded by Sessions
func CurrentSession(c *gin.Context) *session.Session {
	if v, ok := c.Get(contextSessionKey); ok {
		if s, ok := v.(*session.Session); ok {
			return s
		}
	}
	return session.New()
}

// RequireAdmin rejects requests whose session is not authorized. HTML
// clients get a 403 page, API clients a JSON error.
func RequireAdmin(onDenied gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentSession(c).IsAdmin {
			c.Next()
			return
		}
		onDenied(c)
		c.Abort()
	}
}
