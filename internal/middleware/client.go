package middleware

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	ContextClientID    = "client_id"
	sessionKeyClientID = "client_id"
)

// SessionConfig configures the client identity cookie
type SessionConfig struct {
	CookieName string
	Secret     string
	MaxAge     int
	Secure     bool
}

// ClientSession returns the cookie session middleware followed by the
// client identity middleware.
func ClientSession(cfg SessionConfig) []gin.HandlerFunc {
	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.MaxAge,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return []gin.HandlerFunc{sessions.Sessions(cfg.CookieName, store), ClientIdentity()}
}

// ClientIdentity assigns every browser a stable client ID kept in its
// session cookie. Storage areas and session stores are keyed by it.
func ClientIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		id, _ := s.Get(sessionKeyClientID).(string)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
			s.Set(sessionKeyClientID, id)
			if err := s.Save(); err != nil {
				log.Warn().Err(err).Msg("Failed to save client session")
			}
		}

		c.Set(ContextClientID, id)
		c.Next()
	}
}

// ClientID returns the client ID set by ClientIdentity
func ClientID(c *gin.Context) string {
	return c.GetString(ContextClientID)
}
