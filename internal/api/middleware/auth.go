package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/prostech/salesbi-auth/internal/api/cookie"
	"github.com/prostech/salesbi-auth/internal/core/domain"
	"github.com/prostech/salesbi-auth/internal/core/ports"
)

// Context keys set by RequireAuth.
const (
	ctxSession  = "session"
	ctxUser     = "user"
	ctxUsername = "username"
	ctxRole     = "role"
)

// LoginPath is where unauthenticated clients are sent.
const LoginPath = "/auth/login"

type loginRequired struct {
	Error  string `json:"error"`
	Notice string `json:"notice,omitempty"`
	Login  string `json:"login"`
}

// RequireAuth resolves the client's session and only lets authenticated,
// non-expired sessions through. Every admitted request refreshes the session.
func RequireAuth(sessions ports.SessionService, codec *cookie.Codec, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			sess := ResolveSession(c, sessions, codec, log)

			ok, notice := sessions.IsAuthenticated(ctx, sess)
			if !ok {
				if sess != nil || notice != "" {
					codec.Clear(c)
				}
				return c.JSON(http.StatusUnauthorized, loginRequired{
					Error:  "authentication required",
					Notice: notice,
					Login:  LoginPath,
				})
			}

			if err := sessions.Refresh(ctx, sess); err != nil {
				log.Warn().Err(err).Str("session_id", sess.ID).Msg("session refresh failed")
			}

			user, ok := sessions.CurrentUser(ctx, sess)
			if !ok {
				codec.Clear(c)
				return c.JSON(http.StatusUnauthorized, loginRequired{Error: "authentication required", Login: LoginPath})
			}

			c.Set(ctxSession, sess)
			c.Set(ctxUser, user)
			c.Set(ctxUsername, user.Username)
			c.Set(ctxRole, string(user.Role))

			return next(c)
		}
	}
}

// ResolveSession loads the session named by the request's token. Any
// failure yields nil, which the session service treats as anonymous.
func ResolveSession(c echo.Context, sessions ports.SessionService, codec *cookie.Codec, log zerolog.Logger) *domain.Session {
	id, err := codec.Read(c)
	if err != nil {
		if !errors.Is(err, cookie.ErrNoToken) {
			log.Debug().Err(err).Msg("rejected session token")
		}
		return nil
	}

	sess, err := sessions.Load(c.Request().Context(), id)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) && !errors.Is(err, domain.ErrSessionCorrupt) {
			log.Error().Err(err).Msg("session lookup failed")
		}
		return nil
	}
	return sess
}

// SessionFrom returns the session stored by RequireAuth, or nil.
func SessionFrom(c echo.Context) *domain.Session {
	sess, _ := c.Get(ctxSession).(*domain.Session)
	return sess
}

// UserFrom returns the user stored by RequireAuth, or nil.
func UserFrom(c echo.Context) *domain.User {
	user, _ := c.Get(ctxUser).(*domain.User)
	return user
}
