package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/prostech/salesbi-auth/internal/api/cookie"
	"github.com/prostech/salesbi-auth/internal/api/middleware"
	"github.com/prostech/salesbi-auth/internal/core/domain"
	"github.com/prostech/salesbi-auth/internal/core/ports"
)

type AuthHandler struct {
	auth     ports.AuthService
	sessions ports.SessionService
	codec    *cookie.Codec
	log      zerolog.Logger
}

func NewAuthHandler(auth ports.AuthService, sessions ports.SessionService, codec *cookie.Codec, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions, codec: codec, log: log}
}

type loginRequest struct {
	Username string `json:"username" form:"username" validate:"max=150"`
	Password string `json:"password" form:"password" validate:"max=1024"`
}

type loginResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token,omitempty"`
	User    *domain.User `json:"user,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Login verifies credentials and starts a session.
//
// @Summary      Login
// @Description  Authenticates against the users table. Three failures within the lockout window lock the account for the configured duration.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  loginResponse
// @Failure      401   {object}  loginResponse
// @Failure      403   {object}  loginResponse
// @Failure      423   {object}  loginResponse
// @Failure      500   {object}  loginResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	res := h.auth.Login(c.Request().Context(), ports.LoginRequest{
		Username:  req.Username,
		Password:  req.Password,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	if !res.OK {
		return c.JSON(loginStatus(res.Reason), loginResponse{Message: res.Message})
	}

	token, err := h.codec.Write(c, res.Session)
	if err != nil {
		h.log.Error().Err(err).Str("username", res.User.Username).Msg("failed to sign session token")
		if logoutErr := h.sessions.Logout(c.Request().Context(), res.Session); logoutErr != nil {
			h.log.Error().Err(logoutErr).Msg("failed to discard session")
		}
		return c.JSON(http.StatusInternalServerError, loginResponse{Message: "An error occurred during login"})
	}

	return c.JSON(http.StatusOK, loginResponse{Message: res.Message, Token: token, User: res.User})
}

func loginStatus(reason error) int {
	switch {
	case errors.Is(reason, domain.ErrMissingCredentials):
		return http.StatusBadRequest
	case errors.Is(reason, domain.ErrAccountLocked):
		return http.StatusLocked
	case errors.Is(reason, domain.ErrAccountDeactivated):
		return http.StatusForbidden
	case errors.Is(reason, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Logout ends the caller's session, if any. It always succeeds.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  messageResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	sess := middleware.ResolveSession(c, h.sessions, h.codec, h.log)
	if err := h.sessions.Logout(c.Request().Context(), sess); err != nil {
		h.log.Error().Err(err).Msg("logout failed")
	}
	h.codec.Clear(c)
	return c.JSON(http.StatusOK, messageResponse{Message: "You have been logged out"})
}
