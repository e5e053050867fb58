package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/prostech/salesbi-auth/internal/api/middleware"
	"github.com/prostech/salesbi-auth/internal/core/domain"
)

// ctxUser returns the user RequireAuth placed on the context. A missing user
// means the route was registered without the guard, so it fails closed.
func ctxUser(c echo.Context) (*domain.User, error) {
	user := middleware.UserFrom(c)
	if user == nil || user.Username == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return user, nil
}
