package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/prostech/salesbi-auth/internal/core/domain"
	"github.com/prostech/salesbi-auth/internal/core/ports"
)

type accessDenied struct {
	Error         string   `json:"error"`
	RequiredRoles []string `json:"required_roles,omitempty"`
	Permission    string   `json:"permission,omitempty"`
	CurrentRole   string   `json:"current_role"`
}

// RequireRole admits users holding any of roles. It must run after
// RequireAuth.
func RequireRole(roles ...domain.Role) echo.MiddlewareFunc {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, string(r))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := UserFrom(c)
			if user == nil {
				return c.JSON(http.StatusUnauthorized, loginRequired{Error: "authentication required", Login: LoginPath})
			}
			if !user.HasAnyRole(roles...) {
				return c.JSON(http.StatusForbidden, accessDenied{
					Error:         "access denied",
					RequiredRoles: names,
					CurrentRole:   string(user.Role),
				})
			}
			return next(c)
		}
	}
}

func RequireAdmin() echo.MiddlewareFunc {
	return RequireRole(domain.RoleAdmin)
}

func RequireManagerOrAbove() echo.MiddlewareFunc {
	return RequireRole(domain.RoleAdmin, domain.RoleManager)
}

// RequirePermission admits users whose role is granted permission in the
// permission table.
func RequirePermission(access ports.AccessService, permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := UserFrom(c)
			if user == nil {
				return c.JSON(http.StatusUnauthorized, loginRequired{Error: "authentication required", Login: LoginPath})
			}
			if !access.CheckPermission(c.Request().Context(), SessionFrom(c), permission) {
				return c.JSON(http.StatusForbidden, accessDenied{
					Error:       "access denied",
					Permission:  permission,
					CurrentRole: string(user.Role),
				})
			}
			return next(c)
		}
	}
}
