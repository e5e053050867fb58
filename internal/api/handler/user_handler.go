package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/prostech/salesbi-auth/internal/api/middleware"
	"github.com/prostech/salesbi-auth/internal/core/ports"
)

// UserHandler serves the signed-in user's own view of their account.
type UserHandler struct {
	access         ports.AccessService
	sessionTimeout time.Duration
}

func NewUserHandler(access ports.AccessService, sessionTimeout time.Duration) *UserHandler {
	return &UserHandler{access: access, sessionTimeout: sessionTimeout}
}

type userMenuResponse struct {
	Username              string     `json:"username"`
	Email                 string     `json:"email,omitempty"`
	Role                  string     `json:"role"`
	RoleLabel             string     `json:"role_label"`
	LastLogin             *time.Time `json:"last_login,omitempty"`
	Permissions           []string   `json:"permissions"`
	IsAdmin               bool       `json:"is_admin"`
	IsManager             bool       `json:"is_manager"`
	CanViewAllData        bool       `json:"can_view_all_data"`
	CanExportData         bool       `json:"can_export_data"`
	SessionTimeoutSeconds int        `json:"session_timeout_seconds"`
}

type permissionResponse struct {
	Permission string `json:"permission"`
	Allowed    bool   `json:"allowed"`
}

// Me returns the user menu: identity, role and what the role may do.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     SessionCookie
// @Success      200  {object}  userMenuResponse
// @Failure      401  {object}  map[string]string
// @Router       /auth/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, userMenuResponse{
		Username:              user.Username,
		Email:                 user.Email,
		Role:                  string(user.Role),
		RoleLabel:             user.Role.Label(),
		LastLogin:             user.LastLogin,
		Permissions:           h.access.PermissionsFor(user),
		IsAdmin:               user.IsAdmin(),
		IsManager:             user.IsManager(),
		CanViewAllData:        user.CanViewAllData(),
		CanExportData:         user.CanExportData(),
		SessionTimeoutSeconds: int(h.sessionTimeout / time.Second),
	})
}

// Permission reports whether the current user holds a named permission.
// Unknown names are reported as not allowed.
//
// @Summary      Check a permission
// @Tags         auth
// @Produce      json
// @Security     SessionCookie
// @Param        name  path      string  true  "Permission name (e.g. view_costs)"
// @Success      200   {object}  permissionResponse
// @Failure      401   {object}  map[string]string
// @Router       /auth/permissions/{name} [get]
func (h *UserHandler) Permission(c echo.Context) error {
	if _, err := ctxUser(c); err != nil {
		return err
	}
	name := c.Param("name")
	allowed := h.access.CheckPermission(c.Request().Context(), middleware.SessionFrom(c), name)
	return c.JSON(http.StatusOK, permissionResponse{Permission: name, Allowed: allowed})
}
