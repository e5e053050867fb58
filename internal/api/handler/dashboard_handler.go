package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// DashboardHandler serves the guarded dashboard pages. The guards on the
// routes decide who gets here; the handlers only shape the response.
type DashboardHandler struct{}

func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{}
}

type pageResponse struct {
	Page  string `json:"page"`
	User  string `json:"user"`
	Role  string `json:"role"`
	Scope string `json:"scope"`
}

func page(c echo.Context, name string) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}
	scope := "own"
	if user.CanViewAllData() {
		scope = "all"
	}
	return c.JSON(http.StatusOK, pageResponse{
		Page:  name,
		User:  user.Username,
		Role:  user.Role.Label(),
		Scope: scope,
	})
}

// Sales is open to every signed-in user.
//
// @Summary      Sales dashboard
// @Tags         dashboard
// @Produce      json
// @Security     SessionCookie
// @Success      200  {object}  pageResponse
// @Failure      401  {object}  map[string]string
// @Router       /dashboard/sales [get]
func (h *DashboardHandler) Sales(c echo.Context) error {
	return page(c, "sales")
}

// Costs requires the view_costs permission.
//
// @Summary      Cost dashboard
// @Tags         dashboard
// @Produce      json
// @Security     SessionCookie
// @Success      200  {object}  pageResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /dashboard/costs [get]
func (h *DashboardHandler) Costs(c echo.Context) error {
	return page(c, "costs")
}

// Team requires a manager or admin.
//
// @Summary      Team dashboard
// @Tags         dashboard
// @Produce      json
// @Security     SessionCookie
// @Success      200  {object}  pageResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /dashboard/team [get]
func (h *DashboardHandler) Team(c echo.Context) error {
	return page(c, "team")
}

// Users is the admin-only user management page.
//
// @Summary      User management
// @Tags         admin
// @Produce      json
// @Security     SessionCookie
// @Success      200  {object}  pageResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /admin/users [get]
func (h *DashboardHandler) Users(c echo.Context) error {
	return page(c, "users")
}
