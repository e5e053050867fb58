package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/prostech/salesbi-auth/internal/api/cookie"
	"github.com/prostech/salesbi-auth/internal/core/domain"
	"github.com/prostech/salesbi-auth/internal/core/service"
	"github.com/prostech/salesbi-auth/internal/infrastructure/memory"
)

type guardFixture struct {
	e        *echo.Echo
	store    *memory.SessionStore
	sessions *service.SessionManager
	access   *service.AccessControl
	codec    *cookie.Codec
}

func newGuardFixture() *guardFixture {
	store := memory.NewSessionStore()
	sessions := service.NewSessionManager(store, time.Hour, zerolog.Nop())
	return &guardFixture{
		e:        echo.New(),
		store:    store,
		sessions: sessions,
		access:   service.NewAccessControl(sessions, zerolog.Nop()),
		codec:    cookie.New("salesbi_session", "secret", false),
	}
}

func (f *guardFixture) login(t *testing.T, role domain.Role) (*domain.Session, string) {
	t.Helper()
	sess, err := f.sessions.Establish(context.Background(), &domain.User{Username: "u_" + string(role), Role: role, IsActive: true})
	if err != nil {
		t.Fatalf("establish: %v", err)
	}
	token, err := f.codec.Encode(sess)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return sess, token
}

func (f *guardFixture) request(token string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "salesbi_session", Value: token})
	}
	rec := httptest.NewRecorder()
	return f.e.NewContext(req, rec), rec
}

func ok(c echo.Context) error { return c.NoContent(http.StatusOK) }

func chain(h echo.HandlerFunc, mws ...echo.MiddlewareFunc) echo.HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func TestRequireAuth_Allows(t *testing.T) {
	f := newGuardFixture()
	_, token := f.login(t, domain.RoleSales)
	c, rec := f.request(token)

	var seen *domain.User
	h := chain(func(c echo.Context) error {
		seen = UserFrom(c)
		return ok(c)
	}, RequireAuth(f.sessions, f.codec, zerolog.Nop()))

	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen == nil || seen.Username != "u_sales" {
		t.Fatalf("expected user on context, got %+v", seen)
	}
	if c.Get("role") != "sales" || SessionFrom(c) == nil {
		t.Fatalf("expected role and session on context")
	}
}

func TestRequireAuth_RejectsAnonymous(t *testing.T) {
	f := newGuardFixture()
	c, rec := f.request("")

	h := chain(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	}, RequireAuth(f.sessions, f.codec, zerolog.Nop()))

	_ = h(c)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body loginRequired
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.Login != LoginPath || body.Notice != "" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestRequireAuth_RejectsForgedToken(t *testing.T) {
	f := newGuardFixture()
	sess, _ := f.login(t, domain.RoleAdmin)
	forged, _ := cookie.New("salesbi_session", "other-secret", false).Encode(sess)
	c, rec := f.request(forged)

	_ = chain(ok, RequireAuth(f.sessions, f.codec, zerolog.Nop()))(c)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAuth_ExpiredSessionGetsNotice(t *testing.T) {
	f := newGuardFixture()
	sess, token := f.login(t, domain.RoleSales)

	sess.LoginTime = time.Now().Add(-2 * time.Hour)
	values, _ := sess.Encode()
	_ = f.store.Save(context.Background(), sess.ID, values, 0)

	c, rec := f.request(token)
	_ = chain(ok, RequireAuth(f.sessions, f.codec, zerolog.Nop()))(c)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body loginRequired
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Notice != service.NoticeSessionExpired {
		t.Fatalf("expected expiry notice, got %+v", body)
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), "Max-Age=0") {
		t.Fatalf("expected stale cookie to be cleared")
	}
	if f.store.Len() != 0 {
		t.Fatalf("expected expired session removed")
	}
}

func TestRequireAuth_RefreshesActivity(t *testing.T) {
	f := newGuardFixture()
	sess, token := f.login(t, domain.RoleSales)

	sess.LoginTime = time.Now().Add(-50 * time.Minute)
	values, _ := sess.Encode()
	_ = f.store.Save(context.Background(), sess.ID, values, 0)

	c, _ := f.request(token)
	_ = chain(ok, RequireAuth(f.sessions, f.codec, zerolog.Nop()))(c)

	stored, err := f.sessions.Load(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if time.Since(stored.LoginTime) > time.Minute {
		t.Fatalf("expected activity time to be refreshed, got %v", stored.LoginTime)
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name string
		role domain.Role
		mw   echo.MiddlewareFunc
		want int
	}{
		{"admin passes admin guard", domain.RoleAdmin, RequireAdmin(), http.StatusOK},
		{"manager blocked by admin guard", domain.RoleManager, RequireAdmin(), http.StatusForbidden},
		{"manager passes manager guard", domain.RoleManager, RequireManagerOrAbove(), http.StatusOK},
		{"sales blocked by manager guard", domain.RoleSales, RequireManagerOrAbove(), http.StatusForbidden},
		{"supply chain passes explicit list", domain.RoleSupplyChain, RequireRole(domain.RoleSales, domain.RoleSupplyChain), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGuardFixture()
			_, token := f.login(t, tt.role)
			c, rec := f.request(token)

			_ = chain(ok, RequireAuth(f.sessions, f.codec, zerolog.Nop()), tt.mw)(c)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestRequireRole_ForbiddenBody(t *testing.T) {
	f := newGuardFixture()
	_, token := f.login(t, domain.RoleViewer)
	c, rec := f.request(token)

	_ = chain(ok, RequireAuth(f.sessions, f.codec, zerolog.Nop()), RequireManagerOrAbove())(c)

	var body accessDenied
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.Error != "access denied" || body.CurrentRole != "viewer" || len(body.RequiredRoles) != 2 {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestRequireRole_WithoutAuthFailsClosed(t *testing.T) {
	f := newGuardFixture()
	c, rec := f.request("")

	_ = chain(ok, RequireAdmin())(c)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		role domain.Role
		perm string
		want int
	}{
		{domain.RoleSupplyChain, domain.PermViewCosts, http.StatusOK},
		{domain.RoleSales, domain.PermViewCosts, http.StatusForbidden},
		{domain.RoleAdmin, domain.PermManageUsers, http.StatusOK},
		{domain.RoleManager, domain.PermManageUsers, http.StatusForbidden},
		{domain.RoleAdmin, "no_such_permission", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+tt.perm, func(t *testing.T) {
			f := newGuardFixture()
			_, token := f.login(t, tt.role)
			c, rec := f.request(token)

			_ = chain(ok, RequireAuth(f.sessions, f.codec, zerolog.Nop()), RequirePermission(f.access, tt.perm))(c)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
