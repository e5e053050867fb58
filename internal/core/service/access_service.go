package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/prostech/salesbi-auth/internal/core/domain"
	"github.com/prostech/salesbi-auth/internal/core/ports"
	"github.com/prostech/salesbi-auth/internal/pkg/metrics"
)

// AccessControl answers permission questions against the static
// permission table.
type AccessControl struct {
	sessions ports.SessionService
	log      zerolog.Logger
}

func NewAccessControl(sessions ports.SessionService, log zerolog.Logger) *AccessControl {
	return &AccessControl{
		sessions: sessions,
		log:      log.With().Str("component", "access").Logger(),
	}
}

// CheckPermission reports whether the session's user holds permission.
// Anonymous sessions and unknown permission names are always denied. A check
// counts as activity and refreshes the session.
func (a *AccessControl) CheckPermission(ctx context.Context, sess *domain.Session, permission string) bool {
	label := permission
	if len(domain.RolesFor(permission)) == 0 {
		label = "unknown"
	}

	user, ok := a.sessions.CurrentUser(ctx, sess)
	if !ok {
		metrics.PermissionChecksTotal.WithLabelValues(label, "denied").Inc()
		return false
	}
	if err := a.sessions.Refresh(ctx, sess); err != nil {
		a.log.Warn().Err(err).Str("username", user.Username).Msg("session refresh failed")
	}

	allowed := domain.Allowed(permission, user.Role)
	result := "denied"
	if allowed {
		result = "granted"
	}
	metrics.PermissionChecksTotal.WithLabelValues(label, result).Inc()
	a.log.Debug().
		Str("username", user.Username).
		Str("permission", permission).
		Bool("allowed", allowed).
		Msg("permission check")
	return allowed
}

// PermissionsFor lists the permissions granted to user, sorted by name.
func (a *AccessControl) PermissionsFor(user *domain.User) []string {
	if user == nil {
		return []string{}
	}
	granted := make([]string, 0)
	for _, name := range domain.PermissionNames() {
		if domain.Allowed(name, user.Role) {
			granted = append(granted, name)
		}
	}
	return granted
}
