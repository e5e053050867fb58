package ports

import (
	"context"

	"github.com/prostech/salesbi-auth/internal/core/domain"
)

// LoginRequest carries the submitted credentials plus client metadata used
// for the login attempt record.
type LoginRequest struct {
	Username  string
	Password  string
	IPAddress string
	UserAgent string
}

// LoginResult is the user-facing outcome of a login. Reason is nil on
// success and one of the domain sentinels otherwise.
type LoginResult struct {
	OK      bool
	Message string
	Reason  error
	User    *domain.User
	Session *domain.Session
}

type AuthService interface {
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	Login(ctx context.Context, req LoginRequest) LoginResult
}

type SessionService interface {
	Establish(ctx context.Context, user *domain.User) (*domain.Session, error)
	Load(ctx context.Context, id string) (*domain.Session, error)
	IsAuthenticated(ctx context.Context, sess *domain.Session) (bool, string)
	Refresh(ctx context.Context, sess *domain.Session) error
	CurrentUser(ctx context.Context, sess *domain.Session) (*domain.User, bool)
	Logout(ctx context.Context, sess *domain.Session) error
}

type AccessService interface {
	CheckPermission(ctx context.Context, sess *domain.Session, permission string) bool
	PermissionsFor(user *domain.User) []string
}

// LoginAttemptRecorder receives one record per login call.
type LoginAttemptRecorder interface {
	Record(ctx context.Context, attempt domain.LoginAttempt)
}
