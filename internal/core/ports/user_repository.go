package ports

import (
	"context"

	"github.com/prostech/salesbi-auth/internal/core/domain"
)

// UserRepository is the credential store adapter over the users table. Every
// query filters out soft-deleted rows. Missing rows yield domain.ErrUserNotFound.
type UserRepository interface {
	FindCredentials(ctx context.Context, username string) (*domain.Credential, error)
	FindProfile(ctx context.Context, username string) (*domain.User, error)
	TouchLastLogin(ctx context.Context, username string) error
}
