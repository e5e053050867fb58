package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prostech/salesbi-auth/internal/core/domain"
	"github.com/prostech/salesbi-auth/internal/pkg/metrics"
	"github.com/prostech/salesbi-auth/internal/pkg/retry"
)

const (
	credentialsQuery = `
SELECT username, password_hash, password_salt, is_active
FROM users
WHERE username = ?
AND delete_flag = 0`

	profileQuery = `
SELECT id, username, email, role, employee_id, is_active, last_login, created_date
FROM users
WHERE username = ?
AND delete_flag = 0`

	touchLastLoginQuery = `
UPDATE users
SET last_login = NOW()
WHERE username = ?
AND delete_flag = 0`
)

// UserRepository reads credentials and profiles from the MySQL users table.
type UserRepository struct {
	db    *sql.DB
	retry retry.Policy
	log   zerolog.Logger
}

func NewUserRepository(db *sql.DB, log zerolog.Logger) *UserRepository {
	r := &UserRepository{
		db:  db,
		log: log.With().Str("component", "mysql_users").Logger(),
	}
	r.retry = retry.Default
	r.retry.Permanent = permanent
	return r
}

func permanent(err error) bool {
	return errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (r *UserRepository) policy(op string) retry.Policy {
	p := r.retry
	p.OnRetry = func(attempt int, err error) {
		metrics.StoreRetriesTotal.WithLabelValues(op).Inc()
		r.log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("query attempt failed")
	}
	return p
}

func (r *UserRepository) FindCredentials(ctx context.Context, username string) (*domain.Credential, error) {
	var (
		cred     domain.Credential
		hash     sql.NullString
		salt     sql.NullString
		isActive sql.NullBool
	)
	err := retry.Do(ctx, r.policy("find_credentials"), func(ctx context.Context) error {
		return r.db.QueryRowContext(ctx, credentialsQuery, username).
			Scan(&cred.Username, &hash, &salt, &isActive)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find credentials: %w", err)
	}

	// NULL is_active means the row predates the flag; such users are active.
	cred.PasswordHash = hash.String
	cred.PasswordSalt = salt.String
	cred.IsActive = !isActive.Valid || isActive.Bool
	return &cred, nil
}

func (r *UserRepository) FindProfile(ctx context.Context, username string) (*domain.User, error) {
	var (
		u           domain.User
		email       sql.NullString
		role        sql.NullString
		employeeID  sql.NullInt64
		isActive    sql.NullBool
		lastLogin   sql.NullTime
		createdDate sql.NullTime
	)
	err := retry.Do(ctx, r.policy("find_profile"), func(ctx context.Context) error {
		return r.db.QueryRowContext(ctx, profileQuery, username).
			Scan(&u.ID, &u.Username, &email, &role, &employeeID, &isActive, &lastLogin, &createdDate)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}

	parsed, err := domain.ParseRole(role.String)
	if err != nil {
		return nil, fmt.Errorf("find profile: role %q: %w", role.String, err)
	}

	u.Email = email.String
	u.Role = parsed
	u.IsActive = !isActive.Valid || isActive.Bool
	if employeeID.Valid {
		id := employeeID.Int64
		u.EmployeeID = &id
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	if createdDate.Valid {
		t := createdDate.Time
		u.CreatedDate = &t
	}
	return &u, nil
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, username string) error {
	err := retry.Do(ctx, r.policy("touch_last_login"), func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, touchLastLoginQuery, username)
		return err
	})
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}
