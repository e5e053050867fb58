package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prostech/salesbi-auth/internal/core/domain"
	"github.com/prostech/salesbi-auth/internal/core/ports"
	"github.com/prostech/salesbi-auth/internal/pkg/metrics"
)

// User-facing login messages.
const (
	msgMissingInput = "Please enter both username and password"
	msgLocked       = "Account is temporarily locked due to multiple failed attempts"
	msgDeactivated  = "Account is deactivated"
	msgLoginError   = "An error occurred during login"
)

// AuthService verifies credentials and turns a successful verification into
// an established session.
type AuthService struct {
	users    ports.UserRepository
	hasher   *PasswordHasher
	lockout  *LockoutTracker
	sessions ports.SessionService
	attempts ports.LoginAttemptRecorder
	now      func() time.Time
	log      zerolog.Logger
}

func NewAuthService(
	users ports.UserRepository,
	hasher *PasswordHasher,
	lockout *LockoutTracker,
	sessions ports.SessionService,
	attempts ports.LoginAttemptRecorder,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		hasher:   hasher,
		lockout:  lockout,
		sessions: sessions,
		attempts: attempts,
		now:      time.Now,
		log:      log.With().Str("component", "auth").Logger(),
	}
}

// Authenticate checks username/password and returns the user's profile.
//
// Errors: domain.ErrAccountLocked and domain.ErrAccountDeactivated are
// business outcomes; a wrong password or unknown username yields an
// *domain.InvalidCredentialsError; anything else is wrapped in
// domain.ErrAuthenticationFailed.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	release, err := s.lockout.Guard(ctx, username)
	if err != nil {
		return nil, s.failed(err)
	}
	defer release()

	locked, err := s.lockout.IsLocked(ctx, username)
	if err != nil {
		return nil, s.failed(err)
	}
	if locked {
		return nil, domain.ErrAccountLocked
	}

	cred, err := s.users.FindCredentials(ctx, username)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		s.hasher.burn(password)
		return nil, s.noMatch(ctx, username)
	case err != nil:
		return nil, s.failed(err)
	}

	if !cred.IsActive {
		return nil, domain.ErrAccountDeactivated
	}

	if !s.hasher.Verify(password, cred.PasswordHash, cred.PasswordSalt) {
		return nil, s.noMatch(ctx, username)
	}

	if err := s.lockout.Clear(ctx, username); err != nil {
		s.log.Warn().Err(err).Str("username", username).Msg("failed to clear lockout state")
	}
	if err := s.users.TouchLastLogin(ctx, username); err != nil {
		s.log.Warn().Err(err).Str("username", username).Msg("failed to update last login")
	}
	if s.hasher.NeedsUpgrade(cred.PasswordHash) {
		s.log.Debug().Str("username", username).Msg("password stored in legacy format")
	}

	user, err := s.users.FindProfile(ctx, username)
	if err != nil {
		return nil, s.failed(err)
	}
	if !user.IsActive {
		return nil, domain.ErrAccountDeactivated
	}
	return user, nil
}

func (s *AuthService) noMatch(ctx context.Context, username string) error {
	status, err := s.lockout.RecordFailure(ctx, username)
	if err != nil {
		return s.failed(err)
	}
	return &domain.InvalidCredentialsError{Status: status}
}

func (s *AuthService) failed(err error) error {
	s.log.Error().Err(err).Msg("authentication error")
	return fmt.Errorf("%w: %w", domain.ErrAuthenticationFailed, err)
}

// Login authenticates and establishes a session. It never returns raw
// errors: every failure becomes a LoginResult with a user-facing message.
func (s *AuthService) Login(ctx context.Context, req ports.LoginRequest) ports.LoginResult {
	start := s.now()
	attempt := domain.LoginAttempt{
		Username:  req.Username,
		Timestamp: start,
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
	}

	res := s.login(ctx, req)

	attempt.Success = res.OK
	attempt.Reason = attemptReason(res)
	metrics.LoginDuration.WithLabelValues(attempt.Reason).Observe(s.now().Sub(start).Seconds())
	if s.attempts != nil {
		s.attempts.Record(ctx, attempt)
	}
	return res
}

func (s *AuthService) login(ctx context.Context, req ports.LoginRequest) ports.LoginResult {
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return ports.LoginResult{Message: msgMissingInput, Reason: domain.ErrMissingCredentials}
	}

	user, err := s.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return s.failure(err)
	}

	sess, err := s.sessions.Establish(ctx, user)
	if err != nil {
		s.log.Error().Err(err).Str("username", user.Username).Msg("failed to establish session")
		return ports.LoginResult{Message: msgLoginError, Reason: domain.ErrAuthenticationFailed}
	}

	s.log.Info().Str("username", user.Username).Str("role", string(user.Role)).Msg("user logged in")
	return ports.LoginResult{
		OK:      true,
		Message: fmt.Sprintf("Welcome, %s!", user.Username),
		User:    user,
		Session: sess,
	}
}

func (s *AuthService) failure(err error) ports.LoginResult {
	var invalid *domain.InvalidCredentialsError
	switch {
	case errors.Is(err, domain.ErrAccountLocked):
		return ports.LoginResult{Message: msgLocked, Reason: domain.ErrAccountLocked}
	case errors.Is(err, domain.ErrAccountDeactivated):
		return ports.LoginResult{Message: msgDeactivated, Reason: domain.ErrAccountDeactivated}
	case errors.As(err, &invalid):
		msg := fmt.Sprintf("Invalid credentials. %d attempts remaining.", invalid.Status.Remaining)
		if invalid.Status.Locked {
			msg = fmt.Sprintf("Account locked for %d minutes.", int(s.lockout.Policy().Duration/time.Minute))
		}
		return ports.LoginResult{Message: msg, Reason: domain.ErrInvalidCredentials}
	default:
		return ports.LoginResult{Message: msgLoginError, Reason: domain.ErrAuthenticationFailed}
	}
}

func attemptReason(res ports.LoginResult) string {
	switch {
	case res.OK:
		return domain.AttemptOK
	case errors.Is(res.Reason, domain.ErrMissingCredentials):
		return domain.AttemptBlank
	case errors.Is(res.Reason, domain.ErrAccountLocked):
		return domain.AttemptLocked
	case errors.Is(res.Reason, domain.ErrAccountDeactivated):
		return domain.AttemptDeactivated
	case errors.Is(res.Reason, domain.ErrInvalidCredentials):
		return domain.AttemptNoMatch
	default:
		return domain.AttemptError
	}
}
