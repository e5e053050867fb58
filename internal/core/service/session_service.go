package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prostech/salesbi-auth/internal/core/domain"
	"github.com/prostech/salesbi-auth/internal/core/ports"
	"github.com/prostech/salesbi-auth/internal/pkg/metrics"
)

const DefaultSessionTimeout = time.Hour

// NoticeSessionExpired is shown when a request arrives after the idle timeout.
const NoticeSessionExpired = "Session expired. Please login again."

// SessionManager drives the session lifecycle:
// Anonymous -> Authenticated -> (Expired | LoggedOut) -> Anonymous.
//
// Timeouts are evaluated lazily when a session is next used; nothing sweeps
// idle sessions in the background.
type SessionManager struct {
	store   ports.SessionStore
	timeout time.Duration
	now     func() time.Time
	newID   func() string
	log     zerolog.Logger
}

func NewSessionManager(store ports.SessionStore, timeout time.Duration, log zerolog.Logger) *SessionManager {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return &SessionManager{
		store:   store,
		timeout: timeout,
		now:     time.Now,
		newID:   uuid.NewString,
		log:     log.With().Str("component", "session").Logger(),
	}
}

func (m *SessionManager) Timeout() time.Duration { return m.timeout }

// Establish creates an authenticated session for user.
func (m *SessionManager) Establish(ctx context.Context, user *domain.User) (*domain.Session, error) {
	if user == nil {
		return nil, errors.New("establish session: nil user")
	}
	sess := &domain.Session{
		ID:            m.newID(),
		User:          user,
		Authenticated: true,
		LoginTime:     m.now(),
		State:         domain.SessionAuthenticated,
	}
	if err := m.save(ctx, sess); err != nil {
		return nil, fmt.Errorf("establish session: %w", err)
	}
	metrics.SessionsEstablishedTotal.Inc()
	return sess, nil
}

// Load fetches a session by id. Corrupt records are removed and reported as
// domain.ErrSessionCorrupt so callers can treat the client as anonymous.
func (m *SessionManager) Load(ctx context.Context, id string) (*domain.Session, error) {
	values, err := m.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	sess, err := domain.DecodeSession(id, values)
	if err != nil {
		m.log.Warn().Err(err).Str("session_id", id).Msg("discarding corrupt session")
		if delErr := m.store.Delete(ctx, id); delErr != nil {
			m.log.Error().Err(delErr).Str("session_id", id).Msg("failed to delete corrupt session")
		}
		metrics.SessionsEndedTotal.WithLabelValues("corrupt").Inc()
		return nil, err
	}
	return sess, nil
}

// IsAuthenticated reports whether sess is authenticated and inside the idle
// timeout. A timed-out session is torn down and a notice is returned.
func (m *SessionManager) IsAuthenticated(ctx context.Context, sess *domain.Session) (bool, string) {
	if sess == nil || !sess.Authenticated {
		return false, ""
	}
	if m.now().Sub(sess.LoginTime) > m.timeout {
		m.expire(ctx, sess)
		return false, NoticeSessionExpired
	}
	return true, ""
}

func (m *SessionManager) expire(ctx context.Context, sess *domain.Session) {
	username := ""
	if sess.User != nil {
		username = sess.User.Username
	}
	if err := m.store.Delete(ctx, sess.ID); err != nil {
		m.log.Error().Err(err).Str("session_id", sess.ID).Msg("failed to delete expired session")
	}
	m.reset(sess, domain.SessionExpired)
	metrics.SessionsEndedTotal.WithLabelValues("expired").Inc()
	m.log.Info().Str("username", username).Msg("session expired")
}

// Refresh advances the session's activity time to now.
func (m *SessionManager) Refresh(ctx context.Context, sess *domain.Session) error {
	if ok, _ := m.IsAuthenticated(ctx, sess); !ok {
		return domain.ErrUnauthenticated
	}
	sess.LoginTime = m.now()
	if err := m.save(ctx, sess); err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	return nil
}

// CurrentUser returns a copy of the session's principal.
func (m *SessionManager) CurrentUser(ctx context.Context, sess *domain.Session) (*domain.User, bool) {
	if ok, _ := m.IsAuthenticated(ctx, sess); !ok || sess.User == nil {
		return nil, false
	}
	u := *sess.User
	return &u, true
}

// Logout ends the session and removes its stored state.
func (m *SessionManager) Logout(ctx context.Context, sess *domain.Session) error {
	if sess == nil {
		return nil
	}
	username := "Unknown"
	if sess.User != nil {
		username = sess.User.Username
	}

	err := m.store.Delete(ctx, sess.ID)
	m.reset(sess, domain.SessionLoggedOut)
	metrics.SessionsEndedTotal.WithLabelValues("logout").Inc()
	m.log.Info().Str("username", username).Msg("user logged out")

	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (m *SessionManager) save(ctx context.Context, sess *domain.Session) error {
	values, err := sess.Encode()
	if err != nil {
		return err
	}
	return m.store.Save(ctx, sess.ID, values, m.retention())
}

// retention is how long the store keeps a record. It outlives the idle
// timeout so an expired session is still found and reported as expired.
func (m *SessionManager) retention() time.Duration {
	return 2 * m.timeout
}

func (m *SessionManager) reset(sess *domain.Session, state domain.SessionState) {
	sess.User = nil
	sess.Authenticated = false
	sess.LoginTime = time.Time{}
	sess.State = state
}
