package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// SessionState is the lifecycle position of a client session.
type SessionState int

const (
	SessionAnonymous SessionState = iota
	SessionAuthenticated
	SessionExpired
	SessionLoggedOut
)

func (s SessionState) String() string {
	switch s {
	case SessionAuthenticated:
		return "authenticated"
	case SessionExpired:
		return "expired"
	case SessionLoggedOut:
		return "logged_out"
	default:
		return "anonymous"
	}
}

// Keys of the per-session storage record.
const (
	SessionKeyUser          = "user"
	SessionKeyAuthenticated = "authenticated"
	SessionKeyLoginTime     = "login_time"
)

// Session is the server-side state of one client session. It is owned by a
// single client and passed explicitly through request handling.
type Session struct {
	ID            string
	User          *User
	Authenticated bool
	// LoginTime is advanced on every authenticated activity, so it measures
	// idle time rather than time since login.
	LoginTime time.Time
	State     SessionState
}

// Encode flattens the session into the storage record.
func (s *Session) Encode() (map[string]string, error) {
	raw, err := json.Marshal(s.User)
	if err != nil {
		return nil, fmt.Errorf("encode session user: %w", err)
	}
	return map[string]string{
		SessionKeyUser:          string(raw),
		SessionKeyAuthenticated: strconv.FormatBool(s.Authenticated),
		SessionKeyLoginTime:     s.LoginTime.UTC().Format(time.RFC3339Nano),
	}, nil
}

// DecodeSession rebuilds a session from its storage record. Any malformed
// field yields ErrSessionCorrupt.
func DecodeSession(id string, values map[string]string) (*Session, error) {
	sess := &Session{ID: id, State: SessionAnonymous}

	authenticated, err := strconv.ParseBool(values[SessionKeyAuthenticated])
	if err != nil {
		return nil, fmt.Errorf("%w: authenticated flag", ErrSessionCorrupt)
	}
	if !authenticated {
		return sess, nil
	}

	loginTime, err := time.Parse(time.RFC3339Nano, values[SessionKeyLoginTime])
	if err != nil {
		return nil, fmt.Errorf("%w: login_time", ErrSessionCorrupt)
	}

	var user User
	if err := json.Unmarshal([]byte(values[SessionKeyUser]), &user); err != nil || user.Username == "" {
		return nil, fmt.Errorf("%w: user", ErrSessionCorrupt)
	}

	sess.User = &user
	sess.Authenticated = true
	sess.LoginTime = loginTime
	sess.State = SessionAuthenticated
	return sess, nil
}
