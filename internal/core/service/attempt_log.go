package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/prostech/salesbi-auth/internal/core/domain"
	"github.com/prostech/salesbi-auth/internal/pkg/metrics"
)

// AttemptLog emits login attempts as structured log events and metrics.
type AttemptLog struct {
	log zerolog.Logger
}

func NewAttemptLog(log zerolog.Logger) *AttemptLog {
	return &AttemptLog{log: log.With().Str("component", "login_attempts").Logger()}
}

func (a *AttemptLog) Record(_ context.Context, attempt domain.LoginAttempt) {
	metrics.LoginAttemptsTotal.WithLabelValues(attempt.Reason).Inc()

	ev := a.log.Info()
	if !attempt.Success {
		ev = a.log.Warn()
	}
	ev.Str("username", attempt.Username).
		Time("at", attempt.Timestamp).
		Bool("success", attempt.Success).
		Str("reason", attempt.Reason).
		Str("ip", attempt.IPAddress).
		Str("user_agent", attempt.UserAgent).
		Msg("login attempt")
}
