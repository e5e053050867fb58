package domain

import "time"

// LoginAttempt describes one call to the login endpoint. Attempts are emitted
// as log events and metrics; they are not written to the database.
type LoginAttempt struct {
	Username  string
	Timestamp time.Time
	Success   bool
	Reason    string
	IPAddress string
	UserAgent string
}

// Reasons attached to LoginAttempt.
const (
	AttemptOK          = "ok"
	AttemptLocked      = "locked"
	AttemptDeactivated = "deactivated"
	AttemptNoMatch     = "invalid_credentials"
	AttemptError       = "error"
	AttemptBlank       = "blank_input"
)
