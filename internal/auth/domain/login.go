package domain

// LoginState is the outcome of a successful credential check. Login never
// yields a session directly; every account passes through enrollment or
// verification first.
type LoginState string

const (
	// StateAwaitingSetup means the user has no TOTP secret and must enroll.
	StateAwaitingSetup LoginState = "awaiting_setup"
	// StateAwaitingVerification means the user must present a TOTP code.
	StateAwaitingVerification LoginState = "awaiting_verification"
)

// LoginResult is returned by the login orchestrator: the state the account
// landed in and the pending token gating the next step.
type LoginResult struct {
	State        LoginState `json:"state"`
	PendingToken string     `json:"pending_token"`
}

// SessionResult is returned when 2FA completes: the final bearer token and
// the user's public profile.
type SessionResult struct {
	SessionToken string  `json:"session_token"`
	User         Profile `json:"user"`
}

// Profile is the externally visible slice of a User.
type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// ProfileOf projects a User onto its public profile.
func ProfileOf(u User) Profile {
	return Profile{ID: u.ID, Email: u.Email, Role: u.Role}
}

// RequestMeta carries the client attributes recorded alongside
// authentication attempts.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}
