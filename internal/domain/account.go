package domain

// LockThreshold is the number of consecutive failed login attempts after
// which an account is permanently locked.
const LockThreshold = 3

// Account represents a registered identity. It is the persisted record owned
// by the account store; API responses use AccountView instead so the
// credential hash and any outstanding recovery code never leave the service.
type Account struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	CredentialHash string  `json:"credential_hash"`
	FailedAttempts int     `json:"failed_attempts"`
	Locked         bool    `json:"locked"`
	RecoveryCode   *string `json:"recovery_code,omitempty"` // Pointer to handle null
}

// AccountView is the redacted representation returned by the accounts listing.
type AccountView struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	FailedAttempts int    `json:"failed_attempts"`
	Locked         bool   `json:"locked"`
}

// View returns the redacted representation of the account.
func (a Account) View() AccountView {
	return AccountView{
		ID:             a.ID,
		Name:           a.Name,
		Email:          a.Email,
		FailedAttempts: a.FailedAttempts,
		Locked:         a.Locked,
	}
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Secret string `json:"secret"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
}

// RecoverRequest is the body of POST /auth/recover.
type RecoverRequest struct {
	Email string `json:"email"`
}

// ResetRequest is the body of POST /auth/reset.
type ResetRequest struct {
	Email     string `json:"email"`
	Code      string `json:"code"`
	NewSecret string `json:"new_secret"`
}

// AccountRegisteredEvent is published to the auth_events exchange after a
// new account has been persisted.
type AccountRegisteredEvent struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
}

// AccountLockedEvent is published when repeated login failures lock an account.
type AccountLockedEvent struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
}

// PasswordResetEvent is published after a recovery code has been consumed and
// the credential replaced.
type PasswordResetEvent struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
}
