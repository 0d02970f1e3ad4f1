package domain

import "errors"

// Failure kinds surfaced by the auth service. Handlers map these to HTTP
// statuses with errors.Is; the store has its own typed read/write errors.
var (
	// ErrValidation indicates a required request field was missing or empty.
	ErrValidation = errors.New("all fields are required")

	// ErrDuplicateAccount indicates the email is already registered.
	ErrDuplicateAccount = errors.New("account already registered")

	// ErrAccountNotFound indicates no account exists for the given email.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidCredential indicates the presented secret did not match.
	ErrInvalidCredential = errors.New("incorrect password")

	// ErrAccountLocked indicates the account is locked and cannot log in.
	// Once set, the lock never clears; there is no unlock endpoint.
	ErrAccountLocked = errors.New("account locked")

	// ErrInvalidCode indicates the recovery code is absent or does not match.
	ErrInvalidCode = errors.New("invalid recovery code")

	// ErrNotify indicates the recovery code was persisted but could not be
	// delivered. Callers can retry the request; the stored code stays valid.
	ErrNotify = errors.New("failed to send recovery email")
)

// ErrorKind returns the machine-readable kind for a service failure, used in
// JSON error bodies alongside the human-readable message.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrDuplicateAccount):
		return "duplicate_account"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrInvalidCredential):
		return "invalid_credential"
	case errors.Is(err, ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, ErrNotify):
		return "notify_error"
	default:
		return "internal_error"
	}
}
