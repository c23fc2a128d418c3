package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated occurs when a request carries no valid session.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrDuplicate indicates a unique constraint violation.
	ErrDuplicate = errors.New("duplicate entry")
)

// ValidationError marks rejected input. The message is already safe to
// show to API consumers.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// UserSafeMessage maps internal errors to text safe for API consumers.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "The requested record was not found."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid username or password."
	case errors.Is(err, ErrUnauthenticated):
		return "Please sign in to continue."
	case errors.Is(err, ErrDuplicate):
		return "A record with the same identifier already exists."
	default:
		return "Something went wrong. Please try again."
	}
}
