package repositories

import "errors"

var (
	// ErrOrderNotPending indicates a status transition was attempted on an
	// order that already reached a terminal state.
	ErrOrderNotPending = errors.New("order repository: order is not pending")
	// ErrDuplicateEmail indicates a user registration collided with an
	// existing account.
	ErrDuplicateEmail = errors.New("user repository: email already registered")
)

// IsNotFound reports whether err carries not-found repository semantics.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

// IsConflict reports whether err carries conflict repository semantics.
func IsConflict(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}

// IsUnavailable reports whether err carries transient-outage semantics.
func IsUnavailable(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsUnavailable()
}
