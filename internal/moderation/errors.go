package moderation

import "errors"

var (
	// ErrPermissionDenied means the actor lacks delegated or role-based
	// rights for the operation. Surfaced directly, never audited as a
	// failure.
	ErrPermissionDenied = errors.New("moderation: permission denied")

	// ErrInvalidChannel means the operation was invoked outside a moderated
	// thread.
	ErrInvalidChannel = errors.New("moderation: not a moderated thread")

	// ErrTimeout means a bounded platform mutation exceeded its deadline.
	// The caller must re-issue explicitly; there is no automatic retry.
	ErrTimeout = errors.New("moderation: operation timed out")
)
