package platform

import "errors"

// ErrNotFound is returned by fetch calls when the referenced channel, user or
// guild no longer exists on the platform.
var ErrNotFound = errors.New("platform: not found")
