package models

import "time"

// PostStats tracks activity of one post. MessageCount only decreases on an
// explicit reset.
type PostStats struct {
	MessageCount int       `json:"message_count"`
	LastActivity time.Time `json:"last_activity"`
}
