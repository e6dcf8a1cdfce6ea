package models

import "time"

// PendingDeletion records a banned user's message whose deletion failed and
// should be retried.
type PendingDeletion struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	ChannelID string `gorm:"index:idx_channel_message,unique"`
	MessageID string `gorm:"index:idx_channel_message,unique"`
	UserID    string `gorm:"index"`
}
