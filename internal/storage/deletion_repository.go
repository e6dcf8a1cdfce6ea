package storage

import (
	"forum-warden/internal/models"

	"gorm.io/gorm"
)

// DeletionRepository handles database operations for PendingDeletion
type DeletionRepository struct {
	db *gorm.DB
}

// NewDeletionRepository creates a new DeletionRepository
func NewDeletionRepository(db *gorm.DB) *DeletionRepository {
	return &DeletionRepository{db: db}
}

// MigrateTable ensures the PendingDeletion table exists
func (r *DeletionRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.PendingDeletion{})
}

// Add records a new pending deletion
func (r *DeletionRepository) Add(pd *models.PendingDeletion) error {
	return r.db.Create(pd).Error
}

// Remove deletes a pending deletion by channel and message ID
func (r *DeletionRepository) Remove(channelID, messageID string) error {
	return r.db.Where("channel_id = ? AND message_id = ?", channelID, messageID).Delete(&models.PendingDeletion{}).Error
}

// GetAll retrieves all pending deletions
func (r *DeletionRepository) GetAll() ([]models.PendingDeletion, error) {
	var pending []models.PendingDeletion
	result := r.db.Find(&pending)
	return pending, result.Error
}

// GetByUser retrieves pending deletions for one user in one channel
func (r *DeletionRepository) GetByUser(channelID, userID string) ([]models.PendingDeletion, error) {
	var pending []models.PendingDeletion
	result := r.db.Where("channel_id = ? AND user_id = ?", channelID, userID).Find(&pending)
	return pending, result.Error
}
