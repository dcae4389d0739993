package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SocialPulseApp/SocialPulse/app/models"
)

// webhookEventRepository implements the WebhookEventRepository interface
type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a new webhook event repository instance
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

// CreateIfNotExists inserts the event or leaves the existing row untouched
// when (platform, external_id) already exists. The unique constraint, not
// application locking, serializes concurrent writers on the same key.
func (r *webhookEventRepository) CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "platform"},
			{Name: "external_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("platform = ? AND external_id = ?", event.Platform, event.ExternalID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *webhookEventRepository) MarkProcessed(id uint, errorMessage string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed":     true,
		"processed_at":  &now,
		"error_message": errorMessage,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *webhookEventRepository) GetByPlatformAndExternalID(platform, externalID string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	err := r.db.Where("platform = ? AND external_id = ?", platform, externalID).First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *webhookEventRepository) CountByPlatform(platform string) (int64, error) {
	var count int64
	err := r.db.Model(&models.WebhookEvent{}).Where("platform = ?", platform).Count(&count).Error
	return count, err
}
