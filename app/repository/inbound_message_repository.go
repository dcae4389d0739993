package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SocialPulseApp/SocialPulse/app/models"
)

// inboundMessageRepository implements the InboundMessageRepository interface
type inboundMessageRepository struct {
	db *gorm.DB
}

// NewInboundMessageRepository creates a new inbound message repository instance
func NewInboundMessageRepository(db *gorm.DB) InboundMessageRepository {
	return &inboundMessageRepository{db: db}
}

func (r *inboundMessageRepository) CreateIfNotExists(msg *models.InboundMessage) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "platform"},
			{Name: "external_message_id"},
		},
		DoNothing: true,
	}).Create(msg)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *inboundMessageRepository) GetByPlatformAndMessageID(platform, externalMessageID string) (*models.InboundMessage, error) {
	var msg models.InboundMessage
	err := r.db.Where("platform = ? AND external_message_id = ?", platform, externalMessageID).
		First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
