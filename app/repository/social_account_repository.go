package repository

import (
	"gorm.io/gorm"

	"github.com/SocialPulseApp/SocialPulse/app/models"
)

// socialAccountRepository implements the SocialAccountRepository interface
type socialAccountRepository struct {
	db *gorm.DB
}

// NewSocialAccountRepository creates a new social account repository instance
func NewSocialAccountRepository(db *gorm.DB) SocialAccountRepository {
	return &socialAccountRepository{db: db}
}

func (r *socialAccountRepository) FindByPlatformAndAccountID(platform, platformAccountID string) (*models.SocialAccount, error) {
	var account models.SocialAccount
	err := r.db.Where("platform = ? AND platform_account_id = ?", platform, platformAccountID).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *socialAccountRepository) GetByID(id uint) (*models.SocialAccount, error) {
	var account models.SocialAccount
	if err := r.db.First(&account, id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}
