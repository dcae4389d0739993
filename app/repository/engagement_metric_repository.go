package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SocialPulseApp/SocialPulse/app/models"
)

// engagementMetricRepository implements the EngagementMetricRepository interface
type engagementMetricRepository struct {
	db *gorm.DB
}

// NewEngagementMetricRepository creates a new engagement metric repository instance
func NewEngagementMetricRepository(db *gorm.DB) EngagementMetricRepository {
	return &engagementMetricRepository{db: db}
}

// IncrementOrCreate creates the counter row with count=1 or bumps the
// existing count server-side, so concurrent increments never lose updates.
func (r *engagementMetricRepository) IncrementOrCreate(postID, platform, engagementType string, occurredAt time.Time) error {
	metric := models.EngagementMetric{
		PostID:           postID,
		Platform:         platform,
		Type:             engagementType,
		Count:            1,
		LastEngagementAt: occurredAt,
	}

	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "post_id"},
			{Name: "platform"},
			{Name: "type"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count":              gorm.Expr("count + 1"),
			"last_engagement_at": occurredAt,
		}),
	}).Create(&metric).Error
}

func (r *engagementMetricRepository) GetByKey(postID, platform, engagementType string) (*models.EngagementMetric, error) {
	var metric models.EngagementMetric
	err := r.db.Where("post_id = ? AND platform = ? AND type = ?", postID, platform, engagementType).
		First(&metric).Error
	if err != nil {
		return nil, err
	}
	return &metric, nil
}
