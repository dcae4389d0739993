package models

import "time"

// EngagementMetric aggregates engagement counts per post, platform and
// engagement type. Rows are written with an upsert-increment so concurrent
// workers never lose updates.
type EngagementMetric struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	PostID           string    `gorm:"type:varchar(191);not null;index:ux_engagement_metrics_post_platform_type,unique,priority:1" json:"post_id"`
	Platform         string    `gorm:"type:varchar(32);not null;index:ux_engagement_metrics_post_platform_type,unique,priority:2" json:"platform"`
	Type             string    `gorm:"type:varchar(50);not null;index:ux_engagement_metrics_post_platform_type,unique,priority:3" json:"type"`
	Count            int64     `gorm:"not null;default:0" json:"count"`
	LastEngagementAt time.Time `gorm:"type:timestamp;not null" json:"last_engagement_at"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
