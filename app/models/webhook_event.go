package models

import "time"

// Event types a canonical webhook event can carry.
const (
	EventTypeEngagement      = "ENGAGEMENT"
	EventTypeMessageReceived = "MESSAGE_RECEIVED"
)

// WebhookEvent stores one deduplicated inbound platform notification.
// The (platform, external_id) pair is unique so upstream redeliveries
// resolve to the same row instead of creating duplicates.
type WebhookEvent struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Platform          string     `gorm:"type:varchar(32);not null;index:ux_webhook_events_platform_external,unique,priority:1;index" json:"platform"`
	ExternalID        string     `gorm:"type:varchar(191);not null;default:'';index:ux_webhook_events_platform_external,unique,priority:2" json:"external_id"`
	EventType         string     `gorm:"type:varchar(50);not null;index" json:"event_type"`
	OrganizationID    uint       `gorm:"not null;index" json:"organization_id"`
	PlatformAccountID string     `gorm:"type:varchar(191);not null;index" json:"platform_account_id"`
	PayloadJSON       string     `gorm:"type:longtext;not null" json:"payload_json"`
	Processed         bool       `gorm:"default:false;index" json:"processed"`
	ProcessedAt       *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ErrorMessage      string     `gorm:"type:text" json:"error_message"`
	RetryCount        int        `gorm:"default:0" json:"retry_count"`
	CreatedAt         time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
