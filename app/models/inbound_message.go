package models

import "time"

// InboundMessage is a direct message extracted from a MESSAGE_RECEIVED
// webhook event. (platform, external_message_id) is unique so a redelivered
// event cannot ingest the same message twice.
type InboundMessage struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Platform          string     `gorm:"type:varchar(32);not null;index:ux_inbound_messages_platform_message,unique,priority:1" json:"platform"`
	ExternalMessageID string     `gorm:"type:varchar(191);not null;index:ux_inbound_messages_platform_message,unique,priority:2" json:"external_message_id"`
	OrganizationID    uint       `gorm:"not null;index" json:"organization_id"`
	PlatformAccountID string     `gorm:"type:varchar(191);not null;index" json:"platform_account_id"`
	SenderID          string     `gorm:"type:varchar(191);not null" json:"sender_id"`
	Text              string     `gorm:"type:text" json:"text"`
	MediaJSON         string     `gorm:"type:text" json:"media_json"`
	SentAt            *time.Time `gorm:"type:timestamp;default:null" json:"sent_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}
