package models

import "time"

// SocialAccount links a platform-side account to the owning organization.
// Account CRUD lives in a sibling service; this pipeline only reads rows to
// resolve organization ownership and the encrypted access token.
type SocialAccount struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	OrganizationID    uint       `gorm:"not null;index" json:"organization_id"`
	Platform          string     `gorm:"type:varchar(32);not null;index:ux_social_accounts_platform_account,unique,priority:1" json:"platform"`
	PlatformAccountID string     `gorm:"type:varchar(191);not null;index:ux_social_accounts_platform_account,unique,priority:2" json:"platform_account_id"`
	DisplayName       string     `gorm:"type:varchar(191)" json:"display_name"`
	AccessTokenEnc    string     `gorm:"type:text" json:"-"`
	TokenExpiresAt    *time.Time `gorm:"type:timestamp;default:null" json:"token_expires_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
