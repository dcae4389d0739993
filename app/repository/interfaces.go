package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/SocialPulseApp/SocialPulse/app/models"
)

// SocialAccountRepository defines the read surface this pipeline needs from
// the account records owned by the sibling CRUD service.
type SocialAccountRepository interface {
	FindByPlatformAndAccountID(platform, platformAccountID string) (*models.SocialAccount, error)
	GetByID(id uint) (*models.SocialAccount, error)
}

// WebhookEventRepository defines database operations for canonical events
type WebhookEventRepository interface {
	// CreateIfNotExists upserts on (platform, external_id) with a no-op
	// conflict. Returns true when the row was newly created.
	CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkProcessed(id uint, errorMessage string) error
	GetByPlatformAndExternalID(platform, externalID string) (*models.WebhookEvent, error)
	CountByPlatform(platform string) (int64, error)
}

// EngagementMetricRepository defines database operations for engagement counters
type EngagementMetricRepository interface {
	// IncrementOrCreate creates the (postID, platform, engagementType) row
	// with count=1 or atomically increments the existing counter.
	IncrementOrCreate(postID, platform, engagementType string, occurredAt time.Time) error
	GetByKey(postID, platform, engagementType string) (*models.EngagementMetric, error)
}

// InboundMessageRepository defines database operations for ingested messages
type InboundMessageRepository interface {
	// CreateIfNotExists is idempotent on (platform, external_message_id).
	CreateIfNotExists(msg *models.InboundMessage) (bool, error)
	GetByPlatformAndMessageID(platform, externalMessageID string) (*models.InboundMessage, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	SocialAccount  SocialAccountRepository
	WebhookEvent   WebhookEventRepository
	Engagement     EngagementMetricRepository
	InboundMessage InboundMessageRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		SocialAccount:  NewSocialAccountRepository(db),
		WebhookEvent:   NewWebhookEventRepository(db),
		Engagement:     NewEngagementMetricRepository(db),
		InboundMessage: NewInboundMessageRepository(db),
	}
}
