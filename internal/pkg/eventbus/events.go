package eventbus

import "time"

// EngagementRecorded is published for every canonical event that is not a
// direct message. Consumed by the engagement aggregator.
type EngagementRecorded struct {
	Platform       string    `json:"platform"`
	PostID         string    `json:"post_id"`
	Kind           string    `json:"kind"`
	OrganizationID uint      `json:"organization_id"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// MessageReceived is published for MESSAGE_RECEIVED canonical events.
// Consumed by the inbound message ingestor.
type MessageReceived struct {
	Platform          string    `json:"platform"`
	ExternalMessageID string    `json:"external_message_id"`
	OrganizationID    uint      `json:"organization_id"`
	PlatformAccountID string    `json:"platform_account_id"`
	SenderID          string    `json:"sender_id"`
	Text              string    `json:"text"`
	MediaURLs         []string  `json:"media_urls,omitempty"`
	SentAt            time.Time `json:"sent_at"`
}
