package platform

import (
	"errors"
	"strings"
	"time"
)

// Platform identifies a supported social network.
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformTikTok    Platform = "tiktok"
)

// Event types produced by payload parsing.
const (
	EventTypeEngagement      = "ENGAGEMENT"
	EventTypeMessageReceived = "MESSAGE_RECEIVED"
)

// ErrMalformedPayload signals that a payload carries no recognizable entry.
// This is terminal for the event: callers must drop it instead of retrying.
var ErrMalformedPayload = errors.New("webhook payload contains no recognizable entry")

// ParsePlatform normalizes a path segment to a known platform.
func ParsePlatform(s string) (Platform, bool) {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case PlatformFacebook:
		return PlatformFacebook, true
	case PlatformInstagram:
		return PlatformInstagram, true
	case PlatformTwitter:
		return PlatformTwitter, true
	case PlatformTikTok:
		return PlatformTikTok, true
	default:
		return "", false
	}
}

// MessageDetails carries the fields extracted from a MESSAGE_RECEIVED payload.
type MessageDetails struct {
	SenderID  string
	Text      string
	Timestamp time.Time
	MediaURLs []string
}

// EngagementDetails carries the fields extracted from an engagement payload.
type EngagementDetails struct {
	PostID string
	Kind   string // like, comment, share, ...
}

// ParsedPayload is the canonical extraction result shared by all strategies.
// Exactly one of Message/Engagement is set, matching EventType.
type ParsedPayload struct {
	ExternalID        string
	PlatformAccountID string
	EventType         string
	Message           *MessageDetails
	Engagement        *EngagementDetails
}
