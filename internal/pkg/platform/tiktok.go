package platform

import (
	"crypto/sha256"
	"encoding/json"
	"strings"
)

// tiktokStrategy handles TikTok open platform webhooks. The signature header
// carries a plain hex HMAC-SHA256 over the raw body, no scheme prefix.
type tiktokStrategy struct {
	clientSecret string
	verifyToken  string
}

func newTikTokStrategy(cfg StrategyConfig) *tiktokStrategy {
	return &tiktokStrategy{
		clientSecret: cfg.AppSecret,
		verifyToken:  cfg.VerifyToken,
	}
}

func (s *tiktokStrategy) VerifySignature(rawBody []byte, signatureHeader string, headers map[string]string) bool {
	return verifyHexSignature(rawBody, signatureHeader, s.clientSecret, sha256.New)
}

func (s *tiktokStrategy) HandleVerification(query map[string]string) string {
	return hubChallenge(query, s.verifyToken)
}

func (s *tiktokStrategy) ParsePayload(parsed map[string]interface{}) (*ParsedPayload, error) {
	event := strings.TrimSpace(getString(parsed, "event"))
	accountID := getString(parsed, "user_openid")
	if event == "" || accountID == "" {
		return nil, ErrMalformedPayload
	}

	content := decodeContent(parsed["content"])

	// Direct-message events are namespaced under "im.".
	if strings.HasPrefix(event, "im.") {
		return &ParsedPayload{
			ExternalID:        getString(content, "message_id"),
			PlatformAccountID: accountID,
			EventType:         EventTypeMessageReceived,
			Message: &MessageDetails{
				SenderID:  getString(content, "from_user_id"),
				Text:      getString(content, "text"),
				Timestamp: epochTime(parsed["create_time"]),
			},
		}, nil
	}

	kind := event
	if i := strings.IndexByte(event, '.'); i > 0 {
		kind = event[:i]
	}
	externalID := getString(content, "comment_id")
	if externalID == "" {
		externalID = getString(parsed, "event_id")
	}
	return &ParsedPayload{
		ExternalID:        externalID,
		PlatformAccountID: accountID,
		EventType:         EventTypeEngagement,
		Engagement: &EngagementDetails{
			PostID: getString(content, "video_id"),
			Kind:   kind,
		},
	}, nil
}

// decodeContent accepts the "content" field either as an embedded object or
// as a JSON-encoded string, which is how TikTok actually delivers it.
func decodeContent(v interface{}) map[string]interface{} {
	switch c := v.(type) {
	case map[string]interface{}:
		return c
	case string:
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(c), &m); err != nil {
			return nil
		}
		return m
	default:
		return nil
	}
}
