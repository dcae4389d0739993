package platform

import (
	"strconv"
	"strings"
	"time"
)

// twitterStrategy handles Account Activity API payloads. Signatures arrive
// base64-encoded in X-Twitter-Webhooks-Signature as "sha256=<b64>".
type twitterStrategy struct {
	consumerSecret string
	verifyToken    string
}

func newTwitterStrategy(cfg StrategyConfig) *twitterStrategy {
	return &twitterStrategy{
		consumerSecret: cfg.AppSecret,
		verifyToken:    cfg.VerifyToken,
	}
}

func (s *twitterStrategy) VerifySignature(rawBody []byte, signatureHeader string, headers map[string]string) bool {
	sig := strings.TrimSpace(signatureHeader)
	if b64, ok := stripPrefix(sig, "sha256="); ok {
		return verifyBase64Signature(rawBody, b64, s.consumerSecret)
	}
	return false
}

func (s *twitterStrategy) HandleVerification(query map[string]string) string {
	return hubChallenge(query, s.verifyToken)
}

func (s *twitterStrategy) ParsePayload(parsed map[string]interface{}) (*ParsedPayload, error) {
	accountID := getString(parsed, "for_user_id")

	if dm := firstMap(getSlice(parsed, "direct_message_events")); dm != nil {
		create := getMap(dm, "message_create")
		if create == nil {
			return nil, ErrMalformedPayload
		}
		data := getMap(create, "message_data")
		details := &MessageDetails{
			SenderID:  getString(create, "sender_id"),
			Text:      getString(data, "text"),
			Timestamp: epochMillisString(getString(dm, "created_timestamp")),
		}
		if media := getMap(getMap(data, "attachment"), "media"); media != nil {
			if url := getString(media, "media_url_https"); url != "" {
				details.MediaURLs = append(details.MediaURLs, url)
			}
		}
		return &ParsedPayload{
			ExternalID:        getString(dm, "id"),
			PlatformAccountID: accountID,
			EventType:         EventTypeMessageReceived,
			Message:           details,
		}, nil
	}

	if fav := firstMap(getSlice(parsed, "favorite_events")); fav != nil {
		status := getMap(fav, "favorited_status")
		if status == nil {
			return nil, ErrMalformedPayload
		}
		return &ParsedPayload{
			ExternalID:        getString(fav, "id"),
			PlatformAccountID: accountID,
			EventType:         EventTypeEngagement,
			Engagement: &EngagementDetails{
				PostID: getString(status, "id_str"),
				Kind:   "like",
			},
		}, nil
	}

	return nil, ErrMalformedPayload
}

func epochMillisString(s string) time.Time {
	ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
