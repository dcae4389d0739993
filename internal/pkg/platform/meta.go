package platform

import (
	"crypto/sha1"
	"crypto/sha256"
	"strings"
	"time"
)

// metaStrategy serves the Meta vendor family. Facebook and Instagram
// webhooks share the same envelope, signature scheme and handshake, so one
// instance is registered for both platforms.
type metaStrategy struct {
	appSecret   string
	verifyToken string
}

func newMetaStrategy(cfg StrategyConfig) *metaStrategy {
	return &metaStrategy{
		appSecret:   cfg.AppSecret,
		verifyToken: cfg.VerifyToken,
	}
}

// VerifySignature accepts the X-Hub-Signature-256 ("sha256=<hex>") and the
// legacy X-Hub-Signature ("sha1=<hex>") header formats.
func (s *metaStrategy) VerifySignature(rawBody []byte, signatureHeader string, headers map[string]string) bool {
	sig := strings.TrimSpace(signatureHeader)
	if sig == "" {
		return false
	}
	if hexSig, ok := stripPrefix(sig, "sha256="); ok {
		return verifyHexSignature(rawBody, hexSig, s.appSecret, sha256.New)
	}
	if hexSig, ok := stripPrefix(sig, "sha1="); ok {
		return verifyHexSignature(rawBody, hexSig, s.appSecret, sha1.New)
	}
	return false
}

func (s *metaStrategy) HandleVerification(query map[string]string) string {
	return hubChallenge(query, s.verifyToken)
}

// ParsePayload reads the Meta envelope: entry[0].messaging[0] yields a
// MESSAGE_RECEIVED event, entry[0].changes[0] an ENGAGEMENT event.
func (s *metaStrategy) ParsePayload(parsed map[string]interface{}) (*ParsedPayload, error) {
	entry := firstMap(getSlice(parsed, "entry"))
	if entry == nil {
		return nil, ErrMalformedPayload
	}

	accountID := getString(entry, "id")

	if messaging := firstMap(getSlice(entry, "messaging")); messaging != nil {
		msg := getMap(messaging, "message")
		if msg == nil {
			return nil, ErrMalformedPayload
		}
		details := &MessageDetails{
			SenderID:  getString(getMap(messaging, "sender"), "id"),
			Text:      getString(msg, "text"),
			Timestamp: epochTime(messaging["timestamp"]),
		}
		for _, a := range getSlice(msg, "attachments") {
			if am, ok := a.(map[string]interface{}); ok {
				if url := getString(getMap(am, "payload"), "url"); url != "" {
					details.MediaURLs = append(details.MediaURLs, url)
				}
			}
		}
		return &ParsedPayload{
			ExternalID:        getString(msg, "mid"),
			PlatformAccountID: accountID,
			EventType:         EventTypeMessageReceived,
			Message:           details,
		}, nil
	}

	if change := firstMap(getSlice(entry, "changes")); change != nil {
		value := getMap(change, "value")
		if value == nil {
			return nil, ErrMalformedPayload
		}
		postID := getString(value, "post_id")
		if postID == "" {
			postID = getString(value, "media_id")
		}
		kind := getString(value, "item")
		if kind == "" {
			kind = getString(change, "field")
		}
		// comment_id is present for comment notifications; legacy feed
		// shapes carry no event id at all.
		return &ParsedPayload{
			ExternalID:        getString(value, "comment_id"),
			PlatformAccountID: accountID,
			EventType:         EventTypeEngagement,
			Engagement: &EngagementDetails{
				PostID: postID,
				Kind:   kind,
			},
		}, nil
	}

	return nil, ErrMalformedPayload
}

// epochTime converts a JSON number holding epoch seconds or milliseconds.
func epochTime(v interface{}) time.Time {
	f, ok := v.(float64)
	if !ok || f <= 0 {
		return time.Time{}
	}
	n := int64(f)
	if n > 1e12 {
		return time.UnixMilli(n)
	}
	return time.Unix(n, 0)
}
