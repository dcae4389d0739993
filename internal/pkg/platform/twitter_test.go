package platform

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twitterTestStrategy() *twitterStrategy {
	return newTwitterStrategy(StrategyConfig{
		AppSecret:   "consumer-secret",
		VerifyToken: "twitter-verify-token",
	})
}

func TestTwitterVerifySignature(t *testing.T) {
	s := twitterTestStrategy()
	body := []byte(`{"for_user_id":"2244994945"}`)

	mac := hmac.New(sha256.New, []byte("consumer-secret"))
	mac.Write(body)
	sig := "sha256=" + base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.True(t, s.VerifySignature(body, sig, nil))
	assert.False(t, s.VerifySignature([]byte(`{"for_user_id":"other"}`), sig, nil))
	assert.False(t, s.VerifySignature(body, "sha256=!!!not-base64!!!", nil))
	// Hex encoding without the base64 step must be rejected.
	assert.False(t, s.VerifySignature(body, "deadbeef", nil))
	assert.False(t, s.VerifySignature(body, "", nil))
}

func TestTwitterParsePayload_DirectMessage(t *testing.T) {
	s := twitterTestStrategy()
	parsed := decodeBody(t, `{
		"for_user_id": "2244994945",
		"direct_message_events": [{
			"id": "dm-110",
			"created_timestamp": "1700000000000",
			"message_create": {
				"sender_id": "user-33",
				"message_data": {
					"text": "hi from twitter",
					"attachment": {"media": {"media_url_https": "https://pbs.example/img.png"}}
				}
			}
		}]
	}`)

	got, err := s.ParsePayload(parsed)
	require.NoError(t, err)
	assert.Equal(t, "dm-110", got.ExternalID)
	assert.Equal(t, "2244994945", got.PlatformAccountID)
	assert.Equal(t, EventTypeMessageReceived, got.EventType)
	require.NotNil(t, got.Message)
	assert.Equal(t, "user-33", got.Message.SenderID)
	assert.Equal(t, "hi from twitter", got.Message.Text)
	assert.Equal(t, []string{"https://pbs.example/img.png"}, got.Message.MediaURLs)
}

func TestTwitterParsePayload_Favorite(t *testing.T) {
	s := twitterTestStrategy()
	parsed := decodeBody(t, `{
		"for_user_id": "2244994945",
		"favorite_events": [{
			"id": "fav-1",
			"favorited_status": {"id_str": "tweet-42"}
		}]
	}`)

	got, err := s.ParsePayload(parsed)
	require.NoError(t, err)
	assert.Equal(t, "fav-1", got.ExternalID)
	assert.Equal(t, EventTypeEngagement, got.EventType)
	require.NotNil(t, got.Engagement)
	assert.Equal(t, "tweet-42", got.Engagement.PostID)
	assert.Equal(t, "like", got.Engagement.Kind)
}

func TestTwitterParsePayload_Malformed(t *testing.T) {
	s := twitterTestStrategy()

	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"dm without message_create", `{"direct_message_events": [{"id": "x"}]}`},
		{"favorite without status", `{"favorite_events": [{"id": "x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ParsePayload(decodeBody(t, tt.body))
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}
