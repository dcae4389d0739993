package platform

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"hash"
	"strings"
)

// Strategy is the per-platform capability set behind the webhook pipeline.
// Implementations must be safe for concurrent use; one instance may serve
// several platforms from the same vendor family.
type Strategy interface {
	// VerifySignature checks the signature header against the raw request
	// body. It returns false on any malformed input and never panics.
	VerifySignature(rawBody []byte, signatureHeader string, headers map[string]string) bool

	// ParsePayload extracts the canonical event fields from the decoded
	// request body. Returns ErrMalformedPayload when nothing recognizable
	// is found.
	ParsePayload(parsed map[string]interface{}) (*ParsedPayload, error)

	// HandleVerification implements the one-time subscribe handshake.
	// Returns the challenge string to echo, or "" to reject.
	HandleVerification(query map[string]string) string
}

func verifyHMAC(payload, expectedSig, secret []byte, hashFunc func() hash.Hash) bool {
	mac := hmac.New(hashFunc, secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expectedSig)
}

// verifyHexSignature checks a hex-encoded HMAC, optionally prefixed like
// "sha256=<hex>".
func verifyHexSignature(rawBody []byte, sig, secret string, hashFunc func() hash.Hash) bool {
	sig = strings.TrimSpace(sig)
	secret = strings.TrimSpace(secret)
	if sig == "" || secret == "" {
		return false
	}
	decoded, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}
	return verifyHMAC(rawBody, decoded, []byte(secret), hashFunc)
}

// verifyBase64Signature checks a base64-encoded HMAC-SHA256.
func verifyBase64Signature(rawBody []byte, sig, secret string) bool {
	sig = strings.TrimSpace(sig)
	secret = strings.TrimSpace(secret)
	if sig == "" || secret == "" {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return false
	}
	return verifyHMAC(rawBody, decoded, []byte(secret), sha256.New)
}

func stripPrefix(sig, prefix string) (string, bool) {
	if strings.HasPrefix(sig, prefix) {
		return strings.TrimPrefix(sig, prefix), true
	}
	return sig, false
}

// hub.* handshake shared by the strategies: echo the challenge only when the
// mode is "subscribe" and the token matches the configured secret.
func hubChallenge(query map[string]string, verifyToken string) string {
	mode := strings.TrimSpace(query["hub.mode"])
	token := strings.TrimSpace(query["hub.verify_token"])
	challenge := query["hub.challenge"]
	if mode != "subscribe" || verifyToken == "" || token != verifyToken {
		return ""
	}
	return challenge
}

// Map-digging helpers for the loosely typed decoded bodies.

func getMap(m map[string]interface{}, key string) map[string]interface{} {
	if m == nil {
		return nil
	}
	v, ok := m[key].(map[string]interface{})
	if !ok {
		return nil
	}
	return v
}

func getSlice(m map[string]interface{}, key string) []interface{} {
	if m == nil {
		return nil
	}
	v, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	return v
}

func getString(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	default:
		return ""
	}
}

func firstMap(s []interface{}) map[string]interface{} {
	if len(s) == 0 {
		return nil
	}
	m, ok := s[0].(map[string]interface{})
	if !ok {
		return nil
	}
	return m
}
