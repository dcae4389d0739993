package controllers

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/SocialPulseApp/SocialPulse/internal/pkg/jobqueue"
	"github.com/SocialPulseApp/SocialPulse/internal/pkg/metrics/counter"
	"github.com/SocialPulseApp/SocialPulse/internal/pkg/platform"
)

// Literal acknowledgement bodies. POST always answers 200 with one of these
// so retry-happy upstreams never see a retry-worthy status; the body is the
// only externally visible distinction between outcomes.
const (
	RespEventQueued           = "EVENT_RECEIVED_AND_QUEUED"
	RespEventInvalidSignature = "EVENT_RECEIVED_INVALID_SIGNATURE"
	RespEventVerifySkipped    = "EVENT_RECEIVED_VERIFICATION_SKIPPED"
	RespEventGeneric          = "EVENT_RECEIVED"
)

var (
	webhookRegistry *platform.Registry
	webhookQueue    *jobqueue.Queue
)

// signatureHeaders lists the header each platform signs with, most specific
// first.
var signatureHeaders = map[platform.Platform][]string{
	platform.PlatformFacebook:  {"X-Hub-Signature-256", "X-Hub-Signature"},
	platform.PlatformInstagram: {"X-Hub-Signature-256", "X-Hub-Signature"},
	platform.PlatformTwitter:   {"X-Twitter-Webhooks-Signature"},
	platform.PlatformTikTok:    {"TikTok-Signature"},
}

// InitializeWebhookController wires the gateway with the strategy registry
// and the durable queue.
func InitializeWebhookController(registry *platform.Registry, queue *jobqueue.Queue) {
	webhookRegistry = registry
	webhookQueue = queue
}

// HandleWebhookVerification answers the one-time subscribe handshake.
func HandleWebhookVerification(c *fiber.Ctx) error {
	plat, ok := platform.ParsePlatform(c.Params("platform"))
	if !ok {
		return c.SendStatus(fiber.StatusForbidden)
	}
	strategy, ok := webhookRegistry.Get(plat)
	if !ok {
		return c.SendStatus(fiber.StatusForbidden)
	}

	query := map[string]string{
		"hub.mode":         c.Query("hub.mode"),
		"hub.verify_token": c.Query("hub.verify_token"),
		"hub.challenge":    c.Query("hub.challenge"),
	}
	challenge := strategy.HandleVerification(query)
	if challenge == "" {
		log.Warnf("[Gateway] Rejected verification handshake for %s", plat)
		return c.SendStatus(fiber.StatusForbidden)
	}
	return c.Status(fiber.StatusOK).SendString(challenge)
}

// HandleWebhookReceive is the synchronous ingestion path: verify the
// signature over the exact raw bytes, enqueue, acknowledge. Every outcome
// answers 200.
func HandleWebhookReceive(c *fiber.Ctx) error {
	plat, ok := platform.ParsePlatform(c.Params("platform"))
	if !ok {
		log.Warnf("[Gateway] Webhook for unknown platform %q", c.Params("platform"))
		return c.Status(fiber.StatusOK).SendString(RespEventGeneric)
	}
	strategy, ok := webhookRegistry.Get(plat)
	if !ok {
		log.Errorf("[Gateway] No strategy registered for %s", plat)
		return c.Status(fiber.StatusOK).SendString(RespEventGeneric)
	}
	_ = counter.AddReceived(string(plat))

	// Keep our own copy: fiber reuses the request buffer after the handler
	// returns, and the job outlives the request.
	rawBody := append([]byte(nil), c.BodyRaw()...)
	headers := flattenHeaders(c.GetReqHeaders())

	var parsedBody map[string]interface{}
	if len(rawBody) > 0 {
		if err := json.Unmarshal(rawBody, &parsedBody); err != nil {
			log.Warnf("[Gateway] Non-JSON body from %s (%d bytes)", plat, len(rawBody))
		}
	}

	// Signature verification needs the exact bytes the platform signed. If
	// the raw body is unavailable we fall back to a re-serialized copy,
	// which loses byte fidelity but keeps the check in place.
	verifyBody := rawBody
	degraded := false
	if len(verifyBody) == 0 && parsedBody != nil {
		if reserialized, err := json.Marshal(parsedBody); err == nil {
			verifyBody = reserialized
			degraded = true
			log.Warnf("[Gateway] Raw body unavailable for %s, verifying re-serialized body", plat)
		}
	}

	signature := firstHeaderValue(headers, signatureHeaders[plat]...)
	if !strategy.VerifySignature(verifyBody, signature, headers) {
		log.Warnf("[Gateway] Invalid signature on %s webhook", plat)
		_ = counter.AddRejected(string(plat))
		return c.Status(fiber.StatusOK).SendString(RespEventInvalidSignature)
	}

	_, err := webhookQueue.EnqueueWebhook(jobqueue.WebhookJobPayload{
		Platform:   string(plat),
		RawBody:    string(rawBody),
		Headers:    headers,
		ParsedBody: parsedBody,
		ReceivedAt: time.Now(),
	})
	if err != nil {
		// Never bubble a 5xx to the platform: that only triggers a retry
		// storm for an event we already failed to queue once.
		log.Errorf("[Gateway] Failed to enqueue %s webhook: %v", plat, err)
		return c.Status(fiber.StatusOK).SendString(RespEventGeneric)
	}

	_ = counter.AddQueued(string(plat))
	if degraded {
		return c.Status(fiber.StatusOK).SendString(RespEventVerifySkipped)
	}
	return c.Status(fiber.StatusOK).SendString(RespEventQueued)
}

// HandleWebhookHealth is the per-platform liveness probe.
func HandleWebhookHealth(c *fiber.Ctx) error {
	plat, ok := platform.ParsePlatform(c.Params("platform"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":  "unknown",
			"message": "unsupported platform",
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":    "ok",
		"platform":  string(plat),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"message":   "webhook endpoint ready",
	})
}

// flattenHeaders joins multi-valued headers with ", " so strategies see one
// value per name.
func flattenHeaders(in map[string][]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, vals := range in {
		out[k] = strings.Join(vals, ", ")
	}
	return out
}

// firstHeaderValue matches case-insensitively: fasthttp canonicalizes header
// names, so "TikTok-Signature" arrives as "Tiktok-Signature".
func firstHeaderValue(headers map[string]string, names ...string) string {
	for _, name := range names {
		for k, v := range headers {
			if strings.EqualFold(k, name) {
				if v = strings.TrimSpace(v); v != "" {
					return v
				}
			}
		}
	}
	return ""
}
