package jobqueue

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/SocialPulseApp/SocialPulse/app/models"
	"github.com/SocialPulseApp/SocialPulse/app/repository"
	"github.com/SocialPulseApp/SocialPulse/internal/pkg/eventbus"
	"github.com/SocialPulseApp/SocialPulse/internal/pkg/platform"
)

// WebhookProcessor turns queued deliveries into canonical events and routes
// each one to exactly one downstream consumer via the event bus.
type WebhookProcessor struct {
	registry *platform.Registry
	repos    *repository.Repositories
	bus      *eventbus.Bus
}

// NewWebhookProcessor creates the queue processor for webhook jobs
func NewWebhookProcessor(registry *platform.Registry, repos *repository.Repositories, bus *eventbus.Bus) *WebhookProcessor {
	return &WebhookProcessor{
		registry: registry,
		repos:    repos,
		bus:      bus,
	}
}

// Process re-derives the canonical event from the job payload, persists it
// idempotently and publishes the fan-out event. Terminal errors mean the
// data can never become processable; anything else is left to the queue's
// retry policy.
func (p *WebhookProcessor) Process(ctx context.Context, job *Job) error {
	payload, err := WebhookJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("%w: undecodable job payload: %v", platform.ErrMalformedPayload, err)
	}

	plat, ok := platform.ParsePlatform(payload.Platform)
	if !ok {
		return fmt.Errorf("%w: unknown platform %q", platform.ErrMalformedPayload, payload.Platform)
	}
	strategy, ok := p.registry.Get(plat)
	if !ok {
		return fmt.Errorf("%w: no strategy for platform %q", platform.ErrMalformedPayload, plat)
	}

	body := payload.ParsedBody
	if body == nil && payload.RawBody != "" {
		if err := json.Unmarshal([]byte(payload.RawBody), &body); err != nil {
			return fmt.Errorf("%w: body is not valid JSON: %v", platform.ErrMalformedPayload, err)
		}
	}

	parsed, err := strategy.ParsePayload(body)
	if err != nil {
		return err
	}

	account, err := p.repos.SocialAccount.FindByPlatformAndAccountID(string(plat), parsed.PlatformAccountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: platform=%s account=%s", ErrOrphanedEvent, plat, parsed.PlatformAccountID)
		}
		return fmt.Errorf("account lookup failed: %w", err)
	}

	externalID := parsed.ExternalID
	if externalID == "" {
		// Legacy shapes carry no platform id. A digest of the exact raw
		// body still deduplicates byte-identical redeliveries.
		sum := sha256.Sum256([]byte(payload.RawBody))
		externalID = "digest:" + hex.EncodeToString(sum[:])
	}

	event := &models.WebhookEvent{
		Platform:          string(plat),
		ExternalID:        externalID,
		EventType:         parsed.EventType,
		OrganizationID:    account.OrganizationID,
		PlatformAccountID: parsed.PlatformAccountID,
		PayloadJSON:       payload.RawBody,
		RetryCount:        job.Attempts,
	}

	created, stored, err := p.repos.WebhookEvent.CreateIfNotExists(event)
	if err != nil {
		return fmt.Errorf("webhook event upsert failed: %w", err)
	}
	if !created {
		// Redelivered duplicate: the canonical row already exists and its
		// side effects have run (or will, on the first delivery's path).
		log.Infof("[Worker] Duplicate delivery for %s/%s, skipping fan-out", plat, externalID)
		return nil
	}

	p.fanOut(plat, parsed, externalID, account, payload.ReceivedAt)

	if err := p.repos.WebhookEvent.MarkProcessed(stored.ID, ""); err != nil {
		// The canonical row and fan-out already happened; a stale processed
		// flag is not worth re-running side effects for.
		log.Errorf("[Worker] Failed to mark event %d processed: %v", stored.ID, err)
	}
	return nil
}

// fanOut publishes the canonical event to exactly one downstream topic.
func (p *WebhookProcessor) fanOut(plat platform.Platform, parsed *platform.ParsedPayload, externalID string, account *models.SocialAccount, receivedAt time.Time) {
	if parsed.EventType == platform.EventTypeMessageReceived {
		msg := parsed.Message
		if msg == nil {
			msg = &platform.MessageDetails{}
		}
		sentAt := msg.Timestamp
		if sentAt.IsZero() {
			sentAt = receivedAt
		}
		p.bus.Publish(eventbus.TopicMessageReceived, eventbus.MessageReceived{
			Platform:          string(plat),
			ExternalMessageID: externalID,
			OrganizationID:    account.OrganizationID,
			PlatformAccountID: parsed.PlatformAccountID,
			SenderID:          msg.SenderID,
			Text:              msg.Text,
			MediaURLs:         msg.MediaURLs,
			SentAt:            sentAt,
		})
		return
	}

	eng := parsed.Engagement
	if eng == nil {
		eng = &platform.EngagementDetails{}
	}
	occurredAt := receivedAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	p.bus.Publish(eventbus.TopicEngagementRecorded, eventbus.EngagementRecorded{
		Platform:       string(plat),
		PostID:         eng.PostID,
		Kind:           eng.Kind,
		OrganizationID: account.OrganizationID,
		OccurredAt:     occurredAt,
	})
}
