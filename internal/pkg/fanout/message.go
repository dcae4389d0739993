package fanout

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2/log"

	"github.com/SocialPulseApp/SocialPulse/app/models"
	"github.com/SocialPulseApp/SocialPulse/app/repository"
	"github.com/SocialPulseApp/SocialPulse/internal/pkg/eventbus"
)

// MessageIngestor consumes message.received events and persists them as
// inbound messages.
type MessageIngestor struct {
	messages repository.InboundMessageRepository
}

// NewMessageIngestor creates the ingestor
func NewMessageIngestor(messages repository.InboundMessageRepository) *MessageIngestor {
	return &MessageIngestor{messages: messages}
}

// Register subscribes the ingestor on the bus
func (i *MessageIngestor) Register(bus *eventbus.Bus) {
	bus.Subscribe(eventbus.TopicMessageReceived, i.handle)
}

func (i *MessageIngestor) handle(payload interface{}) {
	ev, ok := payload.(eventbus.MessageReceived)
	if !ok {
		log.Errorf("[Messages] Unexpected payload type %T", payload)
		return
	}

	msg := &models.InboundMessage{
		Platform:          ev.Platform,
		ExternalMessageID: ev.ExternalMessageID,
		OrganizationID:    ev.OrganizationID,
		PlatformAccountID: ev.PlatformAccountID,
		SenderID:          ev.SenderID,
		Text:              ev.Text,
	}
	if len(ev.MediaURLs) > 0 {
		if data, err := json.Marshal(ev.MediaURLs); err == nil {
			msg.MediaJSON = string(data)
		}
	}
	if !ev.SentAt.IsZero() {
		sentAt := ev.SentAt
		msg.SentAt = &sentAt
	}

	created, err := i.messages.CreateIfNotExists(msg)
	if err != nil {
		log.Errorf("[Messages] Failed to ingest %s/%s: %v", ev.Platform, ev.ExternalMessageID, err)
		return
	}
	if !created {
		log.Infof("[Messages] Duplicate message %s/%s ignored", ev.Platform, ev.ExternalMessageID)
	}
}
