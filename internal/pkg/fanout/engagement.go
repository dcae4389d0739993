package fanout

import (
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/SocialPulseApp/SocialPulse/app/repository"
	"github.com/SocialPulseApp/SocialPulse/internal/pkg/eventbus"
)

// EngagementAggregator consumes engagement.recorded events and maintains
// the per-post counters.
type EngagementAggregator struct {
	metrics repository.EngagementMetricRepository
}

// NewEngagementAggregator creates the aggregator
func NewEngagementAggregator(metrics repository.EngagementMetricRepository) *EngagementAggregator {
	return &EngagementAggregator{metrics: metrics}
}

// Register subscribes the aggregator on the bus
func (a *EngagementAggregator) Register(bus *eventbus.Bus) {
	bus.Subscribe(eventbus.TopicEngagementRecorded, a.handle)
}

func (a *EngagementAggregator) handle(payload interface{}) {
	ev, ok := payload.(eventbus.EngagementRecorded)
	if !ok {
		log.Errorf("[Engagement] Unexpected payload type %T", payload)
		return
	}
	if ev.PostID == "" {
		// Some legacy shapes carry no post reference; nothing to count.
		log.Warnf("[Engagement] Dropping %s event without post id", ev.Platform)
		return
	}

	occurredAt := ev.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	if err := a.metrics.IncrementOrCreate(ev.PostID, ev.Platform, ev.Kind, occurredAt); err != nil {
		// The canonical event row survives; the counter can be rebuilt from
		// it if this ever matters.
		log.Errorf("[Engagement] Failed to increment %s/%s/%s: %v", ev.PostID, ev.Platform, ev.Kind, err)
	}
}
