package eventbus

import (
	"sync"

	"github.com/gofiber/fiber/v2/log"
)

// Topics published by the fan-out router.
const (
	TopicEngagementRecorded = "engagement.recorded"
	TopicMessageReceived    = "message.received"
)

// Handler consumes one published payload.
type Handler func(payload interface{})

// Bus is a small in-process topic bus. Delivery is fire-and-forget and
// at-most-once: a handler that errors or panics does not get the payload
// again. Subscribers must be registered before publishing starts.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	wg       sync.WaitGroup
	closed   bool
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
	}
}

// Subscribe registers a handler for a topic.
func (b *Bus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

// Publish dispatches the payload to every subscriber of the topic. Each
// handler runs in its own goroutine so a slow consumer cannot stall the
// publisher.
func (b *Bus) Publish(topic string, payload interface{}) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		log.Warnf("[EventBus] Dropping publish to %s: bus closed", topic)
		return
	}
	handlers := b.handlers[topic]
	// Reserve the deliveries while still holding the lock: a concurrent
	// Close cannot start waiting between the closed check and the Add.
	b.wg.Add(len(handlers))
	b.mu.RUnlock()

	if len(handlers) == 0 {
		log.Debugf("[EventBus] No subscribers for topic %s", topic)
		return
	}

	for _, h := range handlers {
		h := h
		go func() {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("[EventBus] Handler for %s panicked: %v", topic, r)
				}
			}()
			h(payload)
		}()
	}
}

// Close waits for all in-flight deliveries to finish. Mainly used by tests
// and graceful shutdown to drain the bus.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
}
