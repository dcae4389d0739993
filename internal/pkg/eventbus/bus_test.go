package eventbus

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	bus := New()

	var a, b int64
	bus.Subscribe(TopicEngagementRecorded, func(payload interface{}) {
		atomic.AddInt64(&a, 1)
	})
	bus.Subscribe(TopicEngagementRecorded, func(payload interface{}) {
		atomic.AddInt64(&b, 1)
	})

	bus.Publish(TopicEngagementRecorded, "x")
	bus.Publish(TopicEngagementRecorded, "y")
	bus.Close()

	assert.Equal(t, int64(2), atomic.LoadInt64(&a))
	assert.Equal(t, int64(2), atomic.LoadInt64(&b))
}

func TestPublishIsTopicExclusive(t *testing.T) {
	bus := New()

	var engagements, messages int64
	bus.Subscribe(TopicEngagementRecorded, func(payload interface{}) {
		atomic.AddInt64(&engagements, 1)
	})
	bus.Subscribe(TopicMessageReceived, func(payload interface{}) {
		atomic.AddInt64(&messages, 1)
	})

	bus.Publish(TopicEngagementRecorded, "like")
	bus.Close()

	assert.Equal(t, int64(1), atomic.LoadInt64(&engagements))
	assert.Equal(t, int64(0), atomic.LoadInt64(&messages))
}

func TestPublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	bus := New()
	bus.Publish("nobody.home", "payload")
	bus.Close()
}

func TestPanickingHandlerDoesNotKillTheBus(t *testing.T) {
	bus := New()

	var delivered int64
	bus.Subscribe(TopicMessageReceived, func(payload interface{}) {
		panic("handler bug")
	})
	bus.Subscribe(TopicMessageReceived, func(payload interface{}) {
		atomic.AddInt64(&delivered, 1)
	})

	bus.Publish(TopicMessageReceived, "msg")
	bus.Close()

	assert.Equal(t, int64(1), atomic.LoadInt64(&delivered))
}

// Publishers racing Close must either deliver before the drain or drop
// cleanly; exercised under -race to catch WaitGroup reuse.
func TestConcurrentPublishAndClose(t *testing.T) {
	bus := New()

	var delivered int64
	bus.Subscribe(TopicEngagementRecorded, func(payload interface{}) {
		atomic.AddInt64(&delivered, 1)
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Publish(TopicEngagementRecorded, j)
			}
		}()
	}

	bus.Close()
	wg.Wait()
}

func TestPublishAfterCloseIsDropped(t *testing.T) {
	bus := New()

	var delivered int64
	bus.Subscribe(TopicMessageReceived, func(payload interface{}) {
		atomic.AddInt64(&delivered, 1)
	})

	bus.Close()
	bus.Publish(TopicMessageReceived, "late")

	assert.Equal(t, int64(0), atomic.LoadInt64(&delivered))
}
