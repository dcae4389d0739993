package jobqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/SocialPulseApp/SocialPulse/app/models"
	"github.com/SocialPulseApp/SocialPulse/app/repository"
	"github.com/SocialPulseApp/SocialPulse/internal/pkg/eventbus"
	"github.com/SocialPulseApp/SocialPulse/internal/pkg/platform"
)

type fakeAccountRepo struct {
	accounts map[string]*models.SocialAccount
	err      error
}

func (f *fakeAccountRepo) FindByPlatformAndAccountID(plat, platformAccountID string) (*models.SocialAccount, error) {
	if f.err != nil {
		return nil, f.err
	}
	if acc, ok := f.accounts[plat+"/"+platformAccountID]; ok {
		return acc, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAccountRepo) GetByID(id uint) (*models.SocialAccount, error) {
	return nil, gorm.ErrRecordNotFound
}

type fakeEventRepo struct {
	mu       sync.Mutex
	seen     map[string]bool
	stored   []*models.WebhookEvent
	marked   []uint
	upsertFn func(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
}

func (f *fakeEventRepo) CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertFn != nil {
		return f.upsertFn(event)
	}
	key := event.Platform + "/" + event.ExternalID
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[key] {
		return false, event, nil
	}
	f.seen[key] = true
	event.ID = uint(len(f.stored) + 1)
	f.stored = append(f.stored, event)
	return true, event, nil
}

func (f *fakeEventRepo) MarkProcessed(id uint, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, id)
	return nil
}

func (f *fakeEventRepo) GetByPlatformAndExternalID(plat, externalID string) (*models.WebhookEvent, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEventRepo) CountByPlatform(plat string) (int64, error) { return 0, nil }

type busRecorder struct {
	mu          sync.Mutex
	engagements []eventbus.EngagementRecorded
	messages    []eventbus.MessageReceived
}

func (r *busRecorder) attach(bus *eventbus.Bus) {
	bus.Subscribe(eventbus.TopicEngagementRecorded, func(payload interface{}) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.engagements = append(r.engagements, payload.(eventbus.EngagementRecorded))
	})
	bus.Subscribe(eventbus.TopicMessageReceived, func(payload interface{}) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.messages = append(r.messages, payload.(eventbus.MessageReceived))
	})
}

func testProcessor(t *testing.T, accounts *fakeAccountRepo, events *fakeEventRepo) (*WebhookProcessor, *eventbus.Bus, *busRecorder) {
	t.Helper()
	registry, err := platform.NewRegistry(platform.Config{
		Meta:    platform.StrategyConfig{AppSecret: "m", VerifyToken: "mv"},
		Twitter: platform.StrategyConfig{AppSecret: "t", VerifyToken: "tv"},
		TikTok:  platform.StrategyConfig{AppSecret: "k", VerifyToken: "kv"},
	})
	require.NoError(t, err)

	bus := eventbus.New()
	rec := &busRecorder{}
	rec.attach(bus)

	repos := &repository.Repositories{
		SocialAccount: accounts,
		WebhookEvent:  events,
	}
	return NewWebhookProcessor(registry, repos, bus), bus, rec
}

func webhookJob(payload WebhookJobPayload) *Job {
	return &Job{
		ID:          "test-job",
		Type:        JobTypeWebhookEvent,
		Status:      JobStatusProcessing,
		Payload:     payload.ToMap(),
		MaxAttempts: DefaultMaxAttempts,
	}
}

const metaMessageBody = `{
	"object": "page",
	"entry": [{
		"id": "page-1",
		"messaging": [{
			"sender": {"id": "user-5"},
			"timestamp": 1700000000000,
			"message": {"mid": "m.100", "text": "hi"}
		}]
	}]
}`

const metaEngagementBody = `{
	"object": "page",
	"entry": [{
		"id": "page-1",
		"changes": [{
			"field": "feed",
			"value": {"post_id": "page-1_77", "item": "like"}
		}]
	}]
}`

func TestProcess_MessagePath(t *testing.T) {
	accounts := &fakeAccountRepo{accounts: map[string]*models.SocialAccount{
		"facebook/page-1": {ID: 1, OrganizationID: 42, Platform: "facebook", PlatformAccountID: "page-1"},
	}}
	events := &fakeEventRepo{}
	proc, bus, rec := testProcessor(t, accounts, events)

	err := proc.Process(context.Background(), webhookJob(WebhookJobPayload{
		Platform:   "facebook",
		RawBody:    metaMessageBody,
		ReceivedAt: time.Now(),
	}))
	bus.Close()
	require.NoError(t, err)

	// Canonical row persisted with the platform event id.
	require.Len(t, events.stored, 1)
	assert.Equal(t, "m.100", events.stored[0].ExternalID)
	assert.Equal(t, models.EventTypeMessageReceived, events.stored[0].EventType)
	assert.Equal(t, uint(42), events.stored[0].OrganizationID)
	assert.Equal(t, []uint{1}, events.marked)

	// Exactly one downstream path.
	require.Len(t, rec.messages, 1)
	assert.Empty(t, rec.engagements)
	assert.Equal(t, "m.100", rec.messages[0].ExternalMessageID)
	assert.Equal(t, "user-5", rec.messages[0].SenderID)
	assert.Equal(t, uint(42), rec.messages[0].OrganizationID)
}

func TestProcess_EngagementPath(t *testing.T) {
	accounts := &fakeAccountRepo{accounts: map[string]*models.SocialAccount{
		"facebook/page-1": {ID: 1, OrganizationID: 42, Platform: "facebook", PlatformAccountID: "page-1"},
	}}
	events := &fakeEventRepo{}
	proc, bus, rec := testProcessor(t, accounts, events)

	err := proc.Process(context.Background(), webhookJob(WebhookJobPayload{
		Platform:   "facebook",
		RawBody:    metaEngagementBody,
		ReceivedAt: time.Now(),
	}))
	bus.Close()
	require.NoError(t, err)

	require.Len(t, rec.engagements, 1)
	assert.Empty(t, rec.messages)
	assert.Equal(t, "page-1_77", rec.engagements[0].PostID)
	assert.Equal(t, "like", rec.engagements[0].Kind)
}

func TestProcess_DigestFallbackExternalID(t *testing.T) {
	accounts := &fakeAccountRepo{accounts: map[string]*models.SocialAccount{
		"facebook/page-1": {ID: 1, OrganizationID: 42, Platform: "facebook", PlatformAccountID: "page-1"},
	}}
	events := &fakeEventRepo{}
	proc, bus, _ := testProcessor(t, accounts, events)

	// Legacy feed shape without comment_id: no platform event id.
	body := `{"entry":[{"id":"page-1","changes":[{"field":"feed","value":{"post_id":"page-1_9"}}]}]}`
	err := proc.Process(context.Background(), webhookJob(WebhookJobPayload{
		Platform: "facebook",
		RawBody:  body,
	}))
	bus.Close()
	require.NoError(t, err)

	require.Len(t, events.stored, 1)
	assert.Contains(t, events.stored[0].ExternalID, "digest:")
	assert.Len(t, events.stored[0].ExternalID, len("digest:")+64)
}

func TestProcess_DuplicateDeliverySkipsFanOut(t *testing.T) {
	accounts := &fakeAccountRepo{accounts: map[string]*models.SocialAccount{
		"facebook/page-1": {ID: 1, OrganizationID: 42, Platform: "facebook", PlatformAccountID: "page-1"},
	}}
	events := &fakeEventRepo{}
	proc, bus, rec := testProcessor(t, accounts, events)

	payload := WebhookJobPayload{Platform: "facebook", RawBody: metaMessageBody, ReceivedAt: time.Now()}
	require.NoError(t, proc.Process(context.Background(), webhookJob(payload)))
	require.NoError(t, proc.Process(context.Background(), webhookJob(payload)))
	bus.Close()

	assert.Len(t, events.stored, 1)
	assert.Len(t, rec.messages, 1, "fan-out must run once per canonical event")
}

func TestProcess_OrphanedEventIsTerminal(t *testing.T) {
	accounts := &fakeAccountRepo{accounts: map[string]*models.SocialAccount{}}
	events := &fakeEventRepo{}
	proc, bus, rec := testProcessor(t, accounts, events)

	err := proc.Process(context.Background(), webhookJob(WebhookJobPayload{
		Platform: "facebook",
		RawBody:  metaMessageBody,
	}))
	bus.Close()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOrphanedEvent)
	assert.True(t, IsTerminal(err))
	assert.Empty(t, events.stored)
	assert.Empty(t, rec.messages)
}

func TestProcess_MalformedPayloadIsTerminal(t *testing.T) {
	accounts := &fakeAccountRepo{}
	events := &fakeEventRepo{}
	proc, bus, _ := testProcessor(t, accounts, events)

	tests := []struct {
		name    string
		payload WebhookJobPayload
	}{
		{"unknown platform", WebhookJobPayload{Platform: "myspace", RawBody: "{}"}},
		{"invalid json body", WebhookJobPayload{Platform: "facebook", RawBody: "{not json"}},
		{"unrecognizable body", WebhookJobPayload{Platform: "facebook", RawBody: "{}"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := proc.Process(context.Background(), webhookJob(tt.payload))
			require.Error(t, err)
			assert.ErrorIs(t, err, platform.ErrMalformedPayload)
			assert.True(t, IsTerminal(err))
		})
	}
	bus.Close()
}

func TestProcess_AccountLookupFailureIsTransient(t *testing.T) {
	accounts := &fakeAccountRepo{err: errors.New("connection refused")}
	events := &fakeEventRepo{}
	proc, bus, _ := testProcessor(t, accounts, events)

	err := proc.Process(context.Background(), webhookJob(WebhookJobPayload{
		Platform: "facebook",
		RawBody:  metaMessageBody,
	}))
	bus.Close()

	require.Error(t, err)
	assert.False(t, IsTerminal(err), "infrastructure failures must go through the retry policy")
}

func TestProcess_UpsertFailureIsTransient(t *testing.T) {
	accounts := &fakeAccountRepo{accounts: map[string]*models.SocialAccount{
		"facebook/page-1": {ID: 1, OrganizationID: 42, Platform: "facebook", PlatformAccountID: "page-1"},
	}}
	events := &fakeEventRepo{upsertFn: func(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
		return false, nil, errors.New("deadlock found")
	}}
	proc, bus, rec := testProcessor(t, accounts, events)

	err := proc.Process(context.Background(), webhookJob(WebhookJobPayload{
		Platform: "facebook",
		RawBody:  metaMessageBody,
	}))
	bus.Close()

	require.Error(t, err)
	assert.False(t, IsTerminal(err))
	assert.Empty(t, rec.messages)
}
