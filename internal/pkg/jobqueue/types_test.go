package jobqueue

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SocialPulseApp/SocialPulse/internal/pkg/platform"
)

func TestJobStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   JobStatus
		expected string
	}{
		{"Pending", JobStatusPending, "pending"},
		{"Processing", JobStatusProcessing, "processing"},
		{"Completed", JobStatusCompleted, "completed"},
		{"Failed", JobStatusFailed, "failed"},
		{"Retrying", JobStatusRetrying, "retrying"},
		{"Dead", JobStatusDead, "dead"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.status))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(platform.ErrMalformedPayload))
	assert.True(t, IsTerminal(ErrOrphanedEvent))
	assert.True(t, IsTerminal(fmt.Errorf("resolve account: %w", ErrOrphanedEvent)))
	assert.True(t, IsTerminal(fmt.Errorf("parse: %w", platform.ErrMalformedPayload)))

	assert.False(t, IsTerminal(errors.New("connection refused")))
	assert.False(t, IsTerminal(nil))
}

func TestJob_IsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		job       *Job
		retryable bool
	}{
		{
			name:      "failed job with attempts remaining",
			job:       &Job{Status: JobStatusFailed, Attempts: 1, MaxAttempts: 3},
			retryable: true,
		},
		{
			name:      "failed job with budget exhausted",
			job:       &Job{Status: JobStatusFailed, Attempts: 3, MaxAttempts: 3},
			retryable: false,
		},
		{
			name:      "completed job is never retryable",
			job:       &Job{Status: JobStatusCompleted, Attempts: 1, MaxAttempts: 3},
			retryable: false,
		},
		{
			name:      "pending job is not retryable",
			job:       &Job{Status: JobStatusPending, Attempts: 0, MaxAttempts: 3},
			retryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, tt.job.IsRetryable())
		})
	}
}

// A job gets exactly MaxAttempts processing attempts before dead-lettering.
func TestJob_AttemptBudget(t *testing.T) {
	job := &Job{Status: JobStatusPending, MaxAttempts: DefaultMaxAttempts}

	attempts := 0
	for {
		attempts++
		job.MarkAsProcessing()
		job.MarkAsFailed("boom")
		if !job.IsRetryable() {
			break
		}
		job.MarkAsRetrying()
	}

	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, job.Attempts)
}

func TestJob_MarkAs(t *testing.T) {
	job := &Job{Status: JobStatusPending, MaxAttempts: 3}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)

	job.MarkAsFailed("db unavailable")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "db unavailable", job.ErrorMsg)
	assert.Equal(t, 1, job.Attempts)

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Empty(t, job.ErrorMsg)
	require.NotNil(t, job.CompletedAt)

	job.MarkAsDead()
	assert.Equal(t, JobStatusDead, job.Status)
}

func TestWebhookJobPayload_RoundTrip(t *testing.T) {
	received := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	payload := WebhookJobPayload{
		Platform: "facebook",
		RawBody:  `{"entry":[]}`,
		Headers: map[string]string{
			"X-Hub-Signature-256": "sha256=abc",
			"Content-Type":        "application/json",
		},
		ParsedBody: map[string]interface{}{"entry": []interface{}{}},
		ReceivedAt: received,
	}

	restored, err := WebhookJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, payload.Platform, restored.Platform)
	assert.Equal(t, payload.RawBody, restored.RawBody)
	assert.Equal(t, payload.Headers, restored.Headers)
	assert.True(t, received.Equal(restored.ReceivedAt))
}
