package jobqueue

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/SocialPulseApp/SocialPulse/internal/pkg/platform"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeWebhookEvent JobType = "webhook_event"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
	JobStatusDead       JobStatus = "dead"
)

// ErrOrphanedEvent signals that no account owns the notification. The data
// cannot become processable by retrying, so the job is acked and dropped.
var ErrOrphanedEvent = errors.New("no owning account for webhook event")

// IsTerminal reports whether a processing error must not be retried.
// Everything else is treated as transient infrastructure failure and goes
// through the queue's backoff.
func IsTerminal(err error) bool {
	return errors.Is(err, platform.ErrMalformedPayload) || errors.Is(err, ErrOrphanedEvent)
}

// Job represents a queued webhook delivery
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	Attempts    int                    `json:"attempts"`
	MaxAttempts int                    `json:"max_attempts"`
}

// WebhookJobPayload carries one verified inbound notification from the
// gateway to the worker. RawBody keeps the exact bytes the signature was
// computed over; ParsedBody is the decoded JSON the strategies consume.
type WebhookJobPayload struct {
	Platform   string                 `json:"platform"`
	RawBody    string                 `json:"raw_body"`
	Headers    map[string]string      `json:"headers"`
	ParsedBody map[string]interface{} `json:"parsed_body"`
	ReceivedAt time.Time              `json:"received_at"`
}

// ToMap converts the payload to a map for storage
func (p WebhookJobPayload) ToMap() map[string]interface{} {
	headers := make(map[string]interface{}, len(p.Headers))
	for k, v := range p.Headers {
		headers[k] = v
	}
	return map[string]interface{}{
		"platform":    p.Platform,
		"raw_body":    p.RawBody,
		"headers":     headers,
		"parsed_body": p.ParsedBody,
		"received_at": p.ReceivedAt.Format(time.RFC3339Nano),
	}
}

// WebhookJobPayloadFromMap creates a payload from a map
func WebhookJobPayloadFromMap(data map[string]interface{}) (*WebhookJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload WebhookJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job has retry budget left
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.Attempts < j.MaxAttempts
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed records a failed attempt
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.Attempts++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}

// MarkAsDead updates the job status to dead-lettered
func (j *Job) MarkAsDead() {
	j.Status = JobStatusDead
	j.UpdatedAt = time.Now()
}
