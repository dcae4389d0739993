package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/SocialPulseApp/SocialPulse/internal/pkg/cache"
)

const (
	// Redis key prefixes
	JobKeyPrefix     = "webhook:job:"
	JobQueueKey      = "webhook_jobs"
	JobProcessingKey = "webhook_jobs_processing"
	JobDelayedKey    = "webhook_jobs_delayed"
	JobDeadKey       = "webhook_jobs_dead"
	JobCompletedKey  = "webhook_jobs_completed"
	JobFailedKey     = "webhook_jobs_failed"
	JobStatsKey      = "webhook_job_stats"

	// Stats hash field for lifetime enqueues. Not a gauge: it only counts up.
	StatEnqueuedTotal = "enqueued_total"

	// Job settings
	DefaultMaxAttempts = 3
	BackoffBase        = time.Second
	JobTTL             = 24 * time.Hour // Jobs expire after 24 hours

	// Bounded operational history
	CompletedHistorySize = 50
	FailedHistorySize    = 100
)

// Processor handles one leased job. A terminal error (see IsTerminal) acks
// the job without retry; any other error goes through the backoff policy.
type Processor interface {
	Process(ctx context.Context, job *Job) error
}

// Queue delivers webhook jobs at-least-once using Redis lists. A job is
// leased to exactly one worker at a time via BRPopLPush into the processing
// list and only leaves the pending set after an ack.
type Queue struct {
	client     *redis.Client
	processor  Processor
	workers    int
	workerPool chan struct{}
	stopCh     chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
}

// NewQueue creates a new webhook job queue
func NewQueue(workers int, processor Processor) *Queue {
	if workers <= 0 {
		workers = 3 // Default number of workers
	}

	return &Queue{
		client:     cache.GetClient(),
		processor:  processor,
		workers:    workers,
		workerPool: make(chan struct{}, workers),
		stopCh:     make(chan struct{}),
	}
}

// Start starts the job queue workers
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}

	q.running = true
	log.Infof("[JobQueue] Starting %d workers", q.workers)

	// Initialize worker pool
	for i := 0; i < q.workers; i++ {
		q.workerPool <- struct{}{}
	}

	// Start workers
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	// Start stuck-processing sweeper (recovers jobs stuck in processing due to crashes)
	q.wg.Add(1)
	go q.stuckSweeper(10*time.Minute, 1*time.Minute)

	// Start delayed-retry pump (moves due retries back to the pending list)
	q.wg.Add(1)
	go q.delayedPump(time.Second)
}

// Stop stops the job queue workers
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}

	log.Info("[JobQueue] Stopping workers...")
	close(q.stopCh)
	q.running = false
	q.wg.Wait()
	log.Info("[JobQueue] All workers stopped")
}

// stuckSweeper periodically scans the processing list and requeues jobs stuck for longer than maxAge
func (q *Queue) stuckSweeper(maxAge time.Duration, interval time.Duration) {
	defer q.wg.Done()
	log.Infof("[JobQueue] Stuck sweeper running (maxAge=%s, interval=%s)", maxAge, interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	ctx := context.Background()
	for {
		select {
		case <-q.stopCh:
			log.Info("[JobQueue] Stuck sweeper stopping")
			return
		case <-ticker.C:
			ids, err := q.client.LRange(ctx, JobProcessingKey, 0, -1).Result()
			if err != nil {
				log.Errorf("[JobQueue] Sweeper LRange error: %v", err)
				continue
			}
			now := time.Now()
			for _, id := range ids {
				jobKey := JobKeyPrefix + id
				data, err := q.client.Get(ctx, jobKey).Result()
				if err != nil {
					// Job data missing; remove from processing list
					if err != redis.Nil {
						log.Errorf("[JobQueue] Sweeper Get error for %s: %v", id, err)
					}
					_ = q.client.LRem(ctx, JobProcessingKey, 1, id).Err()
					continue
				}
				var job Job
				if uerr := json.Unmarshal([]byte(data), &job); uerr != nil {
					log.Errorf("[JobQueue] Sweeper unmarshal error for %s: %v", id, uerr)
					_ = q.client.LRem(ctx, JobProcessingKey, 1, id).Err()
					continue
				}
				// A Retrying job still in the processing list means parking
				// it in the delayed set failed; recover it like a stuck one.
				if job.Status != JobStatusProcessing && job.Status != JobStatusRetrying {
					// Clean up stray entry
					_ = q.client.LRem(ctx, JobProcessingKey, 1, id).Err()
					continue
				}
				// Determine when processing started
				started := job.ProcessedAt
				if started == nil || started.IsZero() {
					// Fallback to UpdatedAt/CreatedAt
					tmp := job.UpdatedAt
					if tmp.IsZero() {
						tmp = job.CreatedAt
					}
					started = &tmp
				}
				if now.Sub(*started) > maxAge {
					log.Warnf("[JobQueue] Recovering stuck job %s, age=%s", job.ID, now.Sub(*started))
					job.Status = JobStatusPending
					job.ErrorMsg = "recovered by sweeper"
					job.UpdatedAt = now
					q.updateJob(ctx, &job)
					// Move from processing back to pending
					_ = q.client.LRem(ctx, JobProcessingKey, 1, id).Err()
					_ = q.client.RPush(ctx, JobQueueKey, id).Err()
				}
			}
		}
	}
}

// worker processes jobs from the queue
func (q *Queue) worker(id int) {
	defer q.wg.Done()
	log.Infof("[JobQueue] Worker %d started", id)

	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			log.Infof("[JobQueue] Worker %d stopping", id)
			return
		default:
			// Acquire worker slot
			<-q.workerPool

			// Try to get a job from the queue
			job, err := q.dequeueJob(ctx)
			if err != nil {
				if err != redis.Nil {
					log.Errorf("[JobQueue] Worker %d: Error dequeuing job: %v", id, err)
				}
				// Release worker slot and wait before retry
				q.workerPool <- struct{}{}
				time.Sleep(time.Second)
				continue
			}

			if job != nil {
				log.Infof("[JobQueue] Worker %d processing job %s (attempt %d/%d)", id, job.ID, job.Attempts+1, job.MaxAttempts)
				q.processJob(ctx, job)
			}

			// Release worker slot
			q.workerPool <- struct{}{}
		}
	}
}

// EnqueueWebhook adds a verified webhook delivery to the queue
func (q *Queue) EnqueueWebhook(payload WebhookJobPayload) (*Job, error) {
	return q.enqueueJob(JobTypeWebhookEvent, payload.ToMap())
}

func (q *Queue) enqueueJob(jobType JobType, payload map[string]interface{}) (*Job, error) {
	ctx := context.Background()

	job := &Job{
		ID:          uuid.New().String(),
		Type:        jobType,
		Status:      JobStatusPending,
		Payload:     payload,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Attempts:    0,
		MaxAttempts: DefaultMaxAttempts,
	}

	// Store job data
	jobData, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	jobKey := JobKeyPrefix + job.ID

	// Use a pipeline for atomic operations
	pipe := q.client.Pipeline()
	pipe.Set(ctx, jobKey, jobData, JobTTL)
	pipe.LPush(ctx, JobQueueKey, job.ID)
	pipe.HIncrBy(ctx, JobStatsKey, StatEnqueuedTotal, 1)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	log.Infof("[JobQueue] Enqueued job %s (Type: %s)", job.ID, job.Type)
	return job, nil
}

// dequeueJob gets the next job from the queue
func (q *Queue) dequeueJob(ctx context.Context) (*Job, error) {
	// Move job from pending queue to processing queue atomically
	result, err := q.client.BRPopLPush(ctx, JobQueueKey, JobProcessingKey, time.Second).Result()
	if err != nil {
		return nil, err
	}

	jobID := result
	jobKey := JobKeyPrefix + jobID

	// Get job data
	jobData, err := q.client.Get(ctx, jobKey).Result()
	if err != nil {
		// Job data not found, remove from processing queue
		q.client.LRem(ctx, JobProcessingKey, 1, jobID)
		return nil, fmt.Errorf("job data not found for ID %s", jobID)
	}

	var job Job
	if err := json.Unmarshal([]byte(jobData), &job); err != nil {
		// Invalid job data, remove from processing queue
		q.client.LRem(ctx, JobProcessingKey, 1, jobID)
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", jobID, err)
	}

	return &job, nil
}

// processJob processes a single leased job
func (q *Queue) processJob(ctx context.Context, job *Job) {
	job.MarkAsProcessing()
	q.updateJob(ctx, job)

	var err error
	switch job.Type {
	case JobTypeWebhookEvent:
		err = q.processor.Process(ctx, job)
	default:
		err = fmt.Errorf("unknown job type: %s", job.Type)
	}

	if err != nil && IsTerminal(err) {
		// Malformed or orphaned data cannot be fixed by retrying: ack the
		// job and keep the reason for operators.
		log.Warnf("[JobQueue] Job %s dropped: %v", job.ID, err)
		job.MarkAsCompleted()
		job.ErrorMsg = err.Error()
		q.updateJob(ctx, job)
		q.updateJobStats(ctx, string(JobStatusCompleted), 1)
		q.recordHistory(ctx, JobCompletedKey, job, CompletedHistorySize)
		q.removeFromProcessing(ctx, job.ID)
		return
	}

	if err != nil {
		log.Errorf("[JobQueue] Job %s failed: %v", job.ID, err)
		job.MarkAsFailed(err.Error())
		q.recordHistory(ctx, JobFailedKey, job, FailedHistorySize)

		// Check if job can be retried
		if job.IsRetryable() {
			delay := backoffDelay(job.Attempts)
			log.Infof("[JobQueue] Retrying job %s in %s (attempt %d/%d)", job.ID, delay, job.Attempts, job.MaxAttempts)
			job.MarkAsRetrying()
			q.updateJob(ctx, job)
			q.parkForRetry(ctx, job.ID, delay)
			return
		}

		log.Errorf("[JobQueue] Job %s dead-lettered after %d attempts", job.ID, job.Attempts)
		job.MarkAsDead()
		q.updateJob(ctx, job)
		q.moveToDeadLetter(ctx, job)
		q.updateJobStats(ctx, string(JobStatusDead), 1)
	} else {
		log.Infof("[JobQueue] Job %s completed successfully", job.ID)
		job.MarkAsCompleted()
		q.updateJob(ctx, job)
		q.updateJobStats(ctx, string(JobStatusCompleted), 1)
		q.recordHistory(ctx, JobCompletedKey, job, CompletedHistorySize)
	}

	q.removeFromProcessing(ctx, job.ID)
}

// parkForRetry moves a job into the delayed set, due after the backoff
// delay. The id leaves the processing list only once it is durably parked;
// if the park fails the id stays in the processing list and the stuck
// sweeper requeues it, so the job is always in some Redis structure.
func (q *Queue) parkForRetry(ctx context.Context, jobID string, delay time.Duration) {
	due := float64(time.Now().Add(delay).UnixMilli())
	if err := q.client.ZAdd(ctx, JobDelayedKey, redis.Z{Score: due, Member: jobID}).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to park job %s for retry: %v", jobID, err)
		return
	}
	q.removeFromProcessing(ctx, jobID)
}

// delayedPump periodically drains due retries back into the pending list
func (q *Queue) delayedPump(interval time.Duration) {
	defer q.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	ctx := context.Background()
	for {
		select {
		case <-q.stopCh:
			log.Info("[JobQueue] Delayed pump stopping")
			return
		case <-ticker.C:
			q.drainDelayed(ctx, time.Now())
		}
	}
}

// drainDelayed moves every due member of the delayed set to the pending
// list. ZRem claims the id first so concurrent instances cannot re-enqueue
// the same retry twice.
func (q *Queue) drainDelayed(ctx context.Context, now time.Time) {
	ids, err := q.client.ZRangeByScore(ctx, JobDelayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		log.Errorf("[JobQueue] Failed to read delayed set: %v", err)
		return
	}
	for _, id := range ids {
		removed, err := q.client.ZRem(ctx, JobDelayedKey, id).Result()
		if err != nil || removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, JobQueueKey, id).Err(); err != nil {
			log.Errorf("[JobQueue] Failed to re-enqueue delayed job %s: %v", id, err)
			// Put it back so the delivery is not lost.
			_ = q.client.ZAdd(ctx, JobDelayedKey, redis.Z{Score: float64(now.UnixMilli()), Member: id}).Err()
		}
	}
}

// backoffDelay returns the exponential delay before the next attempt:
// 1s after the first failure, doubling per attempt.
func backoffDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	return BackoffBase << (attempts - 1)
}

// moveToDeadLetter parks an exhausted job for manual inspection
func (q *Queue) moveToDeadLetter(ctx context.Context, job *Job) {
	if err := q.client.LPush(ctx, JobDeadKey, job.ID).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to dead-letter job %s: %v", job.ID, err)
	}
}

// recordHistory keeps a bounded window of job snapshots for operators.
// This is an operational affordance, not a correctness requirement.
func (q *Queue) recordHistory(ctx context.Context, key string, job *Job, size int64) {
	data, err := json.Marshal(job)
	if err != nil {
		log.Errorf("[JobQueue] Failed to marshal job %s for history: %v", job.ID, err)
		return
	}
	pipe := q.client.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, size-1)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Errorf("[JobQueue] Failed to record job %s in %s: %v", job.ID, key, err)
	}
}

// updateJob updates job data in Redis
func (q *Queue) updateJob(ctx context.Context, job *Job) {
	jobData, err := json.Marshal(job)
	if err != nil {
		log.Errorf("[JobQueue] Failed to marshal job %s: %v", job.ID, err)
		return
	}

	jobKey := JobKeyPrefix + job.ID
	if err := q.client.Set(ctx, jobKey, jobData, JobTTL).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to update job %s: %v", job.ID, err)
	}
}

// removeFromProcessing removes a job from the processing queue
func (q *Queue) removeFromProcessing(ctx context.Context, jobID string) {
	if err := q.client.LRem(ctx, JobProcessingKey, 1, jobID).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to remove job %s from processing queue: %v", jobID, err)
	}
}

// updateJobStats updates job statistics
func (q *Queue) updateJobStats(ctx context.Context, stat string, delta int64) {
	if err := q.client.HIncrBy(ctx, JobStatsKey, stat, delta).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to update job stats: %v", err)
	}
}

// GetJob retrieves a job by ID
func (q *Queue) GetJob(ctx context.Context, jobID string) (*Job, error) {
	jobKey := JobKeyPrefix + jobID
	jobData, err := q.client.Get(ctx, jobKey).Result()
	if err != nil {
		return nil, err
	}

	var job Job
	if err := json.Unmarshal([]byte(jobData), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

// GetJobStats returns the lifetime counters from the stats hash
func (q *Queue) GetJobStats(ctx context.Context) (map[string]int64, error) {
	stats, err := q.client.HGetAll(ctx, JobStatsKey).Result()
	if err != nil {
		return nil, err
	}

	result := make(map[string]int64)
	for stat, count := range stats {
		if countInt, err := json.Number(count).Int64(); err == nil {
			result[stat] = countInt
		}
	}

	return result, nil
}

// GetQueueSize returns the number of pending jobs
func (q *Queue) GetQueueSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, JobQueueKey).Result()
}

// GetProcessingSize returns the number of jobs being processed
func (q *Queue) GetProcessingSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, JobProcessingKey).Result()
}

// GetDelayedSize returns the number of retries waiting out their backoff
func (q *Queue) GetDelayedSize(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, JobDelayedKey).Result()
}

// GetDeadSize returns the number of dead-lettered jobs
func (q *Queue) GetDeadSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, JobDeadKey).Result()
}

// GetDeadJobs returns up to limit dead-lettered jobs, newest first
func (q *Queue) GetDeadJobs(ctx context.Context, limit int64) ([]*Job, error) {
	ids, err := q.client.LRange(ctx, JobDeadKey, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	jobs := make([]*Job, 0, len(ids))
	for _, id := range ids {
		job, err := q.GetJob(ctx, id)
		if err != nil {
			// Job data expired; the id stays in the dead list until pruned
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
