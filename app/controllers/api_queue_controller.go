package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/SocialPulseApp/SocialPulse/internal/pkg/jobqueue"
	"github.com/SocialPulseApp/SocialPulse/internal/pkg/metrics/counter"
)

var opsQueue *jobqueue.Queue

// InitializeAPIQueueController wires the ops endpoints with the queue
func InitializeAPIQueueController(queue *jobqueue.Queue) {
	opsQueue = queue
}

// HandleQueueStats reports queue depths and lifetime status counters
func HandleQueueStats(c *fiber.Ctx) error {
	ctx := c.Context()

	pending, err := opsQueue.GetQueueSize(ctx)
	if err != nil {
		log.Errorf("[API] Failed to read queue size: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "queue_unavailable"})
	}
	processing, err := opsQueue.GetProcessingSize(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "queue_unavailable"})
	}
	delayed, err := opsQueue.GetDelayedSize(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "queue_unavailable"})
	}
	dead, err := opsQueue.GetDeadSize(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "queue_unavailable"})
	}
	stats, err := opsQueue.GetJobStats(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "queue_unavailable"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"pending":    pending,
		"processing": processing,
		"delayed":    delayed,
		"dead":       dead,
		"stats":      stats,
	})
}

// HandleQueueDead lists the most recent dead-lettered jobs for triage
func HandleQueueDead(c *fiber.Ctx) error {
	limit := int64(c.QueryInt("limit", 20))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	jobs, err := opsQueue.GetDeadJobs(c.Context(), limit)
	if err != nil {
		log.Errorf("[API] Failed to read dead jobs: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "queue_unavailable"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"count": len(jobs),
		"jobs":  jobs,
	})
}

// HandleQueueTraffic reports per-platform gateway traffic counters
func HandleQueueTraffic(c *fiber.Ctx) error {
	stats, err := counter.Snapshot()
	if err != nil {
		log.Errorf("[API] Failed to read traffic counters: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "counters_unavailable"})
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}
