package main

import (
	"fmt"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/SocialPulseApp/SocialPulse/app/controllers"
	"github.com/SocialPulseApp/SocialPulse/app/repository"
	"github.com/SocialPulseApp/SocialPulse/internal/pkg/cache"
	"github.com/SocialPulseApp/SocialPulse/internal/pkg/database"
	"github.com/SocialPulseApp/SocialPulse/internal/pkg/env"
	"github.com/SocialPulseApp/SocialPulse/internal/pkg/eventbus"
	"github.com/SocialPulseApp/SocialPulse/internal/pkg/fanout"
	"github.com/SocialPulseApp/SocialPulse/internal/pkg/jobqueue"
	"github.com/SocialPulseApp/SocialPulse/internal/pkg/platform"
	"github.com/SocialPulseApp/SocialPulse/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	registry, err := platform.NewRegistry(platform.LoadConfigFromEnv())
	if err != nil {
		log.Fatalf("Failed to build strategy registry: %v", err)
	}

	// Fan-out consumers must be subscribed before the workers start.
	repos := repository.GetGlobalRepositories()
	bus := eventbus.New()
	fanout.NewEngagementAggregator(repos.Engagement).Register(bus)
	fanout.NewMessageIngestor(repos.InboundMessage).Register(bus)

	workers, err := strconv.Atoi(env.GetEnv("QUEUE_WORKERS", "3"))
	if err != nil {
		workers = 3
	}
	queue := jobqueue.NewQueue(workers, jobqueue.NewWebhookProcessor(registry, repos, bus))
	queue.Start()

	controllers.InitializeWebhookController(registry, queue)
	controllers.InitializeAPIQueueController(queue)

	// init fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 1048576, // 1 MiB, webhook payloads are small
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	}), monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
