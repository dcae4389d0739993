package router

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/SocialPulseApp/SocialPulse/app/controllers"
	"github.com/SocialPulseApp/SocialPulse/internal/pkg/env"
	"github.com/SocialPulseApp/SocialPulse/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	port, err := strconv.Atoi(env.GetEnv("CACHE_PORT", "6379"))
	if err != nil {
		port = 6379
	}
	storage := redisstorage.New(redisstorage.Config{
		Host:     env.GetEnv("CACHE_HOST", "localhost"),
		Port:     port,
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		Database: 1,
	})

	api := app.Group("/api",
		limiter.New(limiter.Config{
			Max:        120,
			Expiration: time.Minute,
			Storage:    storage,
		}),
		middleware.APIKeyAuthMiddleware(),
	)
	api.Get("/queue/stats", controllers.HandleQueueStats)
	api.Get("/queue/dead", controllers.HandleQueueDead)
	api.Get("/queue/traffic", controllers.HandleQueueTraffic)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
