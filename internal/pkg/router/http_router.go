package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/SocialPulseApp/SocialPulse/app/controllers"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Webhook gateway. POST must always answer 200, so no middleware that
	// could short-circuit with an error status sits in front of it.
	webhooks := app.Group("/webhooks")
	webhooks.Get("/:platform", controllers.HandleWebhookVerification)
	webhooks.Post("/:platform", controllers.HandleWebhookReceive)
	webhooks.Get("/:platform/health", controllers.HandleWebhookHealth)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
