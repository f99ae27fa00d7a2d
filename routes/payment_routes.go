package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fiyin-bug/backend-lumii/controller"
)

func RegisterPaymentRoutes(app *fiber.App, pc *controller.PaymentController) {
	api := app.Group("/api")

	api.Get("/health", pc.Health)

	p := api.Group("/payment")
	p.Post("/initialize", pc.Initialize)
	p.Get("/callback", pc.Callback)
	p.Get("/verify", pc.Verify)
	p.Get("/verify/:reference", pc.Verify)
	p.Post("/webhook", pc.Webhook)
}
