package controller

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fiyin-bug/backend-lumii/paystack"
	"github.com/fiyin-bug/backend-lumii/service"
)

type PaymentController struct {
	Service       *service.CheckoutService
	WebhookSecret string
}

func NewPaymentController(svc *service.CheckoutService, webhookSecret string) *PaymentController {
	return &PaymentController{
		Service:       svc,
		WebhookSecret: webhookSecret,
	}
}

func (pc *PaymentController) Initialize(c *fiber.Ctx) error {
	var req service.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Invalid request body."})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	authorizationURL, err := pc.Service.InitializeCheckout(ctx, &req)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{"success": false, "message": err.Error()})
	}

	return c.JSON(fiber.Map{
		"success":          true,
		"authorizationUrl": authorizationURL,
	})
}

// Callback receives Paystack's browser redirect and bounces it straight to
// the frontend. Verification happens server-to-server via Verify, never here.
func (pc *PaymentController) Callback(c *fiber.Ctx) error {
	return c.Redirect(pc.Service.CallbackRedirectURL(c.Query("reference")), fiber.StatusFound)
}

func (pc *PaymentController) Verify(c *fiber.Ctx) error {
	// the frontend sends ?reference=..., older clients use /verify/:reference
	reference := c.Params("reference")
	if reference == "" {
		reference = c.Query("reference")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	result, err := pc.Service.VerifyPayment(ctx, reference)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{"success": false, "message": err.Error()})
	}

	status := 200
	if !result.Success {
		status = 400
	}
	return c.Status(status).JSON(fiber.Map{
		"success": result.Success,
		"message": result.Message,
		"data":    result.Data,
	})
}

// Webhook validates the HMAC over the raw body before anything parses it,
// then applies the event. Paystack retries on non-2xx, so only transient
// persistence failures answer 500.
func (pc *PaymentController) Webhook(c *fiber.Ctx) error {
	body := c.Body()
	signature := c.Get(paystack.SignatureHeader)

	if !paystack.ValidateSignature(pc.WebhookSecret, body, signature) {
		log.Println("Webhook rejected: invalid signature")
		return c.SendStatus(400)
	}

	var event paystack.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("Webhook body unparseable after valid signature: %v", err)
		return c.SendStatus(200)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := pc.Service.HandleWebhook(ctx, &event); err != nil {
		log.Printf("Webhook processing failed for event %q: %v", event.Event, err)
		return c.SendStatus(500)
	}

	return c.SendStatus(200)
}

func (pc *PaymentController) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func errorStatus(err error) int {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return fiber.StatusBadRequest
	}
	var commErr *paystack.CommError
	if errors.As(err, &commErr) {
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}
