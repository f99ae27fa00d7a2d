package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"

	"github.com/fiyin-bug/backend-lumii/config"
	"github.com/fiyin-bug/backend-lumii/model"
	"github.com/fiyin-bug/backend-lumii/paystack"
)

// OrderStore is what CheckoutService needs from persistence. SettlePayment
// must be a conditional write: it reports applied=false when a success
// payment already exists for the reference.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *model.Order) error
	GetOrder(ctx context.Context, reference string) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, reference, status string) error
	GetPayment(ctx context.Context, reference string) (*model.Payment, error)
	SettlePayment(ctx context.Context, reference string, p *model.Payment) (bool, error)
}

type Gateway interface {
	Initialize(ctx context.Context, email string, amountKobo int64, reference, callbackURL string, metadata map[string]interface{}) (*paystack.InitializeData, error)
	Verify(ctx context.Context, reference string) (*paystack.VerifyData, error)
}

// Notifier is fire-and-forget: implementations log their own failures and
// never return them into the settlement path.
type Notifier interface {
	NotifyOrderPaid(order *model.Order, payment *model.Payment)
}

// ValidationError is a client fault; controllers map it to 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// CheckoutService owns the order state machine: pending at creation, paid
// only through the settle path, failed on explicit gateway rejection.
type CheckoutService struct {
	store    OrderStore
	gateway  Gateway
	notifier Notifier
	redis    *redis.Client // optional fast-path cache, nil is fine
	cfg      *config.Config
}

func New(store OrderStore, gateway Gateway, notifier Notifier, rdb *redis.Client, cfg *config.Config) *CheckoutService {
	return &CheckoutService{
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		redis:    rdb,
		cfg:      cfg,
	}
}

// CheckoutRequest mirrors the storefront's checkout form.
type CheckoutRequest struct {
	Email           string                `json:"email"`
	FirstName       string                `json:"firstName"`
	LastName        string                `json:"lastName"`
	Phone           string                `json:"phone"`
	ShippingAddress model.ShippingAddress `json:"shippingAddress"`
	Items           []model.CartItem      `json:"items"`
}

// NewReference generates a URL-safe unique transaction reference.
func NewReference() string {
	return fmt.Sprintf("LUMIS-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// InitializeCheckout validates the cart, persists a pending order and opens
// a Paystack checkout session, returning the hosted authorization URL.
// The pending row is written before the gateway call so every reference
// Paystack ever sees has a matching local order.
func (s *CheckoutService) InitializeCheckout(ctx context.Context, req *CheckoutRequest) (string, error) {
	if err := validateCheckout(req); err != nil {
		return "", err
	}

	total := model.CartTotalMinor(req.Items, s.cfg.MinorUnitFactor)
	if total < s.cfg.MinOrderAmount*s.cfg.MinorUnitFactor {
		return "", &ValidationError{Message: fmt.Sprintf("Minimum order amount is NGN %d.", s.cfg.MinOrderAmount)}
	}

	reference := NewReference()

	address, err := json.Marshal(req.ShippingAddress)
	if err != nil {
		return "", err
	}
	items, err := json.Marshal(req.Items)
	if err != nil {
		return "", err
	}

	order := &model.Order{
		Reference:       reference,
		Email:           req.Email,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Phone:           req.Phone,
		ShippingAddress: datatypes.JSON(address),
		CartItems:       datatypes.JSON(items),
		TotalAmount:     total,
		Status:          model.OrderStatusPending,
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return "", fmt.Errorf("failed to create order: %w", err)
	}

	metadata := map[string]interface{}{
		"customer_name":    req.FirstName + " " + req.LastName,
		"customer_email":   req.Email,
		"customer_phone":   req.Phone,
		"shipping_address": req.ShippingAddress,
		"cart_items":       req.Items,
	}

	data, err := s.gateway.Initialize(ctx, req.Email, total, reference, s.cfg.APIBaseURL+"/payment/callback", metadata)
	if err != nil {
		// Without a gateway session the pending row can never settle;
		// fail it visibly instead of leaving it to rot.
		if uerr := s.store.UpdateOrderStatus(ctx, reference, model.OrderStatusFailed); uerr != nil {
			log.Printf("Failed to mark order %s failed after gateway error: %v", reference, uerr)
		}
		return "", err
	}

	return data.AuthorizationURL, nil
}

func validateCheckout(req *CheckoutRequest) error {
	if req.Email == "" || req.FirstName == "" || req.LastName == "" || req.Phone == "" ||
		req.ShippingAddress == (model.ShippingAddress{}) || len(req.Items) == 0 {
		return &ValidationError{Message: "Missing required fields or empty cart."}
	}
	for _, item := range req.Items {
		if item.Name == "" || item.Price <= 0 || item.Quantity <= 0 {
			return &ValidationError{Message: "Each item requires a name, a positive price and a positive quantity."}
		}
	}
	return nil
}

// CallbackRedirectURL builds the frontend redirect for Paystack's browser
// callback. No verification happens here: the redirect arrives via the
// customer's browser and cannot be trusted.
func (s *CheckoutService) CallbackRedirectURL(reference string) string {
	base := s.cfg.ClientURL + "/payment/callback"
	if reference == "" {
		return base + "?status=failed&message=no_reference"
	}
	return base + "?reference=" + url.QueryEscape(reference)
}

// VerifyResult is a structured outcome: Success=false with a message is a
// normal gateway-reported failure, not an internal error.
type VerifyResult struct {
	Success bool
	Message string
	Data    interface{}
}

// VerifyPayment is safe to call repeatedly. An already-settled reference
// short-circuits on the stored payment without touching the gateway or
// re-sending notifications.
func (s *CheckoutService) VerifyPayment(ctx context.Context, reference string) (*VerifyResult, error) {
	if reference == "" {
		return nil, &ValidationError{Message: "Transaction reference is required."}
	}

	existing, err := s.store.GetPayment(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to look up payment: %w", err)
	}
	if existing != nil && existing.Status == model.PaymentStatusSuccess {
		return &VerifyResult{Success: true, Message: "Payment verified successfully.", Data: existing}, nil
	}

	data, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		var apiErr *paystack.APIError
		if errors.As(err, &apiErr) {
			if uerr := s.store.UpdateOrderStatus(ctx, reference, model.OrderStatusFailed); uerr != nil {
				log.Printf("Failed to mark order %s failed: %v", reference, uerr)
			}
			return &VerifyResult{Success: false, Message: apiErr.Message}, nil
		}
		// Communication error: the true gateway state is unknown, leave
		// the order untouched and let the frontend retry.
		return nil, err
	}

	if data.Status == model.PaymentStatusSuccess {
		if _, err := s.settle(ctx, reference, data); err != nil {
			return nil, err
		}
		return &VerifyResult{Success: true, Message: "Payment verified successfully.", Data: data}, nil
	}

	log.Printf("Verification for ref %s returned status %q", reference, data.Status)
	if uerr := s.store.UpdateOrderStatus(ctx, reference, model.OrderStatusFailed); uerr != nil {
		log.Printf("Failed to mark order %s failed: %v", reference, uerr)
	}

	msg := data.GatewayResponse
	if msg == "" {
		msg = "Transaction not successful"
	}
	return &VerifyResult{Success: false, Message: msg, Data: data}, nil
}

// HandleWebhook applies a signature-validated Paystack event. Unrecognized
// event types are accepted and ignored. A returned error is transient
// (persistence) — the controller answers 5xx so Paystack redelivers.
func (s *CheckoutService) HandleWebhook(ctx context.Context, event *paystack.WebhookEvent) error {
	if event.Event != "charge.success" {
		log.Printf("Ignoring webhook event %q", event.Event)
		return nil
	}
	if event.Data.Reference == "" {
		log.Println("charge.success webhook without reference — ignored")
		return nil
	}

	applied, err := s.settle(ctx, event.Data.Reference, &event.Data)
	if err != nil {
		return err
	}
	if !applied {
		log.Printf("Webhook for ref %s was already processed", event.Data.Reference)
	}
	return nil
}

// settle is the single idempotent-apply routine shared by verify and
// webhook. The store's conditional write decides the winner when both
// race for the same reference; notifications go out only on the applying
// call, after both writes landed.
func (s *CheckoutService) settle(ctx context.Context, reference string, data *paystack.VerifyData) (bool, error) {
	if s.redis != nil {
		if n, err := s.redis.Exists(ctx, settledKey(reference)).Result(); err == nil && n > 0 {
			return false, nil
		}
	}

	order, err := s.store.GetOrder(ctx, reference)
	if err != nil {
		return false, fmt.Errorf("failed to load order %s: %w", reference, err)
	}
	if order == nil {
		log.Printf("Settlement for unknown reference %s — ignored", reference)
		return false, nil
	}

	payment := paymentFromGateway(reference, data)
	applied, err := s.store.SettlePayment(ctx, reference, payment)
	if err != nil {
		return false, fmt.Errorf("failed to record settlement for %s: %w", reference, err)
	}
	if !applied {
		return false, nil
	}

	if s.redis != nil {
		s.redis.Set(ctx, settledKey(reference), "1", 24*time.Hour)
	}

	order.Status = model.OrderStatusPaid
	s.notifier.NotifyOrderPaid(order, payment)

	log.Printf("Order %s settled (paystack id %d, %s %d)", reference, payment.GatewayTransactionID, payment.Currency, payment.Amount)
	return true, nil
}

func settledKey(reference string) string {
	return "payment:settled:" + reference
}

func paymentFromGateway(reference string, data *paystack.VerifyData) *model.Payment {
	p := &model.Payment{
		Reference:            reference,
		GatewayTransactionID: data.TransactionID,
		Amount:               data.Amount,
		Currency:             data.Currency,
		Status:               model.PaymentStatusSuccess,
		GatewayResponse:      data.GatewayResponse,
	}
	if t, err := time.Parse(time.RFC3339, data.PaidAt); err == nil {
		p.PaidAt = &t
	}
	return p
}
