package controller_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiyin-bug/backend-lumii/config"
	"github.com/fiyin-bug/backend-lumii/controller"
	"github.com/fiyin-bug/backend-lumii/model"
	"github.com/fiyin-bug/backend-lumii/paystack"
	"github.com/fiyin-bug/backend-lumii/routes"
	"github.com/fiyin-bug/backend-lumii/service"
)

const webhookSecret = "sk_test_secret"

type memStore struct {
	mu       sync.Mutex
	orders   map[string]*model.Order
	payments map[string]*model.Payment
	reads    int
	writes   int
}

func newMemStore() *memStore {
	return &memStore{
		orders:   make(map[string]*model.Order),
		payments: make(map[string]*model.Payment),
	}
}

func (m *memStore) CreateOrder(_ context.Context, order *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.orders[order.Reference] = order
	return nil
}

func (m *memStore) GetOrder(_ context.Context, reference string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	return m.orders[reference], nil
}

func (m *memStore) UpdateOrderStatus(_ context.Context, reference, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if o, ok := m.orders[reference]; ok && o.Status != model.OrderStatusPaid {
		o.Status = status
	}
	return nil
}

func (m *memStore) GetPayment(_ context.Context, reference string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	return m.payments[reference], nil
}

func (m *memStore) SettlePayment(_ context.Context, reference string, p *model.Payment) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if existing, ok := m.payments[reference]; ok && existing.Status == model.PaymentStatusSuccess {
		return false, nil
	}
	m.payments[reference] = p
	if o, ok := m.orders[reference]; ok {
		o.Status = model.OrderStatusPaid
	}
	return true, nil
}

func (m *memStore) touched() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads + m.writes
}

type stubGateway struct {
	verifyFn func(ctx context.Context, reference string) (*paystack.VerifyData, error)
}

func (s *stubGateway) Initialize(context.Context, string, int64, string, string, map[string]interface{}) (*paystack.InitializeData, error) {
	return &paystack.InitializeData{AuthorizationURL: "https://checkout.paystack.com/xyz"}, nil
}

func (s *stubGateway) Verify(ctx context.Context, reference string) (*paystack.VerifyData, error) {
	return s.verifyFn(ctx, reference)
}

type countingNotifier struct {
	calls int
	mu    sync.Mutex
}

func (n *countingNotifier) NotifyOrderPaid(*model.Order, *model.Payment) {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
}

func newTestApp(st *memStore, gw *stubGateway, notifier *countingNotifier) *fiber.App {
	cfg := &config.Config{
		APIBaseURL:      "http://localhost:5000/api",
		ClientURL:       "http://localhost:5173",
		MinOrderAmount:  100,
		MinorUnitFactor: 100,
	}
	svc := service.New(st, gw, notifier, nil, cfg)
	pc := controller.NewPaymentController(svc, webhookSecret)

	app := fiber.New()
	routes.RegisterPaymentRoutes(app, pc)
	return app
}

func sign(body []byte) string {
	mac := hmac.New(sha512.New, []byte(webhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestHealth(t *testing.T) {
	app := newTestApp(newMemStore(), &stubGateway{}, &countingNotifier{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "OK", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestInitialize_ValidationError(t *testing.T) {
	st := newMemStore()
	app := newTestApp(st, &stubGateway{}, &countingNotifier{})

	payload := []byte(`{"email":"","firstName":"Ada","lastName":"Obi","phone":"1","shippingAddress":{"city":"Lagos"},"items":[{"name":"A","price":50,"quantity":2}]}`)
	req := httptest.NewRequest("POST", "/api/payment/initialize", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["message"])
	assert.Empty(t, st.orders, "no order row on a 400")
}

func TestInitialize_Success(t *testing.T) {
	st := newMemStore()
	app := newTestApp(st, &stubGateway{}, &countingNotifier{})

	payload := []byte(`{"email":"ada@example.com","firstName":"Ada","lastName":"Obi","phone":"+234801","shippingAddress":{"street":"1 Marina Rd","city":"Lagos","state":"LA","postalCode":"100001","country":"NG"},"items":[{"name":"A","price":50,"quantity":2},{"name":"B","price":30,"quantity":1}]}`)
	req := httptest.NewRequest("POST", "/api/payment/initialize", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "https://checkout.paystack.com/xyz", body["authorizationUrl"])

	require.Len(t, st.orders, 1)
	for _, order := range st.orders {
		assert.Equal(t, model.OrderStatusPending, order.Status)
		assert.Equal(t, int64(13000), order.TotalAmount)
	}
}

func TestCallback_Redirects(t *testing.T) {
	st := newMemStore()
	app := newTestApp(st, &stubGateway{}, &countingNotifier{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/payment/callback?reference=ABC123", nil))
	require.NoError(t, err)
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173/payment/callback?reference=ABC123", resp.Header.Get("Location"))

	resp, err = app.Test(httptest.NewRequest("GET", "/api/payment/callback", nil))
	require.NoError(t, err)
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173/payment/callback?status=failed&message=no_reference", resp.Header.Get("Location"))

	assert.Equal(t, 0, st.touched(), "callback must not touch the store")
}

func TestVerify_PathAndQueryParam(t *testing.T) {
	st := newMemStore()
	st.orders["LUMIS-1-abc"] = &model.Order{Reference: "LUMIS-1-abc", Status: model.OrderStatusPending}
	gw := &stubGateway{
		verifyFn: func(_ context.Context, reference string) (*paystack.VerifyData, error) {
			return &paystack.VerifyData{
				Status: "success", Reference: reference, Amount: 13000, Currency: "NGN",
				GatewayResponse: "Successful", PaidAt: "2026-08-30T12:00:00Z", TransactionID: 42,
			}, nil
		},
	}
	app := newTestApp(st, gw, &countingNotifier{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/payment/verify?reference=LUMIS-1-abc", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	// path-parameterized form reaches the same handler
	resp, err = app.Test(httptest.NewRequest("GET", "/api/payment/verify/LUMIS-1-abc", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["success"])
}

func TestVerify_MissingReference(t *testing.T) {
	app := newTestApp(newMemStore(), &stubGateway{}, &countingNotifier{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/payment/verify", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestWebhook_ValidSignatureSettles(t *testing.T) {
	st := newMemStore()
	st.orders["LUMIS-2-def"] = &model.Order{Reference: "LUMIS-2-def", Status: model.OrderStatusPending}
	notifier := &countingNotifier{}
	app := newTestApp(st, &stubGateway{}, notifier)

	body := []byte(`{"event":"charge.success","data":{"id":42,"status":"success","reference":"LUMIS-2-def","amount":13000,"currency":"NGN","gateway_response":"Successful","paid_at":"2026-08-30T12:00:00Z"}}`)
	req := httptest.NewRequest("POST", "/api/payment/webhook", bytes.NewReader(body))
	req.Header.Set(paystack.SignatureHeader, sign(body))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, model.OrderStatusPaid, st.orders["LUMIS-2-def"].Status)
	assert.Equal(t, 1, notifier.calls)

	// duplicate delivery: still 200, no second notification
	req = httptest.NewRequest("POST", "/api/payment/webhook", bytes.NewReader(body))
	req.Header.Set(paystack.SignatureHeader, sign(body))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 1, notifier.calls)
}

func TestWebhook_TamperedBodyRejected(t *testing.T) {
	st := newMemStore()
	st.orders["LUMIS-3-ghi"] = &model.Order{Reference: "LUMIS-3-ghi", Status: model.OrderStatusPending}
	app := newTestApp(st, &stubGateway{}, &countingNotifier{})

	body := []byte(`{"event":"charge.success","data":{"reference":"LUMIS-3-ghi","status":"success"}}`)
	goodSig := sign(body)
	tampered := []byte(`{"event":"charge.success","data":{"reference":"LUMIS-3-ghi","status":"success","amount":1}}`)

	req := httptest.NewRequest("POST", "/api/payment/webhook", bytes.NewReader(tampered))
	req.Header.Set(paystack.SignatureHeader, goodSig)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, model.OrderStatusPending, st.orders["LUMIS-3-ghi"].Status, "rejected webhook must not mutate state")
	assert.Empty(t, st.payments)
}

func TestWebhook_MissingSignatureRejected(t *testing.T) {
	app := newTestApp(newMemStore(), &stubGateway{}, &countingNotifier{})

	body := []byte(`{"event":"charge.success","data":{"reference":"x"}}`)
	resp, err := app.Test(httptest.NewRequest("POST", "/api/payment/webhook", bytes.NewReader(body)))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
	io.Copy(io.Discard, resp.Body)
}
