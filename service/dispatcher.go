package service

import (
	"time"

	"github.com/fiyin-bug/backend-lumii/kafka"
	"github.com/fiyin-bug/backend-lumii/mailer"
	"github.com/fiyin-bug/backend-lumii/model"
)

// Dispatcher fans a settled order out to the notification channels: the
// order.paid Kafka event for downstream fulfillment, plus the business
// and buyer mails. Everything is best-effort; the mails go out on their
// own goroutines so SMTP latency never sits on the verify/webhook path.
type Dispatcher struct {
	Mailer   *mailer.Mailer
	Producer *kafka.Producer
}

func NewDispatcher(m *mailer.Mailer, p *kafka.Producer) *Dispatcher {
	return &Dispatcher{Mailer: m, Producer: p}
}

func (d *Dispatcher) NotifyOrderPaid(order *model.Order, payment *model.Payment) {
	paidAt := ""
	if payment.PaidAt != nil {
		paidAt = payment.PaidAt.Format(time.RFC3339)
	}

	d.Producer.PublishOrderPaidEvent(map[string]interface{}{
		"event_type": "order.paid",
		"data": map[string]interface{}{
			"reference":              order.Reference,
			"email":                  order.Email,
			"amount":                 payment.Amount,
			"currency":               payment.Currency,
			"gateway_transaction_id": payment.GatewayTransactionID,
			"paid_at":                paidAt,
		},
	})

	if d.Mailer != nil {
		go d.Mailer.SendBusinessNotification(order, payment)
		go d.Mailer.SendBuyerReceipt(order, payment)
	}
}
