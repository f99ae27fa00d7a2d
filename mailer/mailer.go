package mailer

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/fiyin-bug/backend-lumii/config"
	"github.com/fiyin-bug/backend-lumii/model"
)

// Mailer sends the order notification mails. When SMTP credentials are
// missing it stays disabled and every send becomes a logged skip; mail
// must never block or fail a settlement.
type Mailer struct {
	dialer        *gomail.Dialer
	from          string
	businessEmail string
	minorFactor   int64
}

func New(cfg *config.Config) *Mailer {
	factor := cfg.MinorUnitFactor
	if factor <= 0 {
		factor = 100
	}

	if cfg.SMTPHost == "" || cfg.SMTPUser == "" || cfg.SMTPPass == "" {
		log.Println("Email credentials not set — email notifications disabled")
		return &Mailer{minorFactor: factor}
	}

	return &Mailer{
		dialer:        gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
		from:          cfg.MailFrom,
		businessEmail: cfg.BusinessEmail,
		minorFactor:   factor,
	}
}

// major converts a gateway minor-unit amount back to NGN for display.
func (m *Mailer) major(amount int64) float64 {
	return float64(amount) / float64(m.minorFactor)
}

// Verify dials the SMTP server once at startup so a bad configuration
// shows up in the logs immediately instead of on the first paid order.
func (m *Mailer) Verify() {
	if m.dialer == nil {
		return
	}
	closer, err := m.dialer.Dial()
	if err != nil {
		log.Printf("SMTP verification failed (ignored): %v", err)
		return
	}
	closer.Close()
	log.Println("Email server ready")
}

func (m *Mailer) SendBusinessNotification(order *model.Order, payment *model.Payment) {
	if m.dialer == nil || m.businessEmail == "" {
		log.Println("Business notification skipped — mail not configured")
		return
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.businessEmail)
	msg.SetHeader("Subject", fmt.Sprintf("[Lumis Jewelry] New Order Paid - Ref: %s", order.Reference))
	msg.SetBody("text/plain", m.orderSummary(order, payment))

	if err := m.dialer.DialAndSend(msg); err != nil {
		log.Printf("Failed to send business notification for ref %s: %v", order.Reference, err)
		return
	}
	log.Printf("Business notification sent for ref %s", order.Reference)
}

func (m *Mailer) SendBuyerReceipt(order *model.Order, payment *model.Payment) {
	if m.dialer == nil || order.Email == "" {
		log.Println("Buyer receipt skipped — mail not configured")
		return
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", order.Email)
	msg.SetHeader("Subject", fmt.Sprintf("Your Lumis Jewelry order %s is confirmed", order.Reference))
	msg.SetBody("text/plain", fmt.Sprintf(
		"Hi %s,\n\nWe received your payment of NGN %.2f for order %s.\nYour jewelry is on its way.\n\nLumis Jewelry",
		order.FirstName, m.major(payment.Amount), order.Reference,
	))

	if err := m.dialer.DialAndSend(msg); err != nil {
		log.Printf("Failed to send buyer receipt for ref %s: %v", order.Reference, err)
		return
	}
	log.Printf("Buyer receipt sent for ref %s", order.Reference)
}

func (m *Mailer) orderSummary(order *model.Order, payment *model.Payment) string {
	var b strings.Builder

	fmt.Fprintf(&b, "A new order has been successfully paid for.\n\n")
	fmt.Fprintf(&b, "========================================\n")
	fmt.Fprintf(&b, "Order Reference: %s\n", order.Reference)
	fmt.Fprintf(&b, "========================================\n\n")

	fmt.Fprintf(&b, "Customer Details:\n")
	fmt.Fprintf(&b, "  Name: %s %s\n", order.FirstName, order.LastName)
	fmt.Fprintf(&b, "  Email: %s\n", order.Email)
	fmt.Fprintf(&b, "  Phone: %s\n\n", order.Phone)

	var addr model.ShippingAddress
	if err := json.Unmarshal(order.ShippingAddress, &addr); err == nil {
		fmt.Fprintf(&b, "Shipping Address:\n")
		fmt.Fprintf(&b, "  %s\n", addr.Street)
		fmt.Fprintf(&b, "  %s, %s %s\n", addr.City, addr.State, addr.PostalCode)
		fmt.Fprintf(&b, "  %s\n\n", addr.Country)
	}

	var items []model.CartItem
	if err := json.Unmarshal(order.CartItems, &items); err == nil && len(items) > 0 {
		fmt.Fprintf(&b, "Order Items:\n")
		for _, item := range items {
			fmt.Fprintf(&b, "- %s x%d @ NGN %.2f\n", item.Name, item.Quantity, item.Price)
		}
		fmt.Fprintf(&b, "\n")
	}

	paidAt := "N/A"
	if payment.PaidAt != nil {
		paidAt = payment.PaidAt.Format(time.RFC1123)
	}

	fmt.Fprintf(&b, "Payment Details:\n")
	fmt.Fprintf(&b, "  Total Amount Paid: NGN %.2f\n", m.major(payment.Amount))
	fmt.Fprintf(&b, "  Paystack Transaction ID: %d\n", payment.GatewayTransactionID)
	fmt.Fprintf(&b, "  Payment Time: %s\n", paidAt)
	fmt.Fprintf(&b, "========================================\n")

	return b.String()
}
