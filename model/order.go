package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusFailed    = "failed"
	OrderStatusCancelled = "cancelled"
)

const (
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
)

type Order struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Reference       string         `gorm:"uniqueIndex" json:"reference"`
	Email           string         `json:"email"`
	FirstName       string         `json:"first_name"`
	LastName        string         `json:"last_name"`
	Phone           string         `json:"phone"`
	ShippingAddress datatypes.JSON `json:"shipping_address"`
	CartItems       datatypes.JSON `json:"cart_items"`
	TotalAmount     int64          `json:"total_amount"` // kobo
	Status          string         `json:"status"`       // pending | paid | failed | cancelled
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type Payment struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	Reference            string     `gorm:"uniqueIndex" json:"reference"`
	GatewayTransactionID int64      `json:"gateway_transaction_id"`
	Amount               int64      `json:"amount"` // kobo
	Currency             string     `json:"currency"`
	Status               string     `json:"status"` // success | failed
	GatewayResponse      string     `json:"gateway_response"`
	PaidAt               *time.Time `json:"paid_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// CartItem is what the storefront submits; Price is in major units (NGN).
type CartItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type ShippingAddress struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// CartTotalMinor sums the cart in the gateway's minor unit. Decimal math
// keeps NGN prices like 49.99 from drifting on the float conversion.
func CartTotalMinor(items []CartItem, minorUnitFactor int64) int64 {
	factor := decimal.NewFromInt(minorUnitFactor)
	total := decimal.Zero
	for _, item := range items {
		line := decimal.NewFromFloat(item.Price).
			Mul(decimal.NewFromInt(int64(item.Quantity))).
			Mul(factor)
		total = total.Add(line)
	}
	return total.Round(0).IntPart()
}
