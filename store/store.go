package store

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"

	"github.com/fiyin-bug/backend-lumii/model"
)

// Store persists orders and payments. GORM handles the straightforward
// reads/writes; the settle path drops to *sql.DB for the conditional
// update that makes duplicate settlements no-ops.
type Store struct {
	DB  *gorm.DB
	SQL *sql.DB
}

func New(db *gorm.DB) (*Store, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	return &Store{DB: db, SQL: sqlDB}, nil
}

func (s *Store) CreateOrder(ctx context.Context, order *model.Order) error {
	return s.DB.WithContext(ctx).Create(order).Error
}

func (s *Store) GetOrder(ctx context.Context, reference string) (*model.Order, error) {
	var order model.Order
	err := s.DB.WithContext(ctx).Where("reference = ?", reference).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus moves an order to a non-terminal state. Paid is
// terminal: a late "abandoned" verify racing a settled webhook must not
// overwrite it, so the write carries the same status guard as the settle.
func (s *Store) UpdateOrderStatus(ctx context.Context, reference, status string) error {
	return s.DB.WithContext(ctx).
		Model(&model.Order{}).
		Where("reference = ? AND status <> ?", reference, model.OrderStatusPaid).
		Update("status", status).Error
}

func (s *Store) GetPayment(ctx context.Context, reference string) (*model.Payment, error) {
	var payment model.Payment
	err := s.DB.WithContext(ctx).Where("reference = ?", reference).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// SettlePayment records a confirmed payment. The payment upsert is the
// authoritative idempotency guard: once a success row exists for the
// reference, re-applies update zero rows and return applied=false. The
// order update runs on every call so a retry after a partial failure
// still brings the order to paid.
func (s *Store) SettlePayment(ctx context.Context, reference string, p *model.Payment) (bool, error) {
	res, err := s.SQL.ExecContext(ctx, `
		INSERT INTO payments
		(reference, gateway_transaction_id, amount, currency, status, gateway_response, paid_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
		ON CONFLICT (reference) DO UPDATE
		SET gateway_transaction_id=EXCLUDED.gateway_transaction_id,
		    amount=EXCLUDED.amount,
		    currency=EXCLUDED.currency,
		    status=EXCLUDED.status,
		    gateway_response=EXCLUDED.gateway_response,
		    paid_at=EXCLUDED.paid_at
		WHERE payments.status != $5
	`, reference, p.GatewayTransactionID, p.Amount, p.Currency, p.Status, p.GatewayResponse, p.PaidAt)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	_, err = s.SQL.ExecContext(ctx, `
		UPDATE orders
		SET status=$1, updated_at=NOW()
		WHERE reference=$2 AND status != $1
	`, model.OrderStatusPaid, reference)
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}
