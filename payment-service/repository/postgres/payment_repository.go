package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arunvm123/tourismbooking/payment-service/config"
	"github.com/arunvm123/tourismbooking/payment-service/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type PostgresPaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(cfg *config.Database, log *slog.Logger) (*PostgresPaymentRepository, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseURL()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)

	if err := db.AutoMigrate(&model.Payment{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info("database connected and payments table migrated")

	return &PostgresPaymentRepository{db: db}, nil
}

// NewPaymentRepositoryFromDB wraps an existing connection. Used by tests.
func NewPaymentRepositoryFromDB(db *gorm.DB) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{db: db}
}

// CreatePayment inserts a new payment record
func (r *PostgresPaymentRepository) CreatePayment(ctx context.Context, payment *model.Payment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetPaymentByID retrieves a payment by its ID
func (r *PostgresPaymentRepository) GetPaymentByID(ctx context.Context, id string) (*model.Payment, error) {
	var payment model.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &model.NotFoundError{Resource: "payment", ID: id}
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

// ListUserPayments retrieves one page of a user's payments, newest first
func (r *PostgresPaymentRepository) ListUserPayments(ctx context.Context, filter model.PaymentFilter) ([]model.Payment, int, error) {
	var payments []model.Payment
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Payment{}).Where("user_id = ?", filter.UserID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	err := query.Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&payments).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}

	return payments, int(total), nil
}

func (r *PostgresPaymentRepository) TransitionPayment(ctx context.Context, req model.TransitionRequest) (*model.Payment, error) {
	updates := map[string]interface{}{
		"status":            req.To,
		"charge_claimed_at": nil,
	}
	if req.PaidAt != nil {
		updates["paid_at"] = *req.PaidAt
	}
	if g := req.Gateway; g != nil {
		updates["gateway_reference_id"] = g.ReferenceID
		updates["gateway_transaction_id"] = g.TransactionID
		updates["gateway_issuer_transaction_id"] = g.IssuerTransactionID
		updates["gateway_state"] = g.State
		updates["gateway_response_code"] = g.ResponseCode
		updates["gateway_response_msg"] = g.ResponseMsg
		updates["gateway_merchant_charges"] = g.MerchantCharges
		updates["gateway_tx_amount"] = g.TxAmount
		updates["gateway_fallback"] = g.Fallback
		updates["gateway_responded_at"] = g.RespondedAt
	}

	var updated model.Payment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Payment{}).
			Where("id = ? AND status = ?", req.PaymentID, req.From).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to update payment status: %w", result.Error)
		}

		if result.RowsAffected == 0 {
			var current model.Payment
			if err := tx.Select("id", "status").Where("id = ?", req.PaymentID).First(&current).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &model.NotFoundError{Resource: "payment", ID: req.PaymentID}
				}
				return fmt.Errorf("failed to get payment: %w", err)
			}
			return &model.ConflictError{
				PaymentID: req.PaymentID,
				Reason:    fmt.Sprintf("status is %s, expected %s", current.Status, req.From),
			}
		}

		return tx.Where("id = ?", req.PaymentID).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *PostgresPaymentRepository) ClaimCharge(ctx context.Context, paymentID string, now, staleBefore time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND status = ? AND gateway_responded_at IS NULL", paymentID, model.StatusPending).
		Where("(charge_claimed_at IS NULL OR charge_claimed_at < ?)", staleBefore).
		Update("charge_claimed_at", now)
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim payment charge: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *PostgresPaymentRepository) ReleaseCharge(ctx context.Context, paymentID string) error {
	err := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ?", paymentID).
		Update("charge_claimed_at", nil).Error
	if err != nil {
		return fmt.Errorf("failed to release payment charge: %w", err)
	}
	return nil
}

func (r *PostgresPaymentRepository) ListPendingPayments(ctx context.Context, olderThan time.Time, limit int) ([]model.Payment, error) {
	var payments []model.Payment
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ? AND gateway_responded_at IS NULL", model.StatusPending, olderThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending payments: %w", err)
	}
	return payments, nil
}

func (r *PostgresPaymentRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
