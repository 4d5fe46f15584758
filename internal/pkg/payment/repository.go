package payment

import (
	"context"
	"time"

	"github.com/oranet/oranet-backend/app/models"
	"github.com/oranet/oranet-backend/internal/pkg/voucher"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the payment service.
type Repository interface {
	CreateTransaction(t *models.Transaction) error
	ListUserTransactions(userID string) ([]models.Transaction, error)
	CompletePendingTransaction(checkoutID, merchantID, mpesaTxnID, receipt string) (*models.Transaction, error)
	FailPendingTransaction(checkoutID, merchantID string) (*models.Transaction, error)
	RecordWebhookEvent(e *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
	// ReconcileTx runs fn inside one database transaction, handing it a
	// ledger and a voucher store bound to that transaction. A returned error
	// rolls back everything fn did, including the pending→completed flip.
	ReconcileTx(fn func(ledger Repository, store VoucherStore) error) error
}

// VoucherStore is the slice of the voucher service the reconciler needs for
// fulfillment.
type VoucherStore interface {
	Create(ctx context.Context, userID, packageID, transactionID string) (*models.Voucher, error)
	Extend(ctx context.Context, voucherID, userID string, hours int, transactionID string) (*models.Voucher, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payment repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateTransaction(t *models.Transaction) error {
	return r.db.Create(t).Error
}

func (r *gormRepository) ListUserTransactions(userID string) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&transactions).Error
	return transactions, err
}

// CompletePendingTransaction performs the one-shot pending→completed
// transition for a correlation pair. The status predicate makes the update
// conditional: a duplicate or late callback matches zero rows and yields
// gorm.ErrRecordNotFound, which is the idempotency guard.
func (r *gormRepository) CompletePendingTransaction(checkoutID, merchantID, mpesaTxnID, receipt string) (*models.Transaction, error) {
	tx := r.db.Model(&models.Transaction{}).
		Where("checkout_request_id = ? AND merchant_request_id = ? AND status = ?",
			checkoutID, merchantID, models.TransactionStatusPending).
		Updates(map[string]interface{}{
			"mpesa_transaction_id": mpesaTxnID,
			"mpesa_receipt_number": receipt,
			"status":               models.TransactionStatusCompleted,
		})
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var t models.Transaction
	err := r.db.Where("checkout_request_id = ? AND merchant_request_id = ?", checkoutID, merchantID).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FailPendingTransaction moves a pending transaction to failed when the
// gateway reports a non-success result. Same conditional-update shape as the
// success path.
func (r *gormRepository) FailPendingTransaction(checkoutID, merchantID string) (*models.Transaction, error) {
	tx := r.db.Model(&models.Transaction{}).
		Where("checkout_request_id = ? AND merchant_request_id = ? AND status = ?",
			checkoutID, merchantID, models.TransactionStatusPending).
		Update("status", models.TransactionStatusFailed)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var t models.Transaction
	err := r.db.Where("checkout_request_id = ? AND merchant_request_id = ?", checkoutID, merchantID).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *gormRepository) RecordWebhookEvent(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "checkout_request_id"},
			{Name: "merchant_request_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.PaymentWebhookEvent
	if err := r.db.Where("checkout_request_id = ? AND merchant_request_id = ?",
		event.CheckoutRequestID, event.MerchantRequestID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.PaymentWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) ReconcileTx(fn func(Repository, VoucherStore) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx}, voucher.NewServiceFromDB(tx))
	})
}
