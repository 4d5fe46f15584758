package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TransactionTypePurchase  = "purchase"
	TransactionTypeExtension = "extension"
	TransactionTypeRefund    = "refund"
)

const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
	TransactionStatusCancelled = "cancelled"
)

// Transaction records one payment attempt. The (merchant_request_id,
// checkout_request_id) pair is the natural key the gateway callback is
// matched against; at most one row may ever move from pending to completed
// for a given pair.
type Transaction struct {
	ID                 string    `gorm:"type:char(36);primaryKey" json:"id"`
	UserID             string    `gorm:"type:char(36);not null;index" json:"user_id"`
	VoucherID          string    `gorm:"type:char(36);default:'';index" json:"voucher_id,omitempty"`
	PackageID          string    `gorm:"type:char(36);default:''" json:"package_id,omitempty"`
	TransactionType    string    `gorm:"type:varchar(20);not null" json:"transaction_type"`
	Amount             float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	PhoneNumber        string    `gorm:"type:varchar(15);not null" json:"phone_number"`
	MpesaTransactionID string    `gorm:"type:varchar(50);default:''" json:"mpesa_transaction_id,omitempty"`
	MpesaReceiptNumber string    `gorm:"type:varchar(50);default:''" json:"mpesa_receipt_number,omitempty"`
	CheckoutRequestID  string    `gorm:"type:varchar(100);not null;index:ux_transactions_correlation,unique,priority:1" json:"checkout_request_id"`
	MerchantRequestID  string    `gorm:"type:varchar(100);not null;index:ux_transactions_correlation,unique,priority:2" json:"merchant_request_id"`
	Status             string    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedAt          time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// IsPending reports whether the transaction is still awaiting its callback.
func (t *Transaction) IsPending() bool {
	return t.Status == TransactionStatusPending
}
