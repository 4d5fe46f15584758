package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	VoucherStatusActive  = "active"
	VoucherStatusExpired = "expired"
	VoucherStatusUsed    = "used"
)

// Voucher is a time-bounded entitlement to network access. Vouchers are
// created exactly once per fulfilled purchase transaction, mutated only by
// extensions and never deleted.
type Voucher struct {
	ID               string    `gorm:"type:char(36);primaryKey" json:"id"`
	UserID           string    `gorm:"type:char(36);not null;index" json:"user_id"`
	PackageID        string    `gorm:"type:char(36);not null;index" json:"package_id"`
	VoucherCode      string    `gorm:"type:varchar(20);not null;uniqueIndex" json:"voucher_code"`
	Status           string    `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	PurchaseDate     time.Time `gorm:"autoCreateTime" json:"purchase_date"`
	ExpiryDate       time.Time `gorm:"not null" json:"expiry_date"`
	RemainingTime    int64     `gorm:"not null;default:0" json:"remaining_time"`
	OriginalDuration int64     `gorm:"not null;default:0" json:"original_duration"`
	DevicesAllowed   int       `gorm:"not null;default:1" json:"devices_allowed"`
	Speed            string    `gorm:"type:varchar(50);default:''" json:"speed,omitempty"`
	DataAllowance    string    `gorm:"type:varchar(50);default:''" json:"data_allowance,omitempty"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Resolved from the packages table on read, not stored.
	PackageName string `gorm:"-" json:"package_name,omitempty"`
}

func (v *Voucher) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// EffectiveRemaining derives the remaining seconds from the expiry timestamp,
// floored at zero. The stored RemainingTime counter is a snapshot; the expiry
// date is authoritative.
func (v *Voucher) EffectiveRemaining(now time.Time) int64 {
	left := int64(v.ExpiryDate.Sub(now).Seconds())
	if left < 0 {
		return 0
	}
	return left
}

// EffectiveStatus treats any voucher with no time left as expired regardless
// of the stored status.
func (v *Voucher) EffectiveStatus(now time.Time) string {
	if v.Status == VoucherStatusActive && v.EffectiveRemaining(now) <= 0 {
		return VoucherStatusExpired
	}
	return v.Status
}

// VoucherExtension is the append-only audit trail of voucher extensions, one
// row per successful extension.
type VoucherExtension struct {
	ID               string    `gorm:"type:char(36);primaryKey" json:"id"`
	VoucherID        string    `gorm:"type:char(36);not null;index" json:"voucher_id"`
	TransactionID    string    `gorm:"type:char(36);not null;index" json:"transaction_id"`
	ExtensionHours   int       `gorm:"not null" json:"extension_hours"`
	ExtensionSeconds int64     `gorm:"not null" json:"extension_seconds"`
	AmountPaid       float64   `gorm:"type:decimal(10,2);not null" json:"amount_paid"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (e *VoucherExtension) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
