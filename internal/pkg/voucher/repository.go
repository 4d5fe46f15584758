package voucher

import (
	"time"

	"github.com/oranet/oranet-backend/app/models"
	"gorm.io/gorm"
)

// Repository provides DB operations used by the voucher service.
type Repository interface {
	GetActivePackage(id string) (*models.Package, error)
	GetPackageName(id string) (string, error)
	CreateVoucher(v *models.Voucher) error
	GetVoucherByID(id string) (*models.Voucher, error)
	GetUserVoucherByID(id, userID string) (*models.Voucher, error)
	GetVoucherByCode(code string) (*models.Voucher, error)
	ListUserVouchers(userID string) ([]models.Voucher, error)
	UpdateVoucherExpiry(id, userID string, newExpiry time.Time, additionalSeconds int64) (*models.Voucher, error)
	CreateExtension(e *models.VoucherExtension) error
	GetTransactionAmount(transactionID string) (float64, error)
	LinkTransactionVoucher(transactionID, voucherID string) error
	Transaction(fn func(Repository) error) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a voucher repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetActivePackage(id string) (*models.Package, error) {
	var pkg models.Package
	err := r.db.Where("id = ? AND is_active = ?", id, true).First(&pkg).Error
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *gormRepository) GetPackageName(id string) (string, error) {
	var pkg models.Package
	err := r.db.Select("name").Where("id = ?", id).First(&pkg).Error
	if err != nil {
		return "", err
	}
	return pkg.Name, nil
}

func (r *gormRepository) CreateVoucher(v *models.Voucher) error {
	return r.db.Create(v).Error
}

func (r *gormRepository) GetVoucherByID(id string) (*models.Voucher, error) {
	var v models.Voucher
	err := r.db.Where("id = ?", id).First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *gormRepository) GetUserVoucherByID(id, userID string) (*models.Voucher, error) {
	var v models.Voucher
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *gormRepository) GetVoucherByCode(code string) (*models.Voucher, error) {
	var v models.Voucher
	err := r.db.Where("voucher_code = ?", code).First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListUserVouchers orders active vouchers first, then used, then everything
// else, each group newest purchase first.
func (r *gormRepository) ListUserVouchers(userID string) ([]models.Voucher, error) {
	var vouchers []models.Voucher
	err := r.db.Where("user_id = ?", userID).
		Order("CASE WHEN status = 'active' THEN 0 WHEN status = 'used' THEN 1 ELSE 2 END").
		Order("purchase_date DESC").
		Find(&vouchers).Error
	return vouchers, err
}

// UpdateVoucherExpiry stacks additional time onto the stored expiry and
// remaining_time counter in a single statement.
func (r *gormRepository) UpdateVoucherExpiry(id, userID string, newExpiry time.Time, additionalSeconds int64) (*models.Voucher, error) {
	tx := r.db.Model(&models.Voucher{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{
			"expiry_date":    newExpiry,
			"remaining_time": gorm.Expr("remaining_time + ?", additionalSeconds),
		})
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetUserVoucherByID(id, userID)
}

func (r *gormRepository) CreateExtension(e *models.VoucherExtension) error {
	return r.db.Create(e).Error
}

func (r *gormRepository) GetTransactionAmount(transactionID string) (float64, error) {
	var t models.Transaction
	err := r.db.Select("amount").Where("id = ?", transactionID).First(&t).Error
	if err != nil {
		return 0, err
	}
	return t.Amount, nil
}

// LinkTransactionVoucher marks the originating transaction completed and
// attaches the fulfilled voucher id.
func (r *gormRepository) LinkTransactionVoucher(transactionID, voucherID string) error {
	return r.db.Model(&models.Transaction{}).
		Where("id = ?", transactionID).
		Updates(map[string]interface{}{
			"voucher_id": voucherID,
			"status":     models.TransactionStatusCompleted,
		}).Error
}

func (r *gormRepository) Transaction(fn func(Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}
