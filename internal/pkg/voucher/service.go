package voucher

import (
	"context"
	"errors"
	"time"

	"github.com/oranet/oranet-backend/app/models"
	"gorm.io/gorm"
)

var (
	ErrPackageNotFound  = errors.New("package not found")
	ErrVoucherNotFound  = errors.New("voucher not found")
	ErrVoucherNotActive = errors.New("cannot extend an expired or used voucher")
	ErrCreationFailed   = errors.New("failed to create voucher")
)

// Service is the voucher store: creation, extension and read paths over an
// injected repository.
type Service struct {
	repo Repository
}

// NewService creates a voucher service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a voucher service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// Create issues a new voucher for a fulfilled purchase transaction. The
// voucher insert and the completed-status flip on the originating transaction
// commit together or not at all.
func (s *Service) Create(ctx context.Context, userID, packageID, transactionID string) (*models.Voucher, error) {
	_ = ctx
	pkg, err := s.repo.GetActivePackage(packageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}

	now := time.Now()
	durationInSeconds, expiryDate := ResolveDuration(pkg, now)

	code, err := GenerateCode()
	if err != nil {
		return nil, err
	}

	v := &models.Voucher{
		UserID:           userID,
		PackageID:        packageID,
		VoucherCode:      code,
		Status:           models.VoucherStatusActive,
		PurchaseDate:     now,
		ExpiryDate:       expiryDate,
		RemainingTime:    durationInSeconds,
		OriginalDuration: durationInSeconds,
		DevicesAllowed:   pkg.Devices,
		Speed:            pkg.Speed,
		DataAllowance:    pkg.DataAllowance,
	}

	err = s.repo.Transaction(func(r Repository) error {
		if err := r.CreateVoucher(v); err != nil {
			return ErrCreationFailed
		}
		return r.LinkTransactionVoucher(transactionID, v.ID)
	})
	if err != nil {
		return nil, err
	}

	v.PackageName = pkg.Name
	return v, nil
}

// Extend stacks hours onto an active voucher. The new expiry is computed from
// the stored expiry, not from now, so time already remaining is preserved.
// The voucher update, the audit row and the transaction completion are one
// atomic operation.
func (s *Service) Extend(ctx context.Context, voucherID, userID string, hours int, transactionID string) (*models.Voucher, error) {
	_ = ctx
	v, err := s.repo.GetUserVoucherByID(voucherID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, err
	}
	if v.Status != models.VoucherStatusActive {
		return nil, ErrVoucherNotActive
	}

	additionalSeconds := int64(hours) * 3600
	newExpiry := v.ExpiryDate.Add(time.Duration(additionalSeconds) * time.Second)

	var updated *models.Voucher
	err = s.repo.Transaction(func(r Repository) error {
		var txErr error
		updated, txErr = r.UpdateVoucherExpiry(voucherID, userID, newExpiry, additionalSeconds)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return ErrVoucherNotFound
			}
			return txErr
		}

		amount, txErr := r.GetTransactionAmount(transactionID)
		if txErr != nil && !errors.Is(txErr, gorm.ErrRecordNotFound) {
			return txErr
		}

		ext := &models.VoucherExtension{
			VoucherID:        voucherID,
			TransactionID:    transactionID,
			ExtensionHours:   hours,
			ExtensionSeconds: additionalSeconds,
			AmountPaid:       amount,
		}
		if txErr := r.CreateExtension(ext); txErr != nil {
			return txErr
		}

		return r.LinkTransactionVoucher(transactionID, voucherID)
	})
	if err != nil {
		return nil, err
	}

	if name, err := s.repo.GetPackageName(updated.PackageID); err == nil {
		updated.PackageName = name
	}
	return updated, nil
}

// GetByID loads a voucher, scoped to a user when userID is non-empty.
func (s *Service) GetByID(ctx context.Context, voucherID, userID string) (*models.Voucher, error) {
	_ = ctx
	var v *models.Voucher
	var err error
	if userID != "" {
		v, err = s.repo.GetUserVoucherByID(voucherID, userID)
	} else {
		v, err = s.repo.GetVoucherByID(voucherID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, err
	}
	s.attachPackageName(v)
	return v, nil
}

// GetByCode loads a voucher by its printed code.
func (s *Service) GetByCode(ctx context.Context, code string) (*models.Voucher, error) {
	_ = ctx
	v, err := s.repo.GetVoucherByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, err
	}
	s.attachPackageName(v)
	return v, nil
}

// ListUserVouchers returns all vouchers of a user, active first.
func (s *Service) ListUserVouchers(ctx context.Context, userID string) ([]models.Voucher, error) {
	_ = ctx
	vouchers, err := s.repo.ListUserVouchers(userID)
	if err != nil {
		return nil, err
	}
	for i := range vouchers {
		s.attachPackageName(&vouchers[i])
	}
	return vouchers, nil
}

func (s *Service) attachPackageName(v *models.Voucher) {
	if name, err := s.repo.GetPackageName(v.PackageID); err == nil {
		v.PackageName = name
	}
}
