package payment

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oranet/oranet-backend/app/models"
	"github.com/oranet/oranet-backend/internal/pkg/metrics"
	"github.com/oranet/oranet-backend/internal/pkg/mpesa"
	"github.com/oranet/oranet-backend/internal/pkg/voucher"
	"gorm.io/gorm"
)

// ErrNotFoundOrProcessed means the callback matched no pending transaction:
// either the correlation pair is unknown or a previous delivery already
// completed it. Both are safe no-ops.
var ErrNotFoundOrProcessed = errors.New("transaction not found or already processed")

// Sentinel prefix on the package identifier that marks a purchase request as
// a voucher extension. The target voucher id follows the prefix.
const extendPrefix = "extend-"

var phonePattern = regexp.MustCompile(`^(07|01|2547|2541)[0-9]{8}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("kenyan_phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// PurchaseRequest is the storefront's payment initiation payload.
type PurchaseRequest struct {
	PhoneNumber string  `json:"phoneNumber" validate:"required,kenyan_phone"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	PackageID   string  `json:"packageId" validate:"required"`
	PackageName string  `json:"packageName" validate:"required"`
}

// InitiateResult is returned to the storefront after a push attempt. Success
// means the push was accepted and a pending transaction exists; the payment
// itself completes later via callback.
type InitiateResult struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ErrorMessage        string `json:"errorMessage,omitempty"`
	Success             bool   `json:"success"`
}

// CallbackResult reports the internal outcome of callback reconciliation.
// The HTTP layer acknowledges the gateway regardless of this value.
type CallbackResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Gateway is the outbound push-payment collaborator.
type Gateway interface {
	STKPush(ctx context.Context, phoneNumber string, amount float64, packageID, packageName string) (*mpesa.STKPushResponse, error)
}

// Service is the transaction ledger and callback reconciler.
type Service struct {
	repo    Repository
	gateway Gateway
}

// NewService creates a payment service from an injected repository and gateway.
func NewService(repo Repository, gateway Gateway) *Service {
	return &Service{repo: repo, gateway: gateway}
}

// NewServiceFromDB creates a payment service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, gateway Gateway) *Service {
	return NewService(NewRepository(db), gateway)
}

// InitiatePurchase validates the request, sends the STK push and, only if the
// gateway accepted the push, records a pending transaction keyed by the
// returned correlation pair. Rejected pushes leave no trace in the ledger.
func (s *Service) InitiatePurchase(ctx context.Context, userID string, req PurchaseRequest) *InitiateResult {
	if err := validate.Struct(req); err != nil {
		metrics.CountStkPush("invalid")
		return &InitiateResult{
			ResponseCode:        "1",
			ResponseDescription: "Validation Error",
			CustomerMessage:     "Please check your input and try again",
			ErrorMessage:        validationMessage(err),
			Success:             false,
		}
	}

	phoneNumber := mpesa.NormalizePhoneNumber(req.PhoneNumber)

	resp, err := s.gateway.STKPush(ctx, phoneNumber, req.Amount, req.PackageID, req.PackageName)
	if err != nil {
		log.Printf("Error initiating M-Pesa STK push: %v", err)
		metrics.CountStkPush("error")
		return &InitiateResult{
			ResponseCode:        "1",
			ResponseDescription: "Error",
			CustomerMessage:     "An error occurred while processing your request",
			ErrorMessage:        err.Error(),
			Success:             false,
		}
	}

	if !resp.Accepted() {
		metrics.CountStkPush("rejected")
		errMsg := resp.ErrorMessage
		if errMsg == "" {
			errMsg = "Failed to initiate payment"
		}
		return &InitiateResult{
			MerchantRequestID:   resp.MerchantRequestID,
			CheckoutRequestID:   resp.CheckoutRequestID,
			ResponseCode:        resp.ResponseCode,
			ResponseDescription: resp.ResponseDescription,
			CustomerMessage:     resp.CustomerMessage,
			ErrorMessage:        errMsg,
			Success:             false,
		}
	}

	t := &models.Transaction{
		UserID:            userID,
		TransactionType:   models.TransactionTypePurchase,
		Amount:            req.Amount,
		PhoneNumber:       phoneNumber,
		CheckoutRequestID: resp.CheckoutRequestID,
		MerchantRequestID: resp.MerchantRequestID,
		Status:            models.TransactionStatusPending,
	}
	if targetID, ok := strings.CutPrefix(req.PackageID, extendPrefix); ok {
		t.TransactionType = models.TransactionTypeExtension
		t.VoucherID = targetID
	} else {
		t.PackageID = req.PackageID
	}

	if err := s.repo.CreateTransaction(t); err != nil {
		log.Printf("Error recording pending transaction %s: %v", resp.CheckoutRequestID, err)
		metrics.CountStkPush("error")
		return &InitiateResult{
			MerchantRequestID:   resp.MerchantRequestID,
			CheckoutRequestID:   resp.CheckoutRequestID,
			ResponseCode:        "1",
			ResponseDescription: "Error",
			CustomerMessage:     "An error occurred while processing your request",
			ErrorMessage:        "Failed to record transaction",
			Success:             false,
		}
	}

	metrics.CountStkPush("accepted")
	return &InitiateResult{
		MerchantRequestID:   resp.MerchantRequestID,
		CheckoutRequestID:   resp.CheckoutRequestID,
		ResponseCode:        resp.ResponseCode,
		ResponseDescription: resp.ResponseDescription,
		CustomerMessage:     resp.CustomerMessage,
		Success:             true,
	}
}

// GetUserTransactions returns the user's payment attempts, newest first.
func (s *Service) GetUserTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	_ = ctx
	return s.repo.ListUserTransactions(userID)
}

// ProcessCallback reconciles one gateway callback against the ledger. The
// pending→completed transition and the voucher effect run in one database
// transaction: if fulfillment fails, the status flip rolls back and the row
// stays pending for a retried callback.
func (s *Service) ProcessCallback(ctx context.Context, raw []byte) *CallbackResult {
	started := time.Now()
	defer func() {
		metrics.CallbackProcessingDuration.Observe(time.Since(started).Seconds())
	}()

	envelope, err := mpesa.ParseCallback(raw)
	if err != nil || envelope.Body.StkCallback == nil {
		metrics.CountCallback("invalid")
		return &CallbackResult{Success: false, Message: "Unrecognized callback payload"}
	}
	cb := envelope.Body.StkCallback

	_, stored, err := s.repo.RecordWebhookEvent(&models.PaymentWebhookEvent{
		CheckoutRequestID: cb.CheckoutRequestID,
		MerchantRequestID: cb.MerchantRequestID,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
		PayloadJSON:       string(raw),
	})
	if err != nil {
		log.Printf("Error recording webhook event for %s: %v", cb.CheckoutRequestID, err)
	}

	result := s.reconcile(ctx, cb)

	if stored != nil {
		procErr := ""
		if !result.Success {
			procErr = result.Message
		}
		if err := s.repo.MarkWebhookProcessed(stored.ID, procErr); err != nil {
			log.Printf("Error marking webhook event %d processed: %v", stored.ID, err)
		}
	}
	return result
}

func (s *Service) reconcile(ctx context.Context, cb *mpesa.StkCallback) *CallbackResult {
	if cb.ResultCode != 0 {
		log.Printf("Transaction %s failed: %s", cb.CheckoutRequestID, cb.ResultDesc)
		_, err := s.repo.FailPendingTransaction(cb.CheckoutRequestID, cb.MerchantRequestID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Error failing transaction %s: %v", cb.CheckoutRequestID, err)
		}
		metrics.CountCallback("failed")
		return &CallbackResult{Success: false, Message: "Transaction failed: " + cb.ResultDesc}
	}

	receiptNumber := cb.CallbackMetadata.MetadataValue("MpesaReceiptNumber")
	transactionDate := cb.CallbackMetadata.MetadataValue("TransactionDate")

	var fulfilled string
	err := s.repo.ReconcileTx(func(ledger Repository, store VoucherStore) error {
		t, err := ledger.CompletePendingTransaction(cb.CheckoutRequestID, cb.MerchantRequestID, transactionDate, receiptNumber)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFoundOrProcessed
			}
			return err
		}

		switch t.TransactionType {
		case models.TransactionTypePurchase:
			if _, err := store.Create(ctx, t.UserID, t.PackageID, t.ID); err != nil {
				return err
			}
			fulfilled = "created"
		case models.TransactionTypeExtension:
			hours := HoursForAmount(t.Amount)
			if _, err := store.Extend(ctx, t.VoucherID, t.UserID, hours, t.ID); err != nil {
				return err
			}
			fulfilled = "extended"
		}
		return nil
	})

	switch {
	case err == nil:
		metrics.CountCallback("success")
		switch fulfilled {
		case "created":
			metrics.CountFulfillment("created")
			return &CallbackResult{Success: true, Message: "Voucher created successfully"}
		case "extended":
			metrics.CountFulfillment("extended")
			return &CallbackResult{Success: true, Message: "Voucher extended successfully"}
		default:
			return &CallbackResult{Success: true, Message: "Transaction processed successfully"}
		}
	case errors.Is(err, ErrNotFoundOrProcessed):
		metrics.CountCallback("duplicate")
		return &CallbackResult{Success: false, Message: "Transaction not found or already processed"}
	case errors.Is(err, voucher.ErrPackageNotFound),
		errors.Is(err, voucher.ErrVoucherNotFound),
		errors.Is(err, voucher.ErrVoucherNotActive),
		errors.Is(err, voucher.ErrCreationFailed):
		metrics.CountCallback("unmatched")
		return &CallbackResult{Success: false, Message: capitalized(err.Error())}
	default:
		log.Printf("Error processing callback %s: %v", cb.CheckoutRequestID, err)
		metrics.CountCallback("error")
		return &CallbackResult{Success: false, Message: "An error occurred while processing the transaction"}
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Tag() {
		case "kenyan_phone":
			return "Invalid phone number format"
		case "gt", "required":
			if verrs[0].Field() == "Amount" {
				return "Amount must be a positive number"
			}
		}
		return verrs[0].Field() + " is invalid"
	}
	return err.Error()
}

func capitalized(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
