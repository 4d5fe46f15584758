package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/oranet/oranet-backend/app/models"
	"github.com/oranet/oranet-backend/internal/pkg/mpesa"
)

// fakeLedger is an in-memory Repository. ReconcileTx snapshots the ledger
// before running the callback and restores it on error, mirroring the
// rollback the gorm implementation gets from the database.
type fakeLedger struct {
	transactions map[string]*models.Transaction // keyed by checkout|merchant
	events       map[string]*models.PaymentWebhookEvent
	store        *fakeStore
	nextEventID  uint
	nextTxnID    int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		transactions: make(map[string]*models.Transaction),
		events:       make(map[string]*models.PaymentWebhookEvent),
		store:        &fakeStore{},
	}
}

func correlationKey(checkoutID, merchantID string) string {
	return checkoutID + "|" + merchantID
}

func (f *fakeLedger) CreateTransaction(t *models.Transaction) error {
	if t.ID == "" {
		f.nextTxnID++
		t.ID = fmt.Sprintf("txn-%d", f.nextTxnID)
	}
	cp := *t
	f.transactions[correlationKey(t.CheckoutRequestID, t.MerchantRequestID)] = &cp
	return nil
}

func (f *fakeLedger) ListUserTransactions(userID string) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, t := range f.transactions {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeLedger) CompletePendingTransaction(checkoutID, merchantID, mpesaTxnID, receipt string) (*models.Transaction, error) {
	t, ok := f.transactions[correlationKey(checkoutID, merchantID)]
	if !ok || t.Status != models.TransactionStatusPending {
		return nil, gorm.ErrRecordNotFound
	}
	t.MpesaTransactionID = mpesaTxnID
	t.MpesaReceiptNumber = receipt
	t.Status = models.TransactionStatusCompleted
	cp := *t
	return &cp, nil
}

func (f *fakeLedger) FailPendingTransaction(checkoutID, merchantID string) (*models.Transaction, error) {
	t, ok := f.transactions[correlationKey(checkoutID, merchantID)]
	if !ok || t.Status != models.TransactionStatusPending {
		return nil, gorm.ErrRecordNotFound
	}
	t.Status = models.TransactionStatusFailed
	cp := *t
	return &cp, nil
}

func (f *fakeLedger) RecordWebhookEvent(e *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
	key := correlationKey(e.CheckoutRequestID, e.MerchantRequestID)
	if existing, ok := f.events[key]; ok {
		cp := *existing
		return false, &cp, nil
	}
	f.nextEventID++
	e.ID = f.nextEventID
	cp := *e
	f.events[key] = &cp
	stored := cp
	return true, &stored, nil
}

func (f *fakeLedger) MarkWebhookProcessed(id uint, processingError string) error {
	for _, e := range f.events {
		if e.ID == id {
			e.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeLedger) ReconcileTx(fn func(Repository, VoucherStore) error) error {
	snapshot := make(map[string]*models.Transaction, len(f.transactions))
	for k, v := range f.transactions {
		cp := *v
		snapshot[k] = &cp
	}
	if err := fn(f, f.store); err != nil {
		f.transactions = snapshot
		return err
	}
	return nil
}

type createdCall struct {
	userID, packageID, transactionID string
}

type extendCall struct {
	voucherID, userID, transactionID string
	hours                            int
}

type fakeStore struct {
	created  []createdCall
	extended []extendCall

	createErr error
	extendErr error
}

func (f *fakeStore) Create(ctx context.Context, userID, packageID, transactionID string) (*models.Voucher, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, createdCall{userID, packageID, transactionID})
	return &models.Voucher{ID: "v-new", UserID: userID, PackageID: packageID}, nil
}

func (f *fakeStore) Extend(ctx context.Context, voucherID, userID string, hours int, transactionID string) (*models.Voucher, error) {
	if f.extendErr != nil {
		return nil, f.extendErr
	}
	f.extended = append(f.extended, extendCall{voucherID, userID, transactionID, hours})
	return &models.Voucher{ID: voucherID, UserID: userID}, nil
}

type fakeGateway struct {
	resp      *mpesa.STKPushResponse
	err       error
	calls     int
	lastPhone string
}

func (f *fakeGateway) STKPush(ctx context.Context, phoneNumber string, amount float64, packageID, packageName string) (*mpesa.STKPushResponse, error) {
	f.calls++
	f.lastPhone = phoneNumber
	return f.resp, f.err
}

func acceptedResponse() *mpesa.STKPushResponse {
	return &mpesa.STKPushResponse{
		MerchantRequestID:   "merch-1",
		CheckoutRequestID:   "chk-1",
		ResponseCode:        "0",
		ResponseDescription: "Success. Request accepted for processing",
		CustomerMessage:     "Success. Request accepted for processing",
	}
}

func callbackBody(t *testing.T, checkoutID, merchantID string, resultCode int, resultDesc string, amount float64, receipt string) []byte {
	t.Helper()
	cb := map[string]interface{}{
		"MerchantRequestID": merchantID,
		"CheckoutRequestID": checkoutID,
		"ResultCode":        resultCode,
		"ResultDesc":        resultDesc,
	}
	if resultCode == 0 {
		cb["CallbackMetadata"] = map[string]interface{}{
			"Item": []map[string]interface{}{
				{"Name": "Amount", "Value": amount},
				{"Name": "MpesaReceiptNumber", "Value": receipt},
				{"Name": "TransactionDate", "Value": 20260310143022},
				{"Name": "PhoneNumber", "Value": 254712345678},
			},
		}
	}
	raw, err := json.Marshal(map[string]interface{}{
		"Body": map[string]interface{}{"stkCallback": cb},
	})
	if err != nil {
		t.Fatalf("marshal callback: %v", err)
	}
	return raw
}

func TestInitiatePurchaseValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     PurchaseRequest
		wantMsg string
	}{
		{
			name:    "bad phone",
			req:     PurchaseRequest{PhoneNumber: "12345", Amount: 50, PackageID: "pkg-1", PackageName: "Daily"},
			wantMsg: "Invalid phone number format",
		},
		{
			name:    "zero amount",
			req:     PurchaseRequest{PhoneNumber: "0712345678", Amount: 0, PackageID: "pkg-1", PackageName: "Daily"},
			wantMsg: "Amount must be a positive number",
		},
		{
			name:    "missing package",
			req:     PurchaseRequest{PhoneNumber: "0712345678", Amount: 50, PackageName: "Daily"},
			wantMsg: "PackageID is invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := newFakeLedger()
			gateway := &fakeGateway{resp: acceptedResponse()}
			svc := NewService(ledger, gateway)

			result := svc.InitiatePurchase(context.Background(), "user-1", tt.req)
			assert.False(t, result.Success)
			assert.Equal(t, tt.wantMsg, result.ErrorMessage)
			// validation failures never reach the gateway or the ledger
			assert.Equal(t, 0, gateway.calls)
			assert.Empty(t, ledger.transactions)
		})
	}
}

func TestInitiatePurchaseAcceptedRecordsPending(t *testing.T) {
	ledger := newFakeLedger()
	gateway := &fakeGateway{resp: acceptedResponse()}
	svc := NewService(ledger, gateway)

	result := svc.InitiatePurchase(context.Background(), "user-1", PurchaseRequest{
		PhoneNumber: "0712345678",
		Amount:      50,
		PackageID:   "pkg-1",
		PackageName: "Daily Unlimited",
	})

	assert.True(t, result.Success)
	assert.Equal(t, "chk-1", result.CheckoutRequestID)
	assert.Equal(t, "merch-1", result.MerchantRequestID)
	assert.Equal(t, "254712345678", gateway.lastPhone)

	txn := ledger.transactions[correlationKey("chk-1", "merch-1")]
	if assert.NotNil(t, txn) {
		assert.Equal(t, models.TransactionStatusPending, txn.Status)
		assert.Equal(t, models.TransactionTypePurchase, txn.TransactionType)
		assert.Equal(t, "pkg-1", txn.PackageID)
		assert.Equal(t, "user-1", txn.UserID)
		assert.Equal(t, "254712345678", txn.PhoneNumber)
		assert.True(t, txn.IsPending())
	}
}

func TestInitiatePurchaseExtensionPrefix(t *testing.T) {
	ledger := newFakeLedger()
	gateway := &fakeGateway{resp: acceptedResponse()}
	svc := NewService(ledger, gateway)

	result := svc.InitiatePurchase(context.Background(), "user-1", PurchaseRequest{
		PhoneNumber: "0712345678",
		Amount:      20,
		PackageID:   "extend-v-42",
		PackageName: "Extension",
	})

	assert.True(t, result.Success)
	txn := ledger.transactions[correlationKey("chk-1", "merch-1")]
	if assert.NotNil(t, txn) {
		assert.Equal(t, models.TransactionTypeExtension, txn.TransactionType)
		assert.Equal(t, "v-42", txn.VoucherID)
		assert.Empty(t, txn.PackageID)
	}
}

func TestInitiatePurchaseRejectedLeavesNoRow(t *testing.T) {
	ledger := newFakeLedger()
	gateway := &fakeGateway{resp: &mpesa.STKPushResponse{
		ResponseCode:        "1",
		ResponseDescription: "Rejected",
		ErrorMessage:        "Invalid Access Token",
	}}
	svc := NewService(ledger, gateway)

	result := svc.InitiatePurchase(context.Background(), "user-1", PurchaseRequest{
		PhoneNumber: "0712345678",
		Amount:      50,
		PackageID:   "pkg-1",
		PackageName: "Daily",
	})

	assert.False(t, result.Success)
	assert.Equal(t, "Invalid Access Token", result.ErrorMessage)
	assert.Empty(t, ledger.transactions)
}

func TestInitiatePurchaseGatewayError(t *testing.T) {
	ledger := newFakeLedger()
	gateway := &fakeGateway{err: fmt.Errorf("connection refused")}
	svc := NewService(ledger, gateway)

	result := svc.InitiatePurchase(context.Background(), "user-1", PurchaseRequest{
		PhoneNumber: "0712345678",
		Amount:      50,
		PackageID:   "pkg-1",
		PackageName: "Daily",
	})

	assert.False(t, result.Success)
	assert.Empty(t, ledger.transactions)
}

func seedPending(ledger *fakeLedger, txnType, packageID, voucherID string, amount float64) {
	ledger.CreateTransaction(&models.Transaction{
		UserID:            "user-1",
		PackageID:         packageID,
		VoucherID:         voucherID,
		TransactionType:   txnType,
		Amount:            amount,
		PhoneNumber:       "254712345678",
		CheckoutRequestID: "chk-1",
		MerchantRequestID: "merch-1",
		Status:            models.TransactionStatusPending,
	})
}

func TestProcessCallbackPurchaseSuccess(t *testing.T) {
	ledger := newFakeLedger()
	seedPending(ledger, models.TransactionTypePurchase, "pkg-1", "", 50)
	svc := NewService(ledger, &fakeGateway{})

	raw := callbackBody(t, "chk-1", "merch-1", 0, "The service request is processed successfully.", 50, "SBA0XYZ123")
	result := svc.ProcessCallback(context.Background(), raw)

	assert.True(t, result.Success)
	assert.Equal(t, "Voucher created successfully", result.Message)

	txn := ledger.transactions[correlationKey("chk-1", "merch-1")]
	assert.Equal(t, models.TransactionStatusCompleted, txn.Status)
	assert.Equal(t, "SBA0XYZ123", txn.MpesaReceiptNumber)

	if assert.Len(t, ledger.store.created, 1) {
		call := ledger.store.created[0]
		assert.Equal(t, "user-1", call.userID)
		assert.Equal(t, "pkg-1", call.packageID)
		assert.Equal(t, txn.ID, call.transactionID)
	}

	event := ledger.events[correlationKey("chk-1", "merch-1")]
	if assert.NotNil(t, event) {
		assert.Empty(t, event.ProcessingError)
		assert.Equal(t, string(raw), event.PayloadJSON)
	}
}

func TestProcessCallbackDuplicateDelivery(t *testing.T) {
	ledger := newFakeLedger()
	seedPending(ledger, models.TransactionTypePurchase, "pkg-1", "", 50)
	svc := NewService(ledger, &fakeGateway{})

	raw := callbackBody(t, "chk-1", "merch-1", 0, "Success", 50, "SBA0XYZ123")

	first := svc.ProcessCallback(context.Background(), raw)
	assert.True(t, first.Success)

	second := svc.ProcessCallback(context.Background(), raw)
	assert.False(t, second.Success)
	assert.Equal(t, "Transaction not found or already processed", second.Message)

	// exactly one voucher despite two deliveries
	assert.Len(t, ledger.store.created, 1)
	assert.Len(t, ledger.events, 1)
}

func TestProcessCallbackExtensionTiers(t *testing.T) {
	tests := []struct {
		amount    float64
		wantHours int
	}{
		{amount: 10, wantHours: 1},
		{amount: 25, wantHours: 3},
		{amount: 45, wantHours: 12},
		{amount: 50, wantHours: 24},
	}

	for _, tt := range tests {
		ledger := newFakeLedger()
		seedPending(ledger, models.TransactionTypeExtension, "", "v-42", tt.amount)
		svc := NewService(ledger, &fakeGateway{})

		raw := callbackBody(t, "chk-1", "merch-1", 0, "Success", tt.amount, "SBA0XYZ123")
		result := svc.ProcessCallback(context.Background(), raw)

		assert.True(t, result.Success)
		assert.Equal(t, "Voucher extended successfully", result.Message)
		if assert.Len(t, ledger.store.extended, 1) {
			call := ledger.store.extended[0]
			assert.Equal(t, "v-42", call.voucherID)
			assert.Equal(t, "user-1", call.userID)
			assert.Equal(t, tt.wantHours, call.hours, "amount %v", tt.amount)
		}
	}
}

func TestProcessCallbackFailureResult(t *testing.T) {
	ledger := newFakeLedger()
	seedPending(ledger, models.TransactionTypePurchase, "pkg-1", "", 50)
	svc := NewService(ledger, &fakeGateway{})

	raw := callbackBody(t, "chk-1", "merch-1", 1032, "Request cancelled by user", 0, "")
	result := svc.ProcessCallback(context.Background(), raw)

	assert.False(t, result.Success)
	assert.Equal(t, "Transaction failed: Request cancelled by user", result.Message)

	txn := ledger.transactions[correlationKey("chk-1", "merch-1")]
	assert.Equal(t, models.TransactionStatusFailed, txn.Status)
	assert.Empty(t, ledger.store.created)

	event := ledger.events[correlationKey("chk-1", "merch-1")]
	if assert.NotNil(t, event) {
		assert.Equal(t, 1032, event.ResultCode)
	}
}

func TestProcessCallbackFulfillmentFailureKeepsPending(t *testing.T) {
	ledger := newFakeLedger()
	seedPending(ledger, models.TransactionTypePurchase, "pkg-1", "", 50)
	ledger.store.createErr = fmt.Errorf("insert failed")
	svc := NewService(ledger, &fakeGateway{})

	raw := callbackBody(t, "chk-1", "merch-1", 0, "Success", 50, "SBA0XYZ123")
	result := svc.ProcessCallback(context.Background(), raw)

	assert.False(t, result.Success)

	// the completed flip rolled back with the voucher insert, so a retried
	// callback can still fulfill
	txn := ledger.transactions[correlationKey("chk-1", "merch-1")]
	assert.Equal(t, models.TransactionStatusPending, txn.Status)

	ledger.store.createErr = nil
	retry := svc.ProcessCallback(context.Background(), raw)
	assert.True(t, retry.Success)
	assert.Len(t, ledger.store.created, 1)
}

func TestProcessCallbackUnknownCorrelation(t *testing.T) {
	ledger := newFakeLedger()
	svc := NewService(ledger, &fakeGateway{})

	raw := callbackBody(t, "chk-unknown", "merch-unknown", 0, "Success", 50, "SBA0XYZ123")
	result := svc.ProcessCallback(context.Background(), raw)

	assert.False(t, result.Success)
	assert.Equal(t, "Transaction not found or already processed", result.Message)
	assert.Empty(t, ledger.store.created)
}

func TestProcessCallbackUnrecognizedPayload(t *testing.T) {
	ledger := newFakeLedger()
	svc := NewService(ledger, &fakeGateway{})

	result := svc.ProcessCallback(context.Background(), []byte(`{"unexpected": true}`))
	assert.False(t, result.Success)
	assert.Equal(t, "Unrecognized callback payload", result.Message)
	assert.Empty(t, ledger.events)
}
