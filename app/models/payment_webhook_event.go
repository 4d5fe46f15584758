package models

import "time"

// PaymentWebhookEvent stores raw gateway callback payloads with deduplication
// metadata. The transactions table is the source of truth for fulfillment;
// this table exists for audit and operational replay.
type PaymentWebhookEvent struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	CheckoutRequestID string     `gorm:"type:varchar(100);not null;index:ux_payment_webhook_events_correlation,unique,priority:1" json:"checkout_request_id"`
	MerchantRequestID string     `gorm:"type:varchar(100);not null;index:ux_payment_webhook_events_correlation,unique,priority:2" json:"merchant_request_id"`
	ResultCode        int        `gorm:"not null" json:"result_code"`
	ResultDesc        string     `gorm:"type:varchar(255);default:''" json:"result_desc"`
	PayloadJSON       string     `gorm:"type:longtext;not null" json:"payload_json"`
	ProcessedAt       *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError   string     `gorm:"type:text" json:"processing_error"`
	CreatedAt         time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
