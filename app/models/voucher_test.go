package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVoucherEffectiveRemaining(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	v := &Voucher{ExpiryDate: now.Add(90 * time.Second)}
	assert.Equal(t, int64(90), v.EffectiveRemaining(now))

	// expired vouchers never report negative time
	v = &Voucher{ExpiryDate: now.Add(-time.Hour)}
	assert.Equal(t, int64(0), v.EffectiveRemaining(now))

	v = &Voucher{ExpiryDate: now}
	assert.Equal(t, int64(0), v.EffectiveRemaining(now))
}

func TestVoucherEffectiveStatus(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		status string
		expiry time.Time
		want   string
	}{
		{name: "active with time left", status: VoucherStatusActive, expiry: now.Add(time.Hour), want: VoucherStatusActive},
		{name: "active past expiry", status: VoucherStatusActive, expiry: now.Add(-time.Minute), want: VoucherStatusExpired},
		{name: "active at expiry", status: VoucherStatusActive, expiry: now, want: VoucherStatusExpired},
		{name: "used stays used", status: VoucherStatusUsed, expiry: now.Add(-time.Hour), want: VoucherStatusUsed},
		{name: "expired stays expired", status: VoucherStatusExpired, expiry: now.Add(time.Hour), want: VoucherStatusExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &Voucher{Status: tt.status, ExpiryDate: tt.expiry}
			assert.Equal(t, tt.want, v.EffectiveStatus(now))
		})
	}
}
