package controllers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/oranet/oranet-backend/app/models"
	"github.com/oranet/oranet-backend/internal/pkg/database"
	"github.com/oranet/oranet-backend/internal/pkg/usercontext"
	"github.com/oranet/oranet-backend/internal/pkg/voucher"
)

func voucherService() *voucher.Service {
	return voucher.NewServiceFromDB(database.GetDB())
}

// voucherView is the API shape of a voucher: remaining time and status are
// derived from the expiry date at read time, the stored counters are
// snapshots.
type voucherView struct {
	models.Voucher
	RemainingTime int64  `json:"remaining_time"`
	Status        string `json:"status"`
}

func newVoucherView(v *models.Voucher, now time.Time) voucherView {
	return voucherView{
		Voucher:       *v,
		RemainingTime: v.EffectiveRemaining(now),
		Status:        v.EffectiveStatus(now),
	}
}

// HandleGetUserVouchers lists the logged-in user's vouchers, active first.
func HandleGetUserVouchers(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	vouchers, err := voucherService().ListUserVouchers(c.Context(), userID)
	if err != nil {
		log.Printf("Error fetching vouchers for %s: %v", userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "An error occurred while fetching vouchers")
	}

	now := time.Now()
	views := make([]voucherView, 0, len(vouchers))
	for i := range vouchers {
		views = append(views, newVoucherView(&vouchers[i], now))
	}
	return jsonSuccess(c, views)
}

// HandleGetVoucher returns one of the logged-in user's vouchers by id.
func HandleGetVoucher(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	v, err := voucherService().GetByID(c.Context(), c.Params("id"), userID)
	if err != nil {
		if errors.Is(err, voucher.ErrVoucherNotFound) {
			return jsonError(c, fiber.StatusNotFound, "Voucher not found")
		}
		log.Printf("Error fetching voucher %s: %v", c.Params("id"), err)
		return jsonError(c, fiber.StatusInternalServerError, "An error occurred while fetching the voucher")
	}
	return jsonSuccess(c, newVoucherView(v, time.Now()))
}

// HandleGetVoucherByCode resolves a printed voucher code. Used by the captive
// portal to check a code's validity, so it is not scoped to a session.
func HandleGetVoucherByCode(c *fiber.Ctx) error {
	v, err := voucherService().GetByCode(c.Context(), c.Params("code"))
	if err != nil {
		if errors.Is(err, voucher.ErrVoucherNotFound) {
			return jsonError(c, fiber.StatusNotFound, "Voucher not found")
		}
		log.Printf("Error fetching voucher by code: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "An error occurred while fetching the voucher")
	}
	return jsonSuccess(c, newVoucherView(v, time.Now()))
}
