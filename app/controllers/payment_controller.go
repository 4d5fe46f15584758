package controllers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/oranet/oranet-backend/internal/pkg/database"
	"github.com/oranet/oranet-backend/internal/pkg/mpesa"
	"github.com/oranet/oranet-backend/internal/pkg/payment"
	"github.com/oranet/oranet-backend/internal/pkg/usercontext"
)

func paymentService() *payment.Service {
	return payment.NewServiceFromDB(database.GetDB(), mpesa.NewClientFromEnv())
}

// HandleStkPush initiates a push payment for the logged-in user. A success
// response means the payer was prompted; the voucher appears only after the
// gateway callback confirms payment.
func HandleStkPush(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "Authentication required")
	}

	var req payment.PurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	result := paymentService().InitiatePurchase(c.Context(), userCtx.UserID, req)
	status := fiber.StatusOK
	if !result.Success {
		status = fiber.StatusBadGateway
		if result.ResponseDescription == "Validation Error" {
			status = fiber.StatusBadRequest
		}
	}
	return c.Status(status).JSON(result)
}

// HandleMpesaCallback receives the gateway's asynchronous payment result.
// The gateway contract requires acknowledging receipt even when internal
// reconciliation fails, otherwise it retry-storms; internal outcomes are
// logged and recorded on the webhook event row, never surfaced here.
func HandleMpesaCallback(c *fiber.Ctx) error {
	raw := append([]byte(nil), c.BodyRaw()...)

	result := paymentService().ProcessCallback(c.Context(), raw)
	if !result.Success {
		log.Printf("M-Pesa callback reconciliation: %s", result.Message)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ResultCode": 0,
		"ResultDesc": "Callback received successfully",
	})
}

// HandleGetUserTransactions lists the logged-in user's payment attempts.
func HandleGetUserTransactions(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	transactions, err := paymentService().GetUserTransactions(c.Context(), userID)
	if err != nil {
		log.Printf("Error fetching transactions for %s: %v", userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "An error occurred while fetching transactions")
	}
	return jsonSuccess(c, transactions)
}
