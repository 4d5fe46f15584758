package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/oranet/oranet-backend/app/controllers"
	"github.com/oranet/oranet-backend/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	app.Use(middleware.UserContextMiddleware())

	api := app.Group("/api", limiter.New())

	// Gateway callback endpoint. Public by contract: the gateway does not
	// hold a session, and the handler always acknowledges receipt.
	api.Post("/mpesa/callback", controllers.HandleMpesaCallback)

	v1 := api.Group("/v1")

	auth := v1.Group("/auth")
	auth.Post("/register", controllers.HandleRegister)
	auth.Post("/login", controllers.HandleLogin)
	auth.Post("/logout", controllers.HandleLogout)
	auth.Get("/me", middleware.RequireAuth(), controllers.HandleMe)

	v1.Get("/packages", controllers.HandleGetPackages)
	v1.Get("/packages/:id", controllers.HandleGetPackage)

	v1.Post("/payments/stkpush", middleware.RequireAuth(), controllers.HandleStkPush)

	v1.Get("/vouchers", middleware.RequireAuth(), controllers.HandleGetUserVouchers)
	v1.Get("/vouchers/code/:code", controllers.HandleGetVoucherByCode)
	v1.Get("/vouchers/:id", middleware.RequireAuth(), controllers.HandleGetVoucher)

	v1.Get("/transactions", middleware.RequireAuth(), controllers.HandleGetUserTransactions)

	admin := v1.Group("/admin", middleware.RequireAdmin())
	admin.Post("/packages", controllers.HandleAdminCreatePackage)
	admin.Put("/packages/:id", controllers.HandleAdminUpdatePackage)
	admin.Delete("/packages/:id", controllers.HandleAdminDeactivatePackage)

	// Prometheus payment metrics
	promHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	app.Get("/metrics/payments", func(c *fiber.Ctx) error {
		promHandler(c.Context())
		return nil
	})
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
