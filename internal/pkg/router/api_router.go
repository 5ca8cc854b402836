package router

import (
	"github.com/acsk/AppCheckin-sub000/app/controllers"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/constants"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	app.Get(constants.HealthRoute, func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	// Gateway notifications authenticate via signature, not tenant headers.
	// No rate limit here: the gateway bursts redeliveries after an outage.
	app.Post(constants.WebhookRoute, controllers.HandleGatewayWebhook)

	api := app.Group(constants.APIRoute, limiter.New())

	v1 := api.Group(constants.APIV1Route, middleware.TenantContextMiddleware, middleware.RequireTenantMiddleware)

	v1.Get("/students", controllers.HandleListStudents)
	v1.Post("/students", controllers.HandleCreateStudent)
	v1.Get("/students/:id", controllers.HandleGetStudent)
	v1.Put("/students/:id", controllers.HandleUpdateStudent)

	v1.Get("/plans", controllers.HandleListPlans)
	v1.Post("/plans", controllers.HandleCreatePlan)
	v1.Get("/plans/:id", controllers.HandleGetPlan)
	v1.Delete("/plans/:id", controllers.HandleDeactivatePlan)

	v1.Get("/enrollments", controllers.HandleListEnrollments)
	v1.Post("/enrollments", controllers.HandleCreateEnrollment)
	v1.Get("/enrollments/:id", controllers.HandleGetEnrollment)
	v1.Post("/enrollments/:id/cancel", controllers.HandleCancelEnrollment)
	v1.Delete("/enrollments/:id", controllers.HandleDeleteEnrollment)
	v1.Get("/enrollments/:id/renewals", controllers.HandleListRenewals)

	v1.Get("/packages", controllers.HandleListPackages)
	v1.Post("/packages/purchase", controllers.HandlePurchasePackage)
	v1.Get("/contracts", controllers.HandleListContracts)
	v1.Get("/contracts/:id", controllers.HandleGetContract)
	v1.Post("/contracts/:id/cancel", controllers.HandleCancelContract)

	v1.Get("/installments/open", controllers.HandleListOpenInstallments)
	v1.Post("/installments/:id/settle", controllers.HandleSettleInstallment)

	v1.Get("/webhooks", controllers.HandleListWebhooks)
	v1.Get("/webhooks/:uuid", controllers.HandleGetWebhook)

	v1.Get("/statistics", controllers.HandleAcademyStatistics)

	// Operational endpoints for the service key, not tenant users.
	admin := api.Group("/admin", middleware.APIKeyAuthMiddleware())
	admin.Post("/webhooks/:uuid/reprocess", controllers.HandleReprocessWebhook)
	admin.Get("/counters", controllers.HandleWebhookCounters)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
