package controllers

import (
	"time"

	"github.com/acsk/AppCheckin-sub000/internal/pkg/metrics/counter"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/statistics"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/tenantcontext"
	"github.com/gofiber/fiber/v2"
)

type manualSettleRequest struct {
	PaidAt string `json:"paid_at"`
	Method string `json:"method"`
}

// HandleListOpenInstallments pages the academy's unpaid installments,
// decaying statuses first so overdue rows show as such.
func HandleListOpenInstallments(c *fiber.Ctx) error {
	academyID := requireAcademyID(c)
	if academyID == 0 {
		return nil
	}
	runDecayIfDue(academyID)

	installments, err := GetRepositories().Installment.ListOpenByAcademy(academyID, parseQueryInt(c, "offset", 0), parseQueryInt(c, "limit", 50))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"installments": installments})
}

// HandleSettleInstallment records an over-the-counter payment for one
// installment: front-desk cash, manual PIX confirmation and the like. Runs
// the same settlement path the webhook processor uses, so the enrollment is
// re-activated and the next installment is generated in the same motion.
func HandleSettleInstallment(c *fiber.Ctx) error {
	academyID := requireAcademyID(c)
	if academyID == 0 {
		return nil
	}

	installment, err := GetRepositories().Installment.GetByID(academyID, parseIDParam(c, "id"))
	if err != nil {
		return errorResponse(c, err)
	}

	var req manualSettleRequest
	_ = c.BodyParser(&req)

	paidAt := time.Now()
	if req.PaidAt != "" {
		parsed, err := time.Parse("2006-01-02", req.PaidAt)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": "paid_at must be YYYY-MM-DD"})
		}
		paidAt = parsed
	}

	outcome, err := GetServices().Reconcile.ManualSettle(installment.ID, paidAt, req.Method, tenantcontext.GetUserID(c))
	if err != nil {
		return errorResponse(c, err)
	}

	method := req.Method
	if method == "" {
		method = "dinheiro"
	}
	_ = counter.AddSettlement(method)
	statistics.InvalidateAcademyStats(academyID)
	return c.JSON(outcome)
}
