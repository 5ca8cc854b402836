package controllers

import (
	"time"

	"github.com/acsk/AppCheckin-sub000/internal/pkg/membership"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/statistics"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/tenantcontext"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type createEnrollmentRequest struct {
	StudentID         uint             `json:"student_id"`
	PlanID            uint             `json:"plan_id"`
	PlanCycleID       *uint            `json:"plan_cycle_id"`
	DueDay            int              `json:"due_day"`
	Amount            *decimal.Decimal `json:"amount"`
	StartDate         string           `json:"start_date"`
	TrialBillingStart string           `json:"trial_billing_start"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// HandleCreateEnrollment matriculates a student into a plan for the current
// academy. Price and duration come from the plan (or the chosen cycle)
// unless an explicit amount overrides them.
func HandleCreateEnrollment(c *fiber.Ctx) error {
	academyID := requireAcademyID(c)
	if academyID == 0 {
		return nil
	}

	var req createEnrollmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": "invalid request body"})
	}

	startDate, err := parseDateField(req.StartDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": "start_date must be YYYY-MM-DD"})
	}
	trialStart, err := parseDateField(req.TrialBillingStart)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": "trial_billing_start must be YYYY-MM-DD"})
	}

	enrollment, err := GetServices().Lifecycle.Create(membership.CreateEnrollmentInput{
		AcademyID:         academyID,
		StudentID:         req.StudentID,
		PlanID:            req.PlanID,
		PlanCycleID:       req.PlanCycleID,
		DueDay:            req.DueDay,
		Amount:            req.Amount,
		StartDate:         startDate,
		TrialBillingStart: trialStart,
		CreatedBy:         tenantcontext.GetUserID(c),
	})
	if err != nil {
		return errorResponse(c, err)
	}

	statistics.InvalidateAcademyStats(academyID)
	return c.Status(fiber.StatusCreated).JSON(enrollment)
}

// HandleListEnrollments pages the academy's enrollments, optionally filtered
// by status. Statuses are decayed first so the listing never shows a stale
// "ativa" on an enrollment whose grace window has already run out.
func HandleListEnrollments(c *fiber.Ctx) error {
	academyID := requireAcademyID(c)
	if academyID == 0 {
		return nil
	}
	runDecayIfDue(academyID)

	enrollments, err := GetRepositories().Enrollment.ListByAcademy(academyID, c.Query("status"), parseQueryInt(c, "offset", 0), parseQueryInt(c, "limit", 50))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"enrollments": enrollments})
}

// HandleGetEnrollment returns one enrollment with its installments.
func HandleGetEnrollment(c *fiber.Ctx) error {
	academyID := requireAcademyID(c)
	if academyID == 0 {
		return nil
	}
	runDecayIfDue(academyID)

	enrollment, err := GetRepositories().Enrollment.GetByID(academyID, parseIDParam(c, "id"))
	if err != nil {
		return errorResponse(c, err)
	}
	installments, err := GetRepositories().Installment.ListByEnrollment(enrollment.ID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"enrollment": enrollment, "installments": installments})
}

// HandleCancelEnrollment cancels an enrollment, stamping who and why.
func HandleCancelEnrollment(c *fiber.Ctx) error {
	academyID := requireAcademyID(c)
	if academyID == 0 {
		return nil
	}

	// scope check before the mutation so one tenant cannot cancel another's row
	enrollment, err := GetRepositories().Enrollment.GetByID(academyID, parseIDParam(c, "id"))
	if err != nil {
		return errorResponse(c, err)
	}

	var req cancelRequest
	_ = c.BodyParser(&req)

	canceled, err := GetServices().Lifecycle.Cancel(enrollment.ID, tenantcontext.GetUserID(c), req.Reason)
	if err != nil {
		return errorResponse(c, err)
	}

	statistics.InvalidateAcademyStats(academyID)
	return c.JSON(canceled)
}

// HandleDeleteEnrollment hard-deletes an enrollment with its installments
// and payment mirrors. Refused for package-contract members; cancel the
// contract instead.
func HandleDeleteEnrollment(c *fiber.Ctx) error {
	academyID := requireAcademyID(c)
	if academyID == 0 {
		return nil
	}

	enrollment, err := GetRepositories().Enrollment.GetByID(academyID, parseIDParam(c, "id"))
	if err != nil {
		return errorResponse(c, err)
	}

	if err := GetServices().Lifecycle.Delete(enrollment.ID); err != nil {
		return errorResponse(c, err)
	}

	statistics.InvalidateAcademyStats(academyID)
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleListRenewals returns the renewal trail for one enrollment.
func HandleListRenewals(c *fiber.Ctx) error {
	academyID := requireAcademyID(c)
	if academyID == 0 {
		return nil
	}

	renewals, err := GetRepositories().Enrollment.ListRenewals(academyID, parseIDParam(c, "id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"renewals": renewals})
}

// parseDateField parses an optional YYYY-MM-DD request field.
func parseDateField(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
