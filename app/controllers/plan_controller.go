package controllers

import (
	"github.com/acsk/AppCheckin-sub000/app/models"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type createPlanRequest struct {
	Name         string          `json:"name"`
	Modality     string          `json:"modality"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	DurationDays int             `json:"duration_days"`
}

// HandleListPlans returns the academy's active plans with their cycles.
func HandleListPlans(c *fiber.Ctx) error {
	academyID := requireAcademyID(c)
	if academyID == 0 {
		return nil
	}

	plans, err := GetRepositories().Plan.ListActive(academyID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"plans": plans})
}

// HandleGetPlan returns one plan with its cycles.
func HandleGetPlan(c *fiber.Ctx) error {
	academyID := requireAcademyID(c)
	if academyID == 0 {
		return nil
	}

	plan, err := GetRepositories().Plan.GetByID(academyID, parseIDParam(c, "id"))
	if err != nil {
		return errorResponse(c, err)
	}
	cycles, err := GetRepositories().Plan.ListCycles(plan.ID)
	if err != nil {
		return errorResponse(c, err)
	}
	plan.Cycles = cycles
	return c.JSON(plan)
}

// HandleCreatePlan registers a pricing plan for the academy. A zero price
// marks a trial plan.
func HandleCreatePlan(c *fiber.Ctx) error {
	academyID := requireAcademyID(c)
	if academyID == 0 {
		return nil
	}

	var req createPlanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": "invalid request body"})
	}

	durationDays := req.DurationDays
	if durationDays == 0 {
		durationDays = 30
	}
	plan := &models.Plan{
		AcademyID:    academyID,
		Name:         req.Name,
		Modality:     req.Modality,
		Description:  req.Description,
		Price:        req.Price,
		DurationDays: durationDays,
		Active:       true,
	}
	if err := plan.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": err.Error()})
	}

	if err := GetRepositories().Plan.Create(plan); err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(plan)
}

// HandleDeactivatePlan soft-disables a plan so no new enrollments can target
// it. Existing enrollments keep running.
func HandleDeactivatePlan(c *fiber.Ctx) error {
	academyID := requireAcademyID(c)
	if academyID == 0 {
		return nil
	}

	plan, err := GetRepositories().Plan.GetByID(academyID, parseIDParam(c, "id"))
	if err != nil {
		return errorResponse(c, err)
	}
	plan.Active = false
	if err := GetRepositories().Plan.Update(plan); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(plan)
}
