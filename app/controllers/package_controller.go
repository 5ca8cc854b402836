package controllers

import (
	"github.com/acsk/AppCheckin-sub000/internal/pkg/membership"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/statistics"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/tenantcontext"
	"github.com/gofiber/fiber/v2"
)

type purchasePackageRequest struct {
	PackageID             uint   `json:"package_id"`
	PayerStudentID        uint   `json:"payer_student_id"`
	BeneficiaryStudentIDs []uint `json:"beneficiary_student_ids"`
	DueDay                int    `json:"due_day"`
	StartDate             string `json:"start_date"`
}

// HandleListPackages returns the academy's purchasable bundles.
func HandleListPackages(c *fiber.Ctx) error {
	academyID := requireAcademyID(c)
	if academyID == 0 {
		return nil
	}

	packages, err := GetRepositories().Package.ListActive(academyID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"packages": packages})
}

// HandlePurchasePackage creates a package contract and fans one enrollment
// plus one pending installment out to every beneficiary. All-or-nothing: a
// conflicting beneficiary rolls the whole purchase back.
func HandlePurchasePackage(c *fiber.Ctx) error {
	academyID := requireAcademyID(c)
	if academyID == 0 {
		return nil
	}

	var req purchasePackageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": "invalid request body"})
	}
	startDate, err := parseDateField(req.StartDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": "start_date must be YYYY-MM-DD"})
	}

	contract, err := GetServices().Fanout.Purchase(membership.PurchasePackageInput{
		AcademyID:             academyID,
		PackageID:             req.PackageID,
		PayerStudentID:        req.PayerStudentID,
		BeneficiaryStudentIDs: req.BeneficiaryStudentIDs,
		DueDay:                req.DueDay,
		StartDate:             startDate,
		CreatedBy:             tenantcontext.GetUserID(c),
	})
	if err != nil {
		return errorResponse(c, err)
	}

	statistics.InvalidateAcademyStats(academyID)
	return c.Status(fiber.StatusCreated).JSON(contract)
}

// HandleListContracts pages the academy's package contracts.
func HandleListContracts(c *fiber.Ctx) error {
	academyID := requireAcademyID(c)
	if academyID == 0 {
		return nil
	}
	runDecayIfDue(academyID)

	contracts, err := GetRepositories().Package.ListContracts(academyID, parseQueryInt(c, "offset", 0), parseQueryInt(c, "limit", 50))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"contracts": contracts})
}

// HandleGetContract returns one contract with its beneficiaries.
func HandleGetContract(c *fiber.Ctx) error {
	academyID := requireAcademyID(c)
	if academyID == 0 {
		return nil
	}

	contract, err := GetRepositories().Package.GetContract(academyID, parseIDParam(c, "id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(contract)
}

// HandleCancelContract cancels a contract and every beneficiary enrollment
// hanging off it.
func HandleCancelContract(c *fiber.Ctx) error {
	academyID := requireAcademyID(c)
	if academyID == 0 {
		return nil
	}

	contract, err := GetRepositories().Package.GetContract(academyID, parseIDParam(c, "id"))
	if err != nil {
		return errorResponse(c, err)
	}

	var req cancelRequest
	_ = c.BodyParser(&req)

	if err := GetServices().Fanout.CancelContract(contract.ID, tenantcontext.GetUserID(c), req.Reason); err != nil {
		return errorResponse(c, err)
	}

	statistics.InvalidateAcademyStats(academyID)
	updated, err := GetRepositories().Package.GetContract(academyID, contract.ID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(updated)
}
