package controllers

import (
	"github.com/acsk/AppCheckin-sub000/app/models"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/database"
	"github.com/gofiber/fiber/v2"
)

type createStudentRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	BirthDate string `json:"birth_date"`
}

// HandleCreateStudent registers a student and links them to the current
// academy in the same write.
func HandleCreateStudent(c *fiber.Ctx) error {
	academyID := requireAcademyID(c)
	if academyID == 0 {
		return nil
	}

	var req createStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": "invalid request body"})
	}
	birthDate, err := parseDateField(req.BirthDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": "birth_date must be YYYY-MM-DD"})
	}

	student := &models.Student{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		BirthDate: birthDate,
	}
	if err := student.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": err.Error()})
	}

	if err := GetRepositories().Student.Create(student); err != nil {
		return errorResponse(c, err)
	}
	membershipRow := &models.AcademyMembership{AcademyID: academyID, StudentID: student.ID, Status: "ativa"}
	if err := database.GetDB().Create(membershipRow).Error; err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(student)
}

// HandleListStudents pages or searches the academy's student roster.
func HandleListStudents(c *fiber.Ctx) error {
	academyID := requireAcademyID(c)
	if academyID == 0 {
		return nil
	}

	if query := c.Query("q"); query != "" {
		students, err := GetRepositories().Student.Search(academyID, query)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(fiber.Map{"students": students})
	}

	students, err := GetRepositories().Student.ListByAcademy(academyID, parseQueryInt(c, "offset", 0), parseQueryInt(c, "limit", 50))
	if err != nil {
		return errorResponse(c, err)
	}
	total, err := GetRepositories().Student.CountByAcademy(academyID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"students": students, "total": total})
}

// HandleGetStudent returns one student with their enrollments in this
// academy.
func HandleGetStudent(c *fiber.Ctx) error {
	academyID := requireAcademyID(c)
	if academyID == 0 {
		return nil
	}

	student, err := GetRepositories().Student.GetByID(parseIDParam(c, "id"))
	if err != nil {
		return errorResponse(c, err)
	}
	enrollments, err := GetRepositories().Enrollment.ListByStudent(academyID, student.ID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"student": student, "enrollments": enrollments})
}

// HandleUpdateStudent updates the student's contact fields.
func HandleUpdateStudent(c *fiber.Ctx) error {
	academyID := requireAcademyID(c)
	if academyID == 0 {
		return nil
	}

	student, err := GetRepositories().Student.GetByID(parseIDParam(c, "id"))
	if err != nil {
		return errorResponse(c, err)
	}

	var req createStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": "invalid request body"})
	}
	if req.Name != "" {
		student.Name = req.Name
	}
	if req.Email != "" {
		student.Email = req.Email
	}
	if req.Phone != "" {
		student.Phone = req.Phone
	}
	if err := student.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": err.Error()})
	}

	if err := GetRepositories().Student.Update(student); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(student)
}
