package controllers

import (
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/acsk/AppCheckin-sub000/internal/pkg/cache"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/membership"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/metrics/counter"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/statistics"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/tenantcontext"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// decaySweepInterval bounds how often the lazy status decay runs per academy.
const decaySweepInterval = 5 * time.Minute

// errorResponse maps the domain error taxonomy onto HTTP codes. Unknown
// errors are logged and collapsed into a 500 without leaking internals.
func errorResponse(c *fiber.Ctx, err error) error {
	switch {
	case membership.IsValidation(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": err.Error()})
	case membership.IsNotFound(err), errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Record not found"})
	case membership.IsConflict(err):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": err.Error()})
	case membership.IsUnresolvable(err):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "unresolvable_event", "message": err.Error()})
	case membership.IsTransient(err):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "upstream_unavailable", "message": err.Error()})
	default:
		log.Printf("unhandled error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Something went wrong"})
	}
}

// parseIDParam reads a numeric :param, returning 0 on garbage
func parseIDParam(c *fiber.Ctx, name string) uint {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

func parseQueryInt(c *fiber.Ctx, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

// requireAcademyID pulls the tenant from the request context, answering 403
// itself when the upstream auth proxy did not set one. Callers return nil
// when it comes back zero.
func requireAcademyID(c *fiber.Ctx) uint {
	academyID := tenantcontext.GetAcademyID(c)
	if academyID == 0 {
		_ = c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "No academy context"})
	}
	return academyID
}

// runDecayIfDue triggers the lazy status decay sweep for one academy, at
// most once per interval. The cache lock makes concurrent requests cheap;
// if the cache is down the sweep runs anyway (it is idempotent).
func runDecayIfDue(academyID uint) {
	key := "decay:swept:" + strconv.FormatUint(uint64(academyID), 10)
	acquired, err := cache.SetNX(key, time.Now().Unix(), decaySweepInterval)
	if err != nil {
		log.Printf("decay throttle check failed for academy %d: %v", academyID, err)
	} else if !acquired {
		return
	}

	changed, err := GetServices().Decay.Sweep(academyID)
	if err != nil {
		log.Printf("decay sweep failed for academy %d: %v", academyID, err)
		return
	}
	_ = counter.AddDecayChanges(changed)
	if changed > 0 {
		statistics.InvalidateAcademyStats(academyID)
	}
}
