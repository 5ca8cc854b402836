package tenantcontext

import "github.com/gofiber/fiber/v2"

// TenantContext represents the resolved tenant and actor for a request
type TenantContext struct {
	AcademyID uint   `json:"academy_id"`
	UserID    uint   `json:"user_id"`
	Role      string `json:"role"`
}

// GetTenantContext retrieves the tenant context from fiber context.
// Returns a zero context if the middleware did not run.
func GetTenantContext(c *fiber.Ctx) TenantContext {
	if ctx := c.Locals(KeyTenantContext); ctx != nil {
		return ctx.(TenantContext)
	}
	return TenantContext{}
}

// GetAcademyID returns the current request's academy id, or 0 if unresolved
func GetAcademyID(c *fiber.Ctx) uint {
	return GetTenantContext(c).AcademyID
}

// GetUserID returns the acting user's id, or 0 if unresolved
func GetUserID(c *fiber.Ctx) uint {
	return GetTenantContext(c).UserID
}

// IsAdmin checks if the acting user carries the admin role
func IsAdmin(c *fiber.Ctx) bool {
	return GetTenantContext(c).Role == "admin"
}
