package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acsk/AppCheckin-sub000/internal/pkg/tenantcontext"
)

func TestTenantContextMiddlewareParsesHeaders(t *testing.T) {
	app := fiber.New()
	app.Get("/probe", TenantContextMiddleware, func(c *fiber.Ctx) error {
		ctx := tenantcontext.GetTenantContext(c)
		assert.Equal(t, uint(7), ctx.AcademyID)
		assert.Equal(t, uint(42), ctx.UserID)
		assert.Equal(t, "admin", ctx.Role)
		assert.True(t, tenantcontext.IsAdmin(c))
		return c.SendStatus(fiber.StatusNoContent)
	})

	req := httptest.NewRequest("GET", "/probe", nil)
	req.Header.Set(tenantcontext.HeaderAcademyID, "7")
	req.Header.Set(tenantcontext.HeaderUserID, "42")
	req.Header.Set(tenantcontext.HeaderUserRole, "Admin")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestTenantContextMiddlewareGarbageHeaders(t *testing.T) {
	app := fiber.New()
	app.Get("/probe", TenantContextMiddleware, func(c *fiber.Ctx) error {
		assert.Equal(t, uint(0), tenantcontext.GetAcademyID(c))
		assert.Equal(t, uint(0), tenantcontext.GetUserID(c))
		assert.False(t, tenantcontext.IsAdmin(c))
		return c.SendStatus(fiber.StatusNoContent)
	})

	req := httptest.NewRequest("GET", "/probe", nil)
	req.Header.Set(tenantcontext.HeaderAcademyID, "not-a-number")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestRequireTenantMiddlewareRejectsMissingAcademy(t *testing.T) {
	app := fiber.New()
	app.Get("/guarded", TenantContextMiddleware, RequireTenantMiddleware, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/guarded", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/guarded", nil)
	req.Header.Set(tenantcontext.HeaderAcademyID, "3")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestAPIKeyAuthMiddleware(t *testing.T) {
	t.Setenv("INTERNAL_API_KEY", "svc-secret")

	app := fiber.New()
	app.Get("/admin", APIKeyAuthMiddleware(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/admin", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("X-API-Key", "wrong")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("X-API-Key", "svc-secret")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	req = httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer svc-secret")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
