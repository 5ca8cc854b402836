package tenantcontext

// Shared Locals keys used across controllers and middlewares
const (
	KeyTenantContext = "TENANT_CONTEXT"
	KeyAcademyID     = "academy_id"
	KeyUserID        = "user_id"
	KeyIsAdmin       = "isAdmin"
)

// Headers set by the upstream auth collaborator. Identity is resolved before
// requests reach this service; we only consume the result.
const (
	HeaderAcademyID = "X-Academy-ID"
	HeaderUserID    = "X-User-ID"
	HeaderUserRole  = "X-User-Role"
)
