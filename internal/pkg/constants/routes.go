package constants

// API route constants
const (
	APIRoute     = "/api"
	APIV1Route   = "/v1"
	WebhookRoute = "/webhooks/gateway"
	HealthRoute  = "/health"
)
