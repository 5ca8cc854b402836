package controllers

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/acsk/AppCheckin-sub000/internal/pkg/env"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/gateway"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/membership"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/metrics/counter"
	"github.com/gofiber/fiber/v2"
)

// webhookPayload is the gateway notification envelope. The gateway also
// repeats type and id as query parameters; the body wins when both are set.
type webhookPayload struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// HandleGatewayWebhook ingests one payment-gateway notification. The gateway
// retries on anything but a 2xx, so every processed notification is answered
// with 200 regardless of outcome; failures live in the audit record and are
// retried via the reprocess endpoint instead of gateway redelivery storms.
// Only signature failures get a 401 so the gateway flags the endpoint.
func HandleGatewayWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)

	var payload webhookPayload
	_ = json.Unmarshal(rawBody, &payload)

	eventType := strings.TrimSpace(payload.Type)
	if eventType == "" {
		eventType = strings.TrimSpace(c.Query("type", c.Query("topic")))
	}
	externalID := strings.TrimSpace(payload.Data.ID.String())
	if externalID == "" {
		externalID = strings.TrimSpace(c.Query("data.id", c.Query("id")))
	}

	secret := env.GetEnv("GATEWAY_WEBHOOK_SECRET", "")
	if !gateway.VerifyWebhookSignature(c.Get("x-signature"), c.Get("x-request-id"), externalID, secret) {
		_ = counter.AddWebhookOutcome("invalid_signature")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	event := membership.Event{
		Type:       eventType,
		Action:     strings.TrimSpace(payload.Action),
		ExternalID: externalID,
		ReceivedAt: time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	record, outcome, err := GetServices().Processor.Process(ctx, event, string(rawBody))
	if err != nil {
		log.Printf("webhook %s (%s %s) failed: %v", record.UUID, eventType, externalID, err)
		_ = counter.AddWebhookOutcome(webhookErrorCode(err))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "uuid": record.UUID, "status": record.Status})
	}

	_ = counter.AddWebhookOutcome(outcome.Code)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "uuid": record.UUID, "outcome": outcome})
}

// HandleReprocessWebhook re-runs a stored webhook record through the
// processor. Admin-only; used after fixing whatever made the first run fail.
func HandleReprocessWebhook(c *fiber.Ctx) error {
	recordUUID := strings.TrimSpace(c.Params("uuid"))
	if recordUUID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": "uuid is required"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	record, outcome, err := GetServices().Processor.Reprocess(ctx, recordUUID)
	if err != nil && record == nil {
		return errorResponse(c, err)
	}
	if err != nil {
		_ = counter.AddWebhookOutcome(webhookErrorCode(err))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": false, "uuid": record.UUID, "status": record.Status, "error": err.Error()})
	}

	_ = counter.AddWebhookOutcome(outcome.Code)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "uuid": record.UUID, "outcome": outcome})
}

// HandleListWebhooks pages through the webhook audit log for the tenant.
func HandleListWebhooks(c *fiber.Ctx) error {
	academyID := requireAcademyID(c)
	if academyID == 0 {
		return nil
	}

	records, err := GetRepositories().Webhook.List(academyID, c.Query("status"), parseQueryInt(c, "offset", 0), parseQueryInt(c, "limit", 50))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"webhooks": records})
}

// HandleGetWebhook returns one audit record by UUID. Records that resolved
// to another academy are hidden; unresolved ones stay visible to everyone
// because nobody owns them yet.
func HandleGetWebhook(c *fiber.Ctx) error {
	academyID := requireAcademyID(c)
	if academyID == 0 {
		return nil
	}

	record, err := GetRepositories().Webhook.GetByUUID(c.Params("uuid"))
	if err != nil {
		return errorResponse(c, err)
	}
	if record.AcademyID != nil && *record.AcademyID != academyID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Record not found"})
	}
	return c.JSON(record)
}

// HandleWebhookCounters exposes the in-cache outcome counters.
func HandleWebhookCounters(c *fiber.Ctx) error {
	snapshot, err := counter.Snapshot()
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(snapshot)
}

func webhookErrorCode(err error) string {
	switch {
	case membership.IsUnresolvable(err):
		return "unresolvable"
	case membership.IsTransient(err):
		return "transient_error"
	case membership.IsValidation(err):
		return "validation_error"
	default:
		return "error"
	}
}
