package membership

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/acsk/AppCheckin-sub000/app/models"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/calendar"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Processor is the inbound end of the reconciliation pipeline: fetch the full
// record from the gateway, append the audit row, resolve the target, apply
// the event. Every inbound event leaves a WebhookRecord behind, resolvable or
// not.
type Processor struct {
	repo      Repository
	gateway   Gateway
	resolver  *Resolver
	reconcile *ReconcileEngine
	clock     calendar.Clock
}

func NewProcessor(repo Repository, gateway Gateway, resolver *Resolver, reconcile *ReconcileEngine, clock calendar.Clock) *Processor {
	return &Processor{repo: repo, gateway: gateway, resolver: resolver, reconcile: reconcile, clock: clock}
}

// Process handles one inbound event end to end and returns the stored audit
// record plus the reconciliation outcome. Resolution and reconciliation
// failures are recorded on the audit row and returned; the caller still acks
// the gateway to stop retry storms.
func (p *Processor) Process(ctx context.Context, event Event, rawPayload string) (*models.WebhookRecord, *Outcome, error) {
	record := &models.WebhookRecord{
		UUID:       uuid.NewString(),
		EventType:  event.Type,
		ExternalID: event.ExternalID,
		RawPayload: rawPayload,
		Status:     models.WebhookStatusError,
	}

	outcome, err := p.run(ctx, event, record)
	p.finalize(record, outcome, err)

	if saveErr := p.repo.CreateWebhookRecord(record); saveErr != nil {
		log.Printf("webhook audit write failed for event %s/%s: %v", event.Type, event.ExternalID, saveErr)
		if err == nil {
			err = saveErr
		}
	}
	return record, outcome, err
}

// Reprocess replays a stored audit record against the gateway's current
// state. The original row is kept; only the reprocess stamp and outcome are
// updated.
func (p *Processor) Reprocess(ctx context.Context, recordUUID string) (*models.WebhookRecord, *Outcome, error) {
	record, err := p.repo.GetWebhookRecordByUUID(recordUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, &NotFoundError{Resource: "webhook_record"}
		}
		return nil, nil, err
	}

	event := Event{
		Type:       record.EventType,
		ExternalID: record.ExternalID,
		ReceivedAt: p.clock.Now(),
	}
	outcome, runErr := p.run(ctx, event, record)
	p.finalize(record, outcome, runErr)
	if runErr == nil {
		record.Status = models.WebhookStatusReprocessed
	}
	now := p.clock.Now()
	record.ReprocessedAt = &now

	if err := p.repo.SaveWebhookRecord(record); err != nil {
		return record, outcome, err
	}
	return record, outcome, runErr
}

func (p *Processor) run(ctx context.Context, event Event, record *models.WebhookRecord) (*Outcome, error) {
	if event.ExternalID == "" {
		return nil, &ValidationError{Field: "data.id", Message: "is required"}
	}

	if event.IsPaymentEvent() {
		payment, err := p.gateway.FetchPayment(ctx, event.ExternalID)
		if err != nil {
			return nil, &TransientError{Op: "fetch payment", Err: err}
		}
		record.ExternalReference = payment.ExternalReference

		target, rule, err := p.resolver.Resolve(ResolveInput{
			Event:             event,
			ExternalReference: payment.ExternalReference,
			Metadata:          payment.Metadata,
		})
		if err != nil {
			return nil, err
		}
		p.stampTarget(record, target)

		outcome, err := p.reconcile.ApplyPayment(target, payment)
		if err != nil {
			return nil, err
		}
		outcome.ResolvedBy = rule
		return outcome, nil
	}

	subscription, err := p.gateway.FetchSubscription(ctx, event.ExternalID)
	if err != nil {
		return nil, &TransientError{Op: "fetch subscription", Err: err}
	}
	record.ExternalReference = subscription.ExternalReference

	target, rule, err := p.resolver.Resolve(ResolveInput{
		Event:             event,
		ExternalReference: subscription.ExternalReference,
		Metadata:          subscription.Metadata,
	})
	if err != nil {
		return nil, err
	}
	p.stampTarget(record, target)

	outcome, err := p.reconcile.ApplySubscription(target, subscription)
	if err != nil {
		return nil, err
	}
	outcome.ResolvedBy = rule
	return outcome, nil
}

func (p *Processor) stampTarget(record *models.WebhookRecord, target Target) {
	switch target.Kind {
	case TargetEnrollment:
		id := target.ID
		record.EnrollmentID = &id
		if enrollment, err := p.repo.GetEnrollment(id); err == nil {
			record.AcademyID = &enrollment.AcademyID
		}
	case TargetPackage:
		id := target.ID
		record.PackageContractID = &id
		if contract, err := p.repo.GetPackageContract(id); err == nil {
			record.AcademyID = &contract.AcademyID
		}
	}
}

func (p *Processor) finalize(record *models.WebhookRecord, outcome *Outcome, err error) {
	now := p.clock.Now()
	record.ProcessedAt = &now
	if err != nil {
		record.Status = models.WebhookStatusError
		record.ErrorDetail = err.Error()
		return
	}
	record.Status = models.WebhookStatusSuccess
	record.ErrorDetail = ""
	if outcome != nil {
		if snapshot, merr := json.Marshal(outcome); merr == nil {
			record.Result = string(snapshot)
		}
	}
}
