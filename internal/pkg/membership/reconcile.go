package membership

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/acsk/AppCheckin-sub000/app/models"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/calendar"
	"gorm.io/gorm"
)

// Gateway payment statuses after normalization.
const (
	gwApproved   = "approved"
	gwAuthorized = "authorized"
	gwPending    = "pending"
	gwInProcess  = "in_process"
	gwPaused     = "paused"
	gwRefunded   = "refunded"
	gwCancelled  = "cancelled"
	gwChargedBk  = "charged_back"
)

// Notifier receives settlement notifications as a secondary effect. Failures
// are logged and never roll back the settlement.
type Notifier interface {
	PaymentSettled(enrollment *models.Enrollment, installment *models.Installment) error
}

// ReconcileEngine applies a resolved gateway event to local financial state:
// settle installments, roll the one-ahead billing schedule, flip enrollment,
// subscription and package-contract statuses, or unwind them on refunds.
type ReconcileEngine struct {
	repo     Repository
	clock    calendar.Clock
	notifier Notifier
}

func NewReconcileEngine(repo Repository, clock calendar.Clock, notifier Notifier) *ReconcileEngine {
	return &ReconcileEngine{repo: repo, clock: clock, notifier: notifier}
}

func normalizeGatewayStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "canceled":
		return gwCancelled
	case "chargeback", "charged_back":
		return gwChargedBk
	}
	return s
}

func isApprovedStatus(s string) bool {
	return s == gwApproved || s == gwAuthorized
}

func isCancellationStatus(s string) bool {
	return s == gwRefunded || s == gwCancelled || s == gwChargedBk
}

// mapSubscriptionStatus translates a gateway status into the internal
// subscription status. One-off agreements terminate in "paga" on approval
// instead of staying "ativa".
func mapSubscriptionStatus(gatewayStatus string, oneOff bool) string {
	switch normalizeGatewayStatus(gatewayStatus) {
	case gwApproved, gwAuthorized:
		if oneOff {
			return models.SubscriptionStatusPaid
		}
		return models.SubscriptionStatusActive
	case gwPending, gwInProcess:
		return models.SubscriptionStatusPending
	case gwPaused:
		return models.SubscriptionStatusPaused
	case gwCancelled, gwRefunded, gwChargedBk:
		return models.SubscriptionStatusCanceled
	}
	return ""
}

// derivePaymentMethod collapses the gateway's method/type pair into the code
// stored on installments.
func derivePaymentMethod(methodID, typeID string) string {
	method := strings.ToLower(strings.TrimSpace(methodID))
	switch method {
	case "pix":
		return "pix"
	case "bolbradesco", "boleto":
		return "boleto"
	case "account_money":
		return "saldo_conta"
	}
	switch strings.ToLower(strings.TrimSpace(typeID)) {
	case "credit_card":
		return "cartao_credito"
	case "debit_card":
		return "cartao_debito"
	case "ticket":
		return "boleto"
	case "bank_transfer":
		return "pix"
	}
	if method != "" {
		return method
	}
	return "gateway"
}

// ApplyPayment reconciles a payment event against its resolved target. The
// mirror row is always recorded first so later reference-less events can be
// correlated by payment id.
func (e *ReconcileEngine) ApplyPayment(target Target, rec *PaymentRecord) (*Outcome, error) {
	status := normalizeGatewayStatus(rec.Status)

	mirror := &models.GatewayPayment{
		GatewayPaymentID:  rec.ID,
		Status:            status,
		Amount:            rec.Amount,
		PaymentMethod:     derivePaymentMethod(rec.PaymentMethodID, rec.PaymentTypeID),
		ExternalReference: rec.ExternalReference,
	}

	if target.Kind == TargetPackage {
		mirror.PackageContractID = &target.ID
		contract, err := e.repo.GetPackageContract(target.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &NotFoundError{Resource: "package_contract", ID: target.ID}
			}
			return nil, err
		}
		mirror.AcademyID = contract.AcademyID
		if err := e.repo.UpsertGatewayPayment(mirror); err != nil {
			return nil, err
		}
		return e.applyToPackage(contract, status)
	}

	enrollment, err := e.repo.GetEnrollment(target.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "enrollment", ID: target.ID}
		}
		return nil, err
	}
	mirror.EnrollmentID = &enrollment.ID
	mirror.AcademyID = enrollment.AcademyID
	if err := e.repo.UpsertGatewayPayment(mirror); err != nil {
		return nil, err
	}

	switch {
	case isApprovedStatus(status):
		return e.applyApproved(enrollment, mirror.PaymentMethod, status)
	case isCancellationStatus(status):
		return e.applyCancellation(enrollment)
	default:
		// pending / in_process / anything else: record only.
		return &Outcome{Code: OutcomeRecorded, EnrollmentID: enrollment.ID}, nil
	}
}

// ApplySubscription reconciles a preapproval event. An authorized agreement
// settles the same charge a payment-approved event would, so the same-day
// dedup guard below is what keeps the pair from double-billing.
func (e *ReconcileEngine) ApplySubscription(target Target, rec *SubscriptionRecord) (*Outcome, error) {
	status := normalizeGatewayStatus(rec.Status)

	sub, err := e.repo.GetSubscriptionByGatewayID(rec.ID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		sub = &models.Subscription{
			BillingMode:           models.BillingModeRecurring,
			GatewaySubscriptionID: rec.ID,
			Status:                models.SubscriptionStatusPending,
		}
		switch target.Kind {
		case TargetEnrollment:
			id := target.ID
			sub.EnrollmentID = &id
			if enrollment, err := e.repo.GetEnrollment(id); err == nil {
				sub.AcademyID = enrollment.AcademyID
			}
		case TargetPackage:
			id := target.ID
			sub.PackageContractID = &id
			if contract, err := e.repo.GetPackageContract(id); err == nil {
				sub.AcademyID = contract.AcademyID
			}
		}
		if err := e.repo.CreateSubscription(sub); err != nil {
			return nil, err
		}
	}

	// Package linkage is discovered lazily: the checkout collaborator does
	// not know the contract id when it registers the agreement.
	if target.Kind == TargetPackage && sub.PackageContractID == nil {
		id := target.ID
		sub.PackageContractID = &id
	}

	if mapped := mapSubscriptionStatus(status, sub.IsOneOff()); mapped != "" {
		sub.Status = mapped
	}
	sub.NextChargeAt = rec.NextChargeAt
	now := e.clock.Now()
	if isApprovedStatus(status) {
		sub.LastChargeAt = &now
	}
	if err := e.repo.SaveSubscription(sub); err != nil {
		return nil, err
	}

	outcome := &Outcome{Code: OutcomeRecorded, SubscriptionStatus: sub.Status}

	if isApprovedStatus(status) && sub.EnrollmentID != nil {
		enrollment, err := e.repo.GetEnrollment(*sub.EnrollmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &NotFoundError{Resource: "enrollment", ID: *sub.EnrollmentID}
			}
			return nil, err
		}
		settled, err := e.applyApproved(enrollment, "assinatura", status)
		if err != nil {
			return nil, err
		}
		settled.SubscriptionStatus = sub.Status
		return settled, nil
	}

	if target.Kind == TargetPackage && isApprovedStatus(status) {
		contract, err := e.repo.GetPackageContract(target.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &NotFoundError{Resource: "package_contract", ID: target.ID}
			}
			return nil, err
		}
		pkgOutcome, err := e.applyToPackage(contract, status)
		if err != nil {
			return nil, err
		}
		pkgOutcome.SubscriptionStatus = sub.Status
		return pkgOutcome, nil
	}

	if target.Kind == TargetEnrollment {
		outcome.EnrollmentID = target.ID
	} else {
		outcome.PackageContractID = target.ID
	}
	return outcome, nil
}

// applyApproved activates the enrollment and settles the current charge.
// Webhooks are redelivered aggressively and one logical settlement can arrive
// as differently-shaped events, so the guard is per calendar day rather than
// per payment id.
func (e *ReconcileEngine) applyApproved(enrollment *models.Enrollment, method, gatewayStatus string) (*Outcome, error) {
	today := e.clock.Now()

	// A terminal enrollment never comes back: a late or replayed approval
	// after a refund (or after the row finished) is acknowledged without
	// touching the row, or two active rows could share one modality.
	if enrollment.IsTerminal() {
		return &Outcome{Code: OutcomeDuplicate, EnrollmentID: enrollment.ID}, nil
	}

	alreadyPaid, err := e.repo.HasInstallmentPaidOn(enrollment.ID, today)
	if err != nil {
		return nil, err
	}
	if alreadyPaid {
		return &Outcome{Code: OutcomeDuplicate, EnrollmentID: enrollment.ID}, nil
	}

	settledID, nextID, err := e.settleAndRoll(enrollment, nil, today, method, nil, models.SettlementTypeGateway)
	if err != nil {
		return nil, err
	}

	// Subscription mirror, if one exists for this enrollment.
	subStatus := ""
	sub, err := e.repo.GetSubscriptionByEnrollment(enrollment.ID)
	if err != nil {
		return nil, err
	}
	if sub != nil {
		if mapped := mapSubscriptionStatus(gatewayStatus, sub.IsOneOff()); mapped != "" {
			sub.Status = mapped
		}
		sub.LastChargeAt = &today
		if err := e.repo.SaveSubscription(sub); err != nil {
			return nil, err
		}
		subStatus = sub.Status
	}

	return &Outcome{
		Code:                 OutcomeActivated,
		EnrollmentID:         enrollment.ID,
		SettledInstallmentID: settledID,
		NextInstallmentID:    nextID,
		SubscriptionStatus:   subStatus,
	}, nil
}

// applyCancellation unwinds an enrollment on refund/cancellation/chargeback.
// The guard is a conditional update so a replayed event cannot cancel twice
// or resurrect a finished enrollment.
func (e *ReconcileEngine) applyCancellation(enrollment *models.Enrollment) (*Outcome, error) {
	changed, err := e.repo.UpdateEnrollmentStatus(enrollment.ID,
		[]string{models.EnrollmentStatusActive, models.EnrollmentStatusPending, models.EnrollmentStatusOverdue},
		models.EnrollmentStatusCanceled)
	if err != nil {
		return nil, err
	}
	if !changed {
		return &Outcome{Code: OutcomeDuplicate, EnrollmentID: enrollment.ID}, nil
	}

	subStatus := ""
	sub, err := e.repo.GetSubscriptionByEnrollment(enrollment.ID)
	if err != nil {
		return nil, err
	}
	// Recurring agreements survive a single refunded charge; only one-off
	// agreements die with their payment.
	if sub != nil && sub.IsOneOff() {
		sub.Status = models.SubscriptionStatusCanceled
		if err := e.repo.SaveSubscription(sub); err != nil {
			return nil, err
		}
		subStatus = sub.Status
	}

	return &Outcome{Code: OutcomeCanceled, EnrollmentID: enrollment.ID, SubscriptionStatus: subStatus}, nil
}

// applyToPackage flips the contract on an approved or canceled package-level
// payment. Beneficiary enrollments and installments were created at
// contract-creation time; approval settles them, it does not create them.
func (e *ReconcileEngine) applyToPackage(contract *models.PackageContract, status string) (*Outcome, error) {
	switch {
	case isApprovedStatus(status):
		changed, err := e.repo.UpdatePackageContractStatus(contract.ID,
			[]string{models.PackageContractStatusPending, models.PackageContractStatusActive},
			models.PackageContractStatusPaid)
		if err != nil {
			return nil, err
		}
		if !changed {
			return &Outcome{Code: OutcomeDuplicate, PackageContractID: contract.ID}, nil
		}

		now := e.clock.Now()
		beneficiaries, err := e.repo.ListBeneficiaries(contract.ID)
		if err != nil {
			return nil, err
		}
		for _, b := range beneficiaries {
			if _, err := e.repo.UpdateEnrollmentStatus(b.EnrollmentID,
				[]string{models.EnrollmentStatusPending, models.EnrollmentStatusOverdue},
				models.EnrollmentStatusActive); err != nil {
				return nil, err
			}
			inst, err := e.repo.OldestUnpaidInstallment(b.EnrollmentID)
			if err != nil {
				return nil, err
			}
			if inst == nil {
				continue
			}
			inst.PaidAt = &now
			inst.Status = models.InstallmentStatusPaid
			inst.PaymentMethod = "pacote"
			inst.SettlementType = models.SettlementTypeGateway
			if err := e.repo.SaveInstallment(inst); err != nil {
				return nil, err
			}
		}
		if err := e.repo.SettleBeneficiaries(contract.ID, now); err != nil {
			return nil, err
		}
		return &Outcome{Code: OutcomePackageActive, PackageContractID: contract.ID}, nil

	case isCancellationStatus(status):
		changed, err := e.repo.UpdatePackageContractStatus(contract.ID,
			[]string{models.PackageContractStatusPending, models.PackageContractStatusActive, models.PackageContractStatusPaid},
			models.PackageContractStatusCanceled)
		if err != nil {
			return nil, err
		}
		if !changed {
			return &Outcome{Code: OutcomeDuplicate, PackageContractID: contract.ID}, nil
		}
		beneficiaries, err := e.repo.ListBeneficiaries(contract.ID)
		if err != nil {
			return nil, err
		}
		for _, b := range beneficiaries {
			if _, err := e.repo.UpdateEnrollmentStatus(b.EnrollmentID,
				[]string{models.EnrollmentStatusActive, models.EnrollmentStatusPending, models.EnrollmentStatusOverdue},
				models.EnrollmentStatusCanceled); err != nil {
				return nil, err
			}
		}
		return &Outcome{Code: OutcomePackageCanceled, PackageContractID: contract.ID}, nil

	default:
		return &Outcome{Code: OutcomeRecorded, PackageContractID: contract.ID}, nil
	}
}

// ManualSettle applies an administrative settlement to one explicit
// installment: same activate-and-roll behavior as the gateway path, but no
// cross-event dedup since the admin action is singular by construction.
func (e *ReconcileEngine) ManualSettle(installmentID uint, paidAt time.Time, method string, actorID uint) (*Outcome, error) {
	installment, err := e.repo.GetInstallment(installmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "installment", ID: installmentID}
		}
		return nil, err
	}
	if installment.IsPaid() {
		return nil, &ConflictError{Message: "parcela ja esta paga"}
	}

	enrollment, err := e.repo.GetEnrollment(installment.EnrollmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "enrollment", ID: installment.EnrollmentID}
		}
		return nil, err
	}

	if enrollment.IsTerminal() {
		return nil, &ConflictError{Message: "matricula esta encerrada"}
	}

	if method == "" {
		method = "dinheiro"
	}
	settledID, nextID, err := e.settleAndRoll(enrollment, installment, paidAt, method, &actorID, models.SettlementTypeManual)
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Code:                 OutcomeActivated,
		EnrollmentID:         enrollment.ID,
		SettledInstallmentID: settledID,
		NextInstallmentID:    nextID,
	}, nil
}

// settleAndRoll is the shared settlement core: activate the enrollment,
// recompute its due date from the settlement day, mark the installment paid
// and generate the next one in the rolling one-ahead schedule. Failures after
// the settlement is committed are logged, never rolled back: a confirmed
// payment must not be lost to a secondary effect.
func (e *ReconcileEngine) settleAndRoll(enrollment *models.Enrollment, installment *models.Installment, paidAt time.Time, method string, settledBy *uint, settlementType string) (uint, uint, error) {
	cycleMonths, durationDays, err := e.billingPeriod(enrollment)
	if err != nil {
		return 0, 0, err
	}

	changed, err := e.repo.UpdateEnrollmentStatus(enrollment.ID,
		[]string{models.EnrollmentStatusPending, models.EnrollmentStatusOverdue},
		models.EnrollmentStatusActive)
	if err != nil {
		return 0, 0, err
	}
	// Sync the in-memory copy only when the guarded update fired, so the
	// SaveEnrollment below writes the status the database already agreed to.
	if changed {
		enrollment.Status = models.EnrollmentStatusActive
	}

	var newDue time.Time
	if cycleMonths > 0 {
		newDue = calendar.AddMonths(calendar.StartOfDay(paidAt), cycleMonths)
	} else {
		newDue = calendar.AddDays(calendar.StartOfDay(paidAt), durationDays)
	}
	enrollment.DueDate = newDue
	enrollment.NextDueDate = &newDue
	if err := e.repo.SaveEnrollment(enrollment); err != nil {
		return 0, 0, err
	}

	if installment == nil {
		installment, err = e.repo.OldestUnpaidInstallment(enrollment.ID)
		if err != nil {
			return 0, 0, err
		}
	}
	if installment == nil {
		// No pending charge to settle: mirror the payment as a new paid row.
		installment = &models.Installment{
			AcademyID:    enrollment.AcademyID,
			EnrollmentID: enrollment.ID,
			PlanID:       enrollment.PlanID,
			Amount:       enrollment.Amount,
			DueDate:      calendar.StartOfDay(paidAt),
		}
	}
	installment.PaidAt = &paidAt
	installment.Status = models.InstallmentStatusPaid
	installment.PaymentMethod = method
	installment.SettledBy = settledBy
	installment.SettlementType = settlementType
	if installment.ID == 0 {
		err = e.repo.CreateInstallment(installment)
	} else {
		err = e.repo.SaveInstallment(installment)
	}
	if err != nil {
		return 0, 0, err
	}

	nextID := uint(0)
	var nextDue time.Time
	if cycleMonths > 0 {
		nextDue = calendar.WithDayOfMonth(calendar.AddMonths(installment.DueDate, cycleMonths), enrollment.DueDay)
	} else {
		nextDue = calendar.AddDays(installment.DueDate, durationDays)
	}
	next := &models.Installment{
		AcademyID:    enrollment.AcademyID,
		EnrollmentID: enrollment.ID,
		PlanID:       enrollment.PlanID,
		Amount:       enrollment.Amount,
		DueDate:      nextDue,
		Status:       models.InstallmentStatusAwaiting,
	}
	if err := e.repo.CreateInstallment(next); err != nil {
		// The settlement above is already committed; losing the confirmed
		// payment would be worse than the explainable gap.
		log.Printf("settlement committed but next installment generation failed for enrollment %d: %v", enrollment.ID, err)
	} else {
		nextID = next.ID
	}

	if e.notifier != nil {
		if err := e.notifier.PaymentSettled(enrollment, installment); err != nil {
			log.Printf("settlement notification failed for enrollment %d: %v", enrollment.ID, err)
		}
	}

	return installment.ID, nextID, nil
}

func (e *ReconcileEngine) billingPeriod(enrollment *models.Enrollment) (int, int, error) {
	if enrollment.PlanCycleID != nil {
		cycle, err := e.repo.GetPlanCycle(enrollment.PlanID, *enrollment.PlanCycleID)
		if err == nil {
			return cycle.DurationMonths, 0, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, 0, err
		}
		// Cycle deleted underneath the enrollment: fall back to plan days.
	}
	plan, err := e.repo.GetPlan(enrollment.AcademyID, enrollment.PlanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, 0, &NotFoundError{Resource: "plan", ID: enrollment.PlanID}
		}
		return 0, 0, err
	}
	return 0, plan.DurationDays, nil
}
