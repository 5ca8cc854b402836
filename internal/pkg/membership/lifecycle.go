package membership

import (
	"errors"
	"time"

	"github.com/acsk/AppCheckin-sub000/app/models"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/calendar"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LifecycleService creates, renews, switches, cancels and deletes individual
// enrollments, enforcing the one-active-enrollment-per-modality invariant.
type LifecycleService struct {
	repo  Repository
	clock calendar.Clock
}

func NewLifecycleService(repo Repository, clock calendar.Clock) *LifecycleService {
	return &LifecycleService{repo: repo, clock: clock}
}

// CreateEnrollmentInput carries everything needed to matriculate a student.
// Amount and StartDate override the plan/cycle defaults when set.
type CreateEnrollmentInput struct {
	AcademyID         uint
	StudentID         uint
	PlanID            uint
	PlanCycleID       *uint
	DueDay            int
	Amount            *decimal.Decimal
	StartDate         *time.Time
	TrialBillingStart *time.Time
	CreatedBy         uint
}

// reuseDecision is the tagged outcome of findReusableOrNew: either rewrite an
// expired row in place or insert a fresh one.
type reuseDecision struct {
	reuse  bool
	target *models.Enrollment
}

// findReusableOrNew decides whether an existing enrollment row can be
// rewritten in place. A row is reusable when it is already overdue or its
// effective due date lies strictly in the past; reusing it preserves history
// linkage and avoids orphaned rows accumulating on every renewal.
func findReusableOrNew(existing *models.Enrollment, today time.Time) reuseDecision {
	if existing == nil {
		return reuseDecision{}
	}
	if existing.Status == models.EnrollmentStatusOverdue || calendar.IsBeforeToday(existing.EffectiveDueDate(), today) {
		return reuseDecision{reuse: true, target: existing}
	}
	return reuseDecision{}
}

// Create matriculates a student into a plan: membership auto-link,
// price/duration resolution, duplicate and switch guards,
// reuse-over-duplicate, first installment.
func (s *LifecycleService) Create(in CreateEnrollmentInput) (*models.Enrollment, error) {
	if in.AcademyID == 0 || in.StudentID == 0 || in.PlanID == 0 {
		return nil, &ValidationError{Message: "academy_id, student_id and plan_id are required"}
	}
	if in.DueDay < 1 || in.DueDay > 31 {
		return nil, &ValidationError{Field: "due_day", Message: "must be between 1 and 31"}
	}

	if _, err := s.repo.GetStudent(in.StudentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "student", ID: in.StudentID}
		}
		return nil, err
	}
	// A missing academy link is not an error: first enrollment creates it.
	if err := s.repo.EnsureMembership(in.AcademyID, in.StudentID); err != nil {
		return nil, err
	}

	plan, err := s.repo.GetPlan(in.AcademyID, in.PlanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "plan", ID: in.PlanID}
		}
		return nil, err
	}

	price := plan.Price
	cycleMonths := 0
	if in.PlanCycleID != nil {
		cycle, err := s.repo.GetPlanCycle(plan.ID, *in.PlanCycleID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &NotFoundError{Resource: "plan_cycle", ID: *in.PlanCycleID}
			}
			return nil, err
		}
		price = cycle.Price
		cycleMonths = cycle.DurationMonths
	}
	amount := price
	if in.Amount != nil {
		amount = *in.Amount
	}
	trial := amount.IsZero()

	now := s.clock.Now()
	start := calendar.StartOfDay(now)
	if in.StartDate != nil {
		start = calendar.StartOfDay(*in.StartDate)
	}
	var due time.Time
	if cycleMonths > 0 {
		due = calendar.AddMonths(start, cycleMonths)
	} else {
		due = calendar.AddDays(start, plan.DurationDays)
	}

	existing, err := s.repo.FindLatestEnrollmentByModality(in.AcademyID, in.StudentID, plan.Modality,
		[]string{models.EnrollmentStatusActive, models.EnrollmentStatusOverdue})
	if err != nil {
		return nil, err
	}

	reason := models.EnrollmentReasonNew
	if existing != nil {
		eff := existing.EffectiveDueDate()
		dueInFuture := calendar.StartOfDay(eff).After(calendar.StartOfDay(now))

		if existing.PlanID == plan.ID {
			if dueInFuture {
				open, err := s.repo.HasUnpaidInstallment(existing.ID)
				if err != nil {
					return nil, err
				}
				if open || existing.Status == models.EnrollmentStatusActive {
					return nil, &ConflictError{
						Message: "aluno ja possui matricula ativa nesta modalidade",
						DueDate: &eff,
					}
				}
			}
			reason = models.EnrollmentReasonRenewal
		} else {
			if dueInFuture {
				return nil, &ConflictError{
					Message: "troca de plano permitida apenas a partir do vencimento",
					DueDate: &eff,
				}
			}
			overdue, err := s.repo.HasOverdueInstallment(existing.ID)
			if err != nil {
				return nil, err
			}
			if overdue {
				return nil, &ConflictError{Message: "existem parcelas vencidas pendentes de acerto"}
			}
			if amount.GreaterThan(existing.Amount) {
				reason = models.EnrollmentReasonUpgrade
			} else {
				reason = models.EnrollmentReasonDowngrade
			}
		}
	}

	status := models.EnrollmentStatusPending
	var trialBillingStart *time.Time
	if trial {
		status = models.EnrollmentStatusActive
		tbs := calendar.FirstDayOfNextMonth(start)
		if in.TrialBillingStart != nil {
			tbs = calendar.StartOfDay(*in.TrialBillingStart)
		}
		trialBillingStart = &tbs
	}

	decision := findReusableOrNew(existing, now)

	var enrollment *models.Enrollment
	err = s.repo.WithTx(func(tx Repository) error {
		if decision.reuse {
			enrollment = decision.target
			enrollment.PlanID = plan.ID
			enrollment.PlanCycleID = in.PlanCycleID
			enrollment.Status = status
			enrollment.Reason = reason
			enrollment.Amount = amount
			enrollment.DueDay = in.DueDay
			enrollment.StartDate = start
			enrollment.DueDate = due
			enrollment.NextDueDate = nil
			enrollment.Trial = trial
			enrollment.TrialBillingStart = trialBillingStart
			enrollment.CreatedBy = in.CreatedBy
			if err := tx.SaveEnrollment(enrollment); err != nil {
				return err
			}
		} else {
			var previousID *uint
			if existing != nil {
				// Replacement path: close the old enrollment before
				// opening its successor.
				if _, err := tx.UpdateEnrollmentStatus(existing.ID,
					[]string{models.EnrollmentStatusActive, models.EnrollmentStatusOverdue},
					models.EnrollmentStatusFinished); err != nil {
					return err
				}
				previousID = &existing.ID
			}
			enrollment = &models.Enrollment{
				AcademyID:            in.AcademyID,
				StudentID:            in.StudentID,
				PlanID:               plan.ID,
				PlanCycleID:          in.PlanCycleID,
				PreviousEnrollmentID: previousID,
				Status:               status,
				Reason:               reason,
				Amount:               amount,
				DueDay:               in.DueDay,
				StartDate:            start,
				DueDate:              due,
				Trial:                trial,
				TrialBillingStart:    trialBillingStart,
				CreatedBy:            in.CreatedBy,
			}
			if err := tx.CreateEnrollment(enrollment); err != nil {
				return err
			}
		}

		history := &models.RenewalHistory{
			AcademyID:            in.AcademyID,
			EnrollmentID:         enrollment.ID,
			PreviousEnrollmentID: enrollment.PreviousEnrollmentID,
			StudentID:            in.StudentID,
			PlanID:               plan.ID,
			Reason:               reason,
			Amount:               amount,
		}
		if err := tx.CreateRenewalHistory(history); err != nil {
			return err
		}

		if !trial {
			first := &models.Installment{
				AcademyID:    in.AcademyID,
				EnrollmentID: enrollment.ID,
				PlanID:       plan.ID,
				Amount:       amount,
				DueDate:      start,
				Status:       models.InstallmentStatusAwaiting,
			}
			if err := tx.CreateInstallment(first); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return enrollment, nil
}

// Cancel marks an enrollment canceled and stamps who did it and why. Already
// canceled enrollments are refused; installments are left untouched.
func (s *LifecycleService) Cancel(enrollmentID, actorID uint, reason string) (*models.Enrollment, error) {
	enrollment, err := s.repo.GetEnrollment(enrollmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "enrollment", ID: enrollmentID}
		}
		return nil, err
	}
	if enrollment.Status == models.EnrollmentStatusCanceled {
		return nil, &ConflictError{Message: "matricula ja cancelada"}
	}

	changed, err := s.repo.UpdateEnrollmentStatus(enrollmentID,
		[]string{models.EnrollmentStatusPending, models.EnrollmentStatusActive, models.EnrollmentStatusOverdue, models.EnrollmentStatusFinished},
		models.EnrollmentStatusCanceled)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, &ConflictError{Message: "matricula ja cancelada"}
	}

	now := s.clock.Now()
	enrollment.Status = models.EnrollmentStatusCanceled
	enrollment.CanceledAt = &now
	enrollment.CanceledBy = &actorID
	enrollment.CancelReason = reason
	if err := s.repo.SaveEnrollment(enrollment); err != nil {
		return nil, err
	}
	return enrollment, nil
}

// Delete destructively removes an enrollment with its installments and
// gateway-payment mirrors in one transaction. Enrollments under a package
// contract are refused: the whole contract must be canceled instead. Any
// linked subscription is detached, never deleted.
func (s *LifecycleService) Delete(enrollmentID uint) error {
	enrollment, err := s.repo.GetEnrollment(enrollmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Resource: "enrollment", ID: enrollmentID}
		}
		return err
	}
	if enrollment.PackageContractID != nil {
		return &ConflictError{Message: "matricula pertence a um contrato de pacote; cancele o contrato"}
	}

	return s.repo.WithTx(func(tx Repository) error {
		if err := tx.DetachSubscriptionFromEnrollment(enrollmentID); err != nil {
			return err
		}
		if err := tx.DeleteInstallmentsByEnrollment(enrollmentID); err != nil {
			return err
		}
		if err := tx.DeleteGatewayPaymentsByEnrollment(enrollmentID); err != nil {
			return err
		}
		return tx.DeleteEnrollment(enrollmentID)
	})
}
