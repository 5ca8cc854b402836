package membership

import (
	"errors"
	"time"

	"github.com/acsk/AppCheckin-sub000/app/models"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/calendar"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FanoutService turns one package purchase into N linked enrollments with a
// prorated share of the bundle price, all under a single contract.
type FanoutService struct {
	repo  Repository
	clock calendar.Clock
}

func NewFanoutService(repo Repository, clock calendar.Clock) *FanoutService {
	return &FanoutService{repo: repo, clock: clock}
}

// PurchasePackageInput describes a bundle purchase. The payer is always a
// beneficiary and counts against the package limit.
type PurchasePackageInput struct {
	AcademyID             uint
	PackageID             uint
	PayerStudentID        uint
	BeneficiaryStudentIDs []uint
	DueDay                int
	StartDate             *time.Time
	CreatedBy             uint
}

// ProratedShare divides the bundle total by the beneficiary count, rounding
// each share independently to cents (half-up). The rounding drift is
// deliberately not reconciled onto any beneficiary: the shares may sum to a
// few cents above or below the contract total.
func ProratedShare(total decimal.Decimal, count int) decimal.Decimal {
	return total.Div(decimal.NewFromInt(int64(count))).Round(2)
}

// Purchase creates the contract and fans out one enrollment + one installment
// per beneficiary inside a single transaction. A conflicting active
// enrollment for any beneficiary rolls the whole purchase back; no partial
// contract is left behind.
func (s *FanoutService) Purchase(in PurchasePackageInput) (*models.PackageContract, error) {
	if in.AcademyID == 0 || in.PackageID == 0 || in.PayerStudentID == 0 {
		return nil, &ValidationError{Message: "academy_id, package_id and payer_student_id are required"}
	}
	if in.DueDay < 1 || in.DueDay > 31 {
		return nil, &ValidationError{Field: "due_day", Message: "must be between 1 and 31"}
	}

	pkg, err := s.repo.GetPackage(in.AcademyID, in.PackageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "package", ID: in.PackageID}
		}
		return nil, err
	}
	plan, err := s.repo.GetPlan(in.AcademyID, pkg.PlanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "plan", ID: pkg.PlanID}
		}
		return nil, err
	}
	cycleMonths := 0
	if pkg.PlanCycleID != nil {
		cycle, err := s.repo.GetPlanCycle(pkg.PlanID, *pkg.PlanCycleID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &NotFoundError{Resource: "plan_cycle", ID: *pkg.PlanCycleID}
			}
			return nil, err
		}
		cycleMonths = cycle.DurationMonths
	}

	students := dedupeStudents(in.PayerStudentID, in.BeneficiaryStudentIDs)
	if len(students) > pkg.MaxBeneficiaries {
		return nil, &ConflictError{Message: "quantidade de beneficiarios excede o limite do pacote"}
	}
	for _, studentID := range students {
		if _, err := s.repo.GetStudent(studentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &NotFoundError{Resource: "student", ID: studentID}
			}
			return nil, err
		}
		if err := s.repo.EnsureMembership(in.AcademyID, studentID); err != nil {
			return nil, err
		}
	}

	share := ProratedShare(pkg.TotalPrice, len(students))

	now := s.clock.Now()
	start := calendar.StartOfDay(now)
	if in.StartDate != nil {
		start = calendar.StartOfDay(*in.StartDate)
	}
	var end time.Time
	if cycleMonths > 0 {
		end = calendar.AddMonths(start, cycleMonths)
	} else {
		end = calendar.AddDays(start, plan.DurationDays)
	}

	var contract *models.PackageContract
	err = s.repo.WithTx(func(tx Repository) error {
		contract = &models.PackageContract{
			AcademyID:      in.AcademyID,
			PackageID:      pkg.ID,
			PayerStudentID: in.PayerStudentID,
			TotalPrice:     pkg.TotalPrice,
			Status:         models.PackageContractStatusPending,
			StartDate:      start,
			EndDate:        end,
		}
		if err := tx.CreatePackageContract(contract); err != nil {
			return err
		}

		for _, studentID := range students {
			existing, err := tx.FindLatestEnrollmentByModality(in.AcademyID, studentID, plan.Modality,
				[]string{models.EnrollmentStatusActive, models.EnrollmentStatusOverdue})
			if err != nil {
				return err
			}
			decision := findReusableOrNew(existing, now)
			if existing != nil && !decision.reuse {
				eff := existing.EffectiveDueDate()
				return &ConflictError{
					Message: "beneficiario ja possui matricula ativa nesta modalidade",
					DueDate: &eff,
				}
			}

			var enrollment *models.Enrollment
			if decision.reuse {
				enrollment = decision.target
				enrollment.PlanID = plan.ID
				enrollment.PlanCycleID = pkg.PlanCycleID
				enrollment.PackageContractID = &contract.ID
				enrollment.Status = models.EnrollmentStatusPending
				enrollment.Reason = models.EnrollmentReasonRenewal
				enrollment.Amount = share
				enrollment.DueDay = in.DueDay
				enrollment.StartDate = start
				enrollment.DueDate = end
				enrollment.NextDueDate = nil
				enrollment.Trial = false
				enrollment.TrialBillingStart = nil
				enrollment.CreatedBy = in.CreatedBy
				if err := tx.SaveEnrollment(enrollment); err != nil {
					return err
				}
			} else {
				enrollment = &models.Enrollment{
					AcademyID:         in.AcademyID,
					StudentID:         studentID,
					PlanID:            plan.ID,
					PlanCycleID:       pkg.PlanCycleID,
					PackageContractID: &contract.ID,
					Status:            models.EnrollmentStatusPending,
					Reason:            models.EnrollmentReasonNew,
					Amount:            share,
					DueDay:            in.DueDay,
					StartDate:         start,
					DueDate:           end,
					CreatedBy:         in.CreatedBy,
				}
				if err := tx.CreateEnrollment(enrollment); err != nil {
					return err
				}
			}

			beneficiary := &models.PackageBeneficiary{
				PackageContractID: contract.ID,
				StudentID:         studentID,
				EnrollmentID:      enrollment.ID,
				Share:             share,
				Status:            models.InstallmentStatusAwaiting,
			}
			if err := tx.CreateBeneficiary(beneficiary); err != nil {
				return err
			}

			installment := &models.Installment{
				AcademyID:    in.AcademyID,
				EnrollmentID: enrollment.ID,
				PlanID:       plan.ID,
				Amount:       share,
				DueDate:      start,
				Status:       models.InstallmentStatusAwaiting,
			}
			if err := tx.CreateInstallment(installment); err != nil {
				return err
			}

			history := &models.RenewalHistory{
				AcademyID:            in.AcademyID,
				EnrollmentID:         enrollment.ID,
				PreviousEnrollmentID: enrollment.PreviousEnrollmentID,
				StudentID:            studentID,
				PlanID:               plan.ID,
				Reason:               enrollment.Reason,
				Amount:               share,
			}
			if err := tx.CreateRenewalHistory(history); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return contract, nil
}

// CancelContract cancels the whole package: contract plus every beneficiary
// enrollment still in an open state.
func (s *FanoutService) CancelContract(contractID, actorID uint, reason string) error {
	contract, err := s.repo.GetPackageContract(contractID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Resource: "package_contract", ID: contractID}
		}
		return err
	}
	if contract.Status == models.PackageContractStatusCanceled {
		return &ConflictError{Message: "contrato ja cancelado"}
	}

	now := s.clock.Now()
	return s.repo.WithTx(func(tx Repository) error {
		changed, err := tx.UpdatePackageContractStatus(contractID,
			[]string{models.PackageContractStatusPending, models.PackageContractStatusActive, models.PackageContractStatusPaid},
			models.PackageContractStatusCanceled)
		if err != nil {
			return err
		}
		if !changed {
			return &ConflictError{Message: "contrato ja cancelado"}
		}
		beneficiaries, err := tx.ListBeneficiaries(contractID)
		if err != nil {
			return err
		}
		for _, b := range beneficiaries {
			if _, err := tx.UpdateEnrollmentStatus(b.EnrollmentID,
				[]string{models.EnrollmentStatusPending, models.EnrollmentStatusActive, models.EnrollmentStatusOverdue},
				models.EnrollmentStatusCanceled); err != nil {
				return err
			}
			enrollment, err := tx.GetEnrollment(b.EnrollmentID)
			if err != nil {
				return err
			}
			enrollment.CanceledAt = &now
			enrollment.CanceledBy = &actorID
			enrollment.CancelReason = reason
			if err := tx.SaveEnrollment(enrollment); err != nil {
				return err
			}
		}
		return nil
	})
}

func dedupeStudents(payer uint, others []uint) []uint {
	seen := map[uint]struct{}{payer: {}}
	out := []uint{payer}
	for _, id := range others {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
