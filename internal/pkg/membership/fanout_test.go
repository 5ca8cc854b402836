package membership

import (
	"testing"
	"time"

	"github.com/acsk/AppCheckin-sub000/app/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFanoutFixture() (*memoryRepo, *FanoutService) {
	repo := newMemoryRepo()
	repo.seedPlan(10, "musculacao", "100.00", 30)
	repo.seedPackage(30, 10, "300.00", 3)
	repo.seedStudent(1, "Ana")
	repo.seedStudent(2, "Bruno")
	repo.seedStudent(3, "Carla")
	return repo, NewFanoutService(repo, testClock())
}

func TestProratedShare(t *testing.T) {
	tests := []struct {
		total string
		count int
		share string
	}{
		{"300.00", 3, "100"},
		{"100.00", 3, "33.33"},
		{"250.00", 4, "62.5"},
		{"100.00", 7, "14.29"}, // half-up: shares sum to 100.03
	}
	for _, tt := range tests {
		got := ProratedShare(dec(tt.total), tt.count)
		assert.True(t, got.Equal(dec(tt.share)), "%s/%d: got %s", tt.total, tt.count, got)

		// Independent cents rounding drifts at most half a cent per
		// beneficiary in either direction; the drift is never reconciled.
		sum := got.Mul(decimal.NewFromInt(int64(tt.count)))
		drift := sum.Sub(dec(tt.total)).Abs()
		maxDrift := decimal.NewFromFloat(0.005).Mul(decimal.NewFromInt(int64(tt.count)))
		assert.True(t, drift.LessThanOrEqual(maxDrift),
			"%s/%d: shares sum to %s", tt.total, tt.count, sum)
	}
}

func TestPurchaseFansOutEnrollments(t *testing.T) {
	repo, svc := newFanoutFixture()

	contract, err := svc.Purchase(PurchasePackageInput{
		AcademyID: testAcademy, PackageID: 30, PayerStudentID: 1,
		BeneficiaryStudentIDs: []uint{2, 3}, DueDay: 10, CreatedBy: 9,
	})
	require.NoError(t, err)
	require.NotNil(t, contract)
	assert.Equal(t, models.PackageContractStatusPending, contract.Status)
	assert.True(t, contract.TotalPrice.Equal(dec("300.00")))

	beneficiaries, err := repo.ListBeneficiaries(contract.ID)
	require.NoError(t, err)
	require.Len(t, beneficiaries, 3)

	for _, b := range beneficiaries {
		assert.True(t, b.Share.Equal(dec("100")), "share of student %d", b.StudentID)
		enrollment := repo.enrollments[b.EnrollmentID]
		assert.Equal(t, models.EnrollmentStatusPending, enrollment.Status)
		require.NotNil(t, enrollment.PackageContractID)
		assert.Equal(t, contract.ID, *enrollment.PackageContractID)
		assert.True(t, enrollment.Amount.Equal(dec("100")))
		assert.Equal(t, 1, repo.countInstallments(b.EnrollmentID))
	}
}

func TestPurchasePayerIsDeduplicated(t *testing.T) {
	repo, svc := newFanoutFixture()

	// Payer listed again among the beneficiaries counts once.
	contract, err := svc.Purchase(PurchasePackageInput{
		AcademyID: testAcademy, PackageID: 30, PayerStudentID: 1,
		BeneficiaryStudentIDs: []uint{1, 2}, DueDay: 10,
	})
	require.NoError(t, err)

	beneficiaries, err := repo.ListBeneficiaries(contract.ID)
	require.NoError(t, err)
	assert.Len(t, beneficiaries, 2)
	assert.True(t, beneficiaries[0].Share.Equal(dec("150")))
}

func TestPurchaseTooManyBeneficiaries(t *testing.T) {
	repo, svc := newFanoutFixture()
	repo.seedStudent(4, "Davi")

	_, err := svc.Purchase(PurchasePackageInput{
		AcademyID: testAcademy, PackageID: 30, PayerStudentID: 1,
		BeneficiaryStudentIDs: []uint{2, 3, 4}, DueDay: 10,
	})
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.Equal(t, 0, repo.countContracts())
}

func TestPurchaseUnknownStudent(t *testing.T) {
	repo, svc := newFanoutFixture()

	_, err := svc.Purchase(PurchasePackageInput{
		AcademyID: testAcademy, PackageID: 30, PayerStudentID: 1,
		BeneficiaryStudentIDs: []uint{999}, DueDay: 10,
	})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 0, repo.countContracts())
}

func TestPurchaseRollsBackOnBeneficiaryConflict(t *testing.T) {
	repo, svc := newFanoutFixture()

	// Bruno already holds an active enrollment in the same modality that is
	// nowhere near its due date.
	repo.seedEnrollment(models.Enrollment{
		StudentID: 2, PlanID: 10, Status: models.EnrollmentStatusActive,
		Amount: dec("100.00"), DueDate: day(2024, time.July, 1),
	})
	enrollmentsBefore := repo.countEnrollments()

	_, err := svc.Purchase(PurchasePackageInput{
		AcademyID: testAcademy, PackageID: 30, PayerStudentID: 1,
		BeneficiaryStudentIDs: []uint{2}, DueDay: 10,
	})
	require.Error(t, err)
	assert.True(t, IsConflict(err))

	// The transaction rolled back: no contract, no partial fanout for the
	// payer either.
	assert.Equal(t, 0, repo.countContracts())
	assert.Equal(t, enrollmentsBefore, repo.countEnrollments())
}

func TestPurchaseReusesOverdueEnrollment(t *testing.T) {
	repo, svc := newFanoutFixture()
	stale := repo.seedEnrollment(models.Enrollment{
		StudentID: 2, PlanID: 10, Status: models.EnrollmentStatusOverdue,
		Amount: dec("100.00"), DueDate: day(2024, time.June, 1),
	})
	enrollmentsBefore := repo.countEnrollments()

	contract, err := svc.Purchase(PurchasePackageInput{
		AcademyID: testAcademy, PackageID: 30, PayerStudentID: 1,
		BeneficiaryStudentIDs: []uint{2}, DueDay: 10,
	})
	require.NoError(t, err)

	// Bruno's stale row was rewritten in place instead of duplicated.
	assert.Equal(t, enrollmentsBefore+1, repo.countEnrollments())
	reused := repo.enrollments[stale]
	assert.Equal(t, models.EnrollmentStatusPending, reused.Status)
	assert.Equal(t, models.EnrollmentReasonRenewal, reused.Reason)
	require.NotNil(t, reused.PackageContractID)
	assert.Equal(t, contract.ID, *reused.PackageContractID)
	assert.True(t, reused.Amount.Equal(dec("150")))
}

func TestPurchaseValidation(t *testing.T) {
	_, svc := newFanoutFixture()

	_, err := svc.Purchase(PurchasePackageInput{AcademyID: testAcademy, PackageID: 30, PayerStudentID: 1, DueDay: 0})
	assert.True(t, IsValidation(err))

	_, err = svc.Purchase(PurchasePackageInput{PackageID: 30, PayerStudentID: 1, DueDay: 10})
	assert.True(t, IsValidation(err))

	_, err = svc.Purchase(PurchasePackageInput{AcademyID: testAcademy, PackageID: 999, PayerStudentID: 1, DueDay: 10})
	assert.True(t, IsNotFound(err))
}

func TestCancelContract(t *testing.T) {
	repo, svc := newFanoutFixture()
	contract, err := svc.Purchase(PurchasePackageInput{
		AcademyID: testAcademy, PackageID: 30, PayerStudentID: 1,
		BeneficiaryStudentIDs: []uint{2}, DueDay: 10,
	})
	require.NoError(t, err)

	require.NoError(t, svc.CancelContract(contract.ID, 9, "desistencia"))

	got, err := repo.GetPackageContract(contract.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PackageContractStatusCanceled, got.Status)

	beneficiaries, err := repo.ListBeneficiaries(contract.ID)
	require.NoError(t, err)
	for _, b := range beneficiaries {
		enrollment := repo.enrollments[b.EnrollmentID]
		assert.Equal(t, models.EnrollmentStatusCanceled, enrollment.Status)
		require.NotNil(t, enrollment.CanceledAt)
		assert.Equal(t, "desistencia", enrollment.CancelReason)
	}

	err = svc.CancelContract(contract.ID, 9, "desistencia")
	require.Error(t, err)
	assert.True(t, IsConflict(err))
}
