package membership

import (
	"testing"
	"time"

	"github.com/acsk/AppCheckin-sub000/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLifecycleFixture() (*memoryRepo, *LifecycleService) {
	repo := newMemoryRepo()
	repo.seedStudent(1, "Ana")
	repo.seedPlan(10, "musculacao", "100.00", 30)
	return repo, NewLifecycleService(repo, testClock())
}

func TestCreateEnrollmentNew(t *testing.T) {
	repo, svc := newLifecycleFixture()

	enrollment, err := svc.Create(CreateEnrollmentInput{
		AcademyID: testAcademy, StudentID: 1, PlanID: 10, DueDay: 5,
	})
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentStatusPending, enrollment.Status)
	assert.Equal(t, models.EnrollmentReasonNew, enrollment.Reason)
	assert.True(t, enrollment.Amount.Equal(dec("100.00")))
	assert.Equal(t, day(2024, time.June, 10), enrollment.StartDate)
	assert.Equal(t, day(2024, time.July, 10), enrollment.DueDate)

	// First installment is due on the start date.
	inst, err := repo.OldestUnpaidInstallment(enrollment.ID)
	require.NoError(t, err)
	require.NotNil(t, inst)
	assert.Equal(t, day(2024, time.June, 10), inst.DueDate)
	assert.True(t, inst.Amount.Equal(dec("100.00")))

	// The academy link is auto-created.
	assert.Len(t, repo.memberships, 1)
	assert.Len(t, repo.histories, 1)
	assert.Equal(t, models.EnrollmentReasonNew, repo.histories[0].Reason)
}

func TestCreateEnrollmentWithCycleUsesMonths(t *testing.T) {
	repo, svc := newLifecycleFixture()
	repo.seedCycle(20, 10, "270.00", 3, true)

	enrollment, err := svc.Create(CreateEnrollmentInput{
		AcademyID: testAcademy, StudentID: 1, PlanID: 10, PlanCycleID: uintPtr(20), DueDay: 5,
	})
	require.NoError(t, err)

	assert.True(t, enrollment.Amount.Equal(dec("270.00")))
	assert.Equal(t, day(2024, time.September, 10), enrollment.DueDate)
}

func TestCreateEnrollmentZeroPriceIsTrial(t *testing.T) {
	repo, svc := newLifecycleFixture()
	repo.seedPlan(11, "crossfit", "0.00", 30)

	enrollment, err := svc.Create(CreateEnrollmentInput{
		AcademyID: testAcademy, StudentID: 1, PlanID: 11, DueDay: 5,
	})
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	assert.True(t, enrollment.Trial)
	require.NotNil(t, enrollment.TrialBillingStart)
	assert.Equal(t, day(2024, time.July, 1), *enrollment.TrialBillingStart)
	// Trial enrollments carry no installment until billing starts.
	assert.Equal(t, 0, repo.countInstallments(enrollment.ID))
}

func TestCreateEnrollmentConflictSamePlanStillOpen(t *testing.T) {
	repo, svc := newLifecycleFixture()
	id := repo.seedEnrollment(models.Enrollment{
		StudentID: 1, PlanID: 10, Status: models.EnrollmentStatusActive,
		Amount: dec("100.00"), DueDate: day(2024, time.June, 25),
	})
	repo.seedInstallment(models.Installment{EnrollmentID: id, PlanID: 10, Amount: dec("100.00"), DueDate: day(2024, time.June, 25)})

	_, err := svc.Create(CreateEnrollmentInput{AcademyID: testAcademy, StudentID: 1, PlanID: 10, DueDay: 5})
	require.Error(t, err)
	assert.True(t, IsConflict(err))

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.NotNil(t, conflict.DueDate, "conflict must name the blocking due date")
	assert.Equal(t, day(2024, time.June, 25), *conflict.DueDate)
}

func TestCreateEnrollmentReusesOverdueRow(t *testing.T) {
	repo, svc := newLifecycleFixture()
	id := repo.seedEnrollment(models.Enrollment{
		StudentID: 1, PlanID: 10, Status: models.EnrollmentStatusOverdue,
		Amount: dec("100.00"), DueDate: day(2024, time.May, 10),
	})
	before := repo.countEnrollments()

	enrollment, err := svc.Create(CreateEnrollmentInput{AcademyID: testAcademy, StudentID: 1, PlanID: 10, DueDay: 5})
	require.NoError(t, err)

	// Same row rewritten in place, not a second one.
	assert.Equal(t, id, enrollment.ID)
	assert.Equal(t, before, repo.countEnrollments())
	assert.Equal(t, models.EnrollmentStatusPending, enrollment.Status)
	assert.Equal(t, models.EnrollmentReasonRenewal, enrollment.Reason)
	assert.Equal(t, day(2024, time.July, 10), enrollment.DueDate)
}

func TestCreateEnrollmentSwitchBeforeDueDateRejected(t *testing.T) {
	repo, svc := newLifecycleFixture()
	repo.seedPlan(12, "musculacao", "150.00", 30)
	repo.seedEnrollment(models.Enrollment{
		StudentID: 1, PlanID: 10, Status: models.EnrollmentStatusActive,
		Amount: dec("100.00"), DueDate: day(2024, time.June, 20),
	})

	_, err := svc.Create(CreateEnrollmentInput{AcademyID: testAcademy, StudentID: 1, PlanID: 12, DueDay: 5})
	require.Error(t, err)
	assert.True(t, IsConflict(err))
}

func TestCreateEnrollmentSwitchWithOverdueInstallmentRejected(t *testing.T) {
	repo, svc := newLifecycleFixture()
	repo.seedPlan(12, "musculacao", "150.00", 30)
	id := repo.seedEnrollment(models.Enrollment{
		StudentID: 1, PlanID: 10, Status: models.EnrollmentStatusActive,
		Amount: dec("100.00"), DueDate: day(2024, time.June, 1),
	})
	repo.seedInstallment(models.Installment{
		EnrollmentID: id, PlanID: 10, Amount: dec("100.00"),
		DueDate: day(2024, time.June, 1), Status: models.InstallmentStatusOverdue,
	})

	_, err := svc.Create(CreateEnrollmentInput{AcademyID: testAcademy, StudentID: 1, PlanID: 12, DueDay: 5})
	require.Error(t, err)
	assert.True(t, IsConflict(err))
}

func TestCreateEnrollmentSwitchOnDueDateFinishesOldRow(t *testing.T) {
	repo, svc := newLifecycleFixture()
	repo.seedPlan(12, "musculacao", "150.00", 30)
	oldID := repo.seedEnrollment(models.Enrollment{
		StudentID: 1, PlanID: 10, Status: models.EnrollmentStatusActive,
		Amount: dec("100.00"), DueDate: day(2024, time.June, 10),
	})

	enrollment, err := svc.Create(CreateEnrollmentInput{AcademyID: testAcademy, StudentID: 1, PlanID: 12, DueDay: 5})
	require.NoError(t, err)

	assert.NotEqual(t, oldID, enrollment.ID)
	assert.Equal(t, models.EnrollmentReasonUpgrade, enrollment.Reason)
	require.NotNil(t, enrollment.PreviousEnrollmentID)
	assert.Equal(t, oldID, *enrollment.PreviousEnrollmentID)

	old, err := repo.GetEnrollment(oldID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusFinished, old.Status)
}

func TestCancelEnrollment(t *testing.T) {
	repo, svc := newLifecycleFixture()
	id := repo.seedEnrollment(models.Enrollment{
		StudentID: 1, PlanID: 10, Status: models.EnrollmentStatusActive,
		Amount: dec("100.00"), DueDate: day(2024, time.July, 10),
	})

	enrollment, err := svc.Cancel(id, 99, "mudou de cidade")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCanceled, enrollment.Status)
	require.NotNil(t, enrollment.CanceledBy)
	assert.Equal(t, uint(99), *enrollment.CanceledBy)
	assert.Equal(t, "mudou de cidade", enrollment.CancelReason)

	_, err = svc.Cancel(id, 99, "de novo")
	require.Error(t, err)
	assert.True(t, IsConflict(err))
}

func TestDeleteEnrollmentInPackageRefused(t *testing.T) {
	repo, svc := newLifecycleFixture()
	id := repo.seedEnrollment(models.Enrollment{
		StudentID: 1, PlanID: 10, Status: models.EnrollmentStatusActive,
		Amount: dec("100.00"), DueDate: day(2024, time.July, 10),
		PackageContractID: uintPtr(77),
	})

	err := svc.Delete(id)
	require.Error(t, err)
	assert.True(t, IsConflict(err))
}

func TestDeleteEnrollmentRemovesChildrenAndDetachesSubscription(t *testing.T) {
	repo, svc := newLifecycleFixture()
	id := repo.seedEnrollment(models.Enrollment{
		StudentID: 1, PlanID: 10, Status: models.EnrollmentStatusActive,
		Amount: dec("100.00"), DueDate: day(2024, time.July, 10),
	})
	repo.seedInstallment(models.Installment{EnrollmentID: id, PlanID: 10, Amount: dec("100.00"), DueDate: day(2024, time.June, 10)})
	subID := repo.seedSubscription(models.Subscription{
		EnrollmentID: uintPtr(id), GatewaySubscriptionID: "sub-1",
		BillingMode: models.BillingModeRecurring, Status: models.SubscriptionStatusActive,
	})

	require.NoError(t, svc.Delete(id))

	_, err := repo.GetEnrollment(id)
	assert.Error(t, err)
	assert.Equal(t, 0, repo.countInstallments(id))

	// Subscription row survives, but without the enrollment link.
	sub := repo.subscriptions[subID]
	assert.Nil(t, sub.EnrollmentID)
}

func TestFindReusableOrNew(t *testing.T) {
	today := testToday

	assert.False(t, findReusableOrNew(nil, today).reuse)

	overdue := &models.Enrollment{Status: models.EnrollmentStatusOverdue, DueDate: day(2024, time.July, 1)}
	assert.True(t, findReusableOrNew(overdue, today).reuse)

	expired := &models.Enrollment{Status: models.EnrollmentStatusActive, DueDate: day(2024, time.June, 9)}
	assert.True(t, findReusableOrNew(expired, today).reuse)

	dueToday := &models.Enrollment{Status: models.EnrollmentStatusActive, DueDate: day(2024, time.June, 10)}
	assert.False(t, findReusableOrNew(dueToday, today).reuse)
}
