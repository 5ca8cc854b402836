package membership

import (
	"time"

	"github.com/acsk/AppCheckin-sub000/app/models"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/calendar"
	"github.com/shopspring/decimal"
)

const testAcademy = uint(1)

// testToday is the frozen "now" used across the service tests.
var testToday = time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)

func testClock() calendar.Clock {
	return calendar.FixedClock{T: testToday}
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (r *memoryRepo) bumpSeq(id uint) {
	if r.seq < id {
		r.seq = id
	}
}

func (r *memoryRepo) seedStudent(id uint, name string) {
	r.students[id] = models.Student{ID: id, Name: name}
	r.bumpSeq(id)
}

func (r *memoryRepo) seedPlan(id uint, modality, price string, durationDays int) {
	r.plans[id] = models.Plan{
		ID: id, AcademyID: testAcademy, Name: modality, Modality: modality,
		Price: dec(price), DurationDays: durationDays, Active: true,
	}
	r.bumpSeq(id)
}

func (r *memoryRepo) seedCycle(id, planID uint, price string, months int, recurring bool) {
	r.cycles[id] = models.PlanCycle{
		ID: id, PlanID: planID, Name: "ciclo", Price: dec(price), DurationMonths: months, Recurring: recurring,
	}
	r.bumpSeq(id)
}

func (r *memoryRepo) seedPackage(id, planID uint, total string, maxBeneficiaries int) {
	r.packages[id] = models.FitnessPackage{
		ID: id, AcademyID: testAcademy, Name: "pacote", PlanID: planID,
		TotalPrice: dec(total), MaxBeneficiaries: maxBeneficiaries, Active: true,
	}
	r.bumpSeq(id)
}

func (r *memoryRepo) seedEnrollment(e models.Enrollment) uint {
	if e.ID == 0 {
		e.ID = r.nextID()
	} else {
		r.bumpSeq(e.ID)
	}
	if e.AcademyID == 0 {
		e.AcademyID = testAcademy
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = testToday.Add(-24 * time.Hour)
	}
	r.enrollments[e.ID] = e
	return e.ID
}

func (r *memoryRepo) seedInstallment(i models.Installment) uint {
	if i.ID == 0 {
		i.ID = r.nextID()
	} else {
		r.bumpSeq(i.ID)
	}
	if i.AcademyID == 0 {
		i.AcademyID = testAcademy
	}
	if i.Status == "" {
		i.Status = models.InstallmentStatusAwaiting
	}
	r.installments[i.ID] = i
	return i.ID
}

func (r *memoryRepo) seedSubscription(s models.Subscription) uint {
	if s.ID == 0 {
		s.ID = r.nextID()
	} else {
		r.bumpSeq(s.ID)
	}
	if s.AcademyID == 0 {
		s.AcademyID = testAcademy
	}
	r.subscriptions[s.ID] = s
	return s.ID
}

func uintPtr(v uint) *uint {
	return &v
}
