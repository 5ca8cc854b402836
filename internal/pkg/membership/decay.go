package membership

import (
	"log"

	"github.com/acsk/AppCheckin-sub000/internal/pkg/calendar"
)

// DecayEngine applies the time-based status transitions. It runs lazily on
// the read/write path (there is no background scheduler), so staleness is
// bounded by request traffic.
type DecayEngine struct {
	repo  Repository
	clock calendar.Clock
}

func NewDecayEngine(repo Repository, clock calendar.Clock) *DecayEngine {
	return &DecayEngine{repo: repo, clock: clock}
}

// Sweep runs the three idempotent set-based updates for one academy and
// returns how many rows changed. Order matters: the overdue sweep must run
// before the cancel sweep because both read the same unpaid-and-past-due
// predicate and only the day distance separates them.
func (d *DecayEngine) Sweep(academyID uint) (int64, error) {
	today := d.clock.Now()

	// active/overdue enrollments with an unpaid installment 1-4 days late
	overdue, err := d.repo.SweepOverdueEnrollments(academyID, today)
	if err != nil {
		return 0, err
	}
	// unpaid installment 5+ days late: the grace window is over
	canceled, err := d.repo.SweepCanceledEnrollments(academyID, today)
	if err != nil {
		return overdue, err
	}
	// installment-level decay, independent of the enrollment sweeps
	installments, err := d.repo.SweepOverdueInstallments(academyID, today)
	if err != nil {
		return overdue + canceled, err
	}

	changed := overdue + canceled + installments
	if changed > 0 {
		log.Printf("decay sweep academy=%d: %d overdue, %d canceled, %d installments", academyID, overdue, canceled, installments)
	}
	return changed, nil
}
