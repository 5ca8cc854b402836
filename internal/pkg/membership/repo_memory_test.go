package membership

import (
	"sort"
	"sync"
	"time"

	"github.com/acsk/AppCheckin-sub000/app/models"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/calendar"
	"gorm.io/gorm"
)

// memoryRepo is an in-memory Repository used by the service tests. WithTx
// snapshots all tables and restores them on error, so rollback behavior is
// observable without a database.
type memoryRepo struct {
	mu sync.Mutex

	seq             uint
	students        map[uint]models.Student
	memberships     []models.AcademyMembership
	plans           map[uint]models.Plan
	cycles          map[uint]models.PlanCycle
	packages        map[uint]models.FitnessPackage
	enrollments     map[uint]models.Enrollment
	installments    map[uint]models.Installment
	contracts       map[uint]models.PackageContract
	beneficiaries   map[uint]models.PackageBeneficiary
	subscriptions   map[uint]models.Subscription
	gatewayPayments map[uint]models.GatewayPayment
	histories       []models.RenewalHistory
	webhooks        map[uint]models.WebhookRecord
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		students:        map[uint]models.Student{},
		plans:           map[uint]models.Plan{},
		cycles:          map[uint]models.PlanCycle{},
		packages:        map[uint]models.FitnessPackage{},
		enrollments:     map[uint]models.Enrollment{},
		installments:    map[uint]models.Installment{},
		contracts:       map[uint]models.PackageContract{},
		beneficiaries:   map[uint]models.PackageBeneficiary{},
		subscriptions:   map[uint]models.Subscription{},
		gatewayPayments: map[uint]models.GatewayPayment{},
		webhooks:        map[uint]models.WebhookRecord{},
	}
}

func (r *memoryRepo) nextID() uint {
	r.seq++
	return r.seq
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (r *memoryRepo) WithTx(fn func(Repository) error) error {
	r.mu.Lock()
	snapshot := &memoryRepo{
		seq:             r.seq,
		students:        cloneMap(r.students),
		memberships:     append([]models.AcademyMembership(nil), r.memberships...),
		plans:           cloneMap(r.plans),
		cycles:          cloneMap(r.cycles),
		packages:        cloneMap(r.packages),
		enrollments:     cloneMap(r.enrollments),
		installments:    cloneMap(r.installments),
		contracts:       cloneMap(r.contracts),
		beneficiaries:   cloneMap(r.beneficiaries),
		subscriptions:   cloneMap(r.subscriptions),
		gatewayPayments: cloneMap(r.gatewayPayments),
		histories:       append([]models.RenewalHistory(nil), r.histories...),
		webhooks:        cloneMap(r.webhooks),
	}
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.seq = snapshot.seq
		r.students = snapshot.students
		r.memberships = snapshot.memberships
		r.plans = snapshot.plans
		r.cycles = snapshot.cycles
		r.packages = snapshot.packages
		r.enrollments = snapshot.enrollments
		r.installments = snapshot.installments
		r.contracts = snapshot.contracts
		r.beneficiaries = snapshot.beneficiaries
		r.subscriptions = snapshot.subscriptions
		r.gatewayPayments = snapshot.gatewayPayments
		r.histories = snapshot.histories
		r.webhooks = snapshot.webhooks
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *memoryRepo) GetStudent(studentID uint) (*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[studentID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r *memoryRepo) EnsureMembership(academyID, studentID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.memberships {
		if m.AcademyID == academyID && m.StudentID == studentID {
			return nil
		}
	}
	r.memberships = append(r.memberships, models.AcademyMembership{
		ID: r.nextID(), AcademyID: academyID, StudentID: studentID, Status: models.MembershipStatusActive,
	})
	return nil
}

func (r *memoryRepo) GetPlan(academyID, planID uint) (*models.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[planID]
	if !ok || p.AcademyID != academyID {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *memoryRepo) GetPlanCycle(planID, cycleID uint) (*models.PlanCycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cycles[cycleID]
	if !ok || c.PlanID != planID {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r *memoryRepo) GetPackage(academyID, packageID uint) (*models.FitnessPackage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.packages[packageID]
	if !ok || p.AcademyID != academyID {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *memoryRepo) CreateEnrollment(e *models.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = r.nextID()
	e.CreatedAt = time.Now()
	r.enrollments[e.ID] = *e
	return nil
}

func (r *memoryRepo) SaveEnrollment(e *models.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.enrollments[e.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.enrollments[e.ID] = *e
	return nil
}

func (r *memoryRepo) GetEnrollment(id uint) (*models.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &e, nil
}

func (r *memoryRepo) DeleteEnrollment(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.enrollments, id)
	return nil
}

func (r *memoryRepo) FindLatestEnrollmentByModality(academyID, studentID uint, modality string, statuses []string) (*models.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *models.Enrollment
	for id := range r.enrollments {
		e := r.enrollments[id]
		if e.AcademyID != academyID || e.StudentID != studentID {
			continue
		}
		plan, ok := r.plans[e.PlanID]
		if !ok || plan.Modality != modality {
			continue
		}
		if !contains(statuses, e.Status) {
			continue
		}
		if best == nil || e.ID > best.ID {
			found := e
			best = &found
		}
	}
	return best, nil
}

func (r *memoryRepo) FindRecentEnrollmentByStudent(studentID uint, since time.Time) (*models.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *models.Enrollment
	for id := range r.enrollments {
		e := r.enrollments[id]
		if e.StudentID != studentID || e.CreatedAt.Before(since) {
			continue
		}
		if best == nil || e.ID > best.ID {
			found := e
			best = &found
		}
	}
	return best, nil
}

func (r *memoryRepo) UpdateEnrollmentStatus(id uint, from []string, to string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[id]
	if !ok || !contains(from, e.Status) {
		return false, nil
	}
	e.Status = to
	r.enrollments[id] = e
	return true, nil
}

func (r *memoryRepo) CreateInstallment(i *models.Installment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i.ID = r.nextID()
	if i.Status == "" {
		i.Status = models.InstallmentStatusAwaiting
	}
	r.installments[i.ID] = *i
	return nil
}

func (r *memoryRepo) SaveInstallment(i *models.Installment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.installments[i.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.installments[i.ID] = *i
	return nil
}

func (r *memoryRepo) GetInstallment(id uint) (*models.Installment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.installments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &i, nil
}

func (r *memoryRepo) OldestUnpaidInstallment(enrollmentID uint) (*models.Installment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var unpaid []models.Installment
	for _, i := range r.installments {
		if i.EnrollmentID == enrollmentID && i.PaidAt == nil && i.Status != models.InstallmentStatusPaid {
			unpaid = append(unpaid, i)
		}
	}
	if len(unpaid) == 0 {
		return nil, nil
	}
	sort.Slice(unpaid, func(a, b int) bool {
		if unpaid[a].DueDate.Equal(unpaid[b].DueDate) {
			return unpaid[a].ID < unpaid[b].ID
		}
		return unpaid[a].DueDate.Before(unpaid[b].DueDate)
	})
	first := unpaid[0]
	return &first, nil
}

func (r *memoryRepo) HasInstallmentPaidOn(enrollmentID uint, day time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.installments {
		if i.EnrollmentID == enrollmentID && i.Status == models.InstallmentStatusPaid &&
			i.PaidAt != nil && calendar.SameDay(*i.PaidAt, day) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) HasOverdueInstallment(enrollmentID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.installments {
		if i.EnrollmentID == enrollmentID && i.Status == models.InstallmentStatusOverdue {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) HasUnpaidInstallment(enrollmentID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.installments {
		if i.EnrollmentID == enrollmentID && i.PaidAt == nil && i.Status != models.InstallmentStatusPaid {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) DeleteInstallmentsByEnrollment(enrollmentID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, i := range r.installments {
		if i.EnrollmentID == enrollmentID {
			delete(r.installments, id)
		}
	}
	return nil
}

func (r *memoryRepo) unpaidDaysPast(enrollmentID uint, today time.Time) int {
	most := -1
	for _, i := range r.installments {
		if i.EnrollmentID != enrollmentID || i.PaidAt != nil || i.Status == models.InstallmentStatusPaid {
			continue
		}
		if d := calendar.DaysPast(i.DueDate, today); d > most {
			most = d
		}
	}
	return most
}

func (r *memoryRepo) SweepOverdueEnrollments(academyID uint, today time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, e := range r.enrollments {
		if e.AcademyID != academyID {
			continue
		}
		if e.Status != models.EnrollmentStatusActive && e.Status != models.EnrollmentStatusOverdue {
			continue
		}
		d := r.unpaidDaysPast(id, today)
		if d >= 1 && d <= 4 && e.Status != models.EnrollmentStatusOverdue {
			e.Status = models.EnrollmentStatusOverdue
			r.enrollments[id] = e
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) SweepCanceledEnrollments(academyID uint, today time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, e := range r.enrollments {
		if e.AcademyID != academyID {
			continue
		}
		if e.Status != models.EnrollmentStatusActive && e.Status != models.EnrollmentStatusOverdue {
			continue
		}
		if r.unpaidDaysPast(id, today) >= 5 {
			e.Status = models.EnrollmentStatusCanceled
			now := today
			e.CanceledAt = &now
			r.enrollments[id] = e
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) SweepOverdueInstallments(academyID uint, today time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, i := range r.installments {
		if i.AcademyID != academyID || i.Status != models.InstallmentStatusAwaiting || i.PaidAt != nil {
			continue
		}
		if calendar.DaysPast(i.DueDate, today) >= 1 {
			i.Status = models.InstallmentStatusOverdue
			r.installments[id] = i
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) CreatePackageContract(c *models.PackageContract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.nextID()
	r.contracts[c.ID] = *c
	return nil
}

func (r *memoryRepo) GetPackageContract(id uint) (*models.PackageContract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contracts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r *memoryRepo) UpdatePackageContractStatus(id uint, from []string, to string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contracts[id]
	if !ok || !contains(from, c.Status) {
		return false, nil
	}
	c.Status = to
	r.contracts[id] = c
	return true, nil
}

func (r *memoryRepo) CreateBeneficiary(b *models.PackageBeneficiary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.ID = r.nextID()
	r.beneficiaries[b.ID] = *b
	return nil
}

func (r *memoryRepo) ListBeneficiaries(contractID uint) ([]models.PackageBeneficiary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PackageBeneficiary
	for _, b := range r.beneficiaries {
		if b.PackageContractID == contractID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (r *memoryRepo) SettleBeneficiaries(contractID uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, b := range r.beneficiaries {
		if b.PackageContractID == contractID && b.Status == models.InstallmentStatusAwaiting {
			b.Status = models.InstallmentStatusPaid
			t := at
			b.SettledAt = &t
			r.beneficiaries[id] = b
		}
	}
	return nil
}

func (r *memoryRepo) CreateSubscription(s *models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = r.nextID()
	r.subscriptions[s.ID] = *s
	return nil
}

func (r *memoryRepo) SaveSubscription(s *models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subscriptions[s.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.subscriptions[s.ID] = *s
	return nil
}

func (r *memoryRepo) GetSubscriptionByEnrollment(enrollmentID uint) (*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subscriptions {
		if s.EnrollmentID != nil && *s.EnrollmentID == enrollmentID {
			found := s
			return &found, nil
		}
	}
	return nil, nil
}

func (r *memoryRepo) GetSubscriptionByGatewayID(gatewaySubscriptionID string) (*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subscriptions {
		if s.GatewaySubscriptionID == gatewaySubscriptionID {
			found := s
			return &found, nil
		}
	}
	return nil, nil
}

func (r *memoryRepo) DetachSubscriptionFromEnrollment(enrollmentID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.subscriptions {
		if s.EnrollmentID != nil && *s.EnrollmentID == enrollmentID {
			s.EnrollmentID = nil
			r.subscriptions[id] = s
		}
	}
	return nil
}

func (r *memoryRepo) UpsertGatewayPayment(p *models.GatewayPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.gatewayPayments {
		if existing.GatewayPaymentID == p.GatewayPaymentID {
			p.ID = id
			r.gatewayPayments[id] = *p
			return nil
		}
	}
	p.ID = r.nextID()
	r.gatewayPayments[p.ID] = *p
	return nil
}

func (r *memoryRepo) GetGatewayPaymentByGatewayID(gatewayPaymentID string) (*models.GatewayPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.gatewayPayments {
		if p.GatewayPaymentID == gatewayPaymentID {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (r *memoryRepo) DeleteGatewayPaymentsByEnrollment(enrollmentID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.gatewayPayments {
		if p.EnrollmentID != nil && *p.EnrollmentID == enrollmentID {
			delete(r.gatewayPayments, id)
		}
	}
	return nil
}

func (r *memoryRepo) CreateRenewalHistory(h *models.RenewalHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h.ID = r.nextID()
	r.histories = append(r.histories, *h)
	return nil
}

func (r *memoryRepo) CreateWebhookRecord(rec *models.WebhookRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.ID = r.nextID()
	r.webhooks[rec.ID] = *rec
	return nil
}

func (r *memoryRepo) SaveWebhookRecord(rec *models.WebhookRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.webhooks[rec.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.webhooks[rec.ID] = *rec
	return nil
}

func (r *memoryRepo) GetWebhookRecordByUUID(uuid string) (*models.WebhookRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.webhooks {
		if rec.UUID == uuid {
			found := rec
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryRepo) countEnrollments() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.enrollments)
}

func (r *memoryRepo) countInstallments(enrollmentID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, i := range r.installments {
		if i.EnrollmentID == enrollmentID {
			n++
		}
	}
	return n
}

func (r *memoryRepo) countContracts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contracts)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
