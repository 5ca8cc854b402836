package controllers

import (
	"sync"

	"github.com/acsk/AppCheckin-sub000/app/repository"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/calendar"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/database"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/gateway"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/mail"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/membership"
)

// Services bundles the membership engines the controllers dispatch into.
// Everything shares one repository bound to the global database handle.
type Services struct {
	Repo      membership.Repository
	Lifecycle *membership.LifecycleService
	Decay     *membership.DecayEngine
	Resolver  *membership.Resolver
	Reconcile *membership.ReconcileEngine
	Fanout    *membership.FanoutService
	Processor *membership.Processor
}

var (
	services     *Services
	servicesOnce sync.Once
)

// GetRepositories returns the shared read-side repository bundle. The
// factory panics if the database was never initialized, which is the same
// contract the services carry.
func GetRepositories() *repository.Repositories {
	return repository.GetGlobalFactory().GetRepositories()
}

// GetServices returns the process-wide service bundle, building it on first
// use. database.SetupDatabase must have run before the first request.
func GetServices() *Services {
	servicesOnce.Do(func() {
		repo := membership.NewRepository(database.GetDB())
		clock := calendar.SystemClock{}
		notifier := mail.NewReceiptNotifier(repo)
		reconcile := membership.NewReconcileEngine(repo, clock, notifier)
		resolver := membership.NewResolver(repo, clock)

		services = &Services{
			Repo:      repo,
			Lifecycle: membership.NewLifecycleService(repo, clock),
			Decay:     membership.NewDecayEngine(repo, clock),
			Resolver:  resolver,
			Reconcile: reconcile,
			Fanout:    membership.NewFanoutService(repo, clock),
			Processor: membership.NewProcessor(repo, gateway.NewClientFromEnv(), resolver, reconcile, clock),
		}
	})
	return services
}
