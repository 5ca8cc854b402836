package membership

import (
	"strconv"
	"time"

	"github.com/acsk/AppCheckin-sub000/internal/pkg/calendar"
)

// recentEnrollmentWindow bounds the last-resort heuristic: older gateway
// client versions ship no reference at all, so the freshest enrollment of the
// paying student is accepted only when it was created within this window.
const recentEnrollmentWindow = time.Hour

// ResolveInput is everything the resolver may consult: the raw event plus the
// reference and metadata from the fetched gateway record.
type ResolveInput struct {
	Event             Event
	ExternalReference string
	Metadata          map[string]string
}

// resolverRule is one step of the layered fallback. It returns a target, or
// nil to pass to the next rule.
type resolverRule struct {
	name string
	fn   func(repo Repository, clock calendar.Clock, in ResolveInput) (*Target, error)
}

// Resolver maps an inbound gateway event to exactly one enrollment or package
// contract. Rules run in order; the first match wins. The reference field is
// client-supplied at checkout time and can be empty, truncated or produced by
// older client versions, hence the fallback chain.
type Resolver struct {
	repo  Repository
	clock calendar.Clock
	rules []resolverRule
}

func NewResolver(repo Repository, clock calendar.Clock) *Resolver {
	return &Resolver{
		repo:  repo,
		clock: clock,
		rules: []resolverRule{
			{name: "package_reference", fn: resolveByPackageReference},
			{name: "enrollment_reference", fn: resolveByEnrollmentReference},
			{name: "metadata", fn: resolveByMetadata},
			{name: "payment_mirror", fn: resolveByPaymentMirror},
			{name: "recent_enrollment", fn: resolveByRecentEnrollment},
		},
	}
}

// Resolve returns the resolved target and the name of the rule that matched.
// A miss across all rules is a hard failure carrying enough detail for the
// audit log; no financial mutation may follow it.
func (r *Resolver) Resolve(in ResolveInput) (Target, string, error) {
	for _, rule := range r.rules {
		target, err := rule.fn(r.repo, r.clock, in)
		if err != nil {
			return Target{}, "", err
		}
		if target != nil {
			return *target, rule.name, nil
		}
	}
	return Target{}, "", &UnresolvableEventError{
		EventType:  in.Event.Type,
		ExternalID: in.Event.ExternalID,
		Reference:  in.ExternalReference,
	}
}

func resolveByPackageReference(_ Repository, _ calendar.Clock, in ResolveInput) (*Target, error) {
	if t, ok := ParseReference(in.ExternalReference); ok && t.Kind == TargetPackage {
		return &t, nil
	}
	return nil, nil
}

func resolveByEnrollmentReference(_ Repository, _ calendar.Clock, in ResolveInput) (*Target, error) {
	if t, ok := ParseReference(in.ExternalReference); ok && t.Kind == TargetEnrollment {
		return &t, nil
	}
	return nil, nil
}

func resolveByMetadata(_ Repository, _ calendar.Clock, in ResolveInput) (*Target, error) {
	if id := metadataID(in.Metadata, metaEnrollmentID); id > 0 {
		return &Target{Kind: TargetEnrollment, ID: id}, nil
	}
	if id := metadataID(in.Metadata, metaContractID); id > 0 {
		return &Target{Kind: TargetPackage, ID: id}, nil
	}
	return nil, nil
}

// resolveByPaymentMirror looks up a previously recorded gateway payment by the
// event's payment id. Only payment events carry a payment id.
func resolveByPaymentMirror(repo Repository, _ calendar.Clock, in ResolveInput) (*Target, error) {
	if !in.Event.IsPaymentEvent() {
		return nil, nil
	}
	mirror, err := repo.GetGatewayPaymentByGatewayID(in.Event.ExternalID)
	if err != nil {
		return nil, err
	}
	if mirror == nil {
		return nil, nil
	}
	if mirror.EnrollmentID != nil {
		return &Target{Kind: TargetEnrollment, ID: *mirror.EnrollmentID}, nil
	}
	if mirror.PackageContractID != nil {
		return &Target{Kind: TargetPackage, ID: *mirror.PackageContractID}, nil
	}
	return nil, nil
}

func resolveByRecentEnrollment(repo Repository, clock calendar.Clock, in ResolveInput) (*Target, error) {
	studentID := metadataID(in.Metadata, metaStudentID)
	if studentID == 0 {
		return nil, nil
	}
	since := clock.Now().Add(-recentEnrollmentWindow)
	enrollment, err := repo.FindRecentEnrollmentByStudent(studentID, since)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, nil
	}
	return &Target{Kind: TargetEnrollment, ID: enrollment.ID}, nil
}

func metadataID(metadata map[string]string, key string) uint {
	raw, ok := metadata[key]
	if !ok || raw == "" {
		return 0
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}
