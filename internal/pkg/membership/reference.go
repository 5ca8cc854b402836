package membership

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// External references are generated at checkout as MAT-<enrollmentId>-<unix>
// for single enrollments and PAC-<contractId>-<unix> for packages. The field
// is client-supplied and may arrive truncated, so parsing only requires the
// prefix and the numeric id.
var (
	enrollmentRefPattern = regexp.MustCompile(`^MAT-(\d+)(?:-|$)`)
	packageRefPattern    = regexp.MustCompile(`^PAC-(\d+)(?:-|$)`)
)

// BuildEnrollmentReference renders the checkout reference for an enrollment.
func BuildEnrollmentReference(enrollmentID uint, at time.Time) string {
	return fmt.Sprintf("MAT-%d-%d", enrollmentID, at.Unix())
}

// BuildPackageReference renders the checkout reference for a package
// contract.
func BuildPackageReference(contractID uint, at time.Time) string {
	return fmt.Sprintf("PAC-%d-%d", contractID, at.Unix())
}

// ParseReference extracts the target encoded in an external reference.
// Returns false when the reference is empty, malformed or uses an unknown
// prefix.
func ParseReference(ref string) (Target, bool) {
	if m := packageRefPattern.FindStringSubmatch(ref); m != nil {
		if id, err := strconv.ParseUint(m[1], 10, 64); err == nil && id > 0 {
			return Target{Kind: TargetPackage, ID: uint(id)}, true
		}
	}
	if m := enrollmentRefPattern.FindStringSubmatch(ref); m != nil {
		if id, err := strconv.ParseUint(m[1], 10, 64); err == nil && id > 0 {
			return Target{Kind: TargetEnrollment, ID: uint(id)}, true
		}
	}
	return Target{}, false
}
