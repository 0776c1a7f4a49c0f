// Package bump computes the next semantic version for a release.
//
// Versions have the shape major.minor.patch with an optional -beta.N suffix.
// A Bump is a closed set of kinds; a manual bump carries a literal version
// that is used as-is.
package bump

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"

	devkiterrors "github.com/conneroisu/devkit/internal/errors"
)

// Kind is the requested category of version increment.
type Kind int

const (
	KindInvalid Kind = iota
	KindMajor
	KindMinor
	KindPatch
	KindBeta
	KindManual
)

// String returns the keyword for the kind.
func (k Kind) String() string {
	switch k {
	case KindMajor:
		return "major"
	case KindMinor:
		return "minor"
	case KindPatch:
		return "patch"
	case KindBeta:
		return "beta"
	case KindManual:
		return "manual"
	default:
		return "invalid"
	}
}

// Bump is a classified version bump request.
type Bump struct {
	Kind Kind
	// Literal is the requested version for KindManual and the raw input otherwise.
	Literal string
}

// String returns the operator-facing form of the bump.
func (b Bump) String() string {
	if b.Kind == KindManual {
		return b.Literal
	}
	return b.Kind.String()
}

// Classify maps an operator-supplied keyword to a Bump. Anything that is
// neither a known keyword nor a semantic version is KindInvalid.
func Classify(input string) Bump {
	s := strings.TrimSpace(input)
	switch s {
	case "major":
		return Bump{Kind: KindMajor, Literal: s}
	case "minor":
		return Bump{Kind: KindMinor, Literal: s}
	case "patch":
		return Bump{Kind: KindPatch, Literal: s}
	case "beta":
		return Bump{Kind: KindBeta, Literal: s}
	}

	if isSemver(s) {
		return Bump{Kind: KindManual, Literal: s}
	}

	return Bump{Kind: KindInvalid, Literal: s}
}

// Validate returns a validation error for an invalid bump.
func (b Bump) Validate() error {
	if b.Kind == KindInvalid {
		return devkiterrors.NewValidationError(devkiterrors.ErrCodeInvalidBump,
			fmt.Sprintf("invalid version bump %q: use major, minor, patch, beta or x.y.z", b.Literal))
	}
	return nil
}

// isSemver reports whether s is a full major.minor.patch semantic version,
// with optional prerelease and build metadata. A leading "v" is rejected.
func isSemver(s string) bool {
	if s == "" || strings.HasPrefix(s, "v") {
		return false
	}
	v := "v" + s
	if !semver.IsValid(v) {
		return false
	}
	// semver.IsValid accepts the shorthands v1 and v1.2.
	core := strings.SplitN(strings.SplitN(s, "+", 2)[0], "-", 2)[0]
	return strings.Count(core, ".") == 2
}

// Version is a parsed major.minor.patch[-beta.N] version.
type Version struct {
	Major int
	Minor int
	Patch int
	// Beta is zero for a regular release.
	Beta int
}

var versionPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:-beta\.([1-9]\d*))?$`)

// ParseVersion parses a version in the major.minor.patch[-beta.N] format.
func ParseVersion(s string) (Version, error) {
	m := versionPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Version{}, devkiterrors.NewValidationError(devkiterrors.ErrCodeVersionFormat,
			fmt.Sprintf("version %q does not match major.minor.patch[-beta.N]", s))
	}

	var v Version
	var err error
	fields := []*int{&v.Major, &v.Minor, &v.Patch, &v.Beta}
	for i, field := range fields {
		if m[i+1] == "" {
			continue
		}
		if *field, err = strconv.Atoi(m[i+1]); err != nil {
			return Version{}, devkiterrors.NewValidationError(devkiterrors.ErrCodeVersionFormat,
				fmt.Sprintf("version %q has an out-of-range component", s))
		}
	}

	return v, nil
}

// IsBeta reports whether the version carries a beta suffix.
func (v Version) IsBeta() bool {
	return v.Beta > 0
}

// String formats the version.
func (v Version) String() string {
	base := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.IsBeta() {
		return fmt.Sprintf("%s-beta.%d", base, v.Beta)
	}
	return base
}

// Compare returns -1, 0 or 1. A beta sorts before the release it precedes.
func (v Version) Compare(o Version) int {
	for _, d := range []int{v.Major - o.Major, v.Minor - o.Minor, v.Patch - o.Patch} {
		if d < 0 {
			return -1
		}
		if d > 0 {
			return 1
		}
	}
	switch {
	case v.Beta == o.Beta:
		return 0
	case v.Beta == 0:
		return 1
	case o.Beta == 0:
		return -1
	case v.Beta < o.Beta:
		return -1
	default:
		return 1
	}
}

// Apply returns the version that follows v under the bump kind. Manual
// bumps are not handled here because they do not depend on v.
func (v Version) Apply(kind Kind) (Version, error) {
	switch kind {
	case KindMajor:
		return Version{Major: v.Major + 1}, nil
	case KindMinor:
		return Version{Major: v.Major, Minor: v.Minor + 1}, nil
	case KindPatch:
		if v.IsBeta() {
			// Finishing a beta series releases the patch the betas led up to.
			return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch}, nil
		}
		return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}, nil
	case KindBeta:
		if v.IsBeta() {
			return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch, Beta: v.Beta + 1}, nil
		}
		return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1, Beta: 1}, nil
	case KindManual, KindInvalid:
		return Version{}, fmt.Errorf("bump kind %s has no arithmetic", kind)
	default:
		panic(fmt.Sprintf("bump: unhandled kind %d", kind))
	}
}

// Next computes the new version string for current under b.
func Next(current string, b Bump) (string, error) {
	if err := b.Validate(); err != nil {
		return "", err
	}
	if b.Kind == KindManual {
		return b.Literal, nil
	}

	v, err := ParseVersion(current)
	if err != nil {
		return "", err
	}

	next, err := v.Apply(b.Kind)
	if err != nil {
		return "", err
	}
	return next.String(), nil
}
