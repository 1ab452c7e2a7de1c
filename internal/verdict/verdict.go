// Package verdict classifies version and age deltas into the traffic-light
// status shown on every dashboard card.
package verdict

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
)

// Color is the dashboard traffic-light colour for a card.
type Color string

const (
	ColorGreen  Color = "green"
	ColorOrange Color = "orange"
	ColorRed    Color = "red"
)

// Verdict strings persisted on cards. The dashboard matches on these values
// verbatim, including the capitalised "Upgrade" used for app major deltas.
const (
	VerdictOK         = "ok"
	VerdictReview     = "review"
	VerdictUpgrade    = "upgrade"
	VerdictAppUpgrade = "Upgrade"
	VerdictError      = "error during evaluation"
)

// ErrNotSemver is returned when a version string is not a plain
// MAJOR.MINOR.PATCH semantic version.
var ErrNotSemver = errors.New("not a semantic version number")

// Status is the outcome of a classification.
type Status struct {
	Reason    string `json:"reason,omitempty"`
	ColorCode Color  `json:"colorCode"`
	Verdict   string `json:"verdict"`
}

var (
	embeddedSemver = regexp.MustCompile(`(\d+\.\d+\.\d+)`)
	strictSemver   = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)$`)
)

// ExtractSemver returns the first MAJOR.MINOR.PATCH triple found in s,
// e.g. "v7.21.0-ee" -> "7.21.0".
func ExtractSemver(s string) (string, error) {
	m := embeddedSemver.FindString(s)
	if m == "" {
		return "", fmt.Errorf("extract version from %q: %w", s, ErrNotSemver)
	}
	return m, nil
}

// IsStrictSemver reports whether s is exactly MAJOR.MINOR.PATCH with no
// leading zeros, prefix or suffix.
func IsStrictSemver(s string) bool {
	return strictSemver.MatchString(s)
}

// Major returns the major component of a version string.
func Major(s string) (uint64, error) {
	v, err := parseLoose(s)
	if err != nil {
		return 0, err
	}
	return v.Major(), nil
}

// Minor returns the minor component of a version string.
func Minor(s string) (uint64, error) {
	v, err := parseLoose(s)
	if err != nil {
		return 0, err
	}
	return v.Minor(), nil
}

// Patch returns the patch component of a version string.
func Patch(s string) (uint64, error) {
	v, err := parseLoose(s)
	if err != nil {
		return 0, err
	}
	return v.Patch(), nil
}

// parseLoose accepts the version formats seen across the polled systems:
// "1.29.4", "v2.3.1", "10.2.9-h1" (PAN-OS hot fix), "11.1".
func parseLoose(s string) (*semver.Version, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("parse version %q: %w", s, ErrNotSemver)
	}
	return v, nil
}

// CompareVersions compares a running version against the latest available
// one. Both must be strict MAJOR.MINOR.PATCH strings.
//
// The first differing component decides the colour: major -> red, minor or
// patch -> orange. A current version ahead of latest is reported as an
// evaluation error in red.
func CompareVersions(current, latest string) (Status, error) {
	if !IsStrictSemver(current) || !IsStrictSemver(latest) {
		return Status{}, fmt.Errorf("compare %q with %q: %w", current, latest, ErrNotSemver)
	}
	cur := semver.MustParse(current)
	lat := semver.MustParse(latest)

	switch {
	case lat.Major() != cur.Major():
		if lat.Major() > cur.Major() {
			return Status{Reason: "Major versions are different", ColorCode: ColorRed, Verdict: VerdictAppUpgrade}, nil
		}
		return evaluationError("Current major version is higher than the latest major version, something went wrong!"), nil
	case lat.Minor() != cur.Minor():
		if lat.Minor() > cur.Minor() {
			return Status{Reason: "Minor versions are different", ColorCode: ColorOrange, Verdict: VerdictReview}, nil
		}
		return evaluationError("Current minor version is higher than the latest minor version, something went wrong!"), nil
	case lat.Patch() != cur.Patch():
		if lat.Patch() > cur.Patch() {
			return Status{Reason: "Patch versions are different", ColorCode: ColorOrange, Verdict: VerdictReview}, nil
		}
		return evaluationError("Current patch version is higher than the latest patch version, something went wrong!"), nil
	default:
		return Status{Reason: "Versions are the same", ColorCode: ColorGreen, Verdict: VerdictOK}, nil
	}
}

func evaluationError(reason string) Status {
	return Status{Reason: reason, ColorCode: ColorRed, Verdict: VerdictError}
}

// SoftwareVerdict classifies an installed firewall / management software
// version against the desired and latest vendor versions.
//
//   - two or more majors behind latest or desired: red / upgrade
//   - desired version unparseable: red / upgrade
//   - same major as desired, one or more minors behind: orange / review
//   - same major and minor as desired (or ahead): green / ok
//   - anything else (one major behind): orange / review
func SoftwareVerdict(installed, desired, latest string) Status {
	inst, err := parseLoose(installed)
	if err != nil {
		return Status{Reason: "Installed version unknown", ColorCode: ColorRed, Verdict: VerdictUpgrade}
	}
	if lat, err := parseLoose(latest); err == nil && majorGap(lat, inst) >= 2 {
		return Status{Reason: "Two or more major versions behind latest", ColorCode: ColorRed, Verdict: VerdictUpgrade}
	}
	des, err := parseLoose(desired)
	if err != nil {
		return Status{Reason: "Desired version unknown", ColorCode: ColorRed, Verdict: VerdictUpgrade}
	}
	if majorGap(des, inst) >= 2 {
		return Status{Reason: "Two or more major versions behind desired", ColorCode: ColorRed, Verdict: VerdictUpgrade}
	}
	if des.Major() == inst.Major() {
		if des.Minor() > inst.Minor() {
			return Status{Reason: "Minor version behind desired", ColorCode: ColorOrange, Verdict: VerdictReview}
		}
		return Status{Reason: "Desired version installed", ColorCode: ColorGreen, Verdict: VerdictOK}
	}
	if des.Major() < inst.Major() {
		return Status{Reason: "Installed version ahead of desired", ColorCode: ColorGreen, Verdict: VerdictOK}
	}
	return Status{Reason: "Major version behind desired", ColorCode: ColorOrange, Verdict: VerdictReview}
}

func majorGap(ahead, behind *semver.Version) int64 {
	return int64(ahead.Major()) - int64(behind.Major())
}
