// Package version wraps semantic-version handling for release tags and
// user-reported SDK versions.
package version

import (
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Parse parses a version string, tolerating a leading "v".
func Parse(raw string) (*semver.Version, error) {
	return semver.NewVersion(strings.TrimSpace(raw))
}

// Valid reports whether raw parses as a semantic version.
func Valid(raw string) bool {
	_, err := Parse(raw)
	return err == nil
}

// IsPrerelease reports whether raw carries a pre-release component.
// Unparseable input is not a pre-release.
func IsPrerelease(raw string) bool {
	v, err := Parse(raw)
	if err != nil {
		return false
	}
	return v.Prerelease() != ""
}

// After reports whether a is strictly greater than b. Unparseable input on
// either side yields false.
func After(a, b string) bool {
	va, err := Parse(a)
	if err != nil {
		return false
	}
	vb, err := Parse(b)
	if err != nil {
		return false
	}
	return va.GreaterThan(vb)
}

// Compare orders two parseable versions. Unparseable versions sort before
// parseable ones and compare equal to each other.
func Compare(a, b string) int {
	va, errA := Parse(a)
	vb, errB := Parse(b)
	switch {
	case errA != nil && errB != nil:
		return 0
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	}
	return va.Compare(vb)
}

// Display strips a redundant leading "v" from a tag.
func Display(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) > 1 && (s[0] == 'v' || s[0] == 'V') && s[1] >= '0' && s[1] <= '9' {
		return s[1:]
	}
	return s
}

// Span is the oldest and newest stable version of a set of tags.
type Span struct {
	Oldest string
	Newest string
}

// StableSpan returns the span of stable tags. ok is false when no tag is a
// parseable stable version.
func StableSpan(tags []string) (Span, bool) {
	stable := make([]string, 0, len(tags))
	for _, tag := range tags {
		if Valid(tag) && !IsPrerelease(tag) {
			stable = append(stable, tag)
		}
	}
	if len(stable) == 0 {
		return Span{}, false
	}
	sort.SliceStable(stable, func(i, j int) bool {
		return Compare(stable[i], stable[j]) < 0
	})
	return Span{Oldest: Display(stable[0]), Newest: Display(stable[len(stable)-1])}, true
}
