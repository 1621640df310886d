package mcp

import (
	"fmt"
	"strconv"
	"strings"
)

// ProtocolVersion is the only MCP version this package speaks.
const ProtocolVersion = "2.1"

// Version is a parsed major.minor pair.
type Version struct {
	Major int
	Minor int
}

// ParseVersion parses "major" or "major.minor".  A missing minor is 0.
func ParseVersion(s string) (Version, error) {
	majorStr, minorStr, hasMinor := strings.Cut(strings.TrimSpace(s), ".")
	major, err := strconv.Atoi(majorStr)
	if err != nil || major < 0 {
		return Version{}, fmt.Errorf("%w: %q", ErrMalformedVersion, s)
	}
	var minor int
	if hasMinor {
		minor, err = strconv.Atoi(minorStr)
		if err != nil || minor < 0 {
			return Version{}, fmt.Errorf("%w: %q", ErrMalformedVersion, s)
		}
	}
	return Version{Major: major, Minor: minor}, nil
}

// Compare returns -1, 0 or 1 as v is less than, equal to or greater than o.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major < o.Major:
		return -1
	case v.Major > o.Major:
		return 1
	case v.Minor < o.Minor:
		return -1
	case v.Minor > o.Minor:
		return 1
	}
	return 0
}

func (v Version) String() string {
	return strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor)
}

// CompareVersions compares two dotted version strings.
func CompareVersions(a, b string) (int, error) {
	va, err := ParseVersion(a)
	if err != nil {
		return 0, err
	}
	vb, err := ParseVersion(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

// SharedMaxVersion returns the highest version inside both [aMin, aMax]
// and [bMin, bMax].  That is the lower of the two maxima, so the result
// never exceeds what the less capable side declared.  It returns
// ErrNoSharedVersion when the ranges do not overlap.
func SharedMaxVersion(aMin, aMax, bMin, bMax string) (string, error) {
	var vs [4]Version
	for i, s := range [4]string{aMin, aMax, bMin, bMax} {
		v, err := ParseVersion(s)
		if err != nil {
			return "", err
		}
		vs[i] = v
	}
	if vs[1].Compare(vs[2]) < 0 || vs[3].Compare(vs[0]) < 0 {
		return "", ErrNoSharedVersion
	}
	if vs[1].Compare(vs[3]) < 0 {
		return aMax, nil
	}
	return bMax, nil
}
