package ir

import (
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Version identifies one ingested build. Two versions are equal when their
// NFC-normalised labels are equal.
type Version string

// NewVersion normalises a label into a Version.
func NewVersion(label string) Version {
	return Version(norm.NFC.String(strings.TrimSpace(label)))
}

func (v Version) String() string {
	return string(v)
}

// CompareVersions orders versions naturally: runs of digits compare
// numerically, everything else compares bytewise. "9" sorts before "10" and
// "IU-173.4301" before "IU-181.2260".
func CompareVersions(a, b Version) int {
	x, y := string(a), string(b)
	for x != "" && y != "" {
		xr, xnum := leadingRun(x)
		yr, ynum := leadingRun(y)
		var c int
		if xnum && ynum {
			c = compareDigits(xr, yr)
		} else {
			c = strings.Compare(xr, yr)
		}
		if c != 0 {
			return c
		}
		x, y = x[len(xr):], y[len(yr):]
	}
	return strings.Compare(x, y)
}

func leadingRun(s string) (run string, digits bool) {
	digits = isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == digits {
		i++
	}
	return s[:i], digits
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// VersionSet is an insertion-ordered set of versions. The zero value is an
// empty set ready to use.
type VersionSet struct {
	items []Version
	index map[Version]struct{}
}

// NewVersionSet builds a set from versions, dropping duplicates.
func NewVersionSet(versions ...Version) VersionSet {
	var s VersionSet
	for _, v := range versions {
		s.Add(v)
	}
	return s
}

// Add inserts v and reports whether it was new.
func (s *VersionSet) Add(v Version) bool {
	if s.index == nil {
		s.index = make(map[Version]struct{})
	}
	if _, ok := s.index[v]; ok {
		return false
	}
	s.index[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

// Union adds every version of other.
func (s *VersionSet) Union(other VersionSet) {
	for _, v := range other.items {
		s.Add(v)
	}
}

// Contains reports membership.
func (s VersionSet) Contains(v Version) bool {
	_, ok := s.index[v]
	return ok
}

// Len is the number of versions.
func (s VersionSet) Len() int {
	return len(s.items)
}

// First is the earliest inserted version, or "" for an empty set.
func (s VersionSet) First() Version {
	if len(s.items) == 0 {
		return ""
	}
	return s.items[0]
}

// Slice returns the versions in insertion order.
func (s VersionSet) Slice() []Version {
	return slices.Clone(s.items)
}

// Sorted returns the versions in natural order.
func (s VersionSet) Sorted() []Version {
	out := slices.Clone(s.items)
	slices.SortFunc(out, CompareVersions)
	return out
}

// Strings returns Sorted as plain strings.
func (s VersionSet) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, v := range sorted {
		out[i] = string(v)
	}
	return out
}

// Equal reports set equality, ignoring order.
func (s VersionSet) Equal(other VersionSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, v := range s.items {
		if !other.Contains(v) {
			return false
		}
	}
	return true
}
