package features

import (
	"maps"
	"slices"
	"sort"
)

// Feature identifies a feature of a specific package.
type Feature struct {
	PackageID string
	Name      string
}

// FeatureSet is a set of package features. Only membership is meaningful.
type FeatureSet map[Feature]struct{}

// Add inserts f and reports whether it was new.
func (s FeatureSet) Add(f Feature) bool {
	if _, ok := s[f]; ok {
		return false
	}
	s[f] = struct{}{}
	return true
}

// Has reports whether the feature name of pkgID is in the set.
func (s FeatureSet) Has(pkgID, name string) bool {
	_, ok := s[Feature{PackageID: pkgID, Name: name}]
	return ok
}

// Names returns the sorted feature names active for pkgID.
func (s FeatureSet) Names(pkgID string) []string {
	var out []string
	for f := range s {
		if f.PackageID == pkgID {
			out = append(out, f.Name)
		}
	}
	sort.Strings(out)
	return out
}

// Union adds every element of other and returns s.
func (s FeatureSet) Union(other FeatureSet) FeatureSet {
	maps.Copy(s, other)
	return s
}

// IsSubset reports whether every element of s is in other.
func (s FeatureSet) IsSubset(other FeatureSet) bool {
	for f := range s {
		if _, ok := other[f]; !ok {
			return false
		}
	}
	return true
}

// DependencyRef points at one dependency edge of a package.
type DependencyRef struct {
	PackageID string
	Index     int // index into Package.Dependencies
}

// DependencySet is a set of dependency edges that remembers discovery order.
// The zero value is ready to use.
type DependencySet struct {
	order []DependencyRef
	seen  map[DependencyRef]struct{}
}

// Add inserts ref and reports whether it was new.
func (s *DependencySet) Add(ref DependencyRef) bool {
	if s.seen == nil {
		s.seen = make(map[DependencyRef]struct{})
	}
	if _, ok := s.seen[ref]; ok {
		return false
	}
	s.seen[ref] = struct{}{}
	s.order = append(s.order, ref)
	return true
}

// Has reports whether ref is in the set.
func (s *DependencySet) Has(ref DependencyRef) bool {
	_, ok := s.seen[ref]
	return ok
}

// Len returns the number of edges.
func (s *DependencySet) Len() int { return len(s.order) }

// Refs returns the edges in discovery order.
func (s *DependencySet) Refs() []DependencyRef { return slices.Clone(s.order) }

// IsSubset reports whether every edge of s is in other.
func (s *DependencySet) IsSubset(other *DependencySet) bool {
	for _, r := range s.order {
		if !other.Has(r) {
			return false
		}
	}
	return true
}
