package support

import (
	"slices"

	"github.com/pykeio/cargo-no-std/pkg/metadata"
)

// Scanner inspects crate entry files.
type Scanner interface {
	Scan(paths []string) CrateSupport
}

// AllowList holds package names that are never inspected.
type AllowList map[string]struct{}

// NewAllowList builds an allow-list from names.
func NewAllowList(names ...string) AllowList {
	a := make(AllowList, len(names))
	for _, n := range names {
		a[n] = struct{}{}
	}
	return a
}

// Contains reports whether name is allowed.
func (a AllowList) Contains(name string) bool {
	_, ok := a[name]
	return ok
}

// Names returns the sorted names.
func (a AllowList) Names() []string {
	out := make([]string, 0, len(a))
	for n := range a {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// EntrySources returns the files the scanner reads for pkg: library roots,
// plus binary roots for the package under test.
func EntrySources(pkg *metadata.Package, isRoot bool) []string {
	paths := pkg.LibTargetSources()
	if isRoot {
		paths = append(paths, pkg.BinTargetSources()...)
	}
	return paths
}

// Classify assigns the single CrateSupport of pkg. First match wins:
//  1. allow-listed name: Skipped, source never read
//  2. proc-macro target: ProcMacroCrate
//  3. whatever the scanner returns for the entry sources
func Classify(pkg *metadata.Package, allowed AllowList, scanner Scanner, isRoot bool) CrateSupport {
	if allowed.Contains(pkg.Name) {
		return Skipped()
	}
	if pkg.IsProcMacro() {
		return ProcMacroCrate()
	}
	paths := EntrySources(pkg, isRoot)
	if len(paths) == 0 {
		return NoOffenseDetected()
	}
	return scanner.Scan(paths)
}
