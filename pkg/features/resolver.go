package features

import (
	"slices"
	"sort"

	"github.com/pykeio/cargo-no-std/pkg/errors"
	"github.com/pykeio/cargo-no-std/pkg/metadata"
)

// Activation records a feature requested of a dependency and which feature
// of the requesting package asked for it. By is empty for features
// requested directly (command line or dependency declaration).
type Activation struct {
	Feature string
	By      string
}

// Resolution is the outcome of resolving one package.
type Resolution struct {
	PackageID    string
	Features     FeatureSet
	Dependencies DependencySet

	// Forwarded maps a dependency's local name to the features this
	// package requests of it, in discovery order.
	Forwarded map[string][]Activation

	// Origins maps each active feature to the feature that activated it.
	// Features seeded from the request have no entry.
	Origins map[Feature]Feature

	// Unknown lists requested names that matched neither a feature nor a
	// dependency. Only lenient resolution (dependencies) fills it.
	Unknown []string
}

// FeatureNames returns the sorted active feature names of the package.
func (r *Resolution) FeatureNames() []string { return r.Features.Names(r.PackageID) }

// Resolve computes the active features and dependency edges of a package.
//
// requested names may use any directive form ("std", "dep:log",
// "serde/alloc"). When useDefaults is set, the package's "default" feature
// is requested as well, if it declares one. A requested name the package
// does not know is a GraphLookupFailure.
func Resolve(g *metadata.Metadata, packageID string, requested []string, useDefaults bool) (*Resolution, error) {
	pkg, err := g.FindPackage(packageID)
	if err != nil {
		return nil, err
	}
	return resolvePackage(pkg, requested, useDefaults, true)
}

type queued struct {
	directive Directive
	by        Feature
	requested bool
}

type pendingForward struct {
	directive Directive
	by        string
}

func resolvePackage(pkg *metadata.Package, requested []string, useDefaults, strict bool) (*Resolution, error) {
	res := &Resolution{
		PackageID: pkg.ID,
		Features:  make(FeatureSet),
		Forwarded: make(map[string][]Activation),
		Origins:   make(map[Feature]Feature),
	}

	for i, d := range pkg.Dependencies {
		if !d.Optional && isTargetKind(d.Kind) {
			res.Dependencies.Add(DependencyRef{PackageID: pkg.ID, Index: i})
		}
	}

	names := slices.Clone(requested)
	sort.Strings(names)
	names = slices.Compact(names)
	if useDefaults && pkg.HasFeature(metadata.DefaultFeature) && !slices.Contains(names, metadata.DefaultFeature) {
		names = append([]string{metadata.DefaultFeature}, names...)
	}

	queue := make([]queued, 0, len(names))
	for _, n := range names {
		queue = append(queue, queued{directive: ParseDirective(n), requested: true})
	}

	var forwards []pendingForward
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		d := item.directive

		switch d.Kind {
		case DirectiveFeature:
			f := Feature{PackageID: pkg.ID, Name: d.Feature}
			if res.Features.Has(pkg.ID, d.Feature) {
				continue
			}
			directives, declared := pkg.Features[d.Feature]
			_, optional := pkg.OptionalDependency(d.Feature)
			if !declared && !optional {
				if err := res.unknown(pkg, item, strict); err != nil {
					return nil, err
				}
				continue
			}
			res.Features.Add(f)
			if !item.requested {
				res.Origins[f] = item.by
			}
			if !declared {
				// Implicit feature of an optional dependency.
				res.activateOptional(pkg, d.Feature)
				continue
			}
			for _, raw := range directives {
				queue = append(queue, queued{directive: ParseDirective(raw), by: f})
			}

		case DirectiveDependency:
			if !res.activateOptional(pkg, d.Dependency) {
				if err := res.unknown(pkg, item, strict); err != nil {
					return nil, err
				}
			}

		case DirectiveDependencyFeature:
			if len(pkg.DependenciesNamed(d.Dependency)) == 0 {
				if err := res.unknown(pkg, item, strict); err != nil {
					return nil, err
				}
				continue
			}
			if !d.Weak {
				res.activateOptional(pkg, d.Dependency)
			}
			forwards = append(forwards, pendingForward{directive: d, by: item.by.Name})
		}
	}

	// Weak requests only apply once the whole package is resolved, because
	// the dependency may be activated after the request was seen.
	for _, fw := range forwards {
		d := fw.directive
		if d.Weak && !res.dependencyActive(pkg, d.Dependency) {
			continue
		}
		a := Activation{Feature: d.Feature, By: fw.by}
		if !slices.Contains(res.Forwarded[d.Dependency], a) {
			res.Forwarded[d.Dependency] = append(res.Forwarded[d.Dependency], a)
		}
	}

	return res, nil
}

func (r *Resolution) unknown(pkg *metadata.Package, item queued, strict bool) error {
	if strict && item.requested {
		return errors.New(errors.ErrCodeGraphLookup, "package %s does not have feature %q", pkg.Name, item.directive.String())
	}
	if item.requested {
		r.Unknown = append(r.Unknown, item.directive.String())
	}
	return nil
}

// activateOptional activates every optional edge with the given local name.
func (r *Resolution) activateOptional(pkg *metadata.Package, name string) bool {
	found := false
	for _, i := range pkg.DependenciesNamed(name) {
		d := pkg.Dependencies[i]
		if !d.Optional || !isTargetKind(d.Kind) {
			continue
		}
		r.Dependencies.Add(DependencyRef{PackageID: pkg.ID, Index: i})
		found = true
	}
	return found
}

func (r *Resolution) dependencyActive(pkg *metadata.Package, name string) bool {
	for _, i := range pkg.DependenciesNamed(name) {
		if r.Dependencies.Has(DependencyRef{PackageID: pkg.ID, Index: i}) {
			return true
		}
	}
	return false
}

// isTargetKind reports whether edges of this kind are compiled for the
// target. Dev dependencies are not part of the build and build
// dependencies run on the host.
func isTargetKind(kind string) bool {
	return kind == metadata.KindNormal
}
