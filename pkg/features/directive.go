package features

import "strings"

// DirectiveKind classifies a feature-table entry.
type DirectiveKind int

const (
	// DirectiveFeature activates another feature of the same package.
	DirectiveFeature DirectiveKind = iota
	// DirectiveDependency activates an optional dependency ("dep:name").
	DirectiveDependency
	// DirectiveDependencyFeature activates a feature on a dependency ("name/feat").
	DirectiveDependencyFeature
)

// Directive is one parsed activation directive.
type Directive struct {
	Kind       DirectiveKind
	Feature    string // feature name; empty for DirectiveDependency
	Dependency string // dependency local name; empty for DirectiveFeature
	Weak       bool   // "name?/feat"
}

// ParseDirective parses a feature-table entry or a requested feature name.
// Parsing never fails: anything that is not a dependency form is a feature name.
func ParseDirective(s string) Directive {
	if dep, ok := strings.CutPrefix(s, "dep:"); ok {
		return Directive{Kind: DirectiveDependency, Dependency: dep}
	}
	if dep, feat, ok := strings.Cut(s, "/"); ok {
		weak := strings.HasSuffix(dep, "?")
		return Directive{
			Kind:       DirectiveDependencyFeature,
			Dependency: strings.TrimSuffix(dep, "?"),
			Feature:    feat,
			Weak:       weak,
		}
	}
	return Directive{Kind: DirectiveFeature, Feature: s}
}

// String renders the directive in Cargo.toml syntax.
func (d Directive) String() string {
	switch d.Kind {
	case DirectiveDependency:
		return "dep:" + d.Dependency
	case DirectiveDependencyFeature:
		if d.Weak {
			return d.Dependency + "?/" + d.Feature
		}
		return d.Dependency + "/" + d.Feature
	default:
		return d.Feature
	}
}
