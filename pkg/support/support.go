package support

import (
	"fmt"
	"slices"
	"strings"
)

// Kind enumerates the CrateSupport variants.
type Kind int

const (
	KindNoOffenseDetected Kind = iota
	KindProcMacroCrate
	KindSkipped
	KindOnlyWithoutFeature
	KindSourceOffenses
)

func (k Kind) String() string {
	switch k {
	case KindNoOffenseDetected:
		return "NoOffenseDetected"
	case KindProcMacroCrate:
		return "ProcMacroCrate"
	case KindSkipped:
		return "Skipped"
	case KindOnlyWithoutFeature:
		return "OnlyWithoutFeature"
	case KindSourceOffenses:
		return "SourceOffenses"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// CrateSupport is the classification of one crate. Construct it with the
// variant functions; the zero value is NoOffenseDetected.
type CrateSupport struct {
	kind     Kind
	feature  string
	offenses []SourceOffense
}

// NoOffenseDetected: the crate opts into no_std and nothing contradicts it.
func NoOffenseDetected() CrateSupport { return CrateSupport{kind: KindNoOffenseDetected} }

// ProcMacroCrate: the crate is a procedural macro and runs on the host.
func ProcMacroCrate() CrateSupport { return CrateSupport{kind: KindProcMacroCrate} }

// Skipped: the crate is on the allow-list and was not inspected.
func Skipped() CrateSupport { return CrateSupport{kind: KindSkipped} }

// OnlyWithoutFeature: the crate is no_std unless feature is enabled.
func OnlyWithoutFeature(feature string) CrateSupport {
	return CrateSupport{kind: KindOnlyWithoutFeature, feature: feature}
}

// SourceOffenses collects source-level problems. With no offenses the
// result is NoOffenseDetected.
func SourceOffenses(offenses ...SourceOffense) CrateSupport {
	offenses = normalize(offenses)
	if len(offenses) == 0 {
		return NoOffenseDetected()
	}
	return CrateSupport{kind: KindSourceOffenses, offenses: offenses}
}

// Kind returns the variant.
func (c CrateSupport) Kind() Kind { return c.kind }

// Feature returns the feature of an OnlyWithoutFeature result.
func (c CrateSupport) Feature() string { return c.feature }

// Offenses returns the offenses of a SourceOffenses result, sorted.
func (c CrateSupport) Offenses() []SourceOffense { return slices.Clone(c.offenses) }

// Has reports whether an offense of the given kind is present.
func (c CrateSupport) Has(kind OffenseKind) bool {
	return slices.ContainsFunc(c.offenses, func(o SourceOffense) bool { return o.Kind == kind })
}

// Fails reports whether the crate disproves no_std support outright.
func (c CrateSupport) Fails() bool {
	return c.kind == KindSourceOffenses && c.Has(OffenseMissingOptInAttribute)
}

// Equal reports whether two classifications are identical.
func (c CrateSupport) Equal(other CrateSupport) bool {
	return c.kind == other.kind && c.feature == other.feature && slices.Equal(c.offenses, other.offenses)
}

func (c CrateSupport) String() string {
	switch c.kind {
	case KindOnlyWithoutFeature:
		return fmt.Sprintf("%s(%q)", c.kind, c.feature)
	case KindSourceOffenses:
		parts := make([]string, len(c.offenses))
		for i, o := range c.offenses {
			parts[i] = o.String()
		}
		return fmt.Sprintf("%s(%s)", c.kind, strings.Join(parts, ", "))
	}
	return c.kind.String()
}

func (o SourceOffense) String() string {
	switch o.Kind {
	case OffenseMissingOptInAttribute:
		return "MissingOptInAttribute"
	case OffenseUnsupportedAttribute:
		return fmt.Sprintf("UnsupportedAttribute(%q)", o.Text)
	case OffenseSourceUnreadable:
		return fmt.Sprintf("SourceUnreadable(%q)", o.Text)
	default:
		return fmt.Sprintf("ExplicitRuntimeUse(%q)", o.Text)
	}
}
