package support

import (
	"cmp"
	"slices"
)

// OffenseKind enumerates the source-level problems a crate can have.
// The order of the constants is the reporting order.
type OffenseKind int

const (
	// OffenseMissingOptInAttribute: no #![no_std] or recognised conditional form.
	OffenseMissingOptInAttribute OffenseKind = iota
	// OffenseUnsupportedAttribute: a cfg_attr(..., no_std) whose condition
	// cannot be interpreted, e.g. all(...) or several features.
	OffenseUnsupportedAttribute
	// OffenseSourceUnreadable: the entry file could not be read.
	OffenseSourceUnreadable
	// OffenseExplicitRuntimeUse: a line importing from std.
	OffenseExplicitRuntimeUse
)

// SourceOffense is one problem found in a crate's entry source.
type SourceOffense struct {
	Kind OffenseKind
	Text string // offending line, attribute or read error; empty for a missing attribute
}

// MissingOptInAttribute reports a crate root without a no_std attribute.
func MissingOptInAttribute() SourceOffense {
	return SourceOffense{Kind: OffenseMissingOptInAttribute}
}

// ExplicitRuntimeUse reports a line that imports from std.
func ExplicitRuntimeUse(line string) SourceOffense {
	return SourceOffense{Kind: OffenseExplicitRuntimeUse, Text: line}
}

// UnsupportedAttribute reports a conditional no_std attribute that could
// not be interpreted.
func UnsupportedAttribute(attr string) SourceOffense {
	return SourceOffense{Kind: OffenseUnsupportedAttribute, Text: attr}
}

// SourceUnreadable reports an entry file that could not be read.
func SourceUnreadable(reason string) SourceOffense {
	return SourceOffense{Kind: OffenseSourceUnreadable, Text: reason}
}

// Compare orders offenses by kind, then text.
func Compare(a, b SourceOffense) int {
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	return cmp.Compare(a.Text, b.Text)
}

// normalize sorts and de-duplicates offenses. A missing attribute makes
// explicit-use findings meaningless, so they are dropped alongside it.
func normalize(offenses []SourceOffense) []SourceOffense {
	out := slices.Clone(offenses)
	slices.SortFunc(out, Compare)
	out = slices.Compact(out)
	if slices.ContainsFunc(out, func(o SourceOffense) bool { return o.Kind == OffenseMissingOptInAttribute }) {
		out = slices.DeleteFunc(out, func(o SourceOffense) bool { return o.Kind == OffenseExplicitRuntimeUse })
	}
	return out
}
