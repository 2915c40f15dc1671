package support

// Icon is the printed verdict of a package or artifact.
type Icon int

const (
	IconSuccess Icon = iota
	IconFailure
	IconMaybe
	IconSkipped
)

// Symbol returns the glyph printed for the icon.
func (i Icon) Symbol() string {
	switch i {
	case IconSuccess:
		return "✅"
	case IconFailure:
		return "❌"
	case IconMaybe:
		return "❓"
	default:
		return "⏩"
	}
}

// Verdict maps a classification to an icon. featureActive reports whether
// a feature of the same crate is enabled in the build under test.
func (c CrateSupport) Verdict(featureActive func(name string) bool) Icon {
	switch c.kind {
	case KindSkipped:
		return IconSkipped
	case KindOnlyWithoutFeature:
		if featureActive != nil && featureActive(c.feature) {
			return IconMaybe
		}
		return IconSuccess
	case KindSourceOffenses:
		if c.Has(OffenseMissingOptInAttribute) {
			return IconFailure
		}
		return IconMaybe
	default:
		return IconSuccess
	}
}
