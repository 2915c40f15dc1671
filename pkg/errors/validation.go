package errors

import (
	"strings"
	"unicode"
)

// ValidatePackageName validates a package name passed on the command line
// (--package, --allowed). Cargo package names are ASCII alphanumerics plus
// '-' and '_'; anything else can never match a package in the graph and is
// almost always a typo or a stray separator.
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "package name cannot be empty")
	}

	if len(name) > 64 {
		return New(ErrCodeInvalidPackage, "package name too long (max 64 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPackage, "package name contains invalid control characters")
		}
		if !isNameRune(r) {
			return New(ErrCodeInvalidPackage, "package name %q contains invalid character %q", name, r)
		}
	}

	return nil
}

// ValidateFeatureName validates a requested feature. Besides plain names,
// cargo accepts "dep/feature" to request a feature of a dependency directly.
func ValidateFeatureName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidFeature, "feature name cannot be empty")
	}

	parts := strings.Split(name, "/")
	if len(parts) > 2 {
		return New(ErrCodeInvalidFeature, "feature %q has more than one '/'", name)
	}
	for _, part := range parts {
		part = strings.TrimPrefix(strings.TrimSuffix(part, "?"), "dep:")
		if part == "" {
			return New(ErrCodeInvalidFeature, "feature %q has an empty component", name)
		}
		for _, r := range part {
			if !isNameRune(r) && r != '+' && r != '.' {
				return New(ErrCodeInvalidFeature, "feature %q contains invalid character %q", name, r)
			}
		}
	}
	return nil
}

func isNameRune(r rune) bool {
	return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_')
}
