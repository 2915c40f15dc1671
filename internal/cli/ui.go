package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pykeio/cargo-no-std/pkg/errors"
	"github.com/pykeio/cargo-no-std/pkg/pipeline"
	"github.com/pykeio/cargo-no-std/pkg/support"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - spinner
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	// StyleName for package names.
	StyleName = lipgloss.NewStyle().Bold(true)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	// StyleError for error messages.
	StyleError = lipgloss.NewStyle().Foreground(colorRed)

	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
)

// =============================================================================
// Messages
// =============================================================================

const (
	iconFeature = "★"
	iconOffense = "❯"
	iconChain   = "↳"

	msgCheckHeading  = "Checking crates for no_std support"
	msgVerifyHeading = "Checking crates for std linkage"

	msgOnlyWithoutFeature = "Crate supports no_std if %q feature is deactivated."
	msgMissingAttribute   = "Did not find a #![no_std] attribute or a simple conditional attribute like #![cfg_attr(not(feature = \"std\"), no_std)] in the crate source. Crate most likely doesn't support no_std without changes."
	msgExplicitUse        = "Source code contains an explicit `use std::` statement."
	msgUnsupported        = "Found a conditional no_std attribute this tool cannot interpret: %s"
	msgUnreadable         = "Could not read crate source: %s"

	msgReferencesStd   = "references std"
	msgNoReferences    = "contains no references to std"
	msgInconclusive    = "verification inconclusive: %s"
	msgVerifyDisabled  = "Binary verification is not available on this platform."
	msgUnresolvedNotes = "Some dependencies had no package record and were not checked: %s"
)

// =============================================================================
// Report Output
// =============================================================================

// printHeading prints a dim section heading.
func printHeading(w io.Writer, msg string) {
	fmt.Fprintln(w, StyleDim.Render(msg))
}

// printCheckReport prints one verdict line per package, followed by its
// explanation lines.
func printCheckReport(w io.Writer, report *pipeline.CheckReport) {
	for _, p := range report.Packages {
		fmt.Fprintf(w, "%s %s\n", p.Icon.Symbol(), StyleName.Render(p.Package.Name))
		printExplanation(w, report.Plan, p)
	}
	if u := report.Plan.Granted.Unresolved; len(u) > 0 {
		fmt.Fprintln(w, StyleDim.Render(fmt.Sprintf(msgUnresolvedNotes, strings.Join(u, ", "))))
	}
}

// printExplanation prints why a package did not get a plain success. A
// missing attribute ends the explanation, as nothing after it matters.
func printExplanation(w io.Writer, plan *pipeline.Plan, p pipeline.PackageReport) {
	cs := p.Support
	switch cs.Kind() {
	case support.KindOnlyWithoutFeature:
		if len(p.Chain) == 0 {
			return
		}
		detail(w, StyleSuccess, iconFeature, fmt.Sprintf(msgOnlyWithoutFeature, cs.Feature()))
		for i, f := range p.Chain[1:] {
			fmt.Fprintf(w, "%s%s %s\n", strings.Repeat("  ", i+2), StyleDim.Render(iconChain), StyleDim.Render(plan.Describe(f)))
		}

	case support.KindSourceOffenses:
		for _, o := range cs.Offenses() {
			switch o.Kind {
			case support.OffenseMissingOptInAttribute:
				detail(w, StyleError, iconOffense, msgMissingAttribute)
				return
			case support.OffenseUnsupportedAttribute:
				detail(w, StyleWarning, iconOffense, fmt.Sprintf(msgUnsupported, o.Text))
			case support.OffenseSourceUnreadable:
				detail(w, StyleWarning, iconOffense, fmt.Sprintf(msgUnreadable, o.Text))
			case support.OffenseExplicitRuntimeUse:
				detail(w, StyleWarning, iconOffense, msgExplicitUse)
				fmt.Fprintln(w, "    "+StyleDim.Render(strings.TrimSpace(o.Text)))
			}
		}
	}
}

func detail(w io.Writer, style lipgloss.Style, icon, msg string) {
	fmt.Fprintln(w, "  "+style.Render(icon+" "+msg))
}

// printVerifyReport prints one line per verified artifact.
func printVerifyReport(w io.Writer, report *pipeline.VerifyReport) {
	for _, a := range report.Artifacts {
		var msg string
		switch {
		case a.Err != nil:
			msg = fmt.Sprintf(msgInconclusive, errors.UserMessage(a.Err))
		case a.HasRuntime:
			msg = msgReferencesStd
		default:
			msg = msgNoReferences
		}
		fmt.Fprintf(w, "%s %s %s\n", a.Icon.Symbol(), StyleName.Render(a.Name), msg)
	}
}

// printNotice prints a muted closing remark.
func printNotice(w io.Writer, msg string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, StyleDim.Render(msg))
}
