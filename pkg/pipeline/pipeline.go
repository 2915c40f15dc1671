// Package pipeline drives a cargo-no-std run.
//
// A run has two phases that share one [Plan]:
//
//  1. Check: resolve the active features of the package under test, walk
//     every active dependency and classify each crate from its source
//  2. Verify: build the package and search the compiled artifacts of the
//     active packages for references to std
//
// # Usage
//
//	runner := pipeline.NewRunner(provider, builder, logger)
//	report, err := runner.Check(ctx, pipeline.Options{Features: []string{"alloc"}})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, p := range report.Packages {
//	    fmt.Println(p.Icon.Symbol(), p.Package.Name)
//	}
//
// Phases can also be run separately; Verify computes the plan itself when
// it is not given one.
package pipeline

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/pykeio/cargo-no-std/pkg/build"
	"github.com/pykeio/cargo-no-std/pkg/errors"
	"github.com/pykeio/cargo-no-std/pkg/features"
	"github.com/pykeio/cargo-no-std/pkg/metadata"
	"github.com/pykeio/cargo-no-std/pkg/support"
)

// Options selects the package under test and its build configuration.
type Options struct {
	ManifestPath      string
	Package           string
	NoDefaultFeatures bool
	// Features may hold comma or space separated lists.
	Features []string
	// Allowed package names are reported as skipped.
	Allowed []string
	// Dir is where the run was started, used to pick a workspace member.
	Dir string

	Logger *log.Logger

	validated bool
}

// ValidateAndSetDefaults normalizes the feature and allow lists and checks
// every name. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Package != "" {
		if err := errors.ValidatePackageName(o.Package); err != nil {
			return err
		}
	}
	o.Features = SplitList(o.Features)
	for _, f := range o.Features {
		if err := errors.ValidateFeatureName(f); err != nil {
			return err
		}
	}
	o.Allowed = SplitList(o.Allowed)
	for _, a := range o.Allowed {
		if err := errors.ValidatePackageName(a); err != nil {
			return err
		}
	}
	if o.Dir == "" && o.ManifestPath != "" {
		o.Dir = filepath.Dir(o.ManifestPath)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// BuildOptions returns the matching cargo build configuration.
func (o *Options) BuildOptions() build.Options {
	return build.Options{
		ManifestPath:      o.ManifestPath,
		Package:           o.Package,
		NoDefaultFeatures: o.NoDefaultFeatures,
		Features:          o.Features,
	}
}

// SplitList flattens values that may themselves be comma or space
// separated lists, dropping empty entries.
func SplitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, f := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
			out = append(out, f)
		}
	}
	return out
}

// Plan is the resolved view of the package under test.
type Plan struct {
	Root       *metadata.Package
	Resolution *features.Resolution
	Granted    *features.Granted
	// Packages lists the active dependencies in discovery order.
	Packages []*metadata.Package
	// Direct holds the ids of the dependencies the root itself activates.
	Direct  map[string]bool
	Allowed support.AllowList
}

// FeatureActive reports whether feature name of pkgID is enabled.
func (p *Plan) FeatureActive(pkgID, name string) bool {
	if pkgID == p.Root.ID {
		return p.Resolution.Features.Has(pkgID, name)
	}
	r, ok := p.Granted.Resolution(pkgID)
	return ok && r.Features.Has(pkgID, name)
}

// PackageReport is the verdict for one package.
type PackageReport struct {
	Package *metadata.Package
	Support support.CrateSupport
	Icon    support.Icon
	IsRoot  bool
	Direct  bool
	// Chain explains why the feature of an OnlyWithoutFeature crate is on,
	// starting with that feature. Empty when the feature is off.
	Chain []features.Feature
}

// CheckReport is the outcome of the check phase.
type CheckReport struct {
	Plan     *Plan
	Packages []PackageReport
	// Failed is set when a crate lacks a no_std attribute entirely.
	Failed bool
}

// ArtifactReport is the verdict for one compiled artifact.
type ArtifactReport struct {
	Name       string
	Path       string
	IsMain     bool
	HasRuntime bool
	// Err is set when the artifact could not be decoded.
	Err  error
	Icon support.Icon
}

// VerifyReport is the outcome of the verify phase.
type VerifyReport struct {
	Artifacts      []ArtifactReport
	MainHasRuntime bool
	// MainInconclusive is set when the main artifact could not be decoded.
	MainInconclusive bool
}

// Failed reports whether the package under test links std.
func (r *VerifyReport) Failed() bool {
	return r != nil && r.MainHasRuntime
}
