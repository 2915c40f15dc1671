package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pykeio/cargo-no-std/pkg/build"
	"github.com/pykeio/cargo-no-std/pkg/errors"
	"github.com/pykeio/cargo-no-std/pkg/features"
	"github.com/pykeio/cargo-no-std/pkg/metadata"
	"github.com/pykeio/cargo-no-std/pkg/observability"
	"github.com/pykeio/cargo-no-std/pkg/source"
	"github.com/pykeio/cargo-no-std/pkg/support"
	"github.com/pykeio/cargo-no-std/pkg/verify"
)

// ArtifactVerifier searches an artifact for std.
type ArtifactVerifier interface {
	ContainsRuntimeNamespace(path string) (bool, error)
}

// Runner executes the check and verify phases. It holds no results, so one
// Runner may serve several runs.
type Runner struct {
	Metadata metadata.Provider
	Scanner  support.Scanner
	Builder  build.Builder
	Verifier ArtifactVerifier
	Logger   *log.Logger
}

// NewRunner creates a runner with the source scanner and DWARF verifier.
// A nil builder disables the verify phase.
func NewRunner(provider metadata.Provider, builder build.Builder, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Metadata: provider,
		Scanner:  source.NewScanner(logger),
		Builder:  builder,
		Verifier: verify.NewVerifier(logger),
		Logger:   logger,
	}
}

// Plan loads both package graphs and resolves the active dependency tree.
func (r *Runner) Plan(ctx context.Context, opts Options) (*Plan, error) {
	done := startPhase(ctx, observability.PhasePlan, opts.Package)
	plan, err := r.plan(ctx, opts)
	if err != nil {
		done(0, err)
		return nil, err
	}
	done(len(plan.Packages), nil)
	return plan, nil
}

func (r *Runner) plan(ctx context.Context, opts Options) (*Plan, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	start := time.Now()
	g, err := r.Metadata.Metadata(ctx, metadata.Options{ManifestPath: opts.ManifestPath})
	if err != nil {
		return nil, err
	}
	full, err := r.Metadata.Metadata(ctx, metadata.Options{ManifestPath: opts.ManifestPath, AllFeatures: true})
	if err != nil {
		return nil, err
	}

	root, err := g.SelectMember(opts.Package, opts.Dir)
	if err != nil {
		return nil, err
	}

	res, err := features.Resolve(g, root.ID, opts.Features, !opts.NoDefaultFeatures)
	if err != nil {
		return nil, err
	}
	granted := features.DependencyFeatures(full, res)

	plan := &Plan{
		Root:       root,
		Resolution: res,
		Granted:    granted,
		Direct:     make(map[string]bool),
		Allowed:    support.NewAllowList(opts.Allowed...),
	}
	for _, p := range features.Project(full, res) {
		plan.Direct[p.ID] = true
	}
	for _, id := range granted.Order {
		p, err := full.FindPackage(id)
		if err != nil {
			return nil, err
		}
		plan.Packages = append(plan.Packages, p)
	}
	for _, name := range granted.Unresolved {
		r.Logger.Warn("dependency has no package record", "dependency", name)
	}

	cfg, err := metadata.ReadManifestConfig(root.ManifestPath)
	if err != nil {
		r.Logger.Warn("could not read no-std manifest table", "manifest", root.ManifestPath, "err", err)
	}
	for _, name := range cfg.Allowed {
		plan.Allowed[name] = struct{}{}
	}

	r.Logger.Debug("resolved features",
		"package", root.Name,
		"features", res.FeatureNames(),
		"dependencies", len(plan.Packages),
		"duration", time.Since(start).Round(time.Millisecond))
	return plan, nil
}

// Check classifies the package under test and every active dependency.
func (r *Runner) Check(ctx context.Context, opts Options) (*CheckReport, error) {
	plan, err := r.Plan(ctx, opts)
	if err != nil {
		return nil, err
	}
	return r.CheckPlan(ctx, plan)
}

// CheckPlan classifies the packages of plan, root first.
func (r *Runner) CheckPlan(ctx context.Context, plan *Plan) (*CheckReport, error) {
	done := startPhase(ctx, observability.PhaseCheck, plan.Root.Name)
	report, err := r.checkPlan(ctx, plan)
	if err != nil {
		done(0, err)
		return nil, err
	}
	done(len(report.Packages), nil)
	return report, nil
}

func (r *Runner) checkPlan(ctx context.Context, plan *Plan) (*CheckReport, error) {
	report := &CheckReport{Plan: plan}
	pkgs := append([]*metadata.Package{plan.Root}, plan.Packages...)
	for i, p := range pkgs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		isRoot := i == 0
		cs := support.Classify(p, plan.Allowed, r.Scanner, isRoot)
		active := func(name string) bool { return plan.FeatureActive(p.ID, name) }

		pr := PackageReport{
			Package: p,
			Support: cs,
			Icon:    cs.Verdict(active),
			IsRoot:  isRoot,
			Direct:  plan.Direct[p.ID],
		}
		if cs.Kind() == support.KindOnlyWithoutFeature && active(cs.Feature()) {
			pr.Chain = plan.Granted.Chain(features.Feature{PackageID: p.ID, Name: cs.Feature()})
		}
		if cs.Fails() {
			report.Failed = true
		}
		r.Logger.Debug("checked package", "package", p.Name, "support", cs.Kind())
		report.Packages = append(report.Packages, pr)
	}
	return report, nil
}

// Verify builds the package under test and verifies its artifacts. plan
// may be nil, in which case it is computed from opts.
func (r *Runner) Verify(ctx context.Context, opts Options, plan *Plan) (*VerifyReport, error) {
	if r.Builder == nil {
		return nil, errors.New(errors.ErrCodeUnsupported, "no builder configured")
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if plan == nil {
		var err error
		if plan, err = r.Plan(ctx, opts); err != nil {
			return nil, err
		}
	}

	done := startPhase(ctx, observability.PhaseVerify, plan.Root.Name)
	report, err := r.verifyArtifacts(ctx, opts, plan)
	if err != nil {
		done(0, err)
		return nil, err
	}
	done(len(report.Artifacts), nil)
	return report, nil
}

func (r *Runner) verifyArtifacts(ctx context.Context, opts Options, plan *Plan) (*VerifyReport, error) {
	res, err := r.Builder.Build(ctx, opts.BuildOptions())
	if err != nil {
		return nil, err
	}

	active := map[string]bool{crateName(plan.Root.Name): true}
	for _, p := range plan.Packages {
		active[crateName(p.Name)] = true
	}

	report := &VerifyReport{}
	last := len(res.Artifacts) - 1
	for i, a := range res.Artifacts {
		isMain := i == last
		if !isMain && (!active[crateName(a.TargetName)] || !a.IsRlib()) {
			continue
		}

		ar := ArtifactReport{Name: a.TargetName, Path: a.Path(), IsMain: isMain}
		has, err := r.Verifier.ContainsRuntimeNamespace(a.Path())
		switch {
		case err != nil && errors.IsInconclusive(err):
			r.Logger.Debug("artifact inconclusive", "artifact", a.Path(), "err", err)
			ar.Err = err
			ar.Icon = support.IconMaybe
			report.MainInconclusive = report.MainInconclusive || isMain
		case err != nil:
			return nil, err
		case has:
			ar.HasRuntime = true
			ar.Icon = support.IconFailure
		default:
			ar.Icon = support.IconSuccess
		}
		if isMain {
			report.MainHasRuntime = ar.HasRuntime
		}
		report.Artifacts = append(report.Artifacts, ar)
	}
	return report, nil
}

// startPhase reports the start of a phase and returns the function
// reporting its completion.
func startPhase(ctx context.Context, phase, pkg string) func(count int, err error) {
	h := observability.Pipeline()
	h.OnPhaseStart(ctx, phase, pkg)
	start := time.Now()
	return func(count int, err error) {
		h.OnPhaseComplete(ctx, phase, pkg, count, time.Since(start), err)
	}
}

// crateName maps a package name to the crate name cargo reports for its
// targets.
func crateName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// Describe renders a feature of an activation chain. A feature without a
// name stands for a dependency declaration of its package.
func (p *Plan) Describe(f features.Feature) string {
	name := p.packageName(f.PackageID)
	if f.Name == "" {
		return fmt.Sprintf("dependency declaration in %s", name)
	}
	return fmt.Sprintf("%s/%s", name, f.Name)
}

func (p *Plan) packageName(id string) string {
	if id == p.Root.ID {
		return p.Root.Name
	}
	for _, pkg := range p.Packages {
		if pkg.ID == id {
			return pkg.Name
		}
	}
	return id
}
