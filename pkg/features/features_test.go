package features

import (
	"slices"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pykeio/cargo-no-std/pkg/errors"
	"github.com/pykeio/cargo-no-std/pkg/metadata"
)

func dep(name string, optional bool, feats ...string) metadata.Dependency {
	return metadata.Dependency{Name: name, Optional: optional, UsesDefaultFeatures: false, Features: feats}
}

func pkg(name string, features map[string][]string, deps ...metadata.Dependency) *metadata.Package {
	if features == nil {
		features = map[string][]string{}
	}
	return &metadata.Package{ID: name + " 1.0.0", Name: name, Version: "1.0.0", Features: features, Dependencies: deps}
}

func id(name string) string { return name + " 1.0.0" }

// testGraph:
//
//	app  default=[std]  std=[mid/std, alloc]  alloc=[]  logging=[dep:log]  fast=[simd?/fast]
//	  -> mid (normal)   -> log (optional)  -> simd (optional)  -> proptest (dev)  -> cc (build)
//	mid  std=[leaf/std]  -> leaf
//	leaf std=[]
func testGraph() *metadata.Metadata {
	app := pkg("app", map[string][]string{
		"default": {"std"},
		"std":     {"mid/std", "alloc"},
		"alloc":   {},
		"logging": {"dep:log"},
		"fast":    {"simd?/fast"},
	},
		dep("mid", false),
		dep("log", true),
		dep("simd", true),
		metadata.Dependency{Name: "proptest", Kind: metadata.KindDev},
		metadata.Dependency{Name: "cc", Kind: metadata.KindBuild},
	)
	mid := pkg("mid", map[string][]string{"std": {"leaf/std"}}, dep("leaf", false))
	leaf := pkg("leaf", map[string][]string{"std": {}})
	log := pkg("log", nil)
	simd := pkg("simd", map[string][]string{"fast": {}})
	proptest := pkg("proptest", nil)
	cc := pkg("cc", nil)
	return metadata.New([]*metadata.Package{app, mid, leaf, log, simd, proptest, cc}, id("app"))
}

func depNames(t *testing.T, g *metadata.Metadata, res *Resolution) []string {
	t.Helper()
	p, _ := g.Package(res.PackageID)
	var out []string
	for _, ref := range res.Dependencies.Refs() {
		out = append(out, p.Dependencies[ref.Index].Name)
	}
	return out
}

func TestParseDirective(t *testing.T) {
	tests := []struct {
		in   string
		want Directive
	}{
		{"std", Directive{Kind: DirectiveFeature, Feature: "std"}},
		{"dep:log", Directive{Kind: DirectiveDependency, Dependency: "log"}},
		{"serde/std", Directive{Kind: DirectiveDependencyFeature, Dependency: "serde", Feature: "std"}},
		{"serde?/std", Directive{Kind: DirectiveDependencyFeature, Dependency: "serde", Feature: "std", Weak: true}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseDirective(tt.in)
			if got != tt.want {
				t.Errorf("ParseDirective(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
			if got.String() != tt.in {
				t.Errorf("String() = %q, want %q", got.String(), tt.in)
			}
		})
	}
}

func TestResolveDefaults(t *testing.T) {
	g := testGraph()

	res, err := Resolve(g, id("app"), nil, true)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if diff := cmp.Diff([]string{"alloc", "default", "std"}, res.FeatureNames()); diff != "" {
		t.Errorf("features mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"mid"}, depNames(t, g, res)); diff != "" {
		t.Errorf("dependencies mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Activation{{Feature: "std", By: "std"}}, res.Forwarded["mid"]); diff != "" {
		t.Errorf("forwarded mismatch (-want +got):\n%s", diff)
	}
	if got := res.Origins[Feature{id("app"), "alloc"}]; got != (Feature{id("app"), "std"}) {
		t.Errorf("alloc origin = %v, want std", got)
	}

	res, err = Resolve(g, id("app"), nil, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.FeatureNames()) != 0 {
		t.Errorf("no-default-features should activate nothing, got %v", res.FeatureNames())
	}
	if diff := cmp.Diff([]string{"mid"}, depNames(t, g, res)); diff != "" {
		t.Errorf("mandatory dependency should stay active (-want +got):\n%s", diff)
	}
}

func TestResolveOptionalDependency(t *testing.T) {
	g := testGraph()

	tests := []struct {
		name      string
		requested []string
		wantDeps  []string
	}{
		{"feature with dep: directive", []string{"logging"}, []string{"mid", "log"}},
		{"dependency name requested directly", []string{"log"}, []string{"mid", "log"}},
		{"dep: prefix requested", []string{"dep:simd"}, []string{"mid", "simd"}},
		{"dependency feature requested", []string{"simd/fast"}, []string{"mid", "simd"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Resolve(g, id("app"), tt.requested, false)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if diff := cmp.Diff(tt.wantDeps, depNames(t, g, res)); diff != "" {
				t.Errorf("dependencies mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveWeakDependencyFeature(t *testing.T) {
	g := testGraph()

	res, err := Resolve(g, id("app"), []string{"fast"}, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if slices.Contains(depNames(t, g, res), "simd") {
		t.Error("weak directive must not activate simd")
	}
	if _, ok := res.Forwarded["simd"]; ok {
		t.Error("weak directive must not forward to an inactive dependency")
	}

	// Activated later in the queue than the weak directive was seen.
	res, err = Resolve(g, id("app"), []string{"fast", "simd"}, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if diff := cmp.Diff([]Activation{{Feature: "fast", By: "fast"}}, res.Forwarded["simd"]); diff != "" {
		t.Errorf("forwarded mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveUnknownFeature(t *testing.T) {
	g := testGraph()

	for _, name := range []string{"nope", "dep:mid", "ghost/std"} {
		_, err := Resolve(g, id("app"), []string{name}, true)
		if !errors.Is(err, errors.ErrCodeGraphLookup) {
			t.Errorf("Resolve(%q) error = %v, want GRAPH_LOOKUP_FAILURE", name, err)
		}
	}

	_, err := Resolve(g, "missing 0.0.0", nil, true)
	if !errors.Is(err, errors.ErrCodeGraphLookup) {
		t.Errorf("Resolve(missing package) error = %v, want GRAPH_LOOKUP_FAILURE", err)
	}
}

func TestResolveCycleTerminates(t *testing.T) {
	p := pkg("cyclic", map[string][]string{"a": {"b"}, "b": {"a"}})
	g := metadata.New([]*metadata.Package{p}, p.ID)

	res, err := Resolve(g, p.ID, []string{"a"}, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := FeatureSet{{p.ID, "a"}: {}, {p.ID, "b"}: {}}
	if diff := cmp.Diff(want, res.Features); diff != "" {
		t.Errorf("features mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveIdempotent(t *testing.T) {
	g := testGraph()

	first, err := Resolve(g, id("app"), []string{"logging", "fast"}, true)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := Resolve(g, id("app"), first.FeatureNames(), false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if diff := cmp.Diff(first.Features, second.Features); diff != "" {
		t.Errorf("features changed on re-resolution (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(sortedRefs(&first.Dependencies), sortedRefs(&second.Dependencies)); diff != "" {
		t.Errorf("dependencies changed on re-resolution (-first +second):\n%s", diff)
	}
}

func sortedRefs(s *DependencySet) []DependencyRef {
	refs := s.Refs()
	sort.Slice(refs, func(i, j int) bool { return refs[i].Index < refs[j].Index })
	return refs
}

func TestResolveDeterministic(t *testing.T) {
	g := testGraph()
	orders := [][]string{
		{"logging", "alloc", "simd/fast"},
		{"simd/fast", "logging", "alloc"},
		{"alloc", "simd/fast", "logging", "alloc"},
	}

	base, err := Resolve(g, id("app"), orders[0], true)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for _, order := range orders[1:] {
		res, err := Resolve(g, id("app"), order, true)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if diff := cmp.Diff(base.Features, res.Features); diff != "" {
			t.Errorf("order %v: features differ:\n%s", order, diff)
		}
		if diff := cmp.Diff(sortedRefs(&base.Dependencies), sortedRefs(&res.Dependencies)); diff != "" {
			t.Errorf("order %v: dependencies differ:\n%s", order, diff)
		}
	}
}

func TestResolveMonotonic(t *testing.T) {
	g := testGraph()
	universe := []string{"std", "alloc", "logging", "fast", "simd", "log"}

	subsets := func(mask int) []string {
		var out []string
		for i, f := range universe {
			if mask&(1<<i) != 0 {
				out = append(out, f)
			}
		}
		return out
	}

	n := 1 << len(universe)
	results := make([]*Resolution, n)
	for mask := 0; mask < n; mask++ {
		res, err := Resolve(g, id("app"), subsets(mask), false)
		if err != nil {
			t.Fatalf("Resolve(%v): %v", subsets(mask), err)
		}
		results[mask] = res
	}

	for small := 0; small < n; small++ {
		for large := 0; large < n; large++ {
			if small&large != small {
				continue
			}
			a, b := results[small], results[large]
			if !a.Features.IsSubset(b.Features) {
				t.Errorf("features of %v not a subset of %v", subsets(small), subsets(large))
			}
			if !a.Dependencies.IsSubset(&b.Dependencies) {
				t.Errorf("dependencies of %v not a subset of %v", subsets(small), subsets(large))
			}
		}
	}
}

func TestProject(t *testing.T) {
	g := testGraph()
	res, err := Resolve(g, id("app"), []string{"logging"}, true)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	var names []string
	for _, p := range Project(g, res) {
		names = append(names, p.Name)
	}
	if diff := cmp.Diff([]string{"mid", "log"}, names); diff != "" {
		t.Errorf("projected packages mismatch (-want +got):\n%s", diff)
	}
}

func TestProjectSkipsUnresolvable(t *testing.T) {
	app := pkg("app", map[string][]string{"x": {"dep:ghost"}}, dep("ghost", true), dep("real", false), dep("real", false))
	realPkg := pkg("real", nil)
	g := metadata.New([]*metadata.Package{app, realPkg}, app.ID)

	res, err := Resolve(g, app.ID, []string{"x"}, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got := Project(g, res)
	if len(got) != 1 || got[0].Name != "real" {
		t.Errorf("Project = %v, want only real once", got)
	}
}

func TestDependencyFeaturesTwoHops(t *testing.T) {
	g := testGraph()
	root, err := Resolve(g, id("app"), nil, true)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	granted := DependencyFeatures(g, root)

	if diff := cmp.Diff([]string{id("mid"), id("leaf")}, granted.Order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"std"}, granted.Features(id("leaf"))); diff != "" {
		t.Errorf("leaf features mismatch (-want +got):\n%s", diff)
	}
	if !granted.All().Has(id("mid"), "std") {
		t.Error("mid/std should be granted")
	}

	chain := granted.Chain(Feature{id("leaf"), "std"})
	want := []Feature{
		{id("leaf"), "std"},
		{id("mid"), "std"},
		{id("app"), "std"},
		{id("app"), "default"},
	}
	if diff := cmp.Diff(want, chain); diff != "" {
		t.Errorf("chain mismatch (-want +got):\n%s", diff)
	}
}

func TestDependencyFeaturesDefaultsAndEdgeFeatures(t *testing.T) {
	app := pkg("app", nil,
		metadata.Dependency{Name: "a", UsesDefaultFeatures: true},
		metadata.Dependency{Name: "b", Features: []string{"alloc"}},
	)
	a := pkg("a", map[string][]string{"default": {"std"}, "std": {}})
	b := pkg("b", map[string][]string{"default": {"std"}, "std": {}, "alloc": {}})
	g := metadata.New([]*metadata.Package{app, a, b}, app.ID)

	root, _ := Resolve(g, app.ID, nil, true)
	granted := DependencyFeatures(g, root)

	if diff := cmp.Diff([]string{"default", "std"}, granted.Features(a.ID)); diff != "" {
		t.Errorf("a features mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"alloc"}, granted.Features(b.ID)); diff != "" {
		t.Errorf("b features mismatch (-want +got):\n%s", diff)
	}
	if o, ok := granted.Origin(Feature{b.ID, "alloc"}); !ok || o != (Feature{PackageID: app.ID}) {
		t.Errorf("alloc origin = %v, %v; want the dependency declaration of app", o, ok)
	}
}

func TestDependencyFeaturesRegrant(t *testing.T) {
	// shared is reached twice; the second parent grants more features.
	app := pkg("app", nil, dep("x", false), dep("y", false))
	x := pkg("x", nil, dep("shared", false))
	y := pkg("y", nil, dep("shared", false, "std"))
	shared := pkg("shared", map[string][]string{"std": {"inner/std"}}, dep("inner", false))
	inner := pkg("inner", map[string][]string{"std": {}})
	g := metadata.New([]*metadata.Package{app, x, y, shared, inner}, app.ID)

	root, _ := Resolve(g, app.ID, nil, false)
	granted := DependencyFeatures(g, root)

	if diff := cmp.Diff([]string{"std"}, granted.Features(inner.ID)); diff != "" {
		t.Errorf("inner features mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{x.ID, y.ID, shared.ID, inner.ID}, granted.Order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestDependencyFeaturesCycle(t *testing.T) {
	a := pkg("a", map[string][]string{"std": {"b/std"}}, dep("b", false))
	b := pkg("b", map[string][]string{"std": {"a/std"}}, dep("a", false))
	g := metadata.New([]*metadata.Package{a, b}, a.ID)

	root, _ := Resolve(g, a.ID, []string{"std"}, false)
	granted := DependencyFeatures(g, root)

	if diff := cmp.Diff([]string{b.ID}, granted.Order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"std"}, granted.Features(b.ID)); diff != "" {
		t.Errorf("b features mismatch (-want +got):\n%s", diff)
	}
}
