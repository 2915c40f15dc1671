package metadata

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pykeio/cargo-no-std/pkg/cache"
	"github.com/pykeio/cargo-no-std/pkg/errors"
)

const sampleMetadata = `{
  "packages": [
    {
      "id": "app 0.1.0 (path+file:///ws/app)",
      "name": "app",
      "version": "0.1.0",
      "manifest_path": "/ws/app/Cargo.toml",
      "features": {"default": ["std"], "std": ["serde/std"]},
      "dependencies": [
        {"name": "serde", "req": "^1", "kind": null, "optional": false, "rename": null, "uses_default_features": false, "features": ["derive"], "target": null},
        {"name": "log", "req": "^0.4", "kind": null, "optional": true, "rename": "logging", "uses_default_features": true, "features": [], "target": null},
        {"name": "proptest", "req": "^1", "kind": "dev", "optional": false, "rename": null, "uses_default_features": true, "features": [], "target": null}
      ],
      "targets": [
        {"name": "app", "kind": ["lib"], "crate_types": ["lib"], "src_path": "/ws/app/src/lib.rs"},
        {"name": "app", "kind": ["bin"], "crate_types": ["bin"], "src_path": "/ws/app/src/main.rs"}
      ]
    },
    {
      "id": "serde 1.0.100 (registry+https://github.com/rust-lang/crates.io-index)",
      "name": "serde", "version": "1.0.100", "manifest_path": "/reg/serde-1.0.100/Cargo.toml",
      "features": {"default": ["std"], "std": [], "derive": ["serde_derive"]},
      "dependencies": [],
      "targets": [{"name": "serde", "kind": ["lib"], "crate_types": ["lib"], "src_path": "/reg/serde-1.0.100/src/lib.rs"}]
    },
    {
      "id": "serde 1.0.9 (registry+https://github.com/rust-lang/crates.io-index)",
      "name": "serde", "version": "1.0.9", "manifest_path": "/reg/serde-1.0.9/Cargo.toml",
      "features": {}, "dependencies": [],
      "targets": [{"name": "serde", "kind": ["lib"], "crate_types": ["lib"], "src_path": "/reg/serde-1.0.9/src/lib.rs"}]
    },
    {
      "id": "serde_derive 1.0.100 (registry+https://github.com/rust-lang/crates.io-index)",
      "name": "serde_derive", "version": "1.0.100", "manifest_path": "/reg/serde_derive/Cargo.toml",
      "features": {}, "dependencies": [],
      "targets": [{"name": "serde_derive", "kind": ["proc-macro"], "crate_types": ["proc-macro"], "src_path": "/reg/serde_derive/src/lib.rs"}]
    }
  ],
  "workspace_members": ["app 0.1.0 (path+file:///ws/app)"],
  "resolve": null,
  "workspace_root": "/ws",
  "target_directory": "/ws/target"
}`

func mustParse(t *testing.T) *Metadata {
	t.Helper()
	m, err := Parse([]byte(sampleMetadata))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return m
}

func TestParse(t *testing.T) {
	m := mustParse(t)

	if len(m.Packages) != 4 {
		t.Fatalf("len(Packages) = %d, want 4", len(m.Packages))
	}
	app, err := m.FindPackage("app 0.1.0 (path+file:///ws/app)")
	if err != nil {
		t.Fatalf("FindPackage: %v", err)
	}

	want := []Dependency{
		{Name: "serde", Req: "^1", Features: []string{"derive"}},
		{Name: "log", Req: "^0.4", Optional: true, Rename: "logging", UsesDefaultFeatures: true, Features: []string{}},
		{Name: "proptest", Req: "^1", Kind: KindDev, UsesDefaultFeatures: true, Features: []string{}},
	}
	if diff := cmp.Diff(want, app.Dependencies); diff != "" {
		t.Errorf("dependencies mismatch (-want +got):\n%s", diff)
	}

	if got := app.LibTargetSources(); !slices.Equal(got, []string{"/ws/app/src/lib.rs"}) {
		t.Errorf("LibTargetSources() = %v", got)
	}
	if got := app.BinTargetSources(); !slices.Equal(got, []string{"/ws/app/src/main.rs"}) {
		t.Errorf("BinTargetSources() = %v", got)
	}
	if app.IsProcMacro() {
		t.Error("app should not be a proc macro")
	}
	if derive := m.FindPackagesByName("serde_derive"); len(derive) != 1 || !derive[0].IsProcMacro() {
		t.Error("serde_derive should be a proc macro")
	}
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte("{"))
	if !errors.Is(err, errors.ErrCodeMetadata) {
		t.Errorf("Parse error = %v, want METADATA_FAILURE", err)
	}
}

func TestFindPackageMissing(t *testing.T) {
	m := mustParse(t)
	_, err := m.FindPackage("nope")
	if !errors.Is(err, errors.ErrCodeGraphLookup) {
		t.Errorf("FindPackage error = %v, want GRAPH_LOOKUP_FAILURE", err)
	}
}

func TestResolveDependency(t *testing.T) {
	m := mustParse(t)
	app := m.FindPackagesByName("app")[0]

	got, ok := m.ResolveDependency(app, app.Dependencies[0])
	if !ok {
		t.Fatal("serde should resolve")
	}
	if got.Version != "1.0.100" {
		t.Errorf("resolved serde %s, want highest version 1.0.100", got.Version)
	}

	if _, ok := m.ResolveDependency(app, app.Dependencies[1]); ok {
		t.Error("log is not in the graph and should not resolve")
	}
}

func TestResolveDependencyUsesResolveGraph(t *testing.T) {
	m := mustParse(t)
	m.Resolve = &Resolve{Nodes: []ResolveNode{{
		ID:   "app 0.1.0 (path+file:///ws/app)",
		Deps: []NodeDep{{Name: "serde", Pkg: "serde 1.0.9 (registry+https://github.com/rust-lang/crates.io-index)"}},
	}}}
	m.index()

	app := m.FindPackagesByName("app")[0]
	got, ok := m.ResolveDependency(app, app.Dependencies[0])
	if !ok || got.Version != "1.0.9" {
		t.Errorf("ResolveDependency = %v, %v; want the version from the resolve graph", got, ok)
	}
}

func TestResolveDependencyRenamed(t *testing.T) {
	const (
		rand07 = "rand 0.7.3 (registry+https://github.com/rust-lang/crates.io-index)"
		rand08 = "rand 0.8.5 (registry+https://github.com/rust-lang/crates.io-index)"
		app    = "app 0.1.0 (path+file:///ws/app)"
	)
	owner := &Package{ID: app, Name: "app", Dependencies: []Dependency{
		{Name: "rand", Req: "^0.7", Rename: "rand07"},
		{Name: "rand", Req: "^0.8"},
	}}
	m := New([]*Package{
		owner,
		{ID: rand07, Name: "rand", Version: "0.7.3"},
		{ID: rand08, Name: "rand", Version: "0.8.5"},
	}, app)
	m.Resolve = &Resolve{Nodes: []ResolveNode{{
		ID:   app,
		Deps: []NodeDep{{Name: "rand07", Pkg: rand07}, {Name: "rand", Pkg: rand08}},
	}}}
	m.index()

	tests := []struct {
		dep  Dependency
		want string
	}{
		{owner.Dependencies[0], "0.7.3"},
		{owner.Dependencies[1], "0.8.5"},
	}
	for _, tt := range tests {
		got, ok := m.ResolveDependency(owner, tt.dep)
		if !ok || got.Version != tt.want {
			t.Errorf("ResolveDependency(%s) = %v, %v; want rand %s", tt.dep.LocalName(), got, ok, tt.want)
		}
	}
}

func TestResolveDependencyLibName(t *testing.T) {
	const (
		app = "app 0.1.0 (path+file:///ws/app)"
		dep = "foo-bar 1.0.0 (registry+https://github.com/rust-lang/crates.io-index)"
	)
	owner := &Package{ID: app, Name: "app", Dependencies: []Dependency{{Name: "foo-bar", Req: "^1"}}}
	m := New([]*Package{owner, {ID: dep, Name: "foo-bar", Version: "1.0.0"}}, app)
	m.Resolve = &Resolve{Nodes: []ResolveNode{{ID: app, Deps: []NodeDep{{Name: "baz", Pkg: dep}}}}}
	m.index()

	if got, ok := m.ResolveDependency(owner, owner.Dependencies[0]); !ok || got.ID != dep {
		t.Errorf("ResolveDependency = %v, %v; want %s", got, ok, dep)
	}
}

func TestOptionalDependency(t *testing.T) {
	m := mustParse(t)
	app := m.FindPackagesByName("app")[0]

	if i, ok := app.OptionalDependency("logging"); !ok || i != 1 {
		t.Errorf("OptionalDependency(logging) = %d, %v; want 1, true", i, ok)
	}
	if _, ok := app.OptionalDependency("log"); ok {
		t.Error("renamed dependency should only be found by its rename")
	}
	if _, ok := app.OptionalDependency("serde"); ok {
		t.Error("serde is not optional")
	}
	if got := app.DependenciesNamed("proptest"); len(got) != 0 {
		t.Errorf("dev dependencies should be ignored, got %v", got)
	}
}

func TestSelectMember(t *testing.T) {
	a := &Package{ID: "a", Name: "a", ManifestPath: "/ws/a/Cargo.toml"}
	b := &Package{ID: "b", Name: "b", ManifestPath: "/ws/b/Cargo.toml"}

	tests := []struct {
		name     string
		members  []string
		pkg, dir string
		want     string
		wantErr  bool
	}{
		{name: "single member", members: []string{"a"}, want: "a"},
		{name: "by name", members: []string{"a", "b"}, pkg: "b", want: "b"},
		{name: "by directory", members: []string{"a", "b"}, dir: "/ws/a", want: "a"},
		{name: "unknown name", members: []string{"a", "b"}, pkg: "c", wantErr: true},
		{name: "ambiguous", members: []string{"a", "b"}, dir: "/ws", wantErr: true},
		{name: "empty workspace", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New([]*Package{a, b}, tt.members...)
			got, err := m.SelectMember(tt.pkg, tt.dir)
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeGraphLookup) {
					t.Errorf("SelectMember error = %v, want GRAPH_LOOKUP_FAILURE", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SelectMember: %v", err)
			}
			if got.Name != tt.want {
				t.Errorf("SelectMember = %s, want %s", got.Name, tt.want)
			}
		})
	}
}

func TestReadManifestConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Cargo.toml")
	manifest := `
[package]
name = "app"
version = "0.1.0"

[package.metadata.no-std]
allowed = ["getrandom", "log"]

[workspace.metadata.no-std]
allowed = ["log", "cfg-if"]
`
	if err := os.WriteFile(path, []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := ReadManifestConfig(path)
	if err != nil {
		t.Fatalf("ReadManifestConfig: %v", err)
	}
	want := []string{"cfg-if", "getrandom", "log"}
	if diff := cmp.Diff(want, cfg.Allowed); diff != "" {
		t.Errorf("allowed mismatch (-want +got):\n%s", diff)
	}

	if _, err := ReadManifestConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("missing manifest should fail")
	}
}

func TestFingerprintWorkspaceLockfile(t *testing.T) {
	ws := t.TempDir()
	member := filepath.Join(ws, "crates", "app", "Cargo.toml")
	lock := filepath.Join(ws, "Cargo.lock")
	for path, content := range map[string]string{
		filepath.Join(ws, "Cargo.toml"): "[workspace]\nmembers = [\"crates/app\"]\n",
		member:                          "[package]\nname = \"app\"\n",
		lock:                            "version = 3\n",
	} {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	if got, ok := findLockfile(filepath.Dir(member)); !ok || got != lock {
		t.Errorf("findLockfile = %q, %v; want %q", got, ok, lock)
	}

	before := fingerprint(member)
	if err := os.WriteFile(lock, []byte("version = 3\n\n[[package]]\nname = \"log\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if after := fingerprint(member); after == before {
		t.Error("fingerprint unchanged after the workspace lockfile changed")
	}
}

func TestCargoProviderCaches(t *testing.T) {
	ctx := context.Background()
	mem, err := cache.NewMemoryCache(cache.DefaultMemorySize)
	if err != nil {
		t.Fatal(err)
	}

	var calls [][]string
	p := NewCargoProvider(mem, nil)
	p.Cargo = "cargo"
	p.Run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, append([]string{name}, args...))
		return []byte(sampleMetadata), nil
	}

	manifest := filepath.Join(t.TempDir(), "Cargo.toml")
	for i := 0; i < 2; i++ {
		if _, err := p.Metadata(ctx, Options{ManifestPath: manifest}); err != nil {
			t.Fatalf("Metadata: %v", err)
		}
		if _, err := p.Metadata(ctx, Options{ManifestPath: manifest, AllFeatures: true}); err != nil {
			t.Fatalf("Metadata(all): %v", err)
		}
	}

	want := [][]string{
		{"cargo", "metadata", "--format-version", "1", "--manifest-path", manifest},
		{"cargo", "metadata", "--format-version", "1", "--all-features", "--manifest-path", manifest},
	}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("cargo invocations mismatch (-want +got):\n%s", diff)
	}
}

func TestCargoProviderFailure(t *testing.T) {
	p := NewCargoProvider(nil, nil)
	p.Run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, os.ErrNotExist
	}
	_, err := p.Metadata(context.Background(), Options{})
	if !errors.Is(err, errors.ErrCodeMetadata) {
		t.Errorf("Metadata error = %v, want METADATA_FAILURE", err)
	}
}
