// Package pipelinetest lays out fixture crates on disk and serves them
// through fake metadata and build backends.
package pipelinetest

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/pykeio/cargo-no-std/pkg/build"
	"github.com/pykeio/cargo-no-std/pkg/metadata"
	"github.com/pykeio/cargo-no-std/pkg/verify/verifytest"
)

// Crate describes one fixture package.
type Crate struct {
	Name      string
	Source    string
	Features  map[string][]string
	Deps      []metadata.Dependency
	ProcMacro bool
	// Namespaces are declared in the debug info of the built artifact.
	Namespaces []string
	// Manifest is extra Cargo.toml text appended after [package].
	Manifest string
}

// Dep declares a normal dependency using default features.
func Dep(name string, features ...string) metadata.Dependency {
	return metadata.Dependency{Name: name, UsesDefaultFeatures: true, Features: features}
}

// OptionalDep declares an optional dependency using default features.
func OptionalDep(name string, features ...string) metadata.Dependency {
	d := Dep(name, features...)
	d.Optional = true
	return d
}

// Workspace is a fixture workspace with the first crate as its only member.
type Workspace struct {
	Dir      string
	Root     *metadata.Package
	Graph    *metadata.Metadata
	Provider *metadata.Static
	Builder  *build.Static
}

// ID returns the package id of a fixture crate.
func ID(name string) string {
	return fmt.Sprintf("%s 0.1.0 (path+file:///fixture/%s)", name, name)
}

// New writes root and deps under t.TempDir. The build result lists the
// dependency artifacts in order followed by the root artifact.
func New(t testing.TB, root Crate, deps ...Crate) *Workspace {
	t.Helper()
	dir := t.TempDir()
	w := &Workspace{Dir: dir}

	var (
		pkgs      []*metadata.Package
		artifacts []build.Artifact
	)
	for _, c := range slices.Concat(deps, []Crate{root}) {
		p, a := writeCrate(t, dir, c)
		pkgs = append(pkgs, p)
		artifacts = append(artifacts, a)
	}
	// Root first, as cargo lists workspace members first.
	pkgs = slices.Concat(pkgs[len(pkgs)-1:], pkgs[:len(pkgs)-1])

	w.Root = pkgs[0]
	w.Graph = metadata.New(pkgs, w.Root.ID)
	w.Graph.WorkspaceRoot = filepath.Join(dir, root.Name)
	w.Provider = &metadata.Static{Default: w.Graph, Full: w.Graph}
	w.Builder = &build.Static{Result: &build.Result{Artifacts: artifacts}}
	return w
}

func writeCrate(t testing.TB, dir string, c Crate) (*metadata.Package, build.Artifact) {
	t.Helper()
	crateDir := filepath.Join(dir, c.Name)
	src := filepath.Join(crateDir, "src", "lib.rs")
	manifest := filepath.Join(crateDir, "Cargo.toml")

	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	toml := fmt.Sprintf("[package]\nname = %q\nversion = \"0.1.0\"\n%s", c.Name, c.Manifest)
	if err := os.WriteFile(manifest, []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte(c.Source), 0o644); err != nil {
		t.Fatal(err)
	}

	kind := metadata.TargetLib
	if c.ProcMacro {
		kind = metadata.TargetProcMacro
	}
	feats := c.Features
	if feats == nil {
		feats = map[string][]string{}
	}
	p := &metadata.Package{
		ID:           ID(c.Name),
		Name:         c.Name,
		Version:      "0.1.0",
		Features:     feats,
		Dependencies: c.Deps,
		Targets:      []metadata.Target{{Name: c.Name, Kind: []string{kind}, CrateTypes: []string{kind}, SrcPath: src}},
		ManifestPath: manifest,
	}

	crate := strings.ReplaceAll(c.Name, "-", "_")
	out := filepath.Join(dir, "target", "debug", "deps")
	if err := os.MkdirAll(out, 0o755); err != nil {
		t.Fatal(err)
	}
	a := build.Artifact{PackageID: p.ID, TargetName: crate, Kinds: []string{kind}}
	if c.ProcMacro {
		path := filepath.Join(out, "lib"+crate+".so")
		if err := os.WriteFile(path, verifytest.Object("std"), 0o644); err != nil {
			t.Fatal(err)
		}
		a.Filenames = []string{path}
		return p, a
	}
	path := filepath.Join(out, "lib"+crate+".rlib")
	if err := os.WriteFile(path, verifytest.Rlib(crate, verifytest.Object(c.Namespaces...)), 0o644); err != nil {
		t.Fatal(err)
	}
	a.Filenames = []string{path, strings.TrimSuffix(path, ".rlib") + ".rmeta"}
	return p, a
}
