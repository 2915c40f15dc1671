package metadata

import (
	"encoding/json"
	"slices"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/pykeio/cargo-no-std/pkg/errors"
)

// Dependency kinds as reported by cargo. Normal dependencies have an empty kind.
const (
	KindNormal = ""
	KindDev    = "dev"
	KindBuild  = "build"
)

// Target kinds relevant to classification.
const (
	TargetLib       = "lib"
	TargetRlib      = "rlib"
	TargetBin       = "bin"
	TargetProcMacro = "proc-macro"
)

// DefaultFeature is the feature cargo activates unless --no-default-features is given.
const DefaultFeature = "default"

// Metadata is the decoded output of `cargo metadata`.
type Metadata struct {
	Packages         []*Package `json:"packages"`
	WorkspaceMembers []string   `json:"workspace_members"`
	Resolve          *Resolve   `json:"resolve"`
	WorkspaceRoot    string     `json:"workspace_root"`
	TargetDirectory  string     `json:"target_directory"`

	byID   map[string]*Package
	nodes  map[string]*ResolveNode
	byName map[string][]*Package
}

// Package is one crate in the graph.
type Package struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Version      string              `json:"version"`
	Features     map[string][]string `json:"features"`
	Dependencies []Dependency        `json:"dependencies"`
	Targets      []Target            `json:"targets"`
	ManifestPath string              `json:"manifest_path"`
}

// Dependency is a declared dependency edge of a package.
type Dependency struct {
	Name                string   `json:"name"`
	Req                 string   `json:"req"`
	Kind                string   `json:"kind"`
	Optional            bool     `json:"optional"`
	Rename              string   `json:"rename"`
	UsesDefaultFeatures bool     `json:"uses_default_features"`
	Features            []string `json:"features"`
	Target              string   `json:"target"` // cfg expression, display only
}

// Target is a build target (library, binary, proc macro, ...).
type Target struct {
	Name       string   `json:"name"`
	Kind       []string `json:"kind"`
	CrateTypes []string `json:"crate_types"`
	SrcPath    string   `json:"src_path"`
}

// Resolve is cargo's resolved dependency graph.
type Resolve struct {
	Nodes []ResolveNode `json:"nodes"`
	Root  string        `json:"root"`
}

// ResolveNode lists the resolved dependencies of one package.
type ResolveNode struct {
	ID           string    `json:"id"`
	Dependencies []string  `json:"dependencies"`
	Deps         []NodeDep `json:"deps"`
	Features     []string  `json:"features"`
}

// NodeDep links a resolved dependency back to its package id.
type NodeDep struct {
	Name string `json:"name"`
	Pkg  string `json:"pkg"`
}

// Parse decodes `cargo metadata --format-version 1` output.
func Parse(data []byte) (*Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMetadata, err, "decode cargo metadata")
	}
	m.index()
	return &m, nil
}

// New builds a Metadata from packages, for tests and synthetic graphs.
func New(packages []*Package, members ...string) *Metadata {
	m := &Metadata{Packages: packages, WorkspaceMembers: members}
	m.index()
	return m
}

func (m *Metadata) index() {
	m.byID = make(map[string]*Package, len(m.Packages))
	m.byName = make(map[string][]*Package)
	for _, p := range m.Packages {
		m.byID[p.ID] = p
		m.byName[p.Name] = append(m.byName[p.Name], p)
	}
	m.nodes = make(map[string]*ResolveNode)
	if m.Resolve != nil {
		for i := range m.Resolve.Nodes {
			n := &m.Resolve.Nodes[i]
			m.nodes[n.ID] = n
		}
	}
}

// Package returns the package with the given id.
func (m *Metadata) Package(id string) (*Package, bool) {
	p, ok := m.byID[id]
	return p, ok
}

// FindPackage returns the package with the given id or a GraphLookupFailure.
func (m *Metadata) FindPackage(id string) (*Package, error) {
	if p, ok := m.byID[id]; ok {
		return p, nil
	}
	return nil, errors.New(errors.ErrCodeGraphLookup, "package id %q not found in metadata", id)
}

// FindPackagesByName returns every package called name, in graph order.
func (m *Metadata) FindPackagesByName(name string) []*Package {
	return m.byName[name]
}

// ResolveDependency maps a dependency edge of owner to a package record.
// The resolve graph is consulted first, matching the extern crate name
// (the rename, if any) so that two versions of one package stay apart.
// Otherwise the highest-versioned package with the dependency's name is
// returned.
func (m *Metadata) ResolveDependency(owner *Package, dep Dependency) (*Package, bool) {
	if n, ok := m.nodes[owner.ID]; ok {
		crate := strings.ReplaceAll(dep.LocalName(), "-", "_")
		var byName []*Package
		for _, d := range n.Deps {
			p, ok := m.byID[d.Pkg]
			if !ok || p.Name != dep.Name {
				continue
			}
			if d.Name == crate {
				return p, true
			}
			byName = append(byName, p)
		}
		// A [lib] name differing from the package name hides the crate
		// name; an unambiguous package name is still enough.
		if len(byName) == 1 {
			return byName[0], true
		}
	}
	candidates := m.byName[dep.Name]
	if len(candidates) == 0 {
		return nil, false
	}
	return slices.MaxFunc(candidates, func(a, b *Package) int {
		return semver.Compare(canonicalVersion(a.Version), canonicalVersion(b.Version))
	}), true
}

// canonicalVersion adapts a cargo version ("1.0.3") for x/mod/semver.
func canonicalVersion(v string) string {
	if v == "" {
		return ""
	}
	return "v" + strings.TrimPrefix(v, "v")
}

// IsProcMacro reports whether any build target is a procedural macro.
func (p *Package) IsProcMacro() bool {
	for _, t := range p.Targets {
		if slices.Contains(t.Kind, TargetProcMacro) {
			return true
		}
	}
	return false
}

// LibTargetSources returns the root source files of the library targets.
func (p *Package) LibTargetSources() []string {
	return p.targetSources(func(t Target) bool {
		return slices.ContainsFunc(t.Kind, func(k string) bool {
			return k == TargetLib || k == TargetRlib || k == "staticlib" || k == "cdylib" || k == "dylib"
		})
	})
}

// BinTargetSources returns the root source files of the binary targets.
func (p *Package) BinTargetSources() []string {
	return p.targetSources(func(t Target) bool { return slices.Contains(t.Kind, TargetBin) })
}

func (p *Package) targetSources(match func(Target) bool) []string {
	var out []string
	for _, t := range p.Targets {
		if match(t) && t.SrcPath != "" {
			out = append(out, t.SrcPath)
		}
	}
	return out
}

// HasFeature reports whether the feature table declares name.
func (p *Package) HasFeature(name string) bool {
	_, ok := p.Features[name]
	return ok
}

// OptionalDependency returns the optional dependency referred to by name,
// which is the rename when the edge has one.
func (p *Package) OptionalDependency(name string) (int, bool) {
	for i, d := range p.Dependencies {
		if d.Optional && d.Kind != KindDev && d.LocalName() == name {
			return i, true
		}
	}
	return -1, false
}

// DependenciesNamed returns the indexes of every non-dev edge whose local
// name is name. A crate may depend on the same package several times
// (e.g. normal and build, or per target).
func (p *Package) DependenciesNamed(name string) []int {
	var out []int
	for i, d := range p.Dependencies {
		if d.Kind != KindDev && d.LocalName() == name {
			out = append(out, i)
		}
	}
	return out
}

// LocalName is the name the owning package uses for the dependency.
func (d Dependency) LocalName() string {
	if d.Rename != "" {
		return d.Rename
	}
	return d.Name
}
