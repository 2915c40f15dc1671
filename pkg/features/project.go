package features

import (
	"slices"

	"github.com/pykeio/cargo-no-std/pkg/metadata"
)

// Project maps the active dependency edges of a resolution onto package
// records of full, the all-features graph, in discovery order. Each package
// appears once; edges without a package in full are skipped.
func Project(full *metadata.Metadata, res *Resolution) []*metadata.Package {
	owner, ok := full.Package(res.PackageID)
	if !ok {
		return nil
	}
	var (
		out  []*metadata.Package
		seen = make(map[string]bool)
	)
	for _, ref := range res.Dependencies.Refs() {
		p, ok := full.ResolveDependency(owner, owner.Dependencies[ref.Index])
		if !ok || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

// Granted is the result of resolving the whole active dependency tree.
type Granted struct {
	// Order lists every active dependency package id in breadth-first
	// discovery order, excluding the root.
	Order []string

	// Unresolved lists dependency names that had no package record.
	Unresolved []string

	resolutions map[string]*Resolution
	origins     map[Feature]Feature
}

// Resolution returns the resolution computed for pkgID.
func (g *Granted) Resolution(pkgID string) (*Resolution, bool) {
	r, ok := g.resolutions[pkgID]
	return r, ok
}

// Features returns the sorted active feature names of pkgID.
func (g *Granted) Features(pkgID string) []string {
	if r, ok := g.resolutions[pkgID]; ok {
		return r.FeatureNames()
	}
	return nil
}

// All returns the union of every package's active features, the root's included.
func (g *Granted) All() FeatureSet {
	out := make(FeatureSet)
	for _, r := range g.resolutions {
		out.Union(r.Features)
	}
	return out
}

// Origin returns the feature that activated f, which may belong to another
// package, and whether one is known.
func (g *Granted) Origin(f Feature) (Feature, bool) {
	o, ok := g.origins[f]
	return o, ok
}

// Chain follows origins from f back to a feature that was requested
// directly. The first element is f itself.
func (g *Granted) Chain(f Feature) []Feature {
	chain := []Feature{f}
	seen := map[Feature]bool{f: true}
	for {
		o, ok := g.origins[f]
		if !ok || seen[o] {
			return chain
		}
		chain = append(chain, o)
		seen[o] = true
		f = o
	}
}

type grant struct {
	features   []string
	useDefault bool
	defaultBy  string // first parent requesting default features
	origins    map[string]Feature
}

// DependencyFeatures resolves every package reachable through active
// dependency edges of root, in full. Each package is resolved with the
// union of everything its parents request of it: the features listed on
// the dependency declaration, its default feature unless
// default-features = false, and features forwarded by parent directives.
// A package is re-resolved whenever its grant grows, until a fixed point.
func DependencyFeatures(full *metadata.Metadata, root *Resolution) *Granted {
	g := &Granted{
		resolutions: map[string]*Resolution{root.PackageID: root},
		origins:     make(map[Feature]Feature),
	}
	for f, o := range root.Origins {
		g.origins[f] = o
	}

	grants := make(map[string]*grant)
	queue := []string{}
	queued := make(map[string]bool)
	discovered := map[string]bool{root.PackageID: true}
	unresolved := make(map[string]bool)

	propagate := func(parent *Resolution) {
		owner, ok := full.Package(parent.PackageID)
		if !ok {
			return
		}
		for _, ref := range parent.Dependencies.Refs() {
			dep := owner.Dependencies[ref.Index]
			target, ok := full.ResolveDependency(owner, dep)
			if !ok {
				if !unresolved[dep.Name] {
					unresolved[dep.Name] = true
					g.Unresolved = append(g.Unresolved, dep.Name)
				}
				continue
			}
			if target.ID == root.PackageID {
				continue
			}

			gr, ok := grants[target.ID]
			if !ok {
				gr = &grant{origins: make(map[string]Feature)}
				grants[target.ID] = gr
			}
			changed := !ok
			add := func(name string, by Feature) {
				if slices.Contains(gr.features, name) {
					return
				}
				gr.features = append(gr.features, name)
				gr.origins[name] = by
				changed = true
			}
			edge := Feature{PackageID: parent.PackageID}
			for _, f := range dep.Features {
				add(f, edge)
			}
			for _, a := range parent.Forwarded[dep.LocalName()] {
				add(a.Feature, Feature{PackageID: parent.PackageID, Name: a.By})
			}
			if dep.UsesDefaultFeatures && !gr.useDefault {
				gr.useDefault = true
				gr.defaultBy = parent.PackageID
				changed = true
			}

			if !discovered[target.ID] {
				discovered[target.ID] = true
				g.Order = append(g.Order, target.ID)
			}
			if changed && !queued[target.ID] {
				queued[target.ID] = true
				queue = append(queue, target.ID)
			}
		}
	}

	propagate(root)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		queued[id] = false

		pkg, _ := full.Package(id)
		gr := grants[id]
		res, _ := resolvePackage(pkg, gr.features, gr.useDefault, false)
		for name, by := range gr.origins {
			f := Feature{PackageID: id, Name: name}
			if res.Features.Has(id, name) {
				g.origins[f] = by
			}
		}
		if gr.useDefault {
			f := Feature{PackageID: id, Name: metadata.DefaultFeature}
			if _, ok := g.origins[f]; !ok && res.Features.Has(id, metadata.DefaultFeature) {
				g.origins[f] = Feature{PackageID: gr.defaultBy}
			}
		}
		for f, o := range res.Origins {
			g.origins[f] = o
		}
		g.resolutions[id] = res
		propagate(res)
	}

	return g
}
