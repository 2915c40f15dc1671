// Package features reimplements cargo's feature activation.
//
// # Resolution
//
// [Resolve] computes, for one package and a requested feature list, the
// closed set of active features and the set of active dependency edges. It
// is a pure function of the graph and the request: a work queue of
// [Directive]s is drained until a fixed point is reached, so cyclic feature
// tables terminate and activating a feature twice is the same as once.
//
// The directive grammar follows Cargo.toml:
//
//	"feat"      another feature of the same package
//	"dep:name"  the optional dependency name
//	"name/feat" feature feat of dependency name (activating name if optional)
//	"name?/feat" feature feat of name, only if name is otherwise active
//
// Features requested of a dependency are not resolved in place; they are
// collected in [Resolution.Forwarded] and applied when that dependency is
// resolved.
//
// # Projection
//
// [Project] maps active dependency edges onto package records of the
// all-features graph. [DependencyFeatures] walks the whole active
// dependency tree, resolving each package with the features its parents
// grant it, until no grant changes. The result answers "which of this
// crate's own features are switched on by the build under test", which is
// what a cfg_attr(not(feature = ...), no_std) attribute depends on.
package features
