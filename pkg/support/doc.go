// Package support classifies how well a crate supports no_std.
//
// [CrateSupport] is a closed set of outcomes. Exactly one is assigned per
// package per run by [Classify], which applies a fixed precedence: the
// user's allow-list, then proc-macro crates, then whatever the source
// scanner concluded. [CrateSupport.Verdict] turns an outcome into the icon
// printed next to the package name.
package support
