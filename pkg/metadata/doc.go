// Package metadata models the package graph reported by `cargo metadata`.
//
// # Overview
//
// A [Metadata] value is the decoded output of
// `cargo metadata --format-version 1`: every [Package] reachable from the
// workspace, each with its declared feature table, its [Dependency] edges and
// its build [Target]s. The graph is read-only once parsed; derived data such
// as active feature sets lives in package features.
//
// cargo-no-std asks for the graph twice. The default graph describes the
// workspace as it is; the "full" graph is produced with --all-features so
// that every optional dependency has a concrete package record, whatever
// feature combination is being checked.
//
// # Providers
//
// [Provider] abstracts where metadata comes from. [CargoProvider] runs the
// cargo subprocess and stores the raw JSON in a [cache.Cache], so each
// context is fetched at most once per run:
//
//	p := metadata.NewCargoProvider(c, logger)
//	m, err := p.Metadata(ctx, metadata.Options{ManifestPath: "Cargo.toml"})
//
// Tests use [Static] to serve fixed graphs.
//
// [cache.Cache]: github.com/pykeio/cargo-no-std/pkg/cache.Cache
package metadata
