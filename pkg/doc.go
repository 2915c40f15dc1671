// Package pkg provides the libraries behind cargo-no-std.
//
// # Overview
//
// cargo-no-std answers one question about a Rust crate: does it, with the
// features it is built with, pull the standard library into the final
// binary? It answers in two phases:
//
//	cargo metadata (default + --all-features)
//	         ↓
//	    [features] resolve active features, grant them to dependencies
//	         ↓
//	    [support] classify every active package ([source] scans its entry files)
//	         ↓
//	    cargo build --message-format=json  ([build])
//	         ↓
//	    [verify] search each artifact's DWARF for the std namespace
//
// The first phase is a heuristic that works on any platform. The second is
// authoritative but needs an object format with DWARF ([verify.Platform]).
//
// # Quick Start
//
//	provider := metadata.NewCargoProvider(cache.NewNullCache(), logger)
//	runner := pipeline.NewRunner(provider, build.NewCargoBuilder(os.Stderr, logger), logger)
//
//	report, _ := runner.Check(ctx, pipeline.Options{ManifestPath: "Cargo.toml"})
//	for _, p := range report.Packages {
//	    fmt.Println(p.Icon.Symbol(), p.Package.Name)
//	}
//
//	vr, _ := runner.Verify(ctx, pipeline.Options{ManifestPath: "Cargo.toml"}, report.Plan)
//	if vr.Failed() {
//	    fmt.Println("the crate links std")
//	}
//
// # Main Packages
//
// [metadata] - The cargo metadata model, a caching provider, workspace member
// selection and the [package.metadata.no-std] manifest table.
//
// [features] - Feature resolution to a fixed point, projection onto the
// all-features graph and activation chains explaining why a feature is on.
//
// [source] - Shallow scanning of crate entry files for the no_std attribute
// and explicit std imports.
//
// [support] - The closed CrateSupport classification and its verdict icons.
//
// [build] - Cargo invocation and parsing of compiler-artifact messages.
//
// [verify] - ar archive and ELF/Mach-O readers searching DWARF for a
// namespace.
//
// [pipeline] - The check and verify phases, shared by every command.
//
// ## Infrastructure
//
// [cache] - Memory (LRU), file and tiered caches for cargo metadata.
//
// [errors] - Coded errors and input validation.
//
// [observability] - Hooks reporting phase timings, cargo invocations and
// cache lookups.
//
// [buildinfo] - Version information injected at build time.
//
// # Testing
//
//	go test ./...
//
// [pipeline/pipelinetest] and [verify/verifytest] build fixture crates and
// objects on disk, so no test needs cargo or a Rust toolchain.
package pkg
