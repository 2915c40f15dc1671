// Package source inspects crate entry files for no_std support.
//
// The scanner reads the crate-level inner attributes at the top of each
// entry file (lib.rs, and main.rs for the package under test) looking for
//
//	#![no_std]
//	#![cfg_attr(not(feature = "std"), no_std)]
//
// The conditional form is recognised for any feature name. Other
// conditions on no_std (all(...), any(...), target cfgs, several
// features) are reported as unsupported rather than guessed at.
//
// When a file opts in unconditionally, its lines are also searched for
// explicit imports from std ("use std::...", "extern crate std").
//
// Only entry files are read. Modules declared with `mod foo;` live in other
// files and are not followed, so a crate that imports std only from a
// submodule is not reported here; binary verification catches it.
package source
