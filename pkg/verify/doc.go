// Package verify inspects compiled Rust artifacts for references to a
// runtime crate.
//
// An artifact is an rlib, which is an ar archive of object files and
// crate metadata. Every member whose name ends in ".o" is opened as an
// ELF or Mach-O object and its DWARF debugging information is walked
// depth first. The artifact references the runtime when any unit holds
// a namespace entry named exactly like it ("std"). The search stops at
// the first hit, so a malformed member after a hit is never decoded.
//
// Failures are coded with ARCHIVE_PARSE_FAILURE, OBJECT_PARSE_FAILURE or
// DEBUG_INFO_DECODE_FAILURE; callers treat each as an inconclusive result
// for that artifact rather than a reason to stop.
//
// Verification needs the toolchain's native object format, so it is gated
// behind [Platform]. See [Capability].
package verify
