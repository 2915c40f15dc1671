// Package build compiles the package under test and reports the artifacts
// cargo produced.
//
// Cargo is run twice: a plain build whose progress goes to the terminal,
// then the same build with --message-format=json whose compiler-artifact
// messages are collected in arrival order. Cargo emits the package under
// test last, so [Result.Main] is the final artifact.
package build
