package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/pykeio/cargo-no-std/pkg/support"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestScanner() *Scanner {
	return NewScanner(log.New(os.Stderr))
}

func TestScanSingleFile(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want support.CrateSupport
	}{
		{
			name: "plain no_std",
			src:  "#![no_std]\n\npub fn add(a: u32, b: u32) -> u32 { a + b }\n",
			want: support.NoOffenseDetected(),
		},
		{
			name: "no_std after comments and other attributes",
			src: `//! Crate docs.
/* licence
   /* nested */ header */
#![deny(missing_docs)]
#![
    no_std
]

pub struct S;
`,
			want: support.NoOffenseDetected(),
		},
		{
			name: "missing attribute",
			src:  "pub fn f() {}\n",
			want: support.SourceOffenses(support.MissingOptInAttribute()),
		},
		{
			name: "missing attribute hides explicit use",
			src:  "use std::fmt;\npub fn f() {}\n",
			want: support.SourceOffenses(support.MissingOptInAttribute()),
		},
		{
			name: "attribute after first item is not a crate attribute",
			src:  "pub fn f() {}\n#![no_std]\n",
			want: support.SourceOffenses(support.MissingOptInAttribute()),
		},
		{
			name: "explicit std use",
			src:  "#![no_std]\nuse std::fmt;\n",
			want: support.SourceOffenses(support.ExplicitRuntimeUse("use std::fmt;")),
		},
		{
			name: "several explicit uses",
			src: `#![no_std]
extern crate std;
    pub use ::std::vec::Vec;
use {core::mem, std::io};
use core::fmt; // std::fmt would be wrong here
/* use std::io; */
const S: &str = "use std::fmt;";
use stdx::thing;
use my::std::thing;
`,
			want: support.SourceOffenses(
				support.ExplicitRuntimeUse("extern crate std;"),
				support.ExplicitRuntimeUse("pub use ::std::vec::Vec;"),
				support.ExplicitRuntimeUse("use {core::mem, std::io};"),
			),
		},
		{
			name: "conditional on std feature",
			src:  "#![cfg_attr(not(feature = \"std\"), no_std)]\nuse std::fmt;\n",
			want: support.OnlyWithoutFeature("std"),
		},
		{
			name: "conditional on any feature name",
			src:  "#![cfg_attr( not( feature=\"use-alloc-only\" ) , no_std )]\n",
			want: support.OnlyWithoutFeature("use-alloc-only"),
		},
		{
			name: "conditional with extra attributes",
			src:  "#![cfg_attr(not(feature = \"std\"), no_std, feature(alloc_error_handler))]\n",
			want: support.OnlyWithoutFeature("std"),
		},
		{
			name: "unconditional wins over conditional",
			src:  "#![cfg_attr(not(feature = \"std\"), no_std)]\n#![no_std]\n",
			want: support.NoOffenseDetected(),
		},
		{
			name: "multiply conditioned attribute",
			src:  "#![cfg_attr(all(not(feature = \"std\"), not(test)), no_std)]\n",
			want: support.SourceOffenses(support.UnsupportedAttribute("#![cfg_attr(all(not(feature = \"std\"), not(test)), no_std)]")),
		},
		{
			name: "target conditioned attribute",
			src:  "#![cfg_attr(target_os = \"none\", no_std)]\n",
			want: support.SourceOffenses(support.UnsupportedAttribute("#![cfg_attr(target_os = \"none\", no_std)]")),
		},
		{
			name: "conflicting conditional attributes",
			src:  "#![cfg_attr(not(feature = \"std\"), no_std)]\n#![cfg_attr(not(feature = \"alloc\"), no_std)]\n",
			want: support.SourceOffenses(support.UnsupportedAttribute("several conditional no_std attributes")),
		},
		{
			name: "unrelated cfg_attr",
			src:  "#![cfg_attr(docsrs, feature(doc_cfg))]\n",
			want: support.SourceOffenses(support.MissingOptInAttribute()),
		},
		{
			name: "multi-line string literal",
			src:  "#![no_std]\nconst HELP: &str = \"usage:\nuse std::fmt;\n  \\\"quoted\\\"\n\";\nuse std::io;\n",
			want: support.SourceOffenses(support.ExplicitRuntimeUse("use std::io;")),
		},
		{
			name: "multi-line raw string literal",
			src:  "#![no_std]\nconst R: &str = r#\"a \"quote\"\nuse std::fmt;\n\"#;\nconst B: &[u8] = br\"\nuse std::vec;\";\nuse std::io;\n",
			want: support.SourceOffenses(support.ExplicitRuntimeUse("use std::io;")),
		},
		{
			name: "quote char literal and lifetimes",
			src:  "#![no_std]\nconst Q: char = '\"';\nfn f<'a>(s: &'a str) -> &'a str { s }\nuse std::io;\n",
			want: support.SourceOffenses(support.ExplicitRuntimeUse("use std::io;")),
		},
		{
			name: "byte order mark",
			src:  "\ufeff#![no_std]\n",
			want: support.NoOffenseDetected(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "lib.rs", tt.src)
			got := newTestScanner().Scan([]string{path})
			if !got.Equal(tt.want) {
				t.Errorf("Scan() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScanMultipleFiles(t *testing.T) {
	dir := t.TempDir()
	missing := writeFile(t, dir, "src/main.rs", "fn main() {}\n")
	clean := writeFile(t, dir, "src/lib.rs", "#![no_std]\n")
	conditional := writeFile(t, dir, "src/cond.rs", "#![cfg_attr(not(feature = \"std\"), no_std)]\n")
	unsupported := writeFile(t, dir, "src/odd.rs", "#![cfg_attr(any(), no_std)]\n")

	tests := []struct {
		name  string
		paths []string
		want  support.CrateSupport
	}{
		{"first file lacks attribute", []string{missing, clean}, support.NoOffenseDetected()},
		{"first opt-in decides", []string{conditional, clean}, support.OnlyWithoutFeature("std")},
		{"unsupported then clean", []string{unsupported, clean}, support.NoOffenseDetected()},
		{"unsupported beats missing", []string{missing, unsupported}, support.SourceOffenses(support.UnsupportedAttribute("#![cfg_attr(any(), no_std)]"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTestScanner().Scan(tt.paths)
			if !got.Equal(tt.want) {
				t.Errorf("Scan() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScanUnreadable(t *testing.T) {
	got := newTestScanner().Scan([]string{filepath.Join(t.TempDir(), "nope.rs")})
	if !got.Has(support.OffenseSourceUnreadable) {
		t.Errorf("Scan() = %v, want a SourceUnreadable offense", got)
	}
	if got.Fails() {
		t.Error("an unreadable entry file must not fail the run")
	}
	if got.Verdict(nil) != support.IconMaybe {
		t.Errorf("Verdict() = %v, want IconMaybe", got.Verdict(nil))
	}
}

func TestScanCustomRuntime(t *testing.T) {
	path := writeFile(t, t.TempDir(), "lib.rs", "#![no_std]\nuse alloc::vec::Vec;\nuse std::fmt;\n")
	got := NewRuntimeScanner("alloc", nil).Scan([]string{path})
	want := support.SourceOffenses(support.ExplicitRuntimeUse("use alloc::vec::Vec;"))
	if !got.Equal(want) {
		t.Errorf("Scan() = %v, want %v", got, want)
	}
}

func TestCrateAttributes(t *testing.T) {
	src := "#!/usr/bin/env run-cargo-script\n// c\n#![a]\n#![b(\"]\")]\nfn main() {}\n#![c]\n"
	if diff := cmp.Diff([]string{"a", `b("]")`}, crateAttributes(src)); diff != "" {
		t.Errorf("crateAttributes mismatch (-want +got):\n%s", diff)
	}
}
