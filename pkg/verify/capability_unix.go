//go:build linux || darwin

package verify

// Platform returns the verification capability of the host. Linux and
// macOS toolchains leave DWARF in the rlib objects.
func Platform() Capability {
	return hostCapability{available: true}
}
