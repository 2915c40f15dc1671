//go:build !linux && !darwin

package verify

// Platform returns the verification capability of the host.
func Platform() Capability {
	return hostCapability{}
}
