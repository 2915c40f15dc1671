package verify

// Capability describes whether binary verification can run on the host.
type Capability interface {
	// Available reports whether artifacts built here can be verified.
	Available() bool
	// Notice is printed after a failing check when verification is
	// unavailable.
	Notice() string
}

// UnverifiedNotice is shown when results come from the source scan alone.
const UnverifiedNotice = "These results are only guesses; run again on Linux to truly verify no_std support for crates."

type hostCapability struct {
	available bool
}

func (c hostCapability) Available() bool { return c.available }

func (c hostCapability) Notice() string {
	if c.available {
		return ""
	}
	return UnverifiedNotice
}

// Static returns a Capability with a fixed answer.
func Static(available bool) Capability {
	return hostCapability{available: available}
}
