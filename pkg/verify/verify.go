package verify

import (
	"os"

	"github.com/charmbracelet/log"

	"github.com/pykeio/cargo-no-std/pkg/errors"
)

// RuntimeNamespace is the namespace a no_std artifact must not contain.
const RuntimeNamespace = "std"

// Verifier checks artifacts on disk.
type Verifier struct {
	// ReadFile defaults to os.ReadFile.
	ReadFile func(path string) ([]byte, error)
	// Load defaults to LoadDWARF.
	Load   ObjectLoader
	Logger *log.Logger
}

// NewVerifier returns a Verifier reading from the local filesystem.
func NewVerifier(logger *log.Logger) *Verifier {
	if logger == nil {
		logger = log.Default()
	}
	return &Verifier{ReadFile: os.ReadFile, Load: LoadDWARF, Logger: logger}
}

// ContainsNamespace reports whether the artifact at path has debugging
// information declaring namespace name.
func ContainsNamespace(path, name string) (bool, error) {
	return NewVerifier(nil).ContainsNamespace(path, name)
}

// ContainsRuntimeNamespace reports whether the artifact at path references std.
func (v *Verifier) ContainsRuntimeNamespace(path string) (bool, error) {
	return v.ContainsNamespace(path, RuntimeNamespace)
}

// ContainsNamespace reports whether the artifact at path has debugging
// information declaring namespace name. Archives are searched member by
// member; anything else is treated as a single object.
func (v *Verifier) ContainsNamespace(path, name string) (bool, error) {
	data, err := v.ReadFile(path)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeArchiveParse, err, "read %s", path)
	}

	if !IsArchive(data) {
		return v.objectContains(path, data, name)
	}

	a, err := ParseArchive(data)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeArchiveParse, err, "parse %s", path)
	}
	for _, m := range a.Objects() {
		found, err := v.objectContains(m.Name, m.Data, name)
		if err != nil {
			code := errors.GetCode(err)
			if code == "" {
				code = errors.ErrCodeObjectParse
			}
			return false, errors.Wrap(code, err, "%s(%s)", path, m.Name)
		}
		if found {
			v.Logger.Debug("found namespace", "artifact", path, "member", m.Name, "namespace", name)
			return true, nil
		}
	}
	return false, nil
}

func (v *Verifier) objectContains(label string, data []byte, name string) (bool, error) {
	d, err := v.Load(data)
	if err != nil {
		return false, err
	}
	if d == nil {
		v.Logger.Debug("object has no debug info", "object", label)
		return false, nil
	}
	return containsNamespace(d, name)
}
