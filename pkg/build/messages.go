package build

import (
	"bufio"
	"encoding/json"
	"io"
	"path/filepath"

	"github.com/pykeio/cargo-no-std/pkg/errors"
)

const reasonCompilerArtifact = "compiler-artifact"

// Artifact is one compiler-artifact message.
type Artifact struct {
	PackageID  string
	TargetName string
	Kinds      []string
	Filenames  []string
}

// Path returns the first output file, which is the rlib for library targets.
func (a Artifact) Path() string {
	if len(a.Filenames) == 0 {
		return ""
	}
	return a.Filenames[0]
}

// IsRlib reports whether the primary output is an rlib.
func (a Artifact) IsRlib() bool {
	return filepath.Ext(a.Path()) == ".rlib"
}

// Result lists artifacts in the order cargo reported them.
type Result struct {
	Artifacts []Artifact
}

// Main returns the last artifact, which belongs to the package under test.
func (r *Result) Main() (Artifact, bool) {
	if r == nil || len(r.Artifacts) == 0 {
		return Artifact{}, false
	}
	return r.Artifacts[len(r.Artifacts)-1], true
}

type message struct {
	Reason    string `json:"reason"`
	PackageID string `json:"package_id"`
	Target    struct {
		Name string   `json:"name"`
		Kind []string `json:"kind"`
	} `json:"target"`
	Filenames []string `json:"filenames"`
}

// ParseMessages reads cargo's JSON message stream. Lines that are not JSON
// objects and messages other than compiler artifacts are ignored.
func ParseMessages(r io.Reader) (*Result, error) {
	var res Result
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var m message
		if err := json.Unmarshal(line, &m); err != nil {
			continue
		}
		if m.Reason != reasonCompilerArtifact {
			continue
		}
		res.Artifacts = append(res.Artifacts, Artifact{
			PackageID:  m.PackageID,
			TargetName: m.Target.Name,
			Kinds:      m.Target.Kind,
			Filenames:  m.Filenames,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeBuildInvocation, err, "read build messages")
	}
	return &res, nil
}
