package metadata

import (
	"path/filepath"
	"strings"

	"github.com/pykeio/cargo-no-std/pkg/errors"
)

// SelectMember picks the workspace member under test.
//
// With a name (--package) the member of that name is returned. Otherwise a
// single-member workspace yields its only member, and a larger workspace
// yields the member whose manifest sits in dir (the directory cargo-no-std
// was started from). Anything else is a GraphLookupFailure.
func (m *Metadata) SelectMember(name, dir string) (*Package, error) {
	members := make([]*Package, 0, len(m.WorkspaceMembers))
	for _, id := range m.WorkspaceMembers {
		p, err := m.FindPackage(id)
		if err != nil {
			return nil, err
		}
		members = append(members, p)
	}

	if name != "" {
		for _, p := range members {
			if p.Name == name {
				return p, nil
			}
		}
		return nil, errors.New(errors.ErrCodeGraphLookup, "package %q is not a member of the workspace (members: %s)", name, memberNames(members))
	}

	switch len(members) {
	case 0:
		return nil, errors.New(errors.ErrCodeGraphLookup, "workspace has no members")
	case 1:
		return members[0], nil
	}

	if dir != "" {
		want := filepath.Clean(dir)
		for _, p := range members {
			if filepath.Dir(filepath.Clean(p.ManifestPath)) == want {
				return p, nil
			}
		}
	}
	return nil, errors.New(errors.ErrCodeGraphLookup, "workspace has several members, select one with --package (members: %s)", memberNames(members))
}

func memberNames(pkgs []*Package) string {
	names := make([]string, len(pkgs))
	for i, p := range pkgs {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}
