package metadata

import (
	"os"
	"slices"

	"github.com/BurntSushi/toml"

	"github.com/pykeio/cargo-no-std/pkg/errors"
)

// ManifestConfig is the cargo-no-std configuration a crate can carry in its
// own Cargo.toml:
//
//	[package.metadata.no-std]
//	allowed = ["getrandom"]
//
// The same table is read from [workspace.metadata.no-std].
type ManifestConfig struct {
	Allowed []string `toml:"allowed"`
}

type cargoManifest struct {
	Package struct {
		Metadata struct {
			NoStd ManifestConfig `toml:"no-std"`
		} `toml:"metadata"`
	} `toml:"package"`
	Workspace struct {
		Metadata struct {
			NoStd ManifestConfig `toml:"no-std"`
		} `toml:"metadata"`
	} `toml:"workspace"`
}

// ReadManifestConfig reads the no-std table of the Cargo.toml at path. A
// manifest without the table yields a zero config.
func ReadManifestConfig(path string) (ManifestConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ManifestConfig{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", path)
	}

	var manifest cargoManifest
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return ManifestConfig{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", path)
	}

	allowed := append(slices.Clone(manifest.Workspace.Metadata.NoStd.Allowed), manifest.Package.Metadata.NoStd.Allowed...)
	slices.Sort(allowed)
	return ManifestConfig{Allowed: slices.Compact(allowed)}, nil
}
