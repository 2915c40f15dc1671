package cli

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pykeio/cargo-no-std/pkg/errors"
	"github.com/pykeio/cargo-no-std/pkg/pipeline"
)

// Configuration keys shared by the config file, the environment
// (CARGO_NO_STD_<KEY>) and the command-line flags.
const (
	keyAllowed           = "allowed"
	keyFeatures          = "features"
	keyNoDefaultFeatures = "no_default_features"
	keyNoVerify          = "no_verify"
	keyCache             = "cache"

	configName = "cargo-no-std"
	envPrefix  = "CARGO_NO_STD"
)

// Config is the effective configuration of a run.
type Config struct {
	Allowed           []string `mapstructure:"allowed"`
	Features          []string `mapstructure:"features"`
	NoDefaultFeatures bool     `mapstructure:"no_default_features"`
	NoVerify          bool     `mapstructure:"no_verify"`
	Cache             bool     `mapstructure:"cache"`

	// Flag-only settings.
	ManifestPath string `mapstructure:"-"`
	Package      string `mapstructure:"-"`
	Dir          string `mapstructure:"-"`
}

// flags holds the persistent flags of the root command.
type flags struct {
	manifestPath      string
	pkg               string
	configFile        string
	features          []string
	allowed           []string
	noDefaultFeatures bool
	noVerify          bool
	cache             bool
}

func (f *flags) register(root *cobra.Command) {
	pf := root.PersistentFlags()
	pf.StringVar(&f.manifestPath, "manifest-path", "", "path to Cargo.toml")
	pf.StringVarP(&f.pkg, "package", "p", "", "workspace member to check")
	pf.StringVar(&f.configFile, "config", "", "config file (default: ./"+configName+".toml)")
	pf.StringSliceVar(&f.features, "features", nil, "features to activate (comma or space separated)")
	pf.StringSliceVar(&f.allowed, "allowed", nil, "packages to skip")
	pf.BoolVar(&f.noDefaultFeatures, "no-default-features", false, "do not activate the default feature")
	pf.BoolVar(&f.noVerify, "no-verify", false, "skip building and verifying artifacts")
	pf.BoolVar(&f.cache, "cache", false, "keep cargo metadata in the on-disk cache")
}

// load merges the config file, the environment and the flags of cmd, in
// increasing precedence.
func (f *flags) load(cmd *cobra.Command) (Config, error) {
	v := viper.New()
	v.SetDefault(keyAllowed, []string{})
	v.SetDefault(keyFeatures, []string{})
	v.SetDefault(keyNoDefaultFeatures, false)
	v.SetDefault(keyNoVerify, false)
	v.SetDefault(keyCache, false)

	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}
	if f.configFile != "" {
		v.SetConfigFile(f.configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("toml")
		if f.manifestPath != "" {
			v.AddConfigPath(filepath.Dir(f.manifestPath))
		}
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	pf := cmd.Flags()
	for key, flag := range map[string]string{
		keyAllowed:           "allowed",
		keyFeatures:          "features",
		keyNoDefaultFeatures: "no-default-features",
		keyNoVerify:          "no-verify",
		keyCache:             "cache",
	} {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "bind flag %s", flag)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode config")
	}
	// Environment values arrive as one string.
	cfg.Allowed = pipeline.SplitList(v.GetStringSlice(keyAllowed))
	cfg.Features = pipeline.SplitList(v.GetStringSlice(keyFeatures))
	cfg.ManifestPath = f.manifestPath
	cfg.Package = f.pkg
	if f.manifestPath == "" {
		cfg.Dir = dir
	}
	return cfg, nil
}

// Options converts the configuration into pipeline options.
func (c Config) Options() pipeline.Options {
	return pipeline.Options{
		ManifestPath:      c.ManifestPath,
		Package:           c.Package,
		NoDefaultFeatures: c.NoDefaultFeatures,
		Features:          c.Features,
		Allowed:           c.Allowed,
		Dir:               c.Dir,
	}
}
