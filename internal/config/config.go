// Package config loads and validates the slipway pipeline configuration.
//
// Configuration comes from a YAML file, with the branch identifier and all
// credentials overridable through the environment. Descriptor files are
// read-only inputs; the pipeline stages them into place at build time and
// never modifies them.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/slipway-ci/slipway/internal/core/domain"
	"github.com/slipway-ci/slipway/internal/env"
)

// Environment variable read for the branch identifier when no --branch flag
// is given. CI systems export the branch under test here.
const BranchEnv = "SLIPWAY_BRANCH"

var ErrConfig = errors.New("invalid configuration")

// Config is the full pipeline configuration.
type Config struct {
	// Repository is the git URL the source is checked out from.
	Repository string `yaml:"repository"`

	// Branch is the default branch identifier. Overridden by SLIPWAY_BRANCH
	// or the --branch flag.
	Branch string `yaml:"branch"`

	// Image is the repository name of the runtime image. The intermediate
	// image uses this name with a "-build" suffix.
	Image string `yaml:"image"`

	// WorkRoot is the directory runs are namespaced under. Defaults to the
	// XDG state directory.
	WorkRoot string `yaml:"work_root"`

	// Extraction selects the artifact extraction mechanism.
	Extraction domain.ExtractionMethod `yaml:"extraction"`

	Descriptors Descriptors `yaml:"descriptors"`
	Artifact    Artifact    `yaml:"artifact"`
	Publish     Publish     `yaml:"publish"`
	Archive     Archive     `yaml:"archive"`
}

// Descriptors locates the two image descriptor templates.
type Descriptors struct {
	// Build is the path to the build-time descriptor (toolchain image).
	Build string `yaml:"build"`

	// Runtime is the path to the runtime descriptor (minimal image).
	Runtime string `yaml:"runtime"`
}

// Artifact describes the compiled binary the pipeline extracts.
type Artifact struct {
	// Source is the absolute path of the binary inside the intermediate
	// image.
	Source string `yaml:"source"`

	// Name is the filename the binary is written under on the host. Defaults
	// to the basename of Source.
	Name string `yaml:"name"`
}

// Publish configures the optional registry push. Disabled by default; when
// disabled no registry client is ever constructed.
type Publish struct {
	Enabled     bool   `yaml:"enabled"`
	Registry    string `yaml:"registry"`
	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Password resolves the registry password from the configured environment
// variable. Credentials are never stored in the configuration file.
func (p Publish) Password() string {
	if p.PasswordEnv == "" {
		return ""
	}
	return env.String(p.PasswordEnv, "")
}

// Archive configures the optional artifact upload to an S3-compatible
// object store. Disabled by default.
type Archive struct {
	Enabled      bool   `yaml:"enabled"`
	Endpoint     string `yaml:"endpoint"`
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	UseSSL       bool   `yaml:"use_ssl"`
	AccessKeyEnv string `yaml:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`
}

// Credentials resolves the object store key pair from the environment.
func (a Archive) Credentials() (accessKey, secretKey string) {
	return env.String(a.AccessKeyEnv, ""), env.String(a.SecretKeyEnv, "")
}

// Load reads, defaults, and validates the configuration at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Branch == "" {
		c.Branch = "main"
	}
	c.Branch = env.String(BranchEnv, c.Branch)

	if c.WorkRoot == "" {
		c.WorkRoot = filepath.Join(xdg.StateHome, "slipway")
	}
	if c.Extraction == "" {
		c.Extraction = domain.ExtractRunCopy
	}
	if c.Artifact.Name == "" && c.Artifact.Source != "" {
		c.Artifact.Name = filepath.Base(c.Artifact.Source)
	}
	if c.Publish.PasswordEnv == "" {
		c.Publish.PasswordEnv = "SLIPWAY_REGISTRY_PASSWORD"
	}
}

func (c *Config) validate() error {
	switch {
	case c.Repository == "":
		return fmt.Errorf("%w: repository is required", ErrConfig)
	case c.Image == "":
		return fmt.Errorf("%w: image is required", ErrConfig)
	case c.Descriptors.Build == "":
		return fmt.Errorf("%w: descriptors.build is required", ErrConfig)
	case c.Descriptors.Runtime == "":
		return fmt.Errorf("%w: descriptors.runtime is required", ErrConfig)
	case c.Artifact.Source == "":
		return fmt.Errorf("%w: artifact.source is required", ErrConfig)
	case !filepath.IsAbs(c.Artifact.Source):
		return fmt.Errorf("%w: artifact.source must be an absolute in-image path", ErrConfig)
	case !c.Extraction.Valid():
		return fmt.Errorf("%w: extraction must be %q or %q", ErrConfig,
			domain.ExtractRunCopy, domain.ExtractVolumeMount)
	}

	if c.Publish.Enabled && c.Publish.Registry == "" {
		return fmt.Errorf("%w: publish.registry is required when publish is enabled", ErrConfig)
	}
	if c.Archive.Enabled {
		if c.Archive.Endpoint == "" || c.Archive.Bucket == "" {
			return fmt.Errorf("%w: archive.endpoint and archive.bucket are required when archiving is enabled", ErrConfig)
		}
	}
	return nil
}
