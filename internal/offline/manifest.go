package offline

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultVersion names the bucket used when no manifest file is given.
const DefaultVersion = "zkeep-v1"

var (
	ErrNoVersion = errors.New("manifest version is required")
	ErrBadPath   = errors.New("manifest path must start with /")
)

// Manifest lists the resources fetched at install time. Bumping Version is
// the only upgrade path: activation drops every bucket with another name.
type Manifest struct {
	Version string   `yaml:"version"`
	Paths   []string `yaml:"paths"`
}

// DefaultManifest returns the resources served by the web package.
func DefaultManifest() Manifest {
	return Manifest{
		Version: DefaultVersion,
		Paths: []string{
			"/",
			"/index.html",
			"/styles.css",
			"/app.js",
			"/manifest.json",
		},
	}
}

// Validate checks the version tag and that every path is absolute.
func (m Manifest) Validate() error {
	if strings.TrimSpace(m.Version) == "" {
		return ErrNoVersion
	}
	for _, p := range m.Paths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%w: %q", ErrBadPath, p)
		}
	}
	return nil
}

// ParseManifest decodes a YAML manifest.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	m.Version = strings.TrimSpace(m.Version)
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// LoadManifest reads a YAML manifest from path. An empty path yields the
// default manifest.
func LoadManifest(path string) (Manifest, error) {
	if path == "" {
		return DefaultManifest(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}
