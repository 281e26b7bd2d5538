package extension

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Manifest describes an on-disk extension: its identity and entry points.
type Manifest struct {
	// Identity
	Name        string `json:"name"`        // Unique dotted identifier (e.g. "device.battery")
	Version     string `json:"version"`     // Semver (e.g. "1.2.0")
	Description string `json:"description"` // Short description

	// Entry points
	API  string `json:"api"`  // Relative path to the JavaScript API file (default: "api.js")
	Main string `json:"main"` // Optional Lua script implementing the native handler

	// Internal: path to the extension directory
	path string
}

// Manifest validation errors.
var (
	ErrMissingManifestName = errors.New("manifest: name is required")
	ErrInvalidManifestName = errors.New("manifest: name must be dot-separated identifier segments")
	ErrInvalidVersion      = errors.New("manifest: version must be valid semver")
	ErrInvalidAPI          = errors.New("manifest: api must be a .js file")
	ErrInvalidMain         = errors.New("manifest: main must be a .lua file")
)

// semverPattern validates version strings (simplified semver).
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

// manifestFileName is the manifest file looked up in extension directories.
const manifestFileName = "extension.json"

// defaultAPIFile is the JavaScript API entry point assumed when the
// manifest does not name one.
const defaultAPIFile = "api.js"

// LoadManifest loads and validates an extension manifest from a file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	m.path = filepath.Dir(path)
	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// LoadManifestFromDir loads the manifest from an extension directory.
func LoadManifestFromDir(dir string) (*Manifest, error) {
	return LoadManifest(filepath.Join(dir, manifestFileName))
}

// newManifestMinimal creates a minimal manifest for extensions that ship
// only an api.js and no manifest file.
func newManifestMinimal(name, path string) *Manifest {
	return &Manifest{
		Name:    name,
		Version: "0.0.0",
		API:     defaultAPIFile,
		path:    path,
	}
}

// applyDefaults sets default values for optional fields.
func (m *Manifest) applyDefaults() {
	if m.API == "" {
		m.API = defaultAPIFile
	}
	if m.Version == "" {
		m.Version = "0.0.0"
	}
}

// Validate checks that the manifest is valid.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return ErrMissingManifestName
	}
	if !ValidateName(m.Name) {
		return fmt.Errorf("%w: %s", ErrInvalidManifestName, m.Name)
	}

	if !semverPattern.MatchString(m.Version) {
		return fmt.Errorf("%w: %s", ErrInvalidVersion, m.Version)
	}

	if filepath.Ext(m.API) != ".js" {
		return fmt.Errorf("%w: %s", ErrInvalidAPI, m.API)
	}

	if m.Main != "" && filepath.Ext(m.Main) != ".lua" {
		return fmt.Errorf("%w: %s", ErrInvalidMain, m.Main)
	}

	return nil
}

// Path returns the path to the extension directory.
func (m *Manifest) Path() string {
	return m.path
}

// APIPath returns the full path to the JavaScript API file.
func (m *Manifest) APIPath() string {
	return filepath.Join(m.path, m.API)
}

// MainPath returns the full path to the Lua handler script, or "" when the
// extension has no native handler.
func (m *Manifest) MainPath() string {
	if m.Main == "" {
		return ""
	}
	return filepath.Join(m.path, m.Main)
}

// String returns a string representation of the manifest.
func (m *Manifest) String() string {
	return fmt.Sprintf("%s v%s", m.Name, m.Version)
}
