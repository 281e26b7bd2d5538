package extension

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	extlua "github.com/caravel-web/caravel/internal/extension/lua"
)

// Loader discovers and loads extensions from the filesystem. An on-disk
// extension is a directory containing an extension.json manifest, or at
// minimum an api.js file.
type Loader struct {
	// Search paths for extensions (checked in order)
	paths []string

	// Discovered extensions cache
	discovered map[string]*Info
}

// Info contains discovery information about an on-disk extension.
type Info struct {
	Name     string
	Path     string
	Manifest *Manifest
	Err      error
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPaths sets the extension search paths.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = paths
	}
}

// NewLoader creates a new extension loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		discovered: make(map[string]*Info),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Paths returns the configured search paths.
func (l *Loader) Paths() []string {
	return l.paths
}

// AddPath adds a search path.
func (l *Loader) AddPath(path string) {
	l.paths = append(l.paths, path)
}

// Discover finds all extensions in the search paths, sorted by name.
// Earlier paths win on name collisions.
func (l *Loader) Discover() ([]*Info, error) {
	l.discovered = make(map[string]*Info)

	for _, basePath := range l.paths {
		entries, err := os.ReadDir(basePath)
		if err != nil {
			// Missing paths are not errors.
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			info := l.inspect(entry.Name(), filepath.Join(basePath, entry.Name()))
			if _, exists := l.discovered[info.Name]; !exists {
				l.discovered[info.Name] = info
			}
		}
	}

	infos := make([]*Info, 0, len(l.discovered))
	for _, info := range l.discovered {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})

	return infos, nil
}

// inspect examines an extension directory and returns its info.
func (l *Loader) inspect(name, path string) *Info {
	info := &Info{
		Name: name,
		Path: path,
	}

	manifestPath := filepath.Join(path, manifestFileName)
	if _, err := os.Stat(manifestPath); err == nil {
		manifest, err := LoadManifest(manifestPath)
		if err != nil {
			info.Err = fmt.Errorf("invalid manifest: %w", err)
			return info
		}
		info.Manifest = manifest
		info.Name = manifest.Name // Use name from manifest
		return info
	}

	// No manifest - an api.js alone makes a minimal extension.
	if _, err := os.Stat(filepath.Join(path, defaultAPIFile)); err == nil {
		info.Manifest = newManifestMinimal(name, path)
		return info
	}

	info.Err = ErrNoAPIFile
	return info
}

// Find locates a discovered extension by name, searching the paths if it
// has not been discovered yet.
func (l *Loader) Find(name string) (*Info, error) {
	if info, ok := l.discovered[name]; ok {
		return info, nil
	}

	for _, basePath := range l.paths {
		path := filepath.Join(basePath, name)
		if stat, err := os.Stat(path); err == nil && stat.IsDir() {
			info := l.inspect(name, path)
			if info.Err == nil {
				l.discovered[name] = info
				return info, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrExtensionNotFound, name)
}

// Load materializes an Extension from discovery info: the JavaScript API
// is read from disk, and a Lua-backed extension is built when the manifest
// names a native handler script. Lua-backed extensions hold a live
// interpreter and are closed by the Service on teardown.
func (l *Loader) Load(info *Info) (Extension, error) {
	if info.Err != nil {
		return nil, info.Err
	}
	if info.Manifest == nil {
		return nil, ErrNoAPIFile
	}

	api, err := os.ReadFile(info.Manifest.APIPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read api for %q: %w", info.Name, err)
	}

	if mainPath := info.Manifest.MainPath(); mainPath != "" {
		script, err := os.ReadFile(mainPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read handler script for %q: %w", info.Name, err)
		}
		return extlua.New(info.Manifest.Name, string(api), string(script))
	}

	return NewAPIExtension(info.Manifest.Name, string(api)), nil
}

// LoadByName finds and loads an extension in one step.
func (l *Loader) LoadByName(name string) (Extension, error) {
	info, err := l.Find(name)
	if err != nil {
		return nil, err
	}
	return l.Load(info)
}

// Count returns the number of discovered extensions.
func (l *Loader) Count() int {
	return len(l.discovered)
}

// Errors returns discovery entries that failed inspection.
func (l *Loader) Errors() []*Info {
	var errored []*Info
	for _, info := range l.discovered {
		if info.Err != nil {
			errored = append(errored, info)
		}
	}
	return errored
}
