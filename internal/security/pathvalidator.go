package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	ErrPathEscapes = errors.New("path escapes working directory")
	ErrEmptyPath   = errors.New("empty path not allowed")
)

// FilePermSecure is the mode used for files written with decrypted content.
const FilePermSecure = 0600

// PathValidator confines CLI file access (post bodies read from disk,
// exports, diffs) to one directory using os.Root.
type PathValidator struct {
	root *os.Root
	dir  string
}

// New opens dir as the confinement root.
func New(dir string) (*PathValidator, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open root %s: %w", absPath, err)
	}

	return &PathValidator{root: root, dir: absPath}, nil
}

// Close releases the root handle.
func (pv *PathValidator) Close() error {
	if pv.root != nil {
		return pv.root.Close()
	}
	return nil
}

// Dir returns the absolute confinement directory.
func (pv *PathValidator) Dir() string {
	return pv.dir
}

// Resolve validates a user-supplied path and returns it relative to the
// root. Absolute paths are accepted only when they point inside the root.
func (pv *PathValidator) Resolve(userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}

	if filepath.IsAbs(userPath) {
		rel, err := filepath.Rel(pv.dir, userPath)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
		}
		userPath = rel
	}

	clean := filepath.Clean(userPath)
	if !filepath.IsLocal(clean) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
	}
	return clean, nil
}

// ReadFile reads a file inside the root.
func (pv *PathValidator) ReadFile(path string) ([]byte, error) {
	rel, err := pv.Resolve(path)
	if err != nil {
		return nil, err
	}
	return pv.root.ReadFile(rel)
}

// WriteFile writes data inside the root with FilePermSecure, creating parent
// directories as needed.
func (pv *PathValidator) WriteFile(path string, data []byte) error {
	rel, err := pv.Resolve(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(rel); dir != "." {
		if err := pv.root.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return pv.root.WriteFile(rel, data, FilePermSecure)
}

// Stat stats a file inside the root.
func (pv *PathValidator) Stat(path string) (os.FileInfo, error) {
	rel, err := pv.Resolve(path)
	if err != nil {
		return nil, err
	}
	return pv.root.Stat(rel)
}
