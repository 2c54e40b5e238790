package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/go-mmap/mmap"
)

// ErrNotFound is returned when no source holds the requested path.
var ErrNotFound = errors.New("file not found")

// Source provides raw file contents by virtual path.
type Source interface {
	Read(path string) ([]byte, error)
}

// DirSource reads files below a directory on disk.
type DirSource struct {
	Root string
}

// NewDirSource checks that root is a directory and returns a source reading from it.
func NewDirSource(root string) (*DirSource, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("opening data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("opening data directory: %s is not a directory", root)
	}
	return &DirSource{Root: root}, nil
}

// Read maps the file read-only and copies it out.
func (d *DirSource) Read(path string) ([]byte, error) {
	full, err := d.resolve(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	f, err := mmap.Open(full)
	if err != nil {
		return nil, fmt.Errorf("mapping %s: %w", path, err)
	}
	defer f.Close()

	data := make([]byte, f.Len())
	if len(data) == 0 {
		return data, nil
	}
	if _, err := f.ReadAt(data, 0); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// resolve finds path below Root ignoring case, so every spelling that
// normalizes to the same key opens the same file.
func (d *DirSource) resolve(path string) (string, error) {
	full := filepath.Join(d.Root, filepath.FromSlash(slashPath(path)))
	if _, err := os.Stat(full); err == nil {
		return full, nil
	}

	dir := d.Root
	for _, part := range strings.Split(strings.Trim(slashPath(path), "/"), "/") {
		if part == "" || part == "." {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return "", err
		}
		found := ""
		for _, e := range entries {
			if strings.EqualFold(e.Name(), part) {
				found = e.Name()
				break
			}
		}
		if found == "" {
			return "", fs.ErrNotExist
		}
		dir = filepath.Join(dir, found)
	}
	return dir, nil
}

// MemSource serves files from memory, keyed by normalized path.
type MemSource map[string][]byte

// Read returns the stored contents of path.
func (m MemSource) Read(path string) ([]byte, error) {
	data, ok := m[NormalizePath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return data, nil
}

// NormalizePath folds a game data path for case-insensitive lookup.
// Game data tables reference files with backslashes and mixed case.
func NormalizePath(path string) string {
	return strings.ToLower(strings.TrimPrefix(slashPath(path), "/"))
}

func slashPath(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}
