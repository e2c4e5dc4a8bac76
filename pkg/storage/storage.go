// Package storage defines the virtual project file store the editor and
// player persist story files to, with an in-memory implementation and an
// Azure Blob Storage implementation.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/wehubfusion/Fabula/pkg/errors"
)

// Store is the key-value file store contract. Paths use forward slashes;
// a folder is the prefix shared by the files within it.
type Store interface {
	// Read returns the contents of the stored file. A missing path yields
	// errors.ErrNotFound.
	Read(ctx context.Context, path string) ([]byte, error)
	// Write stores the file, replacing any previous contents.
	Write(ctx context.Context, path string, data []byte) error
	// Delete removes the stored file. Deleting a missing path is a no-op.
	Delete(ctx context.Context, path string) error
	// List returns the paths under the given folder prefix, sorted.
	List(ctx context.Context, folder string) ([]string, error)
}

// MetaFileName is the reserved name of the shared project meta file.
const MetaFileName = "meta.json"

const invalidNameChars = `\:*?"<>|`

// ValidateName rejects empty names, reserved characters and path segments
// that would escape the project tree. Violations are contract errors raised
// to the caller.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty name", errors.ErrInvalidName)
	}
	if strings.ContainsAny(name, invalidNameChars) {
		return fmt.Errorf("%w: %q contains a reserved character", errors.ErrInvalidName, name)
	}
	for _, segment := range strings.Split(name, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return fmt.Errorf("%w: %q", errors.ErrInvalidName, name)
		}
	}
	return nil
}

// ValidateFileName additionally rejects collisions with reserved file names.
func ValidateFileName(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	base := name
	if i := strings.LastIndex(name, "/"); i >= 0 {
		base = name[i+1:]
	}
	if strings.EqualFold(base, MetaFileName) {
		return fmt.Errorf("%w: %q", errors.ErrReservedName, name)
	}
	return nil
}

// Memory is an in-memory Store used by the editor and by tests.
type Memory struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

// Read implements Store.
func (m *Memory) Read(ctx context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errors.ErrNotFound, path)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Write implements Store.
func (m *Memory) Write(ctx context.Context, path string, data []byte) error {
	if err := ValidateName(path); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.files[path] = stored
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	return nil
}

// List implements Store.
func (m *Memory) List(ctx context.Context, folder string) ([]string, error) {
	prefix := folder
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var paths []string
	for path := range m.files {
		if strings.HasPrefix(path, prefix) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}
