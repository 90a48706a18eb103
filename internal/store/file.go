package store

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/myatdennis/coursesync/internal/shared"
)

// FileAdapter stores one JSON document per namespace as a file under a base
// directory. Two sessions writing the same namespace race last-write-wins,
// consistent with the rest of the engine's conflict policy.
type FileAdapter struct {
	dir    string
	logger *log.Logger
}

// NewFileAdapter creates a FileAdapter rooted at dir, creating the directory
// if needed. Directory creation failure is returned; later write failures
// are only logged per the adapter contract.
func NewFileAdapter(dir string, logger *log.Logger) (*FileAdapter, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileAdapter{dir: dir, logger: logger}, nil
}

// Read returns the document stored for key, or ok=false if absent.
func (a *FileAdapter) Read(key string) ([]byte, bool) {
	data, err := os.ReadFile(a.path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			a.logger.Warn("local store read failed", "key", key, "err", err)
		}
		return nil, false
	}
	return data, true
}

// Write stores the document for key. A failed write (e.g. disk full,
// permissions) is logged and reported as false.
func (a *FileAdapter) Write(key string, data []byte) bool {
	path := a.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		a.logger.Warn("local store write failed", "key", key, "err", err)
		return false
	}
	if err := os.Rename(tmp, path); err != nil {
		a.logger.Warn("local store rename failed", "key", key, "err", err)
		return false
	}
	return true
}

// path maps a namespace key to a filename; separators are flattened so keys
// never escape the base directory.
func (a *FileAdapter) path(key string) string {
	name := strings.NewReplacer(":", "_", "/", "_", string(os.PathSeparator), "_").Replace(key)
	return filepath.Join(a.dir, name+".json")
}
