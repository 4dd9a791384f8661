package blob

import (
	"os"
	"path/filepath"

	"equiptrack/internal/filex"
	"equiptrack/internal/server/models"
)

// LocalStore is the legacy local-disk image location: one sanitized
// subdirectory per equipment id under a fixed uploads root. New images never
// land here; the store only serves, verifies and deletes files that predate
// the object-store migration.
type LocalStore struct {
	root string
}

// NewLocalStore ensures the uploads root exists and returns the store.
func NewLocalStore(dir string) (*LocalStore, error) {
	root, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &LocalStore{root: root}, nil
}

// Root returns the absolute uploads root.
func (l *LocalStore) Root() string {
	return l.root
}

// Path resolves a store-relative key to an absolute file path.
func (l *LocalStore) Path(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}

// Exists reports whether the key resolves to a regular file on disk.
func (l *LocalStore) Exists(key string) bool {
	fi, err := os.Stat(l.Path(key))
	return err == nil && fi.Mode().IsRegular()
}

// Write stores data under key, creating the per-equipment subdirectory as
// needed. Used by tests and tooling; request handling never writes here.
func (l *LocalStore) Write(key string, data []byte) error {
	if sub := filepath.Dir(filepath.FromSlash(key)); sub != "." {
		if _, err := filex.EnsureSubDir(l.root, sub); err != nil {
			return err
		}
	}
	return os.WriteFile(l.Path(key), data, 0o660)
}

// Delete removes the file behind key and reports whether a file was
// actually removed. Remote-hosted keys are a no-op success: the lifecycle
// of object-store blobs is decoupled from record deletion. Filesystem
// errors collapse into false rather than propagating.
func (l *LocalStore) Delete(key string) bool {
	if _, remote := models.ParseImageRef(key).(models.RemoteRef); remote {
		return true
	}
	return os.Remove(l.Path(key)) == nil
}
