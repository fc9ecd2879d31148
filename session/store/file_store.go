package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var _ Store = (*FileStore)(nil)

// FileStore persists keys as a JSON object on disk so a session survives
// process restarts. Writes go through a temp file and rename. Individual
// operations are serialized with a mutex; concurrent writers are otherwise
// last-write-wins.
type FileStore struct {
	path string
	lock sync.Mutex
	data map[string]string
}

// NewFileStore loads (or initializes) the store at path.
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{
		path: path,
		data: make(map[string]string),
	}

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store.NewFileStore read: %w", err)
	}
	if err := json.Unmarshal(b, &fs.data); err != nil {
		// A corrupt credential file is equivalent to being logged out.
		fs.data = make(map[string]string)
	}
	return fs, nil
}

func (fs *FileStore) Get(key string) string {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	return fs.data[key]
}

func (fs *FileStore) Set(key, value string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.data[key] = value
	return fs.flush()
}

func (fs *FileStore) Delete(key string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	delete(fs.data, key)
	return fs.flush()
}

func (fs *FileStore) Clear() error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.data = make(map[string]string)
	return fs.flush()
}

func (fs *FileStore) flush() error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return fmt.Errorf("store.FileStore flush: %w", err)
	}
	b, err := json.Marshal(fs.data)
	if err != nil {
		return fmt.Errorf("store.FileStore marshal: %w", err)
	}
	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("store.FileStore write: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return fmt.Errorf("store.FileStore rename: %w", err)
	}
	return nil
}
