package storefakes

import (
	"sync"

	"github.com/worknest/worknest-go/session/store"
)

var _ store.Store = (*FakeStore)(nil)

// FakeStore is an in-memory store.Store for tests. It counts writes and
// clears so tests can assert the clear-all-keys behavior, and can be primed
// to fail writes.
type FakeStore struct {
	lock sync.RWMutex
	data map[string]string

	SetCalls   int
	ClearCalls int
	SetErr     error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{data: make(map[string]string)}
}

func (fs *FakeStore) Get(key string) string {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.data[key]
}

func (fs *FakeStore) Set(key, value string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.SetCalls++
	if fs.SetErr != nil {
		return fs.SetErr
	}
	fs.data[key] = value
	return nil
}

func (fs *FakeStore) Delete(key string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	delete(fs.data, key)
	return nil
}

func (fs *FakeStore) Clear() error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.ClearCalls++
	fs.data = make(map[string]string)
	return nil
}

// Len returns the number of stored keys.
func (fs *FakeStore) Len() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return len(fs.data)
}
