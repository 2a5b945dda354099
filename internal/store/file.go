package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
)

type fileRecord[T any] struct {
	ID    string `json:"id"`
	Value T      `json:"value"`
}

// File is a Store persisted to a JSON file. Every mutation rewrites the file;
// it suits the small registries a single CLI process keeps between runs.
type File[T any] struct {
	path string
	mem  *Memory[T]
	// serialises writes so the file always reflects the latest state
	saveMu sync.Mutex
	errMu  sync.Mutex
	err    error
}

// OpenFile loads path if it exists. A file that fails to parse is an error;
// a missing or empty file starts an empty store.
func OpenFile[T any](path string) (*File[T], error) {
	f := &File[T]{path: path, mem: NewMemory[T]()}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read store %s: %w", path, err)
	}
	if len(data) > 0 {
		var records []fileRecord[T]
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parse store %s: %w", path, err)
		}
		for _, r := range records {
			f.mem.Put(r.ID, r.Value)
		}
	}
	return f, nil
}

// Err returns the first write failure since the store was opened. The Store
// interface has no error returns, so persistence failures surface here.
func (f *File[T]) Err() error {
	f.errMu.Lock()
	defer f.errMu.Unlock()
	return f.err
}

func (f *File[T]) Put(id string, value T) {
	f.mem.Put(id, value)
	f.save()
}

func (f *File[T]) Get(id string) (T, bool) { return f.mem.Get(id) }

func (f *File[T]) Delete(id string) bool {
	ok := f.mem.Delete(id)
	if ok {
		f.save()
	}
	return ok
}

func (f *File[T]) Update(id string, fn func(*T) bool) (T, bool) {
	changed := false
	value, ok := f.mem.Update(id, func(v *T) bool {
		changed = fn(v)
		return changed
	})
	if changed {
		f.save()
	}
	return value, ok
}

func (f *File[T]) List() []T { return f.mem.List() }

func (f *File[T]) Len() int { return f.mem.Len() }

func (f *File[T]) Clear() {
	f.mem.Clear()
	f.save()
}

func (f *File[T]) save() {
	f.saveMu.Lock()
	defer f.saveMu.Unlock()

	if err := f.write(); err != nil {
		f.errMu.Lock()
		if f.err == nil {
			f.err = err
		}
		f.errMu.Unlock()
	}
}

func (f *File[T]) write() error {
	if dir := filepath.Dir(f.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
	}

	f.mem.mu.RLock()
	records := make([]fileRecord[T], 0, len(f.mem.items))
	for element := f.mem.order.Front(); element != nil; element = element.Next() {
		e := element.Value.(*entry[T])
		records = append(records, fileRecord[T]{ID: e.id, Value: e.value})
	}
	f.mem.mu.RUnlock()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	// write-then-rename so a crash never leaves a truncated file
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	return os.Rename(tmp, f.path)
}
