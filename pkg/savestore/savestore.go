/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package savestore persists opaque recording blobs under a path like key.
// Callers own the encoding, a store only moves bytes.
package savestore

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by Load when nothing was saved under a path.
var ErrNotFound = errors.New("save data not found")

type Store interface {
	// Save replaces whatever was stored under path.
	Save(path string, data []byte) error

	// Load returns ErrNotFound (possibly wrapped) for unknown paths.
	Load(path string) ([]byte, error)

	Exists(path string) (bool, error)
}

// FileStore keeps every blob in its own file, path being interpreted
// relative to Root.
type FileStore struct {
	Root string
}

func (fs *FileStore) resolve(path string) string {
	if fs.Root == "" || filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(fs.Root, path)
}

func (fs *FileStore) Save(path string, data []byte) error {
	target := fs.resolve(path)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.WithMessagef(err, "could not create directory for %s", target)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".*")
	if err != nil {
		return errors.WithMessage(err, "could not create temporary file")
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.WithMessagef(err, "could not write %s", tmp.Name())
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.WithMessagef(err, "could not close %s", tmp.Name())
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return errors.WithMessagef(err, "could not move save data to %s", target)
	}

	return nil
}

func (fs *FileStore) Load(path string) ([]byte, error) {
	data, err := os.ReadFile(fs.resolve(path))
	if os.IsNotExist(err) {
		return nil, errors.WithMessage(ErrNotFound, path)
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "could not read %s", path)
	}
	return data, nil
}

func (fs *FileStore) Exists(path string) (bool, error) {
	info, err := os.Stat(fs.resolve(path))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.WithMessagef(err, "could not stat %s", path)
	}
	return !info.IsDir(), nil
}

// MemoryStore is a volatile store, mostly useful for simulation and tests.
type MemoryStore struct {
	mutex sync.Mutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: map[string][]byte{},
	}
}

func (ms *MemoryStore) Save(path string, data []byte) error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	ms.blobs[filepath.Clean(path)] = append([]byte(nil), data...)
	return nil
}

func (ms *MemoryStore) Load(path string) ([]byte, error) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	data, ok := ms.blobs[filepath.Clean(path)]
	if !ok {
		return nil, errors.WithMessage(ErrNotFound, path)
	}
	return append([]byte(nil), data...), nil
}

func (ms *MemoryStore) Exists(path string) (bool, error) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	_, ok := ms.blobs[filepath.Clean(path)]
	return ok, nil
}

// Paths lists every saved path in no particular order.
func (ms *MemoryStore) Paths() []string {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	paths := make([]string, 0, len(ms.blobs))
	for p := range ms.blobs {
		paths = append(paths, p)
	}
	return paths
}

// IsNotFound reports whether err originates from a missing path.
func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}
